package service

import (
	"context"
	"errors"
	"time"

	"rightsledger/internal/audit"
	"rightsledger/internal/instrument/models"
	id "rightsledger/pkg/domain"
	dErrors "rightsledger/pkg/domain-errors"
	"rightsledger/pkg/requestcontext"
)

// Investment reports the outcome of a successful Invest call.
type Investment struct {
	Fee   uint64
	Net   uint64
	Units uint64
}

// Invest converts a gross payment into instrument units at the fixed price,
// net of the platform fee. The payment is pulled in two legs (net to custody,
// fee to the fee recipient) inside the instrument's critical section. A
// rejected net leg discards the working copy before any money moves; a
// rejected fee leg additionally refunds the already-pulled net back to the
// caller, so the external ledger and the aggregate roll back together.
func (s *Service) Invest(ctx context.Context, instrumentID id.InstrumentID, paymentAmount uint64) (*Investment, error) {
	ctx, span := s.tracer.Start(ctx, "instrument.Invest")
	defer span.End()

	start := time.Now()
	caller := requestcontext.CallerID(ctx)
	if caller.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}
	if paymentAmount == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "payment amount must be positive")
	}

	now := requestcontext.Now(ctx)
	var result Investment
	committed, err := s.store.Execute(ctx, instrumentID, func(in *models.Instrument) error {
		fee, net, units := in.Quote(paymentAmount)
		if err := in.CanInvest(caller, paymentAmount, units); err != nil {
			return err
		}

		// Effects before external calls: the working copy already shows
		// the purchase when the asset-ledger pulls run.
		in.ApplyPurchase(caller, units, net, now)

		if err := s.assets.Transfer(ctx, caller, in.Custody, net); err != nil {
			return wrapTransferErr(err)
		}
		if fee > 0 {
			if err := s.assets.Transfer(ctx, caller, in.FeeRecipient, fee); err != nil {
				// The net already moved on the external ledger; discarding
				// the working copy alone would strand it in custody.
				if refundErr := s.assets.Transfer(ctx, in.Custody, caller, net); refundErr != nil {
					s.logger.ErrorContext(ctx, "net refund failed after rejected fee leg",
						"instrument_id", instrumentID,
						"account", caller,
						"net", net,
						"error", refundErr,
					)
					return wrapTransferErr(errors.Join(err, refundErr))
				}
				return wrapTransferErr(err)
			}
		}

		result = Investment{Fee: fee, Net: net, Units: units}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr(err)
	}

	s.logger.InfoContext(ctx, "investment accepted",
		"instrument_id", instrumentID,
		"account", caller,
		"net", result.Net,
		"units", result.Units,
	)

	requestID := requestcontext.RequestID(ctx)
	s.emit(ctx, audit.Event{
		Timestamp:         now,
		Action:            audit.ActionInvested,
		InstrumentID:      committed.ID,
		Account:           caller,
		Amount:            result.Net,
		Units:             result.Units,
		DistributionIndex: -1,
		RequestID:         requestID,
	})
	if result.Fee > 0 {
		s.emit(ctx, audit.Event{
			Timestamp:         now,
			Action:            audit.ActionPlatformFeeCollected,
			InstrumentID:      committed.ID,
			Account:           caller,
			Amount:            result.Fee,
			DistributionIndex: -1,
			RequestID:         requestID,
		})
	}

	if s.metrics != nil {
		s.metrics.IncrementInvestments()
		s.metrics.ObserveInvest(start)
	}
	return &result, nil
}
