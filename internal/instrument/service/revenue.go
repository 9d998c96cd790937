package service

import (
	"context"
	"time"

	"rightsledger/internal/audit"
	"rightsledger/internal/instrument/models"
	id "rightsledger/pkg/domain"
	dErrors "rightsledger/pkg/domain-errors"
	"rightsledger/pkg/requestcontext"
)

// DistributionResult reports the outcome of a funded distribution.
type DistributionResult struct {
	Index             int
	TotalAmount       uint64
	SnapshotSoldUnits uint64
}

// Distribute funds a new revenue distribution. The caller declares the
// amount as if every unit were sold; the engine pulls only the sold fraction
// (declared * soldUnits / maxSupply) from the caller into custody and
// records it with the frozen soldUnits denominator. Either a fully funded
// record is appended or nothing happens.
func (s *Service) Distribute(ctx context.Context, instrumentID id.InstrumentID, declaredAmount uint64, description string) (*DistributionResult, error) {
	ctx, span := s.tracer.Start(ctx, "instrument.Distribute")
	defer span.End()

	start := time.Now()
	caller := requestcontext.CallerID(ctx)
	if caller.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}

	now := requestcontext.Now(ctx)
	var result DistributionResult
	committed, err := s.store.Execute(ctx, instrumentID, func(in *models.Instrument) error {
		if err := in.CanDistribute(caller, declaredAmount); err != nil {
			return err
		}
		actual := in.ProRatedAmount(declaredAmount)
		if actual == 0 {
			return dErrors.New(dErrors.CodeInvalidInput, "distribution amount rounds to zero")
		}

		index := in.ApplyDistribution(actual, description, now)

		if err := s.assets.Transfer(ctx, caller, in.Custody, actual); err != nil {
			return wrapTransferErr(err)
		}

		result = DistributionResult{
			Index:             index,
			TotalAmount:       actual,
			SnapshotSoldUnits: in.Distributions[index].SnapshotSoldUnits,
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr(err)
	}

	s.logger.InfoContext(ctx, "revenue distributed",
		"instrument_id", instrumentID,
		"index", result.Index,
		"amount", result.TotalAmount,
		"snapshot_sold_units", result.SnapshotSoldUnits,
	)

	s.emit(ctx, audit.Event{
		Timestamp:         now,
		Action:            audit.ActionRevenueDistributed,
		InstrumentID:      committed.ID,
		Account:           caller,
		Amount:            result.TotalAmount,
		DistributionIndex: result.Index,
		Description:       description,
		RequestID:         requestcontext.RequestID(ctx),
	})

	if s.metrics != nil {
		s.metrics.IncrementDistributions()
		s.metrics.ObserveDistribute(start)
	}
	return &result, nil
}

// ClaimRevenue pays the caller their proportional share of one distribution:
// totalAmount * balance / snapshotSoldUnits, floor. The claimed flag is set
// on the working copy before the payout transfer, and the whole copy is
// discarded if the transfer is rejected, so "claimed but unpaid" is never
// observable and a second successful claim is impossible.
func (s *Service) ClaimRevenue(ctx context.Context, instrumentID id.InstrumentID, index int) (uint64, error) {
	ctx, span := s.tracer.Start(ctx, "instrument.ClaimRevenue")
	defer span.End()

	start := time.Now()
	caller := requestcontext.CallerID(ctx)
	if caller.IsNil() {
		return 0, dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}

	now := requestcontext.Now(ctx)
	var share uint64
	committed, err := s.store.Execute(ctx, instrumentID, func(in *models.Instrument) error {
		computed, err := in.CanClaim(caller, index)
		if err != nil {
			return err
		}

		in.ApplyClaim(caller, index, now)

		if err := s.assets.Transfer(ctx, in.Custody, caller, computed); err != nil {
			return wrapTransferErr(err)
		}
		share = computed
		return nil
	})
	if err != nil {
		return 0, wrapStoreErr(err)
	}

	s.logger.InfoContext(ctx, "revenue claimed",
		"instrument_id", instrumentID,
		"account", caller,
		"index", index,
		"share", share,
	)

	s.emit(ctx, audit.Event{
		Timestamp:         now,
		Action:            audit.ActionRevenueClaimed,
		InstrumentID:      committed.ID,
		Account:           caller,
		Amount:            share,
		DistributionIndex: index,
		RequestID:         requestcontext.RequestID(ctx),
	})

	if s.metrics != nil {
		s.metrics.IncrementClaims()
		s.metrics.ObserveClaim(start)
	}
	return share, nil
}
