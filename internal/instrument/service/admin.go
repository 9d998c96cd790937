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

// AcceptTerms sets the caller's one-way compliance flag on the instrument.
func (s *Service) AcceptTerms(ctx context.Context, instrumentID id.InstrumentID) error {
	caller := requestcontext.CallerID(ctx)
	if caller.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}

	now := requestcontext.Now(ctx)
	committed, err := s.store.Execute(ctx, instrumentID, func(in *models.Instrument) error {
		if err := in.CanAcceptTerms(caller); err != nil {
			return err
		}
		in.ApplyAcceptTerms(caller, now)
		return nil
	})
	if err != nil {
		return wrapStoreErr(err)
	}

	s.emit(ctx, audit.Event{
		Timestamp:         now,
		Action:            audit.ActionTermsAccepted,
		InstrumentID:      committed.ID,
		Account:           caller,
		DistributionIndex: -1,
		RequestID:         requestcontext.RequestID(ctx),
	})
	return nil
}

// Transfer moves units between holders, subject to the transfer guard:
// pause state and compliance on both ends.
func (s *Service) Transfer(ctx context.Context, instrumentID id.InstrumentID, to id.AccountID, units uint64) error {
	caller := requestcontext.CallerID(ctx)
	if caller.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}
	if to.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "recipient is required")
	}

	now := requestcontext.Now(ctx)
	_, err := s.store.Execute(ctx, instrumentID, func(in *models.Instrument) error {
		if err := in.CanTransfer(caller, to, units); err != nil {
			return err
		}
		in.ApplyTransfer(caller, to, units, now)
		return nil
	})
	if err != nil {
		return wrapStoreErr(err)
	}

	s.logger.InfoContext(ctx, "units transferred",
		"instrument_id", instrumentID,
		"from", caller,
		"to", to,
		"units", units,
	)
	return nil
}

// Pause halts investment and transfers until Unpause.
func (s *Service) Pause(ctx context.Context, instrumentID id.InstrumentID) error {
	return s.adminToggle(ctx, instrumentID,
		func(in *models.Instrument, caller id.AccountID) error { return in.CanPause(caller) },
		(*models.Instrument).ApplyPause,
	)
}

// Unpause lifts a pause. The guard exempts this operation itself from the
// paused check.
func (s *Service) Unpause(ctx context.Context, instrumentID id.InstrumentID) error {
	return s.adminToggle(ctx, instrumentID,
		func(in *models.Instrument, caller id.AccountID) error { return in.CanUnpause(caller) },
		(*models.Instrument).ApplyUnpause,
	)
}

// SetActive flips the instrument's investability switch.
func (s *Service) SetActive(ctx context.Context, instrumentID id.InstrumentID, active bool) error {
	caller := requestcontext.CallerID(ctx)
	if caller.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}
	now := requestcontext.Now(ctx)
	_, err := s.store.Execute(ctx, instrumentID, func(in *models.Instrument) error {
		if err := in.CanSetActive(caller, active); err != nil {
			return err
		}
		in.ApplySetActive(active, now)
		return nil
	})
	if err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

// UpdateInfo replaces the instrument's display metadata.
func (s *Service) UpdateInfo(ctx context.Context, instrumentID id.InstrumentID, name, symbol, info string) error {
	caller := requestcontext.CallerID(ctx)
	if caller.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}
	now := requestcontext.Now(ctx)
	_, err := s.store.Execute(ctx, instrumentID, func(in *models.Instrument) error {
		if err := in.CanUpdateInfo(caller); err != nil {
			return err
		}
		in.ApplyInfoUpdate(name, symbol, info, now)
		return nil
	})
	if err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

// WithdrawPayment moves investment proceeds out of custody. Distribution
// escrow is excluded by the guard.
func (s *Service) WithdrawPayment(ctx context.Context, instrumentID id.InstrumentID, to id.AccountID, amount uint64) error {
	caller := requestcontext.CallerID(ctx)
	if caller.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}
	if to.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "recipient is required")
	}

	now := requestcontext.Now(ctx)
	_, err := s.store.Execute(ctx, instrumentID, func(in *models.Instrument) error {
		if err := in.CanWithdraw(caller, amount); err != nil {
			return err
		}
		in.ApplyWithdraw(amount, now)
		if err := s.assets.Transfer(ctx, in.Custody, to, amount); err != nil {
			return wrapTransferErr(err)
		}
		return nil
	})
	if err != nil {
		return wrapStoreErr(err)
	}

	s.logger.InfoContext(ctx, "proceeds withdrawn",
		"instrument_id", instrumentID,
		"to", to,
		"amount", amount,
	)
	return nil
}

func (s *Service) adminToggle(
	ctx context.Context,
	instrumentID id.InstrumentID,
	can func(*models.Instrument, id.AccountID) error,
	apply func(*models.Instrument, time.Time),
) error {
	caller := requestcontext.CallerID(ctx)
	if caller.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}
	now := requestcontext.Now(ctx)
	_, err := s.store.Execute(ctx, instrumentID, func(in *models.Instrument) error {
		if err := can(in, caller); err != nil {
			return err
		}
		apply(in, now)
		return nil
	})
	if err != nil {
		return wrapStoreErr(err)
	}
	return nil
}
