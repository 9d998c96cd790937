// Package registry is the factory that mints and indexes instruments.
package registry

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"rightsledger/internal/audit"
	"rightsledger/internal/instrument/models"
	registrymetrics "rightsledger/internal/registry/metrics"
	id "rightsledger/pkg/domain"
	dErrors "rightsledger/pkg/domain-errors"
	"rightsledger/pkg/platform/sentinel"
	"rightsledger/pkg/requestcontext"
)

// InstrumentStore is where created aggregates live; the registry only keeps
// the index.
type InstrumentStore interface {
	Create(ctx context.Context, in *models.Instrument) error
}

// AuditPublisher receives exactly one Created event per instrument.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service creates instruments and answers index lookups.
type Service struct {
	index       Store
	instruments InstrumentStore
	// feeRecipient is the platform account credited with issuance fees on
	// every instrument this registry creates.
	feeRecipient id.AccountID
	logger       *slog.Logger
	audit        AuditPublisher
	metrics      *registrymetrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.audit = publisher
	}
}

func WithMetrics(m *registrymetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithFeeRecipient(account id.AccountID) Option {
	return func(s *Service) {
		s.feeRecipient = account
	}
}

// New constructs a Service.
func New(index Store, instruments InstrumentStore, opts ...Option) *Service {
	s := &Service{index: index, instruments: instruments}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Create mints a new instrument with the caller granted Admin and
// Distributor capabilities, appends it to the global and per-owner lists and
// marks its ID valid.
func (s *Service) Create(ctx context.Context, name, symbol, info string, params models.Params) (*models.Instrument, error) {
	caller := requestcontext.CallerID(ctx)
	if caller.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller identity required")
	}
	name = strings.TrimSpace(name)

	now := requestcontext.Now(ctx)
	in, err := models.New(id.InstrumentID(uuid.New()), caller, s.feeRecipient, name, symbol, info, params, now)
	if err != nil {
		return nil, err
	}

	if err := s.instruments.Create(ctx, in); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "instrument id collision")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create instrument")
	}
	if err := s.index.Append(ctx, in.ID, caller); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to index instrument")
	}

	s.logger.InfoContext(ctx, "instrument created",
		"instrument_id", in.ID,
		"owner", caller,
		"max_supply", in.MaxSupply,
		"unit_price", in.UnitPrice,
	)

	if s.audit != nil {
		event := audit.Event{
			Timestamp:         now,
			Action:            audit.ActionCreated,
			InstrumentID:      in.ID,
			Account:           caller,
			Units:             in.MaxSupply,
			DistributionIndex: -1,
			Description:       name,
			RequestID:         requestcontext.RequestID(ctx),
		}
		if err := s.audit.Emit(ctx, event); err != nil {
			s.logger.ErrorContext(ctx, "audit emit failed",
				"action", event.Action,
				"instrument_id", in.ID,
				"error", err,
			)
		}
	}

	if s.metrics != nil {
		s.metrics.IncrementInstrumentsCreated()
	}
	return in, nil
}

// GetAt returns the instrument ID at a position in creation order.
func (s *Service) GetAt(ctx context.Context, index int) (id.InstrumentID, error) {
	instrumentID, err := s.index.GetAt(ctx, index)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return id.InstrumentID{}, dErrors.New(dErrors.CodeNotFound, "index out of bounds")
		}
		return id.InstrumentID{}, dErrors.Wrap(err, dErrors.CodeInternal, "registry lookup failed")
	}
	return instrumentID, nil
}

// Count returns the number of created instruments.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.index.Count(ctx)
}

// ListByOwner returns the caller's instruments in creation order.
func (s *Service) ListByOwner(ctx context.Context, owner id.AccountID) ([]id.InstrumentID, error) {
	return s.index.ListByOwner(ctx, owner)
}

// IsValid reports whether the ID names a registry-created instrument. Never
// fails.
func (s *Service) IsValid(ctx context.Context, instrumentID id.InstrumentID) bool {
	valid, err := s.index.IsValid(ctx, instrumentID)
	if err != nil {
		return false
	}
	return valid
}
