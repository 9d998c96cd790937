package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"rightsledger/internal/assetledger"
	"rightsledger/internal/audit"
	instrmetrics "rightsledger/internal/instrument/metrics"
	"rightsledger/internal/instrument/models"
	id "rightsledger/pkg/domain"
	dErrors "rightsledger/pkg/domain-errors"
	"rightsledger/pkg/platform/sentinel"
)

// Store is the atomic execution boundary for instrument aggregates. Execute
// must serialize operations per instrument, run fn on a working copy, and
// commit only when fn returns nil. The in-memory implementation lives in
// internal/instrument/store.
type Store interface {
	Create(ctx context.Context, in *models.Instrument) error
	Get(ctx context.Context, instrumentID id.InstrumentID) (*models.Instrument, error)
	Execute(ctx context.Context, instrumentID id.InstrumentID, fn func(*models.Instrument) error) (*models.Instrument, error)
}

// AuditPublisher receives exactly one event per successful operation.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates every instrument operation: compliance, issuance,
// distributions, claims, transfers and the admin surface. External
// asset-ledger calls happen inside the store's critical section so a rejected
// transfer rolls the whole operation back.
type Service struct {
	store   Store
	assets  assetledger.Ledger
	logger  *slog.Logger
	audit   AuditPublisher
	metrics *instrmetrics.Metrics
	tracer  trace.Tracer
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

func WithMetrics(m *instrmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// New constructs a Service.
func New(store Store, assets assetledger.Ledger, opts ...Option) *Service {
	s := &Service{store: store, assets: assets}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = noop.NewTracerProvider().Tracer("")
	}
	return s
}

// Tracer returns the otel tracer for this module when wired in main.
func Tracer() trace.Tracer {
	return otel.Tracer("rightsledger/instrument")
}

// emit publishes an audit event for a committed operation. Emission failures
// are logged, not surfaced: the domain effect has already been applied and
// must not be unwound for an observability sink.
func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed",
			"action", event.Action,
			"instrument_id", event.InstrumentID,
			"error", err,
		)
	}
}

// wrapStoreErr translates store sentinels into domain errors and passes
// already-coded errors (from Can* guards and transfer wrapping) through.
func wrapStoreErr(err error) error {
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "instrument not found")
	}
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.New(dErrors.CodeConflict, "instrument already exists")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "instrument store failure")
}

// wrapTransferErr marks a rejected asset-ledger call as an external failure
// unless it already carries a domain code.
func wrapTransferErr(err error) error {
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeExternalFailure, "asset transfer failed")
}
