package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"rightsledger/internal/instrument/models"
	"rightsledger/internal/platform/middleware"
	"rightsledger/internal/transport/http/shared"
	id "rightsledger/pkg/domain"
	dErrors "rightsledger/pkg/domain-errors"
	"rightsledger/pkg/requestcontext"
)

// Service defines the interface for registry operations.
type Service interface {
	Create(ctx context.Context, name, symbol, info string, params models.Params) (*models.Instrument, error)
	GetAt(ctx context.Context, index int) (id.InstrumentID, error)
	Count(ctx context.Context) (int, error)
	ListByOwner(ctx context.Context, owner id.AccountID) ([]id.InstrumentID, error)
	IsValid(ctx context.Context, instrumentID id.InstrumentID) bool
}

// Handler handles registry endpoints.
type Handler struct {
	logger       *slog.Logger
	registry     Service
	jwtValidator middleware.JWTValidator
}

// New creates a new registry Handler.
func New(registry Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		registry:     registry,
		jwtValidator: jwtValidator,
	}
}

// Register registers the registry routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	router.Post("/registry/instruments", h.handleCreate)
	router.Get("/registry/instruments", h.handleList)
	router.Get("/registry/instruments/{index}", h.handleGetAt)
	router.Get("/registry/instruments/{index}/valid", h.handleIsValidAt)
	router.Get("/registry/valid/{id}", h.handleIsValid)

	r.Mount("/", router)
}

type createRequest struct {
	Name                   string `json:"name"`
	Symbol                 string `json:"symbol"`
	Info                   string `json:"info"`
	TotalValue             uint64 `json:"total_value"`
	ExpectedPeriodicIncome uint64 `json:"expected_periodic_income"`
	UnitPrice              uint64 `json:"unit_price"`
	MaxSupply              uint64 `json:"max_supply"`
	UnitScale              uint64 `json:"unit_scale"`
	FeeBps                 uint64 `json:"fee_bps"`
	MinInvestment          uint64 `json:"min_investment"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	in, err := h.registry.Create(r.Context(), req.Name, req.Symbol, req.Info, models.Params{
		TotalValue:             req.TotalValue,
		ExpectedPeriodicIncome: req.ExpectedPeriodicIncome,
		UnitPrice:              req.UnitPrice,
		MaxSupply:              req.MaxSupply,
		UnitScale:              req.UnitScale,
		FeeBps:                 req.FeeBps,
		MinInvestment:          req.MinInvestment,
	})
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, map[string]any{
		"instrument_id": in.ID,
		"max_supply":    in.MaxSupply,
		"unit_price":    in.UnitPrice,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	count, err := h.registry.Count(ctx)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	owned, err := h.registry.ListByOwner(ctx, requestcontext.CallerID(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	mine := make([]string, 0, len(owned))
	for _, instrumentID := range owned {
		mine = append(mine, instrumentID.String())
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"count": count,
		"owned": mine,
	})
}

func (h *Handler) handleGetAt(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid index"))
		return
	}
	instrumentID, err := h.registry.GetAt(r.Context(), index)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"instrument_id": instrumentID.String()})
}

func (h *Handler) handleIsValidAt(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid index"))
		return
	}
	instrumentID, err := h.registry.GetAt(r.Context(), index)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]bool{
		"valid": h.registry.IsValid(r.Context(), instrumentID),
	})
}

func (h *Handler) handleIsValid(w http.ResponseWriter, r *http.Request) {
	instrumentID, err := id.ParseInstrumentID(chi.URLParam(r, "id"))
	if err != nil {
		// IsValid never fails: an unparseable ID is simply not valid.
		shared.WriteJSON(w, http.StatusOK, map[string]bool{"valid": false})
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]bool{
		"valid": h.registry.IsValid(r.Context(), instrumentID),
	})
}
