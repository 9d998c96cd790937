package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"rightsledger/internal/instrument/models"
	"rightsledger/internal/instrument/service"
	"rightsledger/internal/platform/middleware"
	"rightsledger/internal/transport/http/shared"
	id "rightsledger/pkg/domain"
	dErrors "rightsledger/pkg/domain-errors"
)

// Service defines the interface for instrument operations.
type Service interface {
	AcceptTerms(ctx context.Context, instrumentID id.InstrumentID) error
	Invest(ctx context.Context, instrumentID id.InstrumentID, paymentAmount uint64) (*service.Investment, error)
	Distribute(ctx context.Context, instrumentID id.InstrumentID, declaredAmount uint64, description string) (*service.DistributionResult, error)
	ClaimRevenue(ctx context.Context, instrumentID id.InstrumentID, index int) (uint64, error)
	Transfer(ctx context.Context, instrumentID id.InstrumentID, to id.AccountID, units uint64) error
	Pause(ctx context.Context, instrumentID id.InstrumentID) error
	Unpause(ctx context.Context, instrumentID id.InstrumentID) error
	SetActive(ctx context.Context, instrumentID id.InstrumentID, active bool) error
	UpdateInfo(ctx context.Context, instrumentID id.InstrumentID, name, symbol, info string) error
	WithdrawPayment(ctx context.Context, instrumentID id.InstrumentID, to id.AccountID, amount uint64) error

	GetSummary(ctx context.Context, instrumentID id.InstrumentID) (*service.Summary, error)
	BalanceOf(ctx context.Context, instrumentID id.InstrumentID, account id.AccountID) (uint64, error)
	ListDistributions(ctx context.Context, instrumentID id.InstrumentID) ([]models.Distribution, error)
	PendingRevenue(ctx context.Context, instrumentID id.InstrumentID, account id.AccountID, index int) (uint64, error)
	ListInvestors(ctx context.Context, instrumentID id.InstrumentID) ([]id.AccountID, error)
	InvestedTotal(ctx context.Context, instrumentID id.InstrumentID, account id.AccountID) (uint64, error)
}

// Handler handles instrument endpoints.
type Handler struct {
	logger       *slog.Logger
	instruments  Service
	jwtValidator middleware.JWTValidator
}

// New creates a new instrument Handler.
func New(instruments Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		instruments:  instruments,
		jwtValidator: jwtValidator,
	}
}

// Register registers the instrument routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(h.logger))
	router.Use(middleware.ContentTypeJSON)
	router.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

	router.Post("/instruments/{id}/terms", h.handleAcceptTerms)
	router.Post("/instruments/{id}/invest", h.handleInvest)
	router.Post("/instruments/{id}/transfer", h.handleTransfer)
	router.Post("/instruments/{id}/distributions", h.handleDistribute)
	router.Post("/instruments/{id}/distributions/{index}/claim", h.handleClaim)
	router.Post("/instruments/{id}/pause", h.handlePause)
	router.Post("/instruments/{id}/unpause", h.handleUnpause)
	router.Post("/instruments/{id}/active", h.handleSetActive)
	router.Put("/instruments/{id}/info", h.handleUpdateInfo)
	router.Post("/instruments/{id}/withdraw", h.handleWithdraw)

	router.Get("/instruments/{id}", h.handleSummary)
	router.Get("/instruments/{id}/balances/{account}", h.handleBalance)
	router.Get("/instruments/{id}/distributions", h.handleListDistributions)
	router.Get("/instruments/{id}/distributions/{index}/pending", h.handlePendingRevenue)
	router.Get("/instruments/{id}/investors", h.handleListInvestors)
	router.Get("/instruments/{id}/invested/{account}", h.handleInvestedTotal)

	r.Mount("/", router)
}

func (h *Handler) instrumentID(w http.ResponseWriter, r *http.Request) (id.InstrumentID, bool) {
	instrumentID, err := id.ParseInstrumentID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return id.InstrumentID{}, false
	}
	return instrumentID, true
}

func (h *Handler) handleAcceptTerms(w http.ResponseWriter, r *http.Request) {
	instrumentID, ok := h.instrumentID(w, r)
	if !ok {
		return
	}
	if err := h.instruments.AcceptTerms(r.Context(), instrumentID); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (h *Handler) handleInvest(w http.ResponseWriter, r *http.Request) {
	instrumentID, ok := h.instrumentID(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount uint64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	result, err := h.instruments.Invest(r.Context(), instrumentID, req.Amount)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]uint64{
		"fee":   result.Fee,
		"net":   result.Net,
		"units": result.Units,
	})
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	instrumentID, ok := h.instrumentID(w, r)
	if !ok {
		return
	}
	var req struct {
		To    string `json:"to"`
		Units uint64 `json:"units"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	to, err := id.ParseAccountID(req.To)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.instruments.Transfer(r.Context(), instrumentID, to, req.Units); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "transferred"})
}

func (h *Handler) handleDistribute(w http.ResponseWriter, r *http.Request) {
	instrumentID, ok := h.instrumentID(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount      uint64 `json:"amount"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	result, err := h.instruments.Distribute(r.Context(), instrumentID, req.Amount, req.Description)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]any{
		"index":               result.Index,
		"total_amount":        result.TotalAmount,
		"snapshot_sold_units": result.SnapshotSoldUnits,
	})
}

func (h *Handler) handleClaim(w http.ResponseWriter, r *http.Request) {
	instrumentID, ok := h.instrumentID(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid distribution index"))
		return
	}
	share, err := h.instruments.ClaimRevenue(r.Context(), instrumentID, index)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]uint64{"share": share})
}

func (h *Handler) handlePause(w http.ResponseWriter, r *http.Request) {
	h.adminToggle(w, r, h.instruments.Pause)
}

func (h *Handler) handleUnpause(w http.ResponseWriter, r *http.Request) {
	h.adminToggle(w, r, h.instruments.Unpause)
}

func (h *Handler) adminToggle(w http.ResponseWriter, r *http.Request, op func(context.Context, id.InstrumentID) error) {
	instrumentID, ok := h.instrumentID(w, r)
	if !ok {
		return
	}
	if err := op(r.Context(), instrumentID); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleSetActive(w http.ResponseWriter, r *http.Request) {
	instrumentID, ok := h.instrumentID(w, r)
	if !ok {
		return
	}
	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.instruments.SetActive(r.Context(), instrumentID, req.Active); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleUpdateInfo(w http.ResponseWriter, r *http.Request) {
	instrumentID, ok := h.instrumentID(w, r)
	if !ok {
		return
	}
	var req struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
		Info   string `json:"info"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.instruments.UpdateInfo(r.Context(), instrumentID, req.Name, req.Symbol, req.Info); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	instrumentID, ok := h.instrumentID(w, r)
	if !ok {
		return
	}
	var req struct {
		To     string `json:"to"`
		Amount uint64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	to, err := id.ParseAccountID(req.To)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.instruments.WithdrawPayment(r.Context(), instrumentID, to, req.Amount); err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	instrumentID, ok := h.instrumentID(w, r)
	if !ok {
		return
	}
	summary, err := h.instruments.GetSummary(r.Context(), instrumentID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleBalance(w http.ResponseWriter, r *http.Request) {
	instrumentID, ok := h.instrumentID(w, r)
	if !ok {
		return
	}
	account, err := id.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	balance, err := h.instruments.BalanceOf(r.Context(), instrumentID, account)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]uint64{"balance": balance})
}

func (h *Handler) handleListDistributions(w http.ResponseWriter, r *http.Request) {
	instrumentID, ok := h.instrumentID(w, r)
	if !ok {
		return
	}
	distributions, err := h.instruments.ListDistributions(r.Context(), instrumentID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	type entry struct {
		TotalAmount       uint64    `json:"total_amount"`
		SnapshotSoldUnits uint64    `json:"snapshot_sold_units"`
		Timestamp         time.Time `json:"timestamp"`
		Description       string    `json:"description"`
	}
	out := make([]entry, 0, len(distributions))
	for _, d := range distributions {
		out = append(out, entry{
			TotalAmount:       d.TotalAmount,
			SnapshotSoldUnits: d.SnapshotSoldUnits,
			Timestamp:         d.Timestamp,
			Description:       d.Description,
		})
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handlePendingRevenue(w http.ResponseWriter, r *http.Request) {
	instrumentID, ok := h.instrumentID(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid distribution index"))
		return
	}
	account, err := id.ParseAccountID(r.URL.Query().Get("account"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	pending, err := h.instruments.PendingRevenue(r.Context(), instrumentID, account, index)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]uint64{"pending": pending})
}

func (h *Handler) handleListInvestors(w http.ResponseWriter, r *http.Request) {
	instrumentID, ok := h.instrumentID(w, r)
	if !ok {
		return
	}
	investors, err := h.instruments.ListInvestors(r.Context(), instrumentID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]string, 0, len(investors))
	for _, a := range investors {
		out = append(out, a.String())
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"count":     len(out),
		"investors": out,
	})
}

func (h *Handler) handleInvestedTotal(w http.ResponseWriter, r *http.Request) {
	instrumentID, ok := h.instrumentID(w, r)
	if !ok {
		return
	}
	account, err := id.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	total, err := h.instruments.InvestedTotal(r.Context(), instrumentID, account)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]uint64{"invested": total})
}
