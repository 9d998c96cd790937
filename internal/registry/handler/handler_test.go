package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	instrstore "rightsledger/internal/instrument/store"
	"rightsledger/internal/jwttoken"
	"rightsledger/internal/registry"
	id "rightsledger/pkg/domain"
)

type fixture struct {
	router chi.Router
	jwt    *jwttoken.JWTService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwtService := jwttoken.NewJWTService("test-signing-key", "rightsledger", "rightsledger")

	svc := registry.New(registry.NewInMemoryStore(), instrstore.NewInMemory(),
		registry.WithLogger(logger),
		registry.WithFeeRecipient(id.AccountID(uuid.New())),
	)

	router := chi.NewRouter()
	New(svc, logger, jwtService).Register(router)
	return &fixture{router: router, jwt: jwtService}
}

func (f *fixture) do(t *testing.T, method, path string, account id.AccountID, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	token, err := f.jwt.GenerateAccessToken(account, time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) create(t *testing.T, owner id.AccountID) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/registry/instruments", owner, map[string]any{
		"name":       "Warehouse 7",
		"symbol":     "WH7",
		"unit_price": 50,
		"max_supply": 2000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var out struct {
		InstrumentID string `json:"instrument_id"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out.InstrumentID
}

func TestCreateAndLookup(t *testing.T) {
	f := newFixture(t)
	owner := id.AccountID(uuid.New())
	created := f.create(t, owner)

	rec := f.do(t, http.MethodGet, "/registry/instruments/0", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		InstrumentID string `json:"instrument_id"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, created, got.InstrumentID)

	rec = f.do(t, http.MethodGet, "/registry/valid/"+created, owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"valid":true}`, rec.Body.String())
}

func TestCreate_MissingAuth(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/registry/instruments", bytes.NewReader([]byte("{}")))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreate_InvalidParams(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/registry/instruments", id.AccountID(uuid.New()), map[string]any{
		"name": "No price or supply",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestList_OwnedOnly(t *testing.T) {
	f := newFixture(t)
	alice := id.AccountID(uuid.New())
	bob := id.AccountID(uuid.New())
	aliceID := f.create(t, alice)
	f.create(t, bob)

	rec := f.do(t, http.MethodGet, "/registry/instruments", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Count int      `json:"count"`
		Owned []string `json:"owned"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, []string{aliceID}, out.Owned)
}

func TestGetAt_OutOfBounds(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/registry/instruments/0", id.AccountID(uuid.New()), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/registry/instruments/nope", id.AccountID(uuid.New()), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIsValid_UnparseableID(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/registry/valid/not-a-uuid", id.AccountID(uuid.New()), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"valid":false}`, rec.Body.String())
}

func TestIsValidAt(t *testing.T) {
	f := newFixture(t)
	owner := id.AccountID(uuid.New())
	f.create(t, owner)

	rec := f.do(t, http.MethodGet, "/registry/instruments/0/valid", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"valid":true}`, rec.Body.String())
}
