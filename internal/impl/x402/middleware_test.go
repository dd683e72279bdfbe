package x402

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/heyaura/heyaura/internal/domain/entities"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const payToAddress = "0x2222222222222222222222222222222222222222"

func samplePayload() *entities.PaymentPayload {
	return &entities.PaymentPayload{
		X402Version: 1,
		Scheme:      "exact",
		Network:     "base",
		Payload: entities.ExactPaymentPayload{
			Signature: "0xsignature",
			Authorization: entities.TransferAuthorization{
				From:        "0x1111111111111111111111111111111111111111",
				To:          payToAddress,
				Value:       "10000",
				ValidAfter:  "0",
				ValidBefore: "9999999999",
				Nonce:       "0x" + "00" + "11",
			},
		},
	}
}

func TestPaymentHeaderRoundTrip(t *testing.T) {
	payload := samplePayload()

	header, err := EncodePaymentHeader(payload)
	require.NoError(t, err)

	decoded, err := DecodePaymentHeader(header)
	require.NoError(t, err)
	assert.Equal(t, payload.Scheme, decoded.Scheme)
	assert.Equal(t, payload.Payload.Signature, decoded.Payload.Signature)
	assert.Equal(t, payload.Payload.Authorization.Value, decoded.Payload.Authorization.Value)
}

func TestDecodePaymentHeaderRejectsGarbage(t *testing.T) {
	_, err := DecodePaymentHeader("not base64 at all!!!")
	assert.Error(t, err)

	_, err = DecodePaymentHeader("aGVsbG8=") // base64 of "hello"
	assert.Error(t, err)
}

func newGatedEcho(t *testing.T, facilitatorURL string) *echo.Echo {
	t.Helper()
	facilitator := NewFacilitatorClient(facilitatorURL, "key-id", "key-secret", zap.NewNop())
	e := echo.New()
	e.Use(PaymentMiddleware(payToAddress, RoutePrices(), facilitator, zap.NewNop()))
	e.POST("/api/aura-strategies", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"ok": "true"})
	})
	e.POST("/api/free", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"ok": "true"})
	})
	return e
}

func TestMiddlewareIssuesExactChallenge(t *testing.T) {
	e := newGatedEcho(t, "http://127.0.0.1:1")

	req := httptest.NewRequest(http.MethodPost, "/api/aura-strategies", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusPaymentRequired, rec.Code)

	var challenge entities.PaymentChallenge
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &challenge))
	require.Len(t, challenge.Accepts, 1)

	accept := challenge.Accepts[0]
	assert.Equal(t, "exact", accept.Scheme)
	assert.Equal(t, "base", accept.Network)
	assert.Equal(t, "10000", accept.MaxAmountRequired, "challenge price must come from the shared tool table")
	assert.Equal(t, payToAddress, accept.PayTo)
	assert.Equal(t, "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", accept.Asset)
}

func TestMiddlewareIgnoresUngatedRoutes(t *testing.T) {
	e := newGatedEcho(t, "http://127.0.0.1:1")

	req := httptest.NewRequest(http.MethodPost, "/api/free", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareVerifiesAndSettles(t *testing.T) {
	var verifyCalls, settleCalls int
	facilitator := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/verify":
			verifyCalls++
			json.NewEncoder(w).Encode(map[string]any{"isValid": true})
		case "/settle":
			settleCalls++
			json.NewEncoder(w).Encode(entities.SettlementResponse{
				Success:     true,
				Transaction: "0xtxhash",
				Network:     "base",
				Payer:       "0x1111111111111111111111111111111111111111",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer facilitator.Close()

	e := newGatedEcho(t, facilitator.URL)

	header, err := EncodePaymentHeader(samplePayload())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/aura-strategies", nil)
	req.Header.Set("X-Payment", header)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, verifyCalls)
	assert.Equal(t, 1, settleCalls)

	// The settle result rides back on the response header.
	responseHeader := rec.Header().Get("X-Payment-Response")
	require.NotEmpty(t, responseHeader)
}

func TestMiddlewareRejectsInvalidPayment(t *testing.T) {
	facilitator := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"isValid": false, "invalidReason": "insufficient_funds"})
	}))
	defer facilitator.Close()

	e := newGatedEcho(t, facilitator.URL)

	header, err := EncodePaymentHeader(samplePayload())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/aura-strategies", nil)
	req.Header.Set("X-Payment", header)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusPaymentRequired, rec.Code)

	var challenge entities.PaymentChallenge
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &challenge))
	assert.Contains(t, challenge.Error, "insufficient_funds")
	require.Len(t, challenge.Accepts, 1, "rejection must restate the requirements")
}
