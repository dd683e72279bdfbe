package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/heyaura/heyaura/internal/domain/entities"
	"github.com/heyaura/heyaura/internal/domain/errors"
	"github.com/heyaura/heyaura/internal/impl/x402"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSigner struct {
	address  string
	chainID  int64
	signed   []entities.TransferAuthorization
	switched []int64
}

func (f *fakeSigner) Address() string                            { return f.address }
func (f *fakeSigner) ChainID(ctx context.Context) (int64, error) { return f.chainID, nil }
func (f *fakeSigner) SwitchChain(ctx context.Context, chainID int64) error {
	f.switched = append(f.switched, chainID)
	f.chainID = chainID
	return nil
}
func (f *fakeSigner) SignTransferAuthorization(ctx context.Context, auth entities.TransferAuthorization, req entities.PaymentRequirements) (string, error) {
	f.signed = append(f.signed, auth)
	return "0xsignature", nil
}

const testAddress = "0x1111111111111111111111111111111111111111"

func strategiesCall(t *testing.T, address string) *entities.ToolCall {
	t.Helper()
	args, err := json.Marshal(map[string]string{"address": address})
	require.NoError(t, err)
	return &entities.ToolCall{ID: "call_1", Name: "get_strategies", Arguments: args}
}

func challengeBody(payTo string) entities.PaymentChallenge {
	return entities.PaymentChallenge{
		X402Version: 1,
		Error:       "X-PAYMENT header is required",
		Accepts: []entities.PaymentRequirements{{
			Scheme:            "exact",
			Network:           "base",
			MaxAmountRequired: "10000",
			PayTo:             payTo,
			MaxTimeoutSeconds: 60,
			Asset:             "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		}},
	}
}

func TestDispatcherRejectsUnknownTool(t *testing.T) {
	signer := &fakeSigner{address: testAddress, chainID: 8453}
	d := NewDispatcher("http://127.0.0.1:1", signer, signer, zap.NewNop())

	_, err := d.Execute(context.Background(), &entities.ToolCall{Name: "send_funds"}, true)

	var unknownErr *errors.UnknownToolError
	assert.ErrorAs(t, err, &unknownErr)
	assert.Empty(t, signer.signed, "no payment may be signed for an unknown tool")
}

func TestDispatcherValidatesAddressBeforeNetwork(t *testing.T) {
	signer := &fakeSigner{address: testAddress, chainID: 8453}
	d := NewDispatcher("http://127.0.0.1:1", signer, signer, zap.NewNop())

	_, err := d.Execute(context.Background(), strategiesCall(t, "vitalik.eth"), true)

	var validationErr *errors.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	assert.Empty(t, signer.signed)
}

func TestValidateChecksSchemaWithoutSigners(t *testing.T) {
	d := NewDispatcher("", nil, nil, zap.NewNop())

	assert.NoError(t, d.Validate(strategiesCall(t, "0x1111111111111111111111111111111111111111")))

	var validationErr *errors.ValidationError
	assert.ErrorAs(t, d.Validate(strategiesCall(t, "vitalik.eth")), &validationErr)

	var unknownErr *errors.UnknownToolError
	assert.ErrorAs(t, d.Validate(&entities.ToolCall{Name: "send_funds"}), &unknownErr)
}

func TestDispatcherPaymentHandshake(t *testing.T) {
	var sawPayment *entities.PaymentPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("X-Payment")
		if header == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusPaymentRequired)
			json.NewEncoder(w).Encode(challengeBody("0x2222222222222222222222222222222222222222"))
			return
		}
		payload, err := x402.DecodePaymentHeader(header)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		sawPayment = payload
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"strategies": []string{"stake ETH"}})
	}))
	defer server.Close()

	signer := &fakeSigner{address: testAddress, chainID: 8453}
	d := NewDispatcher(server.URL, signer, signer, zap.NewNop())

	result, err := d.Execute(context.Background(), strategiesCall(t, testAddress), true)

	require.NoError(t, err)
	assert.Contains(t, string(result), "stake ETH")
	require.NotNil(t, sawPayment)
	assert.Equal(t, "exact", sawPayment.Scheme)
	assert.Equal(t, "base", sawPayment.Network)
	assert.Equal(t, "0xsignature", sawPayment.Payload.Signature)

	require.Len(t, signer.signed, 1)
	auth := signer.signed[0]
	assert.Equal(t, testAddress, auth.From)
	assert.Equal(t, "0x2222222222222222222222222222222222222222", auth.To)
	assert.Equal(t, "10000", auth.Value, "authorization must be sized exactly to the advertised price")
}

func TestDispatcherSwitchesChainOnce(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Payment") == "" {
			w.WriteHeader(http.StatusPaymentRequired)
			json.NewEncoder(w).Encode(challengeBody("0x2222222222222222222222222222222222222222"))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer server.Close()

	signer := &fakeSigner{address: testAddress, chainID: 1}
	d := NewDispatcher(server.URL, signer, signer, zap.NewNop())

	_, err := d.Execute(context.Background(), strategiesCall(t, testAddress), false)

	require.NoError(t, err)
	assert.Equal(t, []int64{8453}, signer.switched)
}

func TestDispatcherEmptyChallengeBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer server.Close()

	signer := &fakeSigner{address: testAddress, chainID: 8453}
	d := NewDispatcher(server.URL, signer, signer, zap.NewNop())

	_, err := d.Execute(context.Background(), strategiesCall(t, testAddress), true)

	var facilitatorErr *errors.FacilitatorUnavailableError
	assert.ErrorAs(t, err, &facilitatorErr)
	assert.Empty(t, signer.signed)
}

func TestDispatcherSecondPaymentRequired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		if r.Header.Get("X-Payment") == "" {
			json.NewEncoder(w).Encode(challengeBody("0x2222222222222222222222222222222222222222"))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{}})
	}))
	defer server.Close()

	signer := &fakeSigner{address: testAddress, chainID: 8453}
	d := NewDispatcher(server.URL, signer, signer, zap.NewNop())

	_, err := d.Execute(context.Background(), strategiesCall(t, testAddress), true)

	var facilitatorErr *errors.FacilitatorUnavailableError
	assert.ErrorAs(t, err, &facilitatorErr)
}
