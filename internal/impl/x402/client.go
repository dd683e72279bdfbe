package x402

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/heyaura/heyaura/internal/domain/entities"
	"github.com/heyaura/heyaura/internal/domain/errors"
	"github.com/heyaura/heyaura/internal/domain/interfaces"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Chain ids for the networks a challenge may name.
var chainIDs = map[string]int64{
	"base":         8453,
	"base-sepolia": 84532,
}

const requestTimeout = 60 * time.Second

// Client is a payment-capable HTTP transport bound to one payer's signer. On
// a 402 challenge it constructs a one-time transfer authorization sized
// exactly to the advertised price and retries the request once with the
// authorization attached. One Client is built per paid call; nothing about
// the payer choice is remembered across calls.
type Client struct {
	http   *resty.Client
	signer interfaces.PaymentSigner
	logger *zap.Logger
}

func NewClient(baseURL string, signer interfaces.PaymentSigner, logger *zap.Logger) *Client {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(requestTimeout)

	return &Client{
		http:   client,
		signer: signer,
		logger: logger,
	}
}

// Post sends body to path, transparently performing the payment handshake
// when the server responds with a 402 challenge.
func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	resp, err := c.http.R().SetContext(ctx).SetBody(body).Post(path)
	if err != nil {
		return nil, wrapTransportError(err)
	}

	if resp.StatusCode() != http.StatusPaymentRequired {
		return handleFinalResponse(resp)
	}

	challenge, err := parseChallenge(resp.Body())
	if err != nil {
		return nil, err
	}
	requirements := challenge.Accepts[0]

	header, err := c.buildPaymentHeader(ctx, requirements)
	if err != nil {
		return nil, err
	}

	retry, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetHeader(paymentHeader, header).
		Post(path)
	if err != nil {
		return nil, wrapTransportError(err)
	}

	if retry.StatusCode() == http.StatusPaymentRequired {
		// A second 402 after presenting payment means the facilitator choked,
		// not that more money is owed. An empty error object is the telltale
		// of the facilitator's upstream returning 5xx inside the middleware.
		var errBody struct {
			Error json.RawMessage `json:"error"`
		}
		if json.Unmarshal(retry.Body(), &errBody) == nil && isEmptyObject(errBody.Error) {
			return nil, errors.FacilitatorUnavailableErrorf("payment facilitator not responding, please try again later")
		}
		return nil, errors.UpstreamErrorf("payment was not accepted: %s", string(retry.Body()))
	}

	return handleFinalResponse(retry)
}

// buildPaymentHeader prepares the chain, signs the authorization, and
// encodes the X-Payment header for the retry.
func (c *Client) buildPaymentHeader(ctx context.Context, requirements entities.PaymentRequirements) (string, error) {
	targetChain, ok := chainIDs[requirements.Network]
	if !ok {
		return "", errors.UpstreamErrorf("challenge names unsupported network %q", requirements.Network)
	}

	current, err := c.signer.ChainID(ctx)
	if err != nil {
		return "", errors.NetworkMismatchErrorf("could not determine wallet network: %v", err)
	}
	if current != targetChain {
		// One switch attempt; declining is terminal, no silent fallback.
		if err := c.signer.SwitchChain(ctx, targetChain); err != nil {
			return "", errors.NetworkMismatchErrorf(
				"wallet is on chain %d but %s (chain %d) is required; please switch networks in your wallet and try again",
				current, requirements.Network, targetChain)
		}
	}

	now := time.Now().Unix()
	validFor := int64(requirements.MaxTimeoutSeconds)
	if validFor <= 0 {
		validFor = 60
	}
	auth := entities.TransferAuthorization{
		From:        c.signer.Address(),
		To:          requirements.PayTo,
		Value:       requirements.MaxAmountRequired,
		ValidAfter:  strconv.FormatInt(now-60, 10),
		ValidBefore: strconv.FormatInt(now+validFor+60, 10),
		Nonce:       freshNonce(),
	}

	signature, err := c.signer.SignTransferAuthorization(ctx, auth, requirements)
	if err != nil {
		return "", err
	}

	payload := &entities.PaymentPayload{
		X402Version: x402Version,
		Scheme:      requirements.Scheme,
		Network:     requirements.Network,
		Payload: entities.ExactPaymentPayload{
			Signature:     signature,
			Authorization: auth,
		},
	}

	c.logger.Debug("Signed payment authorization",
		zap.String("from", auth.From),
		zap.String("to", auth.To),
		zap.String("value", auth.Value),
		zap.String("network", requirements.Network))

	return EncodePaymentHeader(payload)
}

// parseChallenge decodes a 402 body. A challenge the client cannot act on
// (empty body, no accepted payment requirements) is reported as the
// facilitator being unavailable, distinct from a generic network failure.
func parseChallenge(body []byte) (*entities.PaymentChallenge, error) {
	if len(body) == 0 {
		return nil, errors.FacilitatorUnavailableErrorf("payment facilitator not responding, please try again later")
	}
	var challenge entities.PaymentChallenge
	if err := json.Unmarshal(body, &challenge); err != nil {
		return nil, errors.FacilitatorUnavailableErrorf("malformed payment challenge: %v", err)
	}
	if len(challenge.Accepts) == 0 {
		return nil, errors.FacilitatorUnavailableErrorf("payment facilitator not responding, please try again later")
	}
	return &challenge, nil
}

func handleFinalResponse(resp *resty.Response) (json.RawMessage, error) {
	if resp.IsError() {
		return nil, errors.UpstreamErrorf("request failed with status %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	result := make(json.RawMessage, len(resp.Body()))
	copy(result, resp.Body())
	return result, nil
}

func wrapTransportError(err error) error {
	var netErr interface{ Timeout() bool }
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.TimeoutErrorf("request timed out, the remote endpoint took too long to respond")
	}
	return errors.UpstreamErrorf("request failed: %v", err)
}

// freshNonce returns a random 32-byte hex nonce. A uuid pair gives 32 random
// bytes without pulling in another dependency.
func freshNonce() string {
	a := uuid.New()
	b := uuid.New()
	return hexutil.Encode(append(a[:], b[:]...))
}

func isEmptyObject(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return false
	}
	return len(m) == 0
}
