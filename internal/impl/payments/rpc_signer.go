package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/heyaura/heyaura/internal/domain/entities"
	"github.com/heyaura/heyaura/internal/domain/errors"
	"github.com/heyaura/heyaura/internal/domain/interfaces"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// RPCWalletSigner signs through an external wallet exposed over a JSON-RPC
// bridge. The wallet keeps its own keys; we only ask it to switch chains and
// sign typed data for the address the user connected.
type RPCWalletSigner struct {
	http      *resty.Client
	addressFn func() string
	logger    *zap.Logger
	nextID    int64
}

var _ interfaces.PaymentSigner = (*RPCWalletSigner)(nil)

// NewRPCWalletSigner builds a signer for the wallet behind bridgeURL.
// addressFn resolves the currently connected wallet at call time, so
// reconnecting a different wallet mid-session needs no rewiring.
func NewRPCWalletSigner(bridgeURL string, addressFn func() string, logger *zap.Logger) *RPCWalletSigner {
	client := resty.New()
	client.SetBaseURL(bridgeURL)
	client.SetTimeout(120 * time.Second)

	return &RPCWalletSigner{
		http:      client,
		addressFn: addressFn,
		logger:    logger,
	}
}

func (s *RPCWalletSigner) Address() string {
	return s.addressFn()
}

func (s *RPCWalletSigner) ChainID(ctx context.Context) (int64, error) {
	var result string
	if err := s.call(ctx, "eth_chainId", []any{}, &result); err != nil {
		return 0, err
	}
	chainID, err := strconv.ParseInt(result, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("wallet returned unparseable chain id %q: %w", result, err)
	}
	return chainID, nil
}

func (s *RPCWalletSigner) SwitchChain(ctx context.Context, chainID int64) error {
	params := []any{map[string]string{"chainId": fmt.Sprintf("0x%x", chainID)}}
	var result json.RawMessage
	if err := s.call(ctx, "wallet_switchEthereumChain", params, &result); err != nil {
		return err
	}
	s.logger.Info("Wallet switched network", zap.Int64("chainId", chainID))
	return nil
}

func (s *RPCWalletSigner) SignTransferAuthorization(ctx context.Context, auth entities.TransferAuthorization, req entities.PaymentRequirements) (string, error) {
	chainID, err := s.ChainID(ctx)
	if err != nil {
		return "", errors.NetworkMismatchErrorf("could not determine wallet network: %v", err)
	}

	typedData, err := transferAuthorizationTypedData(auth, req, chainID)
	if err != nil {
		return "", errors.InternalErrorf("failed to build authorization payload: %v", err)
	}
	encoded, err := json.Marshal(typedData)
	if err != nil {
		return "", errors.InternalErrorf("failed to encode authorization payload: %v", err)
	}

	var signature string
	if err := s.call(ctx, "eth_signTypedData_v4", []any{s.Address(), string(encoded)}, &signature); err != nil {
		return "", errors.PaymentCancelledErrorf("wallet declined to sign the payment: %v", err)
	}
	return signature, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *RPCWalletSigner) call(ctx context.Context, method string, params []any, out any) error {
	s.nextID++
	req := rpcRequest{JSONRPC: "2.0", ID: s.nextID, Method: method, Params: params}

	var resp rpcResponse
	httpResp, err := s.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post("")
	if err != nil {
		return fmt.Errorf("wallet bridge unreachable: %w", err)
	}
	if httpResp.IsError() {
		return fmt.Errorf("wallet bridge returned status %d", httpResp.StatusCode())
	}
	if resp.Error != nil {
		return fmt.Errorf("wallet rejected %s: %s (code %d)", method, resp.Error.Message, resp.Error.Code)
	}
	if out != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("wallet returned unparseable %s result: %w", method, err)
		}
	}
	return nil
}
