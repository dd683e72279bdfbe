package payments

import (
	"encoding/json"

	"github.com/heyaura/heyaura/internal/domain/entities"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// transferAuthorizationTypedData builds the EIP-712 payload for an EIP-3009
// transferWithAuthorization. The domain name/version come from the challenge's
// extra field; the asset contract is the verifying contract.
func transferAuthorizationTypedData(auth entities.TransferAuthorization, req entities.PaymentRequirements, chainID int64) (apitypes.TypedData, error) {
	var extra struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if len(req.Extra) > 0 {
		if err := json.Unmarshal(req.Extra, &extra); err != nil {
			return apitypes.TypedData{}, err
		}
	}
	if extra.Name == "" {
		extra.Name = "USD Coin"
	}
	if extra.Version == "" {
		extra.Version = "2"
	}

	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"TransferWithAuthorization": {
				{Name: "from", Type: "address"},
				{Name: "to", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "validAfter", Type: "uint256"},
				{Name: "validBefore", Type: "uint256"},
				{Name: "nonce", Type: "bytes32"},
			},
		},
		PrimaryType: "TransferWithAuthorization",
		Domain: apitypes.TypedDataDomain{
			Name:              extra.Name,
			Version:           extra.Version,
			ChainId:           math.NewHexOrDecimal256(chainID),
			VerifyingContract: req.Asset,
		},
		Message: apitypes.TypedDataMessage{
			"from":        auth.From,
			"to":          auth.To,
			"value":       auth.Value,
			"validAfter":  auth.ValidAfter,
			"validBefore": auth.ValidBefore,
			"nonce":       auth.Nonce,
		},
	}, nil
}
