package payments

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/heyaura/heyaura/internal/domain/entities"
	"github.com/heyaura/heyaura/internal/domain/errors"
	"github.com/heyaura/heyaura/internal/domain/interfaces"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"go.uber.org/zap"
)

// LocalSigner is the built-in auto-pay wallet. It holds a locally generated
// private key, persisted to a key file so the same payer address survives
// restarts, and is pinned to a single chain.
type LocalSigner struct {
	key     *ecdsa.PrivateKey
	address string
	chainID int64
	logger  *zap.Logger
}

var _ interfaces.PaymentSigner = (*LocalSigner)(nil)

// NewLocalSigner loads the key from keyFile, generating and saving a fresh
// one on first use.
func NewLocalSigner(keyFile string, chainID int64, logger *zap.Logger) (*LocalSigner, error) {
	key, created, err := loadOrCreateKey(keyFile)
	if err != nil {
		return nil, errors.InternalErrorf("failed to prepare auto-pay key: %v", err)
	}

	address := crypto.PubkeyToAddress(key.PublicKey).Hex()
	if created {
		logger.Info("Generated new auto-pay wallet", zap.String("address", address))
	} else {
		logger.Debug("Loaded auto-pay wallet", zap.String("address", address))
	}

	return &LocalSigner{
		key:     key,
		address: address,
		chainID: chainID,
		logger:  logger,
	}, nil
}

func (s *LocalSigner) Address() string {
	return s.address
}

func (s *LocalSigner) ChainID(ctx context.Context) (int64, error) {
	return s.chainID, nil
}

// SwitchChain succeeds only for the pinned chain; the local key never roams.
func (s *LocalSigner) SwitchChain(ctx context.Context, chainID int64) error {
	if chainID != s.chainID {
		return fmt.Errorf("auto-pay wallet is pinned to chain %d", s.chainID)
	}
	return nil
}

func (s *LocalSigner) SignTransferAuthorization(ctx context.Context, auth entities.TransferAuthorization, req entities.PaymentRequirements) (string, error) {
	typedData, err := transferAuthorizationTypedData(auth, req, s.chainID)
	if err != nil {
		return "", errors.InternalErrorf("failed to build authorization payload: %v", err)
	}

	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return "", errors.InternalErrorf("failed to hash authorization: %v", err)
	}

	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return "", errors.InternalErrorf("failed to sign authorization: %v", err)
	}
	// crypto.Sign yields v in {0,1}; contracts expect {27,28}.
	sig[64] += 27

	return hexutil.Encode(sig), nil
}

func loadOrCreateKey(keyFile string) (*ecdsa.PrivateKey, bool, error) {
	data, err := os.ReadFile(keyFile)
	if err == nil {
		hexKey := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(string(data)), "0x"))
		key, err := crypto.HexToECDSA(hexKey)
		if err != nil {
			return nil, false, fmt.Errorf("key file %s is corrupt: %w", keyFile, err)
		}
		return key, false, nil
	}
	if !os.IsNotExist(err) {
		return nil, false, err
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, false, err
	}
	if err := os.MkdirAll(filepath.Dir(keyFile), 0700); err != nil {
		return nil, false, err
	}
	encoded := hex.EncodeToString(crypto.FromECDSA(key))
	if err := os.WriteFile(keyFile, []byte(encoded), 0600); err != nil {
		return nil, false, err
	}
	return key, true, nil
}
