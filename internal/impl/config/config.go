package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	Model            string
	PayToAddress     string
	CDPAPIKeyID      string
	CDPAPIKeySecret  string
	FacilitatorURL   string
	AuraAPIBase      string
	AuraAPIKey       string
	RPCURL           string
	MongoURI         string
	ServerAddr       string
	ServerBaseURL    string
	AutoPayKeyFile   string
	WalletBridgeURL  string
	logger           *zap.Logger
}

var (
	configInstance *Config
	once           sync.Once
)

func InitConfig() (*Config, error) {
	var initErr error

	once.Do(func() {
		logConfig := zap.NewDevelopmentConfig()
		logConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		logger, err := logConfig.Build()
		if err != nil {
			logger = zap.NewNop()
			initErr = fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer logger.Sync()

		// Load .env file
		if err := godotenv.Load(); err != nil {
			if os.IsNotExist(err) {
				logger.Warn("No .env file found; falling back to system environment variables")
			} else {
				initErr = fmt.Errorf("failed to load .env file: %w", err)
				logger.Error("Config file load error", zap.Error(err))
				return
			}
		} else {
			logger.Debug("Successfully loaded .env file")
		}

		configInstance = &Config{
			OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
			OpenAIBaseURL:   envOr("OPENAI_BASE_URL", "https://api.openai.com"),
			Model:           envOr("OPENAI_MODEL", "gpt-4o"),
			PayToAddress:    os.Getenv("PAYTO_ADDRESS"),
			CDPAPIKeyID:     os.Getenv("CDP_API_KEY_ID"),
			CDPAPIKeySecret: os.Getenv("CDP_API_KEY_SECRET"),
			FacilitatorURL:  envOr("FACILITATOR_URL", "https://api.cdp.coinbase.com/platform/v2/x402"),
			AuraAPIBase:     envOr("AURA_API_BASE", "https://aura.adex.network"),
			AuraAPIKey:      os.Getenv("AURA_API_KEY"),
			RPCURL:          envOr("BASE_RPC_URL", "https://mainnet.base.org"),
			MongoURI:        os.Getenv("MONGO_URI"),
			ServerAddr:      envOr("SERVER_ADDR", ":8080"),
			ServerBaseURL:   envOr("SERVER_BASE_URL", "http://localhost:8080"),
			AutoPayKeyFile:  envOr("AUTOPAY_KEY_FILE", ".heyaura/autopay.key"),
			WalletBridgeURL: os.Getenv("WALLET_BRIDGE_URL"),
			logger:          logger,
		}
	})

	if initErr != nil {
		return nil, initErr
	}
	if configInstance == nil {
		return nil, fmt.Errorf("configuration initialization failed unexpectedly")
	}

	return configInstance, nil
}

// RequireFacilitator verifies the payment facilitator credentials and payout
// address are present. The paid endpoint cannot issue settleable challenges
// without them, so startup aborts with the full list of missing names rather
// than deferring to a runtime failure on the first paid call.
func (c *Config) RequireFacilitator() error {
	var missing []string
	if c.PayToAddress == "" {
		missing = append(missing, "PAYTO_ADDRESS")
	}
	if c.CDPAPIKeyID == "" {
		missing = append(missing, "CDP_API_KEY_ID")
	}
	if c.CDPAPIKeySecret == "" {
		missing = append(missing, "CDP_API_KEY_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required payment facilitator configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
