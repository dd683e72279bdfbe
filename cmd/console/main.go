package main

import (
	"context"
	"flag"

	"github.com/heyaura/heyaura/internal/cli"
	"github.com/heyaura/heyaura/internal/domain/interfaces"
	"github.com/heyaura/heyaura/internal/domain/services"
	"github.com/heyaura/heyaura/internal/impl/config"
	"github.com/heyaura/heyaura/internal/impl/database"
	"github.com/heyaura/heyaura/internal/impl/integrations"
	"github.com/heyaura/heyaura/internal/impl/payments"
	jsonrepo "github.com/heyaura/heyaura/internal/impl/repositories/json"
	mongorepo "github.com/heyaura/heyaura/internal/impl/repositories/mongo"
	"github.com/heyaura/heyaura/internal/impl/tools"

	"go.uber.org/zap"
)

// USDC contract on Base mainnet.
const baseUSDC = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"

const baseChainID = 8453

func main() {
	storage := flag.String("storage", "file", "message storage backend: file or mongo")
	dataDir := flag.String("data", ".heyaura", "data directory for file storage and keys")
	remote := flag.Bool("remote", false, "use the API server for completions instead of calling OpenAI directly")
	flag.Parse()

	logConfig := zap.NewDevelopmentConfig()
	logConfig.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	logger, _ := logConfig.Build()
	defer logger.Sync()

	cfg, err := config.InitConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx := context.Background()

	var messages interfaces.MessageRepository
	switch *storage {
	case "mongo":
		db, err := database.NewMongoDB(cfg.MongoURI, "heyaura", logger)
		if err != nil {
			logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		defer db.Disconnect(ctx)
		messages, err = mongorepo.NewMongoMessageRepository(ctx, db.Collection("messages"))
		if err != nil {
			logger.Fatal("Failed to initialize message repository", zap.Error(err))
		}
	default:
		messages, err = jsonrepo.NewJSONMessageRepository(*dataDir)
		if err != nil {
			logger.Fatal("Failed to initialize message repository", zap.Error(err))
		}
	}

	sessions, err := jsonrepo.NewJSONSessionRepository(*dataDir)
	if err != nil {
		logger.Fatal("Failed to initialize session repository", zap.Error(err))
	}

	var completions interfaces.CompletionClient
	if *remote {
		completions = integrations.NewChatAPIClient(cfg.ServerBaseURL, logger)
	} else {
		if cfg.OpenAIAPIKey == "" {
			logger.Fatal("Cannot start", zap.String("missing", "OPENAI_API_KEY"))
		}
		completions, err = integrations.NewOpenAIIntegration(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.Model, logger)
		if err != nil {
			logger.Fatal("Failed to initialize completion client", zap.Error(err))
		}
	}

	autoPaySigner, err := payments.NewLocalSigner(cfg.AutoPayKeyFile, baseChainID, logger)
	if err != nil {
		logger.Fatal("Failed to prepare auto-pay wallet", zap.Error(err))
	}

	var walletSigner interfaces.PaymentSigner
	if cfg.WalletBridgeURL != "" {
		walletSigner = payments.NewRPCWalletSigner(cfg.WalletBridgeURL, func() string {
			session, err := sessions.Load(ctx)
			if err != nil {
				return ""
			}
			if w := session.ConnectedWallet(); w != nil {
				return w.Address
			}
			return ""
		}, logger)
	}

	balances := payments.NewUSDCBalanceChecker(cfg.RPCURL, baseUSDC, logger)
	gate := payments.NewGate(sessions, balances, cli.NewSurveyPrompter(), logger)
	dispatcher := tools.NewDispatcher(cfg.ServerBaseURL, autoPaySigner, walletSigner, logger)

	walletService := services.NewWalletService(sessions, balances, logger)
	if err := walletService.EnsureAutoPayWallet(ctx, autoPaySigner.Address()); err != nil {
		logger.Fatal("Failed to register auto-pay wallet", zap.Error(err))
	}

	chatService := services.NewChatService(messages, sessions, completions, gate, dispatcher, logger)

	console := cli.NewConsole(chatService, walletService, logger)
	if err := console.Run(ctx); err != nil && err != context.Canceled {
		logger.Fatal("Console exited", zap.Error(err))
	}
}
