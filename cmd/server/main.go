package main

import (
	"net/http"

	"github.com/heyaura/heyaura/internal/api/controllers"
	"github.com/heyaura/heyaura/internal/api/websocket"
	"github.com/heyaura/heyaura/internal/impl/config"
	"github.com/heyaura/heyaura/internal/impl/integrations"
	"github.com/heyaura/heyaura/internal/impl/tools"
	"github.com/heyaura/heyaura/internal/impl/x402"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	cfg, err := config.InitConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	// The paid route cannot issue settleable challenges without these.
	if err := cfg.RequireFacilitator(); err != nil {
		logger.Fatal("Cannot start", zap.Error(err))
	}
	if cfg.OpenAIAPIKey == "" {
		logger.Fatal("Cannot start", zap.String("missing", "OPENAI_API_KEY"))
	}

	completions, err := integrations.NewOpenAIIntegration(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.Model, logger)
	if err != nil {
		logger.Fatal("Failed to initialize completion client", zap.Error(err))
	}

	facilitator := x402.NewFacilitatorClient(cfg.FacilitatorURL, cfg.CDPAPIKeyID, cfg.CDPAPIKeySecret, logger)
	paymentMiddleware := x402.PaymentMiddleware(cfg.PayToAddress, x402.RoutePrices(), facilitator, logger)
	aura := tools.NewAuraClient(cfg.AuraAPIBase, cfg.AuraAPIKey, logger)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStore(rate.Limit(10.0 / 60.0)),
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, map[string]string{"message": "Request rejected"})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, map[string]string{
				"message": "Rate limit exceeded. Please wait a moment and try again.",
			})
		},
	}))

	controllers.NewChatController(logger, completions).RegisterRoutes(e)
	controllers.NewStrategiesController(logger, aura).RegisterRoutes(e, paymentMiddleware)
	e.GET("/ws/chat", echo.WrapHandler(websocket.ChatHandler(completions, logger)))
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	logger.Info("Starting server",
		zap.String("addr", cfg.ServerAddr),
		zap.String("payTo", cfg.PayToAddress))
	if err := e.Start(cfg.ServerAddr); err != nil && err != http.ErrServerClosed {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}
