package controllers

import (
	"net/http"

	"github.com/heyaura/heyaura/internal/domain/entities"
	"github.com/heyaura/heyaura/internal/domain/errors"
	"github.com/heyaura/heyaura/internal/impl/tools"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// StrategiesController serves the paid strategies route. Payment enforcement
// lives in the x402 middleware wired in front of it; by the time a request
// reaches the handler it has been verified and settled.
type StrategiesController struct {
	logger *zap.Logger
	aura   *tools.AuraClient
}

func NewStrategiesController(logger *zap.Logger, aura *tools.AuraClient) *StrategiesController {
	return &StrategiesController{
		logger: logger,
		aura:   aura,
	}
}

func (c *StrategiesController) RegisterRoutes(e *echo.Echo, paymentMiddleware echo.MiddlewareFunc) {
	e.POST("/api/aura-strategies", c.StrategiesHandler, paymentMiddleware)
}

type strategiesRequest struct {
	Address string `json:"address"`
}

func (c *StrategiesController) StrategiesHandler(eCtx echo.Context) error {
	var req strategiesRequest
	if err := eCtx.Bind(&req); err != nil {
		return eCtx.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request data"})
	}
	if !entities.IsValidAddress(req.Address) {
		return eCtx.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request data"})
	}

	result, err := c.aura.FetchStrategies(eCtx.Request().Context(), req.Address)
	if err != nil {
		c.logger.Error("Strategies fetch failed", zap.String("address", req.Address), zap.Error(err))
		switch err.(type) {
		case *errors.NotFoundError:
			return eCtx.JSON(http.StatusNotFound, map[string]string{"message": err.Error()})
		case *errors.TimeoutError:
			return eCtx.JSON(http.StatusGatewayTimeout, map[string]string{"message": err.Error()})
		default:
			return eCtx.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to fetch strategies"})
		}
	}

	return eCtx.JSONBlob(http.StatusOK, result)
}
