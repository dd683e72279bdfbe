package controllers

import (
	"net/http"

	"github.com/heyaura/heyaura/internal/domain/entities"
	"github.com/heyaura/heyaura/internal/domain/errors"
	"github.com/heyaura/heyaura/internal/domain/interfaces"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ChatController serves the stateless completion endpoint. The caller owns
// the conversation history; every request carries it whole and gets exactly
// one assistant message back.
type ChatController struct {
	logger      *zap.Logger
	completions interfaces.CompletionClient
}

func NewChatController(logger *zap.Logger, completions interfaces.CompletionClient) *ChatController {
	return &ChatController{
		logger:      logger,
		completions: completions,
	}
}

func (c *ChatController) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/chat/message", c.SendMessageHandler)
}

type chatMessageRequest struct {
	Content         string             `json:"content"`
	SelectedWallets []entities.Wallet  `json:"selectedWallets"`
	ChatHistory     []entities.Message `json:"chatHistory"`
}

func (c *ChatController) SendMessageHandler(eCtx echo.Context) error {
	var req chatMessageRequest
	if err := eCtx.Bind(&req); err != nil {
		return eCtx.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request data"})
	}
	if req.Content == "" {
		return eCtx.JSON(http.StatusBadRequest, map[string]string{"message": "Message content is required"})
	}

	// chatHistory already ends with the caller's latest turn; content is
	// validated but never appended, or the provider would see it twice.
	history := entities.SanitizeForModel(req.ChatHistory)

	response, err := c.completions.Complete(eCtx.Request().Context(), history, req.SelectedWallets)
	if err != nil {
		c.logger.Error("Completion failed", zap.Error(err))
		switch err.(type) {
		case *errors.ValidationError:
			return eCtx.JSON(http.StatusBadRequest, map[string]string{"message": err.Error()})
		case *errors.TimeoutError:
			return eCtx.JSON(http.StatusGatewayTimeout, map[string]string{"message": err.Error()})
		default:
			return eCtx.JSON(http.StatusInternalServerError, map[string]string{"message": "Failed to process message"})
		}
	}

	msg := entities.NewMessage(entities.RoleAssistant, response.Content, "")
	if response.IsToolCall() {
		msg.ToolCall = response.ToolCall
	}

	return eCtx.JSON(http.StatusOK, map[string]any{"message": msg})
}
