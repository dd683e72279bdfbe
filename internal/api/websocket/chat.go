package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/heyaura/heyaura/internal/domain/entities"
	"github.com/heyaura/heyaura/internal/domain/interfaces"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type completionRequest struct {
	Content         string             `json:"content"`
	SelectedWallets []entities.Wallet  `json:"selectedWallets"`
	ChatHistory     []entities.Message `json:"chatHistory"`
}

type streamFrame struct {
	Content string            `json:"content,omitempty"`
	Done    bool              `json:"done"`
	Message *entities.Message `json:"message,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// ChatHandler is the streaming variant of the completion endpoint. Each frame
// the client sends is one completion request; the server answers with content
// fragments and a terminal frame carrying the assembled assistant message,
// identical to what the single-shot endpoint would have returned.
func ChatHandler(completions interfaces.CompletionClient, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("Websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		for {
			var req completionRequest
			if err := conn.ReadJSON(&req); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Debug("Websocket read ended", zap.Error(err))
				}
				return
			}
			if req.Content == "" {
				conn.WriteJSON(streamFrame{Done: true, Error: "Message content is required"})
				continue
			}

			// chatHistory already ends with the caller's latest turn;
			// content is validated but never appended.
			history := entities.SanitizeForModel(req.ChatHistory)

			chunks, err := completions.CompleteStream(r.Context(), history, req.SelectedWallets)
			if err != nil {
				conn.WriteJSON(streamFrame{Done: true, Error: err.Error()})
				continue
			}

			if err := relay(conn, chunks); err != nil {
				logger.Debug("Websocket write ended", zap.Error(err))
				return
			}
		}
	}
}

func relay(conn *websocket.Conn, chunks <-chan entities.StreamChunk) error {
	for chunk := range chunks {
		if chunk.Err != nil {
			return conn.WriteJSON(streamFrame{Done: true, Error: chunk.Err.Error()})
		}
		if chunk.Done {
			msg := entities.NewMessage(entities.RoleAssistant, chunk.Response.Content, "")
			if chunk.Response.IsToolCall() {
				msg.ToolCall = chunk.Response.ToolCall
			}
			return conn.WriteJSON(streamFrame{Done: true, Message: msg})
		}
		if err := conn.WriteJSON(streamFrame{Content: chunk.Content}); err != nil {
			return err
		}
	}
	return nil
}
