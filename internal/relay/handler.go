// ABOUTME: Websocket handler translating client frames to session operations
// ABOUTME: chat runs async per frame; invalid frames get an error frame, never a close

package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/annotate-dev/pagebridge/internal/agent"
	"github.com/annotate-dev/pagebridge/internal/session"
	"github.com/annotate-dev/pagebridge/internal/store"
)

// SessionRunner is the session-manager surface the relay drives.
// Satisfied by *session.Manager.
type SessionRunner interface {
	ExecuteChat(ctx context.Context, req session.ChatRequest, cb session.Callbacks) error
	Abort(conversationID string) bool
}

// Handler upgrades client connections and dispatches their frames.
type Handler struct {
	// runCtx bounds agent runs to the server's lifetime, not the
	// originating request's. A run must outlive the connection that
	// started it; the request context dies the moment the client
	// disconnects.
	runCtx   context.Context
	registry *Registry
	sessions SessionRunner
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a websocket handler backed by the given session
// runner. runCtx is the server-lifetime context chat runs execute
// under.
func NewHandler(runCtx context.Context, registry *Registry, sessions SessionRunner, logger *slog.Logger) *Handler {
	if runCtx == nil {
		runCtx = context.Background()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		runCtx:   runCtx,
		registry: registry,
		sessions: sessions,
		logger:   logger.With("component", "relay"),
		upgrader: websocket.Upgrader{
			// Local tool, browser extension connects from arbitrary origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and runs its read loop until the
// client goes away.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	conn := h.registry.Add(ws)
	defer func() {
		h.registry.Remove(conn.ID)
		ws.Close()
	}()

	h.registry.Send(conn.ID, FrameConnected, ConnectedPayload{ConnectionID: conn.ID})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("websocket read failed", "connection_id", conn.ID, "error", err)
			}
			return
		}
		h.dispatch(conn.ID, data)
	}
}

// dispatch decodes one inbound frame and routes it. chat frames run in
// their own goroutine so the read loop stays free to receive the abort
// that stops them.
func (h *Handler) dispatch(connectionID string, data []byte) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		h.logger.Warn("malformed frame", "connection_id", connectionID, "error", err)
		h.sendError(connectionID, "", "invalid message format", CodeInvalidMessage)
		return
	}

	switch frame.Type {
	case FrameChat:
		var payload ChatPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil || payload.ConversationID == "" {
			h.sendError(connectionID, "", "invalid chat payload", CodeInvalidMessage)
			return
		}
		go h.handleChat(h.runCtx, connectionID, payload)

	case FrameAbort:
		var payload AbortPayload
		if err := json.Unmarshal(frame.Payload, &payload); err != nil || payload.ConversationID == "" {
			h.sendError(connectionID, "", "invalid abort payload", CodeInvalidMessage)
			return
		}
		if !h.sessions.Abort(payload.ConversationID) {
			h.logger.Warn("no active session to abort",
				"conversation_id", payload.ConversationID)
		}

	default:
		h.sendError(connectionID, "", "invalid message type", CodeInvalidMessage)
	}
}

// handleChat runs one chat turn, relaying session callbacks as frames
// to the originating connection.
func (h *Handler) handleChat(ctx context.Context, connectionID string, payload ChatPayload) {
	h.logger.Info("processing chat frame",
		"connection_id", connectionID,
		"conversation_id", payload.ConversationID,
		"elements", len(payload.Elements),
	)

	err := h.sessions.ExecuteChat(ctx, session.ChatRequest{
		ConversationID: payload.ConversationID,
		Message:        payload.Message,
		Elements:       payload.Elements,
		PageURL:        payload.PageURL,
		Attachments:    payload.Attachments,
	}, session.Callbacks{
		OnChunk: func(messageID, text string) {
			h.registry.Send(connectionID, FrameChunk, ChunkPayload{
				ConversationID: payload.ConversationID,
				Content:        text,
				MessageID:      messageID,
			})
		},
		OnFileOperation: func(messageID string, op *store.FileOperation) {
			h.registry.Send(connectionID, FrameFileOperation, FileOperationPayload{
				ConversationID: payload.ConversationID,
				MessageID:      messageID,
				Operation:      op,
			})
		},
		OnComplete: func(messageID, fullContent, sessionID string) {
			h.registry.Send(connectionID, FrameComplete, CompletePayload{
				ConversationID: payload.ConversationID,
				MessageID:      messageID,
				FullContent:    fullContent,
				SessionID:      sessionID,
			})
		},
	})
	if err != nil {
		h.sendError(connectionID, payload.ConversationID, err.Error(), classify(err))
	}
}

// classify maps a session error to its wire code.
func classify(err error) string {
	switch {
	case errors.Is(err, agent.ErrAgentNotFound):
		return CodeAgentNotFound
	case errors.Is(err, store.ErrNotFound):
		return CodeConversationNotFound
	case errors.Is(err, session.ErrStorage):
		return CodeStorageError
	default:
		return CodeAgentExecutionError
	}
}

func (h *Handler) sendError(connectionID, conversationID, message, code string) {
	h.registry.Send(connectionID, FrameError, ErrorPayload{
		ConversationID: conversationID,
		Error:          message,
		Code:           code,
	})
}
