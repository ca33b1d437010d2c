// ABOUTME: Wire frame types for the client channel
// ABOUTME: Every frame is {type, payload}; payload shapes are fixed per type

package relay

import (
	"encoding/json"

	"github.com/annotate-dev/pagebridge/internal/store"
)

// Frame type strings. connected/chunk/complete/error/file_operation
// flow server to client; chat/abort flow client to server.
const (
	FrameConnected     = "connected"
	FrameChunk         = "chunk"
	FrameComplete      = "complete"
	FrameError         = "error"
	FrameFileOperation = "file_operation"
	FrameChat          = "chat"
	FrameAbort         = "abort"
)

// Error codes carried by error frames.
const (
	CodeAgentNotFound        = "CLAUDE_NOT_FOUND"
	CodeAgentExecutionError  = "CLAUDE_EXECUTION_ERROR"
	CodeInvalidMessage       = "INVALID_MESSAGE"
	CodeConversationNotFound = "CONVERSATION_NOT_FOUND"
	CodeStorageError         = "STORAGE_ERROR"
)

// Frame is an inbound client frame, payload left raw until the type is
// known.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ConnectedPayload tells a client its own connection id.
type ConnectedPayload struct {
	ConnectionID string `json:"connectionId"`
}

// ChunkPayload is one increment of streamed assistant text.
type ChunkPayload struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
	MessageID      string `json:"messageId"`
}

// CompletePayload terminates a successful chat turn.
type CompletePayload struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	FullContent    string `json:"fullContent"`
	SessionID      string `json:"sessionId,omitempty"`
}

// ErrorPayload terminates a failed chat turn, or reports a rejected
// frame.
type ErrorPayload struct {
	ConversationID string `json:"conversationId"`
	Error          string `json:"error"`
	Code           string `json:"code"`
}

// FileOperationPayload reports one detected file operation mid-run.
type FileOperationPayload struct {
	ConversationID string               `json:"conversationId"`
	MessageID      string               `json:"messageId"`
	Operation      *store.FileOperation `json:"operation"`
}

// ChatPayload is a client's chat request.
type ChatPayload struct {
	ConversationID string              `json:"conversationId"`
	Message        string              `json:"message"`
	Elements       []store.ElementInfo `json:"elements"`
	PageURL        string              `json:"pageUrl,omitempty"`
	Attachments    []string            `json:"attachments,omitempty"`
}

// AbortPayload is a client's stop request.
type AbortPayload struct {
	ConversationID string `json:"conversationId"`
}
