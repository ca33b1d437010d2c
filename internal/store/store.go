// ABOUTME: Store interface and data types for pagebridge persistence
// ABOUTME: Defines Conversation, Message, ElementInfo, FileOperation and the Store interface

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested conversation does not exist
var ErrNotFound = errors.New("conversation not found")

// ErrDuplicateConversation is returned when trying to create a conversation that already exists
var ErrDuplicateConversation = errors.New("conversation already exists")

// DefaultTitle is the sentinel title assigned to new conversations until
// the first user message provides something better.
const DefaultTitle = "New conversation"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Conversation holds the metadata of a single conversation.
// SessionToken is empty until the first successful agent run assigns it;
// once set it is never reassigned.
type Conversation struct {
	ID           string    `json:"id"`
	SessionToken string    `json:"sessionToken,omitempty"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ConversationData is a conversation plus its ordered, append-only
// message history. This is the unit of on-disk persistence.
type ConversationData struct {
	Conversation
	Messages []Message `json:"messages"`
}

// Message is a single transcript entry. Immutable once persisted.
type Message struct {
	ID             string          `json:"id"`
	Role           Role            `json:"role"`
	Content        string          `json:"content"`
	Elements       []ElementInfo   `json:"elements,omitempty"`
	FileOperations []FileOperation `json:"fileOperations,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}

// ElementInfo is the selection payload produced by the browser extension.
// The server treats it as opaque input: it is forwarded into the prompt
// and stored alongside the user message, never interpreted.
type ElementInfo struct {
	ID             string            `json:"id"`
	Number         int               `json:"number,omitempty"`
	TagName        string            `json:"tagName"`
	Selector       string            `json:"selector"`
	XPath          string            `json:"xpath"`
	IDAttr         string            `json:"id_attr,omitempty"`
	ClassName      string            `json:"className,omitempty"`
	Attributes     map[string]string `json:"attributes,omitempty"`
	TextContent    string            `json:"textContent,omitempty"`
	OuterHTML      string            `json:"outerHTML"`
	ComputedStyles map[string]string `json:"computedStyles,omitempty"`
	BoundingRect   BoundingRect      `json:"boundingRect"`
	Parent         *ParentInfo       `json:"parentInfo,omitempty"`
	Comment        string            `json:"comment,omitempty"`
}

// BoundingRect is the element's viewport-relative box at selection time.
type BoundingRect struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ParentInfo is a one-level summary of the selected element's parent.
type ParentInfo struct {
	TagName   string `json:"tagName"`
	IDAttr    string `json:"id_attr,omitempty"`
	ClassName string `json:"className,omitempty"`
}

// FileOpType classifies a detected file operation.
type FileOpType string

const (
	FileOpRead   FileOpType = "read"
	FileOpEdit   FileOpType = "edit"
	FileOpWrite  FileOpType = "write"
	FileOpCreate FileOpType = "create"
	FileOpDelete FileOpType = "delete"
)

// FileOperation records a filesystem effect inferred from an agent tool
// result. Synthesized by the correlator, never mutated after emission.
type FileOperation struct {
	Type      FileOpType  `json:"type"`
	FilePath  string      `json:"filePath"`
	ToolName  string      `json:"toolName"`
	OldString string      `json:"oldString,omitempty"`
	NewString string      `json:"newString,omitempty"`
	Patch     []PatchHunk `json:"patch,omitempty"`
}

// PatchHunk is one hunk of a unified diff. Each line carries its
// leading '+', '-' or ' ' marker.
type PatchHunk struct {
	OldStart int      `json:"oldStart"`
	OldLines int      `json:"oldLines"`
	NewStart int      `json:"newStart"`
	NewLines int      `json:"newLines"`
	Lines    []string `json:"lines"`
}

// ConversationUpdate is a partial update applied to a conversation's
// metadata. Nil fields are left untouched.
type ConversationUpdate struct {
	Title        *string
	SessionToken *string
}

// Store defines the interface for conversation persistence
type Store interface {
	// Get returns the full conversation record, or ErrNotFound.
	Get(ctx context.Context, id string) (*ConversationData, error)

	// Create makes a new empty conversation. An empty title defaults to
	// DefaultTitle. Returns ErrDuplicateConversation if the id exists.
	Create(ctx context.Context, id, title string) (*ConversationData, error)

	// Update applies a partial metadata update and bumps UpdatedAt.
	// A session token, once set, is never overwritten.
	Update(ctx context.Context, id string, update ConversationUpdate) (*ConversationData, error)

	// AppendMessage appends a message and bumps UpdatedAt. If the
	// conversation still carries DefaultTitle and the message is the
	// first user message, a title is derived from its content.
	AppendMessage(ctx context.Context, id string, msg *Message) (*ConversationData, error)

	// SetSessionToken records the agent session token for resuming later
	// runs. A no-op if a token is already present.
	SetSessionToken(ctx context.Context, id, token string) error

	// Delete removes the conversation, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// ListAll returns conversation metadata sorted by UpdatedAt, newest
	// first. Unreadable files are skipped.
	ListAll(ctx context.Context) ([]*Conversation, error)
}
