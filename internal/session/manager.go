// ABOUTME: Session manager enforcing one active agent run per conversation
// ABOUTME: Drives persist-prompt-spawn-stream for each chat request

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/annotate-dev/pagebridge/internal/agent"
	"github.com/annotate-dev/pagebridge/internal/store"
)

// ErrSessionActive is returned when a chat request arrives for a
// conversation that already has a live agent run.
var ErrSessionActive = errors.New("session already active for conversation")

// ErrStorage wraps persistence failures surfaced during a run.
var ErrStorage = errors.New("storage failure")

// Starter launches agent runs. Satisfied by *agent.Launcher.
type Starter interface {
	Start(ctx context.Context, prompt, resumeToken string) (agent.Handle, error)
}

// ChatRequest is one chat turn as received from a client.
type ChatRequest struct {
	ConversationID string
	Message        string
	Elements       []store.ElementInfo
	PageURL        string
	Attachments    []string
}

// Callbacks receive streaming progress while ExecuteChat blocks. Nil
// callbacks are skipped.
type Callbacks struct {
	// OnChunk fires per text delta, in parse order.
	OnChunk func(messageID, text string)

	// OnFileOperation fires per detected file operation.
	OnFileOperation func(messageID string, op *store.FileOperation)

	// OnComplete fires once, after the assistant message is durable.
	// sessionID is empty when the run never reported one.
	OnComplete func(messageID, fullContent, sessionID string)
}

// Manager runs chats and tracks which conversations have a live run.
type Manager struct {
	store   store.Store
	starter Starter
	logger  *slog.Logger

	mu     sync.Mutex
	active map[string]*activeRun
}

// activeRun is a reserved session slot. It exists from the moment a
// chat request wins the reservation until ExecuteChat returns, so an
// abort can land before the process has finished spawning.
type activeRun struct {
	mu      sync.Mutex
	handle  agent.Handle
	aborted bool
}

// abort marks the run aborted and signals the process if it is already
// attached. Safe to call at any point in the run's life.
func (a *activeRun) abort() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.aborted = true
	if a.handle != nil {
		a.handle.Abort()
	}
}

// attach hands the spawned process to the slot. If an abort already
// landed, the run is terminated immediately.
func (a *activeRun) attach(h agent.Handle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handle = h
	if a.aborted {
		h.Abort()
	}
}

// NewManager creates a Manager backed by the given store and starter.
func NewManager(st store.Store, starter Starter, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:   st,
		starter: starter,
		logger:  logger.With("component", "sessions"),
		active:  make(map[string]*activeRun),
	}
}

// ExecuteChat runs one chat turn to completion. It blocks until the
// agent run terminates, delivering progress through cb. The returned
// error is the run's terminal failure; an aborted run returns nil with
// no OnComplete fired.
func (m *Manager) ExecuteChat(ctx context.Context, req ChatRequest, cb Callbacks) error {
	conv, err := m.store.Get(ctx, req.ConversationID)
	if err != nil {
		return fmt.Errorf("looking up conversation %s: %w", req.ConversationID, err)
	}

	slot, err := m.reserve(req.ConversationID)
	if err != nil {
		return err
	}
	defer m.release(req.ConversationID)

	userMsg := &store.Message{
		ID:        uuid.NewString(),
		Role:      store.RoleUser,
		Content:   req.Message,
		Elements:  req.Elements,
		Timestamp: time.Now().UTC(),
	}
	if _, err := m.store.AppendMessage(ctx, req.ConversationID, userMsg); err != nil {
		return fmt.Errorf("%w: persisting user message: %v", ErrStorage, err)
	}

	prompt := BuildPrompt(req.Message, req.Elements, req.Attachments, req.PageURL)

	handle, err := m.starter.Start(ctx, prompt, conv.SessionToken)
	if err != nil {
		return err
	}
	slot.attach(handle)

	messageID := uuid.NewString()
	m.logger.Info("chat run started",
		"conversation_id", req.ConversationID,
		"message_id", messageID,
		"elements", len(req.Elements),
		"attachments", len(req.Attachments),
		"resuming", conv.SessionToken != "",
	)

	return m.consume(ctx, req.ConversationID, messageID, handle, cb)
}

// consume drains the run's event stream, relaying progress and
// persisting the outcome. Returns the terminal error, nil for success
// or silent abort.
func (m *Manager) consume(ctx context.Context, conversationID, messageID string, handle agent.Handle, cb Callbacks) error {
	var fileOps []store.FileOperation

	for ev := range handle.Events() {
		switch ev.Type {
		case agent.EventSessionEstablished:
			if err := m.store.SetSessionToken(ctx, conversationID, ev.SessionID); err != nil {
				m.logger.Warn("failed to record session token",
					"conversation_id", conversationID, "error", err)
			}

		case agent.EventTextDelta:
			if cb.OnChunk != nil {
				cb.OnChunk(messageID, ev.Text)
			}

		case agent.EventFileOperation:
			fileOps = append(fileOps, *ev.Operation)
			if cb.OnFileOperation != nil {
				cb.OnFileOperation(messageID, ev.Operation)
			}

		case agent.EventCompleted:
			if ev.SessionID != "" {
				if err := m.store.SetSessionToken(ctx, conversationID, ev.SessionID); err != nil {
					m.logger.Warn("failed to record session token",
						"conversation_id", conversationID, "error", err)
				}
			}
			assistantMsg := &store.Message{
				ID:             messageID,
				Role:           store.RoleAssistant,
				Content:        ev.FullContent,
				FileOperations: fileOps,
				Timestamp:      time.Now().UTC(),
			}
			if _, err := m.store.AppendMessage(ctx, conversationID, assistantMsg); err != nil {
				return fmt.Errorf("%w: persisting assistant message: %v", ErrStorage, err)
			}
			m.logger.Info("chat run completed",
				"conversation_id", conversationID,
				"message_id", messageID,
				"content_bytes", len(ev.FullContent),
				"file_operations", len(fileOps),
			)
			if cb.OnComplete != nil {
				cb.OnComplete(messageID, ev.FullContent, ev.SessionID)
			}

		case agent.EventErrored:
			m.logger.Error("chat run failed",
				"conversation_id", conversationID,
				"message_id", messageID,
				"error", ev.Err,
			)
			return ev.Err
		}
	}

	// Channel closed without a terminal event: the run was aborted.
	return nil
}

// Abort signals the conversation's live run, if any. Reports whether
// anything was actually aborted; aborting with no active session is a
// no-op.
func (m *Manager) Abort(conversationID string) bool {
	m.mu.Lock()
	slot, ok := m.active[conversationID]
	m.mu.Unlock()
	if !ok {
		return false
	}
	slot.abort()
	m.logger.Info("chat run abort requested", "conversation_id", conversationID)
	return true
}

// IsActive reports whether the conversation currently has a live run.
func (m *Manager) IsActive(conversationID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[conversationID]
	return ok
}

func (m *Manager) reserve(conversationID string) (*activeRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.active[conversationID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionActive, conversationID)
	}
	slot := &activeRun{}
	m.active[conversationID] = slot
	return slot, nil
}

func (m *Manager) release(conversationID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, conversationID)
}
