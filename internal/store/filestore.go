// ABOUTME: FileStore persists each conversation as one JSON document on local disk
// ABOUTME: Whole-file read-modify-write per operation, directory created on first use

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileStore implements Store with one pretty-printed JSON file per
// conversation, named <id>.json under the data directory.
//
// Every mutation is a whole-file read-modify-write guarded by a process
// mutex. There is no cross-process locking: concurrent writers from a
// second process race, an accepted limitation for a single-user local
// tool.
type FileStore struct {
	dir    string
	mu     sync.Mutex
	logger *slog.Logger
}

// NewFileStore creates a FileStore rooted at dir. The directory is not
// created until the first operation needs it.
func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		dir:    dir,
		logger: logger.With("component", "store"),
	}
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *FileStore) ensureDir() error {
	return os.MkdirAll(s.dir, 0o755)
}

// read loads a conversation file without taking the mutex.
func (s *FileStore) read(id string) (*ConversationData, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading conversation %s: %w", id, err)
	}

	var conv ConversationData
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("parsing conversation %s: %w", id, err)
	}
	return &conv, nil
}

// write persists a conversation file without taking the mutex.
func (s *FileStore) write(conv *ConversationData) error {
	if err := s.ensureDir(); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding conversation %s: %w", conv.ID, err)
	}

	if err := os.WriteFile(s.path(conv.ID), data, 0o644); err != nil {
		return fmt.Errorf("writing conversation %s: %w", conv.ID, err)
	}
	return nil
}

// Get returns the full conversation record, or ErrNotFound.
func (s *FileStore) Get(ctx context.Context, id string) (*ConversationData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(id)
}

// Create makes a new empty conversation with the given title.
func (s *FileStore) Create(ctx context.Context, id, title string) (*ConversationData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path(id)); err == nil {
		return nil, ErrDuplicateConversation
	}

	if title == "" {
		title = DefaultTitle
	}

	now := time.Now().UTC()
	conv := &ConversationData{
		Conversation: Conversation{
			ID:        id,
			Title:     title,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Messages: []Message{},
	}

	if err := s.write(conv); err != nil {
		return nil, err
	}

	s.logger.Info("created conversation", "conversation_id", id)
	return conv, nil
}

// Update applies a partial metadata update and bumps UpdatedAt.
func (s *FileStore) Update(ctx context.Context, id string, update ConversationUpdate) (*ConversationData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.read(id)
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		conv.Title = *update.Title
	}
	if update.SessionToken != nil && conv.SessionToken == "" {
		conv.SessionToken = *update.SessionToken
	}
	conv.UpdatedAt = time.Now().UTC()

	if err := s.write(conv); err != nil {
		return nil, err
	}

	s.logger.Info("updated conversation", "conversation_id", id)
	return conv, nil
}

// AppendMessage appends a message, deriving a title from the first user
// message when the conversation still has the default title.
func (s *FileStore) AppendMessage(ctx context.Context, id string, msg *Message) (*ConversationData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.read(id)
	if err != nil {
		return nil, err
	}

	conv.Messages = append(conv.Messages, *msg)
	conv.UpdatedAt = time.Now().UTC()

	if conv.Title == DefaultTitle && msg.Role == RoleUser {
		conv.Title = GenerateTitle(msg.Content)
	}

	if err := s.write(conv); err != nil {
		return nil, err
	}

	s.logger.Info("appended message",
		"conversation_id", id,
		"message_id", msg.ID,
		"role", msg.Role,
	)
	return conv, nil
}

// SetSessionToken records the session token once; later calls are no-ops.
func (s *FileStore) SetSessionToken(ctx context.Context, id, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.read(id)
	if err != nil {
		return err
	}

	if conv.SessionToken != "" {
		s.logger.Debug("session token already set, keeping existing",
			"conversation_id", id)
		return nil
	}

	conv.SessionToken = token
	conv.UpdatedAt = time.Now().UTC()
	return s.write(conv)
}

// Delete removes the conversation file.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path(id)); os.IsNotExist(err) {
		return ErrNotFound
	}

	if err := os.Remove(s.path(id)); err != nil {
		return fmt.Errorf("deleting conversation %s: %w", id, err)
	}

	s.logger.Info("deleted conversation", "conversation_id", id)
	return nil
}

// ListAll returns conversation metadata sorted newest first.
func (s *FileStore) ListAll(ctx context.Context) ([]*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureDir(); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading data dir: %w", err)
	}

	conversations := make([]*Conversation, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".json")
		conv, err := s.read(id)
		if err != nil {
			s.logger.Warn("skipping unreadable conversation file",
				"file", entry.Name(),
				"error", err,
			)
			continue
		}
		c := conv.Conversation
		conversations = append(conversations, &c)
	}

	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})

	return conversations, nil
}
