// ABOUTME: REST handlers for conversations, filesystem browsing and health
// ABOUTME: Mirrors the wire shapes the browser extension expects

package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/annotate-dev/pagebridge/internal/store"
)

// Store is the persistence surface the API serves from.
type Store = store.Store

type api struct {
	store  Store
	logger *slog.Logger
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *api) handleListConversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := a.store.ListAll(r.Context())
	if err != nil {
		a.serverError(w, "listing conversations", err)
		return
	}
	if conversations == nil {
		conversations = []*store.Conversation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
}

func (a *api) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	conv, err := a.store.Create(r.Context(), id, "")
	if err != nil {
		a.serverError(w, "creating conversation", err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (a *api) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := a.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		a.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (a *api) handleUpdateConversation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	conv, err := a.store.Update(r.Context(), r.PathValue("id"), store.ConversationUpdate{
		Title: &body.Title,
	})
	if err != nil {
		a.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv.Conversation)
}

func (a *api) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := a.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		a.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (a *api) handleFsHome(w http.ResponseWriter, r *http.Request) {
	home, err := os.UserHomeDir()
	if err != nil {
		a.serverError(w, "resolving home directory", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": home})
}

func (a *api) handleFsCwd(w http.ResponseWriter, r *http.Request) {
	cwd, err := os.Getwd()
	if err != nil {
		a.serverError(w, "resolving working directory", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": cwd})
}

// fileEntry is one row in a directory listing.
type fileEntry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	IsDirectory bool   `json:"isDirectory"`
	Size        int64  `json:"size,omitempty"`
}

func (a *api) handleFsList(w http.ResponseWriter, r *http.Request) {
	dir := r.URL.Query().Get("path")
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			a.serverError(w, "resolving working directory", err)
			return
		}
		dir = cwd
	}

	absPath, err := filepath.Abs(dir)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot resolve path")
		return
	}

	info, err := os.Stat(absPath)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read directory")
		return
	}
	if !info.IsDir() {
		writeError(w, http.StatusBadRequest, "path is not a directory")
		return
	}

	items, err := os.ReadDir(absPath)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read directory")
		return
	}

	entries := []fileEntry{}
	for _, item := range items {
		if item.Name()[0] == '.' {
			continue
		}
		entry := fileEntry{
			Name:        item.Name(),
			Path:        filepath.Join(absPath, item.Name()),
			IsDirectory: item.IsDir(),
		}
		if !item.IsDir() {
			if fi, err := item.Info(); err == nil {
				entry.Size = fi.Size()
			}
		}
		entries = append(entries, entry)
	}

	// Directories first, then files, both alphabetically.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDirectory != entries[j].IsDirectory {
			return entries[i].IsDirectory
		}
		return entries[i].Name < entries[j].Name
	})

	var parent *string
	if p := filepath.Dir(absPath); p != absPath {
		parent = &p
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"path":    absPath,
		"parent":  parent,
		"entries": entries,
	})
}

func (a *api) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	a.serverError(w, "store operation", err)
}

func (a *api) serverError(w http.ResponseWriter, op string, err error) {
	a.logger.Error("request failed", "op", op, "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
