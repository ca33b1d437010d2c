// ABOUTME: HTTP server wiring the REST API and the websocket channel
// ABOUTME: Serves on localhost only; graceful shutdown on context cancellation

package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// Server hosts the REST API and the client channel on one listener.
type Server struct {
	addr   string
	api    *api
	ws     http.Handler
	logger *slog.Logger

	httpSrv *http.Server
}

// New creates a server listening on addr. ws handles the /ws endpoint.
func New(addr string, st Store, ws http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "server")
	return &Server{
		addr:   addr,
		api:    &api{store: st, logger: logger},
		ws:     ws,
		logger: logger,
	}
}

// Handler builds the full route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.api.handleHealth)

	mux.HandleFunc("GET /api/conversations", s.api.handleListConversations)
	mux.HandleFunc("POST /api/conversations", s.api.handleCreateConversation)
	mux.HandleFunc("GET /api/conversations/{id}", s.api.handleGetConversation)
	mux.HandleFunc("PATCH /api/conversations/{id}", s.api.handleUpdateConversation)
	mux.HandleFunc("DELETE /api/conversations/{id}", s.api.handleDeleteConversation)
	mux.HandleFunc("GET /api/conversations/{id}/transcript", s.api.handleTranscript)

	mux.HandleFunc("GET /api/fs/home", s.api.handleFsHome)
	mux.HandleFunc("GET /api/fs/cwd", s.api.handleFsCwd)
	mux.HandleFunc("GET /api/fs/list", s.api.handleFsList)

	if s.ws != nil {
		mux.Handle("GET /ws", s.ws)
	}

	return corsMiddleware(mux)
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// corsMiddleware allows all origins. The server binds to localhost;
// the browser extension connects from arbitrary page origins.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
