package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/docchat/internal/session"
	"github.com/MikeSquared-Agency/docchat/internal/store"
)

// UploadLister lists audited relay uploads.
type UploadLister interface {
	RecentUploads(ctx context.Context, limit int) ([]store.UploadRecord, error)
}

type Server struct {
	router    *chi.Mux
	port      int
	sessions  *session.Registry
	uploads   UploadLister
	maxMemory int64
	logger    *slog.Logger
}

type Option func(*Server)

func WithUploadLister(l UploadLister) Option { return func(s *Server) { s.uploads = l } }

func WithMaxMemory(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxMemory = n
		}
	}
}

// NewServer wires the chat page, the session API and the upload relay.
func NewServer(port int, sessions *session.Registry, relay http.Handler, logger *slog.Logger, opts ...Option) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:    router,
		port:      port,
		sessions:  sessions,
		maxMemory: 32 << 20,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/docchat/status", s.status)
	router.Get("/api/v1/uploads", s.recentUploads)

	router.Method(http.MethodPost, "/api/upload", relay)

	router.Get("/", s.page)
	router.Route("/api/session", func(r chi.Router) {
		r.Get("/", s.snapshot)
		r.Post("/messages", s.sendMessage)
		r.Post("/upload", s.uploadDocument)
	})

	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("HTTP shutdown", "error", err)
		}
	}()

	s.logger.Info("API server starting", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":  "docchat",
		"status":   "ok",
		"sessions": s.sessions.Len(),
		"audit":    s.uploads != nil,
	})
}

func (s *Server) recentUploads(w http.ResponseWriter, r *http.Request) {
	if s.uploads == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "upload audit not configured"})
		return
	}
	rows, err := s.uploads.RecentUploads(r.Context(), 50)
	if err != nil {
		s.logger.Error("list uploads", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list uploads"})
		return
	}

	type uploadJSON struct {
		ID          string    `json:"id"`
		Filename    string    `json:"filename"`
		ContentType string    `json:"content_type"`
		Size        int64     `json:"size"`
		Outcome     string    `json:"outcome"`
		Chunks      *int      `json:"chunks,omitempty"`
		Error       string    `json:"error,omitempty"`
		CreatedAt   time.Time `json:"created_at"`
	}
	out := make([]uploadJSON, 0, len(rows))
	for _, u := range rows {
		out = append(out, uploadJSON{
			ID:          u.ID.String(),
			Filename:    u.Filename,
			ContentType: u.ContentType,
			Size:        u.Size,
			Outcome:     u.Outcome,
			Chunks:      u.Chunks,
			Error:       u.Error,
			CreatedAt:   u.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"uploads": out, "count": len(out)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
