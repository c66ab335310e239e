// Package relay forwards browser uploads to the analysis backend without
// interpreting them.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/docchat/internal/backend"
	"github.com/MikeSquared-Agency/docchat/internal/conversation"
	"github.com/MikeSquared-Agency/docchat/internal/hermes"
	"github.com/MikeSquared-Agency/docchat/internal/store"
)

const (
	fileField         = "file"
	defaultMaxMemory  = 32 << 20
	outcomeOK         = "ok"
	outcomeBackendErr = "backend_error"
)

// Uploader sends one file to the backend and returns its JSON body.
type Uploader interface {
	Upload(ctx context.Context, f backend.File) (json.RawMessage, error)
}

// Recorder audits relayed uploads.
type Recorder interface {
	RecordUpload(ctx context.Context, rec store.UploadRecord) (uuid.UUID, error)
}

type Handler struct {
	uploader  Uploader
	recorder  Recorder
	events    hermes.Publisher
	maxMemory int64
	logger    *slog.Logger
}

type Option func(*Handler)

func WithRecorder(r Recorder) Option { return func(h *Handler) { h.recorder = r } }

func WithPublisher(p hermes.Publisher) Option { return func(h *Handler) { h.events = p } }

// WithMaxMemory sets how much of a multipart body is buffered in memory
// before spilling to disk. It is not a size limit.
func WithMaxMemory(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxMemory = n
		}
	}
}

func New(u Uploader, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{uploader: u, maxMemory: defaultMaxMemory, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.logger.Debug("unreadable multipart body", "error", err)
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile(fileField)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "No file provided"})
		return
	}
	defer file.Close()

	rec := store.UploadRecord{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}

	body, err := h.uploader.Upload(r.Context(), backend.File{
		Name:        header.Filename,
		ContentType: rec.ContentType,
		Body:        file,
	})
	if err != nil {
		h.logger.Error("upload relay failed", "filename", header.Filename, "error", err)
		rec.Outcome = outcomeBackendErr
		rec.Error = publicMessage(err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Upload failed", Message: rec.Error})
		h.audit(r.Context(), rec)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)

	rec.Outcome = outcomeOK
	rec.Chunks = chunkCount(body)
	h.logger.Info("upload relayed", "filename", header.Filename, "size", header.Size)
	h.audit(r.Context(), rec)
}

func (h *Handler) audit(ctx context.Context, rec store.UploadRecord) {
	ctx = context.WithoutCancel(ctx)
	if h.recorder != nil {
		if _, err := h.recorder.RecordUpload(ctx, rec); err != nil {
			h.logger.Warn("failed to record upload", "filename", rec.Filename, "error", err)
		}
	}
	if h.events != nil {
		evt := hermes.UploadRelayed{
			Filename: rec.Filename,
			Size:     rec.Size,
			Outcome:  rec.Outcome,
			Chunks:   rec.Chunks,
			At:       time.Now().UTC(),
		}
		if err := h.events.Publish(hermes.SubjectUploadRelayed, evt); err != nil {
			h.logger.Warn("failed to publish upload event", "filename", rec.Filename, "error", err)
		}
	}
}

// publicMessage reduces a backend error to text safe to show a browser.
func publicMessage(err error) string {
	var se *backend.StatusError
	switch {
	case errors.As(err, &se):
		return "Backend upload failed: " + se.Status
	case errors.Is(err, backend.ErrInvalidJSON):
		return "Backend returned an invalid response"
	case errors.Is(err, context.Canceled):
		return "Upload cancelled"
	default:
		return "Backend unreachable"
	}
}

func chunkCount(body []byte) *int {
	res, err := conversation.ParseUploadResult(body)
	if err != nil {
		return nil
	}
	return res.Chunks
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
