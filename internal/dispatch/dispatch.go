// Package dispatch implements the two user-triggered operations that
// mutate a conversation: sending a question and uploading a document.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MikeSquared-Agency/docchat/internal/backend"
	"github.com/MikeSquared-Agency/docchat/internal/conversation"
)

var (
	// ErrBusy is returned when a dispatch is already in flight. State is
	// left untouched.
	ErrBusy = errors.New("a request is already in progress")
	// ErrNotPDF is the local validation error for non-PDF uploads.
	ErrNotPDF = errors.New("please upload a PDF file")
)

type Asker interface {
	Ask(ctx context.Context, question string) (backend.AskResult, error)
}

type Uploader interface {
	Upload(ctx context.Context, f backend.File) (json.RawMessage, error)
}

// Controller owns the dispatch rules for one conversation.
type Controller struct {
	store    *conversation.Store
	asker    Asker
	uploader Uploader
	logger   *slog.Logger
}

func New(s *conversation.Store, asker Asker, uploader Uploader, logger *slog.Logger) *Controller {
	return &Controller{store: s, asker: asker, uploader: uploader, logger: logger}
}

func (c *Controller) Store() *conversation.Store { return c.store }

// SendMessage appends text as a user message, asks the backend and
// appends exactly one assistant message. Blank text is ignored.
// Only ErrBusy is ever returned; backend failures become messages.
func (c *Controller) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if !c.store.BeginDispatch() {
		return ErrBusy
	}
	defer c.store.SetPending(false)

	c.store.Append(conversation.RoleUser, text)

	reply := c.ask(ctx, text)
	c.store.Append(conversation.RoleAssistant, reply)
	return nil
}

func (c *Controller) ask(ctx context.Context, text string) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("ask panicked", "panic", r)
			reply = Fallback(FailureSend)
		}
	}()

	res, err := c.asker.Ask(ctx, text)
	if err != nil {
		c.logger.Warn("ask failed", "kind", FailureSend.String(), "error", err)
		return Fallback(FailureSend)
	}
	if !res.HasAnswer {
		c.logger.Warn("ask returned no answer", "kind", FailureUnprocessable.String())
		return Fallback(FailureUnprocessable)
	}
	return res.Answer
}

// IsPDF reports whether a declared media type denotes a PDF.
func IsPDF(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "pdf")
}

// Upload validates f, sends it through the relay and appends one
// assistant message describing the outcome. ErrNotPDF and ErrBusy are
// returned without touching state; relay failures become messages.
func (c *Controller) Upload(ctx context.Context, f backend.File) error {
	if !IsPDF(f.ContentType) {
		return ErrNotPDF
	}
	if !c.store.BeginDispatch() {
		return ErrBusy
	}
	defer c.store.SetPending(false)

	reply := c.upload(ctx, f)
	c.store.Append(conversation.RoleAssistant, reply)
	return nil
}

func (c *Controller) upload(ctx context.Context, f backend.File) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("upload panicked", "panic", r)
			reply = Fallback(FailureUpload)
		}
	}()

	body, err := c.uploader.Upload(ctx, f)
	if err != nil {
		c.logger.Warn("upload failed", "filename", f.Name, "kind", FailureUpload.String(), "error", err)
		return Fallback(FailureUpload)
	}
	res, err := conversation.ParseUploadResult(body)
	if err != nil {
		c.logger.Warn("upload result unreadable", "filename", f.Name, "error", err)
		return Fallback(FailureUpload)
	}
	c.store.SetLastUpload(res)
	c.logger.Info("document uploaded", "filename", f.Name)
	return UploadSummary(res)
}

// UploadSummary describes a successful upload without assuming any
// field is present.
func UploadSummary(res conversation.UploadResult) string {
	var sb strings.Builder
	sb.WriteString("File processed successfully!")
	if res.Chunks != nil {
		fmt.Fprintf(&sb, " The document was analyzed in %d chunks.", *res.Chunks)
	}
	if len(res.Analysis) > 0 {
		sb.WriteString(" Analysis results are available.")
	}
	return sb.String()
}
