package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MikeSquared-Agency/docchat/internal/backend"
	"github.com/MikeSquared-Agency/docchat/internal/dispatch"
	"github.com/MikeSquared-Agency/docchat/internal/present"
	"github.com/MikeSquared-Agency/docchat/internal/session"
)

const sessionCookie = "docchat_session"

type sendMessageRequest struct {
	Text string `json:"text"`
}

// currentSession resolves the caller's session, starting a new one (and
// setting the cookie) when none is live.
func (s *Server) currentSession(w http.ResponseWriter, r *http.Request) *session.Session {
	var id string
	if c, err := r.Cookie(sessionCookie); err == nil {
		id = c.Value
	}
	sess, created := s.sessions.GetOrCreate(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess
}

func (s *Server) page(w http.ResponseWriter, r *http.Request) {
	sess := s.currentSession(w, r)
	view := present.RenderSnapshot(sess.Controller.Store().Snapshot())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := present.WritePage(w, view); err != nil {
		s.logger.Error("render page", "session_id", sess.ID, "error", err)
	}
}

func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) {
	sess := s.currentSession(w, r)
	writeJSON(w, http.StatusOK, present.RenderSnapshot(sess.Controller.Store().Snapshot()))
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	sess := s.currentSession(w, r)

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	// A started dispatch runs to completion even if the browser goes away.
	ctx := context.WithoutCancel(r.Context())
	if err := sess.Controller.SendMessage(ctx, req.Text); err != nil {
		s.writeDispatchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, present.RenderSnapshot(sess.Controller.Store().Snapshot()))
}

func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request) {
	sess := s.currentSession(w, r)

	if err := r.ParseMultipartForm(s.maxMemory); err == nil {
		defer r.MultipartForm.RemoveAll()
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file provided"})
		return
	}
	defer file.Close()

	ctx := context.WithoutCancel(r.Context())
	err = sess.Controller.Upload(ctx, backend.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		s.writeDispatchError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, present.RenderSnapshot(sess.Controller.Store().Snapshot()))
}

func (s *Server) writeDispatchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dispatch.ErrNotPDF):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Please upload a PDF file"})
	case errors.Is(err, dispatch.ErrBusy):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		s.logger.Error("dispatch failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
