// Package present turns conversation snapshots into view models for the
// chat page. It holds no state.
package present

import (
	"bytes"
	"encoding/json"
	"html"
	"html/template"
	"regexp"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/docchat/internal/conversation"
)

const timeLayout = "15:04"

type MessageView struct {
	ID   string        `json:"id"`
	Seq  uint64        `json:"seq"`
	Role string        `json:"role"`
	HTML template.HTML `json:"html"`
	Time string        `json:"time"`
}

type UploadPanel struct {
	HasChunks bool   `json:"has_chunks"`
	Chunks    int    `json:"chunks"`
	Analysis  string `json:"analysis,omitempty"`
	Message   string `json:"message,omitempty"`
}

type PageView struct {
	Messages []MessageView `json:"messages"`
	// Typing is true while a dispatch is in flight. Input controls are
	// disabled for as long as it is set.
	Typing bool         `json:"typing"`
	Upload *UploadPanel `json:"upload,omitempty"`
}

func RenderSnapshot(snap conversation.Snapshot) PageView {
	view := PageView{
		Messages: make([]MessageView, 0, len(snap.Messages)),
		Typing:   snap.Pending,
	}
	for _, m := range snap.Messages {
		view.Messages = append(view.Messages, RenderMessage(m))
	}
	if snap.LastUpload != nil {
		view.Upload = renderUpload(*snap.LastUpload)
	}
	return view
}

func RenderMessage(m conversation.Message) MessageView {
	return MessageView{
		ID:   m.ID.String(),
		Seq:  m.Seq,
		Role: string(m.Role),
		HTML: RenderInline(m.Content),
		Time: FormatTimestamp(m.CreatedAt),
	}
}

func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

func renderUpload(res conversation.UploadResult) *UploadPanel {
	panel := &UploadPanel{Message: res.Message}
	if res.Chunks != nil {
		panel.HasChunks = true
		panel.Chunks = *res.Chunks
	}
	if len(res.Analysis) > 0 {
		var buf bytes.Buffer
		if err := json.Indent(&buf, res.Analysis, "", "  "); err == nil {
			panel.Analysis = buf.String()
		} else {
			panel.Analysis = string(res.Analysis)
		}
	}
	return panel
}

var (
	boldRe       = regexp.MustCompile(`\*\*([^*\n]+?)\*\*`)
	italicStarRe = regexp.MustCompile(`\*([^*\n]+?)\*`)
	italicUndRe  = regexp.MustCompile(`\b_([^_\n]+?)_\b`)
)

// RenderInline escapes s and converts inline emphasis: **bold**,
// *italic*, _italic_ and `code`. Code spans are not further formatted.
func RenderInline(s string) template.HTML {
	parts := strings.Split(s, "`")
	var sb strings.Builder
	for i, p := range parts {
		switch {
		case i%2 == 1 && i < len(parts)-1:
			sb.WriteString("<code>")
			sb.WriteString(html.EscapeString(p))
			sb.WriteString("</code>")
		case i%2 == 1:
			// unmatched backtick
			sb.WriteString("`")
			sb.WriteString(emphasis(p))
		default:
			sb.WriteString(emphasis(p))
		}
	}
	return template.HTML(strings.ReplaceAll(sb.String(), "\n", "<br>"))
}

func emphasis(s string) string {
	out := html.EscapeString(s)
	out = boldRe.ReplaceAllString(out, "<strong>$1</strong>")
	out = italicStarRe.ReplaceAllString(out, "<em>$1</em>")
	out = italicUndRe.ReplaceAllString(out, "<em>$1</em>")
	return out
}
