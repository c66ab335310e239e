package present

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/docchat/internal/conversation"
)

func TestRenderInline(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"this is **bold**", "this is <strong>bold</strong>"},
		{"an *italic* word", "an <em>italic</em> word"},
		{"an _italic_ word", "an <em>italic</em> word"},
		{"snake_case_name stays", "snake_case_name stays"},
		{"run `go **test**`", "run <code>go **test**</code>"},
		{"a ` stray", "a ` stray"},
		{"<script>alert(1)</script>", "&lt;script&gt;alert(1)&lt;/script&gt;"},
		{"line one\nline two", "line one<br>line two"},
	}
	for _, tc := range cases {
		if got := string(RenderInline(tc.in)); got != tc.want {
			t.Errorf("RenderInline(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2025, 3, 4, 9, 7, 0, 0, time.UTC)
	if got := FormatTimestamp(ts); got != "09:07" {
		t.Errorf("expected 09:07, got %q", got)
	}
	if got := FormatTimestamp(time.Time{}); got != "" {
		t.Errorf("expected empty for zero time, got %q", got)
	}
}

func TestRenderSnapshot(t *testing.T) {
	s := conversation.NewStore("**Hi**")
	s.Append(conversation.RoleUser, "question")
	s.SetPending(true)
	chunks := 12
	s.SetLastUpload(conversation.UploadResult{Chunks: &chunks, Analysis: json.RawMessage(`{"topic":"biology"}`)})

	view := RenderSnapshot(s.Snapshot())

	if len(view.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(view.Messages))
	}
	if view.Messages[0].HTML != "<strong>Hi</strong>" || view.Messages[0].Role != "assistant" {
		t.Errorf("unexpected first message: %+v", view.Messages[0])
	}
	if view.Messages[1].Seq <= view.Messages[0].Seq {
		t.Error("expected order preserved")
	}
	if !view.Typing {
		t.Error("expected typing indicator while pending")
	}
	if view.Upload == nil || !view.Upload.HasChunks || view.Upload.Chunks != 12 {
		t.Fatalf("unexpected upload panel: %+v", view.Upload)
	}
	if !strings.Contains(view.Upload.Analysis, `"topic": "biology"`) {
		t.Errorf("expected pretty analysis, got %q", view.Upload.Analysis)
	}
}

func TestRenderSnapshot_UploadWithoutFields(t *testing.T) {
	s := conversation.NewStore("")
	s.SetLastUpload(conversation.UploadResult{})

	view := RenderSnapshot(s.Snapshot())
	if view.Upload == nil {
		t.Fatal("expected upload panel")
	}
	if view.Upload.HasChunks || view.Upload.Analysis != "" {
		t.Errorf("expected empty panel, got %+v", view.Upload)
	}
}

func TestRenderSnapshot_NonObjectAnalysis(t *testing.T) {
	s := conversation.NewStore("")
	s.SetLastUpload(conversation.UploadResult{Analysis: json.RawMessage(`"biology notes"`)})

	view := RenderSnapshot(s.Snapshot())
	if view.Upload == nil || view.Upload.Analysis != `"biology notes"` {
		t.Errorf("expected string analysis shown as JSON, got %+v", view.Upload)
	}
}

func TestWritePage(t *testing.T) {
	s := conversation.NewStore("Hello <b>there</b>")
	s.SetPending(true)

	var buf bytes.Buffer
	if err := WritePage(&buf, RenderSnapshot(s.Snapshot())); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	page := buf.String()

	if !strings.Contains(page, "Hello &lt;b&gt;there&lt;/b&gt;") {
		t.Error("expected escaped greeting in page")
	}
	if !strings.Contains(page, `class="message assistant typing"`) {
		t.Error("expected typing indicator while pending")
	}
	if !strings.Contains(page, `data-typing="true"`) {
		t.Error("expected controls flagged busy while pending")
	}
}
