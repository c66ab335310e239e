package conversation

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is immutable once appended. Ordering is by Seq, never by CreatedAt.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Seq       uint64    `json:"seq"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// UploadResult is the last-known body returned by the upload relay.
// Every field is optional; Raw holds the body exactly as received.
type UploadResult struct {
	Chunks   *int            `json:"chunks,omitempty"`
	Analysis json.RawMessage `json:"analysis,omitempty"`
	Message  string          `json:"message,omitempty"`
	Raw      json.RawMessage `json:"-"`
}

// ErrNotObject is returned for upload bodies that are valid JSON but not
// a JSON object, including null.
var ErrNotObject = errors.New("upload result is not a JSON object")

// ParseUploadResult decodes a relay response body. Only the top-level
// shape is checked: field values of an unexpected type are treated as
// absent, and analysis is kept verbatim whatever its type.
func ParseUploadResult(body []byte) (UploadResult, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return UploadResult{}, err
	}
	if fields == nil {
		return UploadResult{}, ErrNotObject
	}

	res := UploadResult{Raw: append(json.RawMessage(nil), body...)}
	if raw, ok := fields["chunks"]; ok {
		res.Chunks = parseCount(raw)
	}
	if raw, ok := fields["analysis"]; ok && !isNull(raw) {
		res.Analysis = append(json.RawMessage(nil), raw...)
	}
	if raw, ok := fields["message"]; ok {
		var msg string
		if json.Unmarshal(raw, &msg) == nil {
			res.Message = msg
		}
	}
	return res, nil
}

// parseCount accepts a JSON number or numeric string and truncates it to
// an int. Anything else is absent.
func parseCount(raw json.RawMessage) *int {
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil
	}

	var text string
	switch t := v.(type) {
	case json.Number:
		text = t.String()
	case string:
		text = strings.TrimSpace(t)
	default:
		return nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt32 || f < math.MinInt32 {
		return nil
	}
	n := int(f)
	return &n
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Snapshot is a read-only copy of a conversation for rendering.
type Snapshot struct {
	Messages   []Message     `json:"messages"`
	Pending    bool          `json:"pending"`
	LastUpload *UploadResult `json:"last_upload,omitempty"`
}
