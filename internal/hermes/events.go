package hermes

import (
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/docchat/internal/conversation"
)

const (
	SubjectMessageAppended = "docchat.conversation.message"
	SubjectUploadRelayed   = "docchat.relay.upload"
)

// MessageAppended announces a new message. Only the content length is
// published; conversation text never leaves the process.
type MessageAppended struct {
	SessionID string    `json:"session_id"`
	MessageID string    `json:"message_id"`
	Seq       uint64    `json:"seq"`
	Role      string    `json:"role"`
	Length    int       `json:"length"`
	CreatedAt time.Time `json:"created_at"`
}

type UploadRelayed struct {
	Filename string    `json:"filename"`
	Size     int64     `json:"size"`
	Outcome  string    `json:"outcome"`
	Chunks   *int      `json:"chunks,omitempty"`
	At       time.Time `json:"at"`
}

// Publisher is the subset of Client used by event producers.
type Publisher interface {
	Publish(subject string, data any) error
}

// MessageObserver returns a conversation observer that publishes every
// append for sessionID. A nil publisher yields a no-op observer.
func MessageObserver(p Publisher, sessionID string, logger *slog.Logger) conversation.Observer {
	return func(m conversation.Message) {
		if p == nil {
			return
		}
		evt := MessageAppended{
			SessionID: sessionID,
			MessageID: m.ID.String(),
			Seq:       m.Seq,
			Role:      string(m.Role),
			Length:    len(m.Content),
			CreatedAt: m.CreatedAt.UTC(),
		}
		if err := p.Publish(SubjectMessageAppended, evt); err != nil {
			logger.Warn("failed to publish message event", "session_id", sessionID, "error", err)
		}
	}
}
