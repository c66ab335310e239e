package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Observer is notified after every append, in append order.
// It runs under the store lock and must not call back into the store.
type Observer func(Message)

// Store is the append-only state of one conversation.
type Store struct {
	mu         sync.Mutex
	messages   []Message
	pending    bool
	lastUpload *UploadResult
	seq        uint64
	observers  []Observer
	now        func() time.Time
}

// NewStore returns a store pre-seeded with an assistant greeting.
func NewStore(greeting string, observers ...Observer) *Store {
	s := &Store{
		messages:  make([]Message, 0, 16),
		observers: observers,
		now:       time.Now,
	}
	if greeting != "" {
		s.Append(RoleAssistant, greeting)
	}
	return s
}

// Append creates a message and adds it to the end of the log.
func (s *Store) Append(role Role, content string) Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	msg := Message{
		ID:        newID(),
		Seq:       s.seq,
		Role:      role,
		Content:   content,
		CreatedAt: s.now(),
	}
	s.messages = append(s.messages, msg)
	for _, obs := range s.observers {
		obs(msg)
	}
	return msg
}

// SetPending toggles the in-flight flag.
func (s *Store) SetPending(flag bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = flag
}

// BeginDispatch sets pending and reports true, or reports false if a
// dispatch is already in flight.
func (s *Store) BeginDispatch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending {
		return false
	}
	s.pending = true
	return true
}

func (s *Store) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *Store) SetLastUpload(res UploadResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUpload = &res
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]Message, len(s.messages))
	copy(cp, s.messages)
	snap := Snapshot{Messages: cp, Pending: s.pending}
	if s.lastUpload != nil {
		lu := *s.lastUpload
		snap.LastUpload = &lu
	}
	return snap
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// newID prefers a time-ordered v7 UUID and falls back to v4 if the
// random source fails. Ordering never depends on the ID.
func newID() uuid.UUID {
	if id, err := uuid.NewV7(); err == nil {
		return id
	}
	return uuid.New()
}
