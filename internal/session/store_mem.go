package session

import (
	"sync"
	"time"
)

// sessionLog holds the message log and sequence counter for one session.
type sessionLog struct {
	messages []Message
	nextSeq  int64
}

// InMemoryHistoryStore is a thread-safe, in-memory implementation of
// HistoryStore. Suitable for tests and single-process deployments without
// persistence.
type InMemoryHistoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionLog
	now      func() time.Time
}

// NewInMemoryHistoryStore creates a new empty history store.
func NewInMemoryHistoryStore() *InMemoryHistoryStore {
	return &InMemoryHistoryStore{
		sessions: make(map[string]*sessionLog),
		now:      time.Now,
	}
}

// Compile-time interface check.
var _ HistoryStore = (*InMemoryHistoryStore)(nil)

func (s *InMemoryHistoryStore) getOrCreate(sessionID string) *sessionLog {
	sl, ok := s.sessions[sessionID]
	if !ok {
		sl = &sessionLog{nextSeq: 1}
		s.sessions[sessionID] = sl
	}
	return sl
}

// Append stores a message, assigning the session's next sequence number.
func (s *InMemoryHistoryStore) Append(sessionID string, msg Message) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl := s.getOrCreate(sessionID)
	msg.Seq = sl.nextSeq
	sl.nextSeq++
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	sl.messages = append(sl.messages, msg)
	return msg, nil
}

// Messages returns a copy of all messages for a session in Seq order.
func (s *InMemoryHistoryStore) Messages(sessionID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sl, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}

	result := make([]Message, len(sl.messages))
	copy(result, sl.messages)
	return result, nil
}

// Recent returns a copy of the n most recent messages in Seq order.
func (s *InMemoryHistoryStore) Recent(sessionID string, n int) ([]Message, error) {
	if n <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sl, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}

	msgs := sl.messages
	if n >= len(msgs) {
		result := make([]Message, len(msgs))
		copy(result, msgs)
		return result, nil
	}

	result := make([]Message, n)
	copy(result, msgs[len(msgs)-n:])
	return result, nil
}

// Len returns the number of messages stored for a session.
func (s *InMemoryHistoryStore) Len(sessionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sl, ok := s.sessions[sessionID]
	if !ok {
		return 0, nil
	}
	return len(sl.messages), nil
}

// Purge removes all history for a session. The sequence counter is not
// reset, so sequence numbers are never reused within a process lifetime.
func (s *InMemoryHistoryStore) Purge(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	sl.messages = nil
	return nil
}
