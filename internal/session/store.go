package session

// HistoryStore manages session conversation history.
// Implementations must be safe for concurrent use.
//
// Stores own sequence allocation: Append assigns the next Seq for the
// session and returns the stored message. Appended messages are never
// mutated or re-sequenced; readers always see them in Seq order.
type HistoryStore interface {
	// Append stores a message, assigning its Seq (and Timestamp when zero).
	// Returns the message as stored.
	Append(sessionID string, msg Message) (Message, error)

	// Messages returns all messages for a session in Seq order.
	Messages(sessionID string) ([]Message, error)

	// Recent returns the n most recent messages for a session in Seq order.
	// If fewer than n messages exist, all messages are returned.
	Recent(sessionID string, n int) ([]Message, error)

	// Len returns the number of messages stored for a session.
	Len(sessionID string) (int, error)

	// Purge removes all history for a session.
	Purge(sessionID string) error
}
