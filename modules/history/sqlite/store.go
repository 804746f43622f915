package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/jmertens/ctxweave/internal/session"
)

// historyStore implements session.HistoryStore over a SQLite database.
type historyStore struct {
	db *sql.DB
}

// Compile-time interface check.
var _ session.HistoryStore = (*historyStore)(nil)

const timeLayout = "2006-01-02T15:04:05.000Z"

// Append stores a message, assigning the session's next sequence number.
// The counter lives in session_seq and is not reset by Purge.
func (h *historyStore) Append(sessionID string, msg session.Message) (session.Message, error) {
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	// HistoryStore does not carry context; use TODO as placeholder.
	ctx := context.TODO()

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return session.Message{}, fmt.Errorf("sqlite: begin append tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var seq int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO session_seq (session_id, next_seq) VALUES (?, 1)
		ON CONFLICT(session_id) DO UPDATE SET next_seq = next_seq + 1
		RETURNING next_seq`,
		sessionID,
	).Scan(&seq)
	if err != nil {
		return session.Message{}, fmt.Errorf("sqlite: allocate seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (session_id, seq, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		sessionID, seq, string(msg.Role), msg.Content, ts.Format(timeLayout),
	)
	if err != nil {
		return session.Message{}, fmt.Errorf("sqlite: append message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return session.Message{}, fmt.Errorf("sqlite: commit append: %w", err)
	}

	msg.Seq = seq
	msg.Timestamp = ts
	return msg, nil
}

// Messages returns all messages for a session in Seq order.
func (h *historyStore) Messages(sessionID string) ([]session.Message, error) {
	rows, err := h.db.QueryContext(context.TODO(), `
		SELECT role, content, seq, created_at
		FROM messages
		WHERE session_id = ?
		ORDER BY seq ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: get messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectMessages(rows)
}

// Recent returns the n most recent messages for a session in Seq order.
func (h *historyStore) Recent(sessionID string, n int) ([]session.Message, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := h.db.QueryContext(context.TODO(), `
		SELECT role, content, seq, created_at
		FROM messages
		WHERE session_id = ?
		ORDER BY seq DESC
		LIMIT ?`,
		sessionID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: get recent: %w", err)
	}
	defer func() { _ = rows.Close() }()

	msgs, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}

	// Reverse to chronological order.
	slices.Reverse(msgs)
	return msgs, nil
}

// Len returns the number of messages stored for a session.
func (h *historyStore) Len(sessionID string) (int, error) {
	var count int
	err := h.db.QueryRowContext(context.TODO(),
		"SELECT COUNT(*) FROM messages WHERE session_id = ?", sessionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: count messages: %w", err)
	}
	return count, nil
}

// Purge removes all messages for a session. The sequence counter is kept so
// later appends continue the numbering.
func (h *historyStore) Purge(sessionID string) error {
	_, err := h.db.ExecContext(context.TODO(),
		"DELETE FROM messages WHERE session_id = ?", sessionID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: purge messages: %w", err)
	}
	return nil
}

func collectMessages(rows *sql.Rows) ([]session.Message, error) {
	var msgs []session.Message
	for rows.Next() {
		var (
			msg       session.Message
			role      string
			createdAt string
		)
		if err := rows.Scan(&role, &msg.Content, &msg.Seq, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan message: %w", err)
		}
		msg.Role = session.Role(role)
		if ts, err := time.Parse(timeLayout, createdAt); err == nil {
			msg.Timestamp = ts
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: message rows: %w", err)
	}
	return msgs, nil
}
