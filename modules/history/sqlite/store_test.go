package sqlite

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmertens/ctxweave/internal/session"
)

func newTestStore(t *testing.T) (session.HistoryStore, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "history.db")
	store, db, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return store, path
}

func TestAppendAssignsSequences(t *testing.T) {
	store, _ := newTestStore(t)

	for i, content := range []string{"hello", "hi there", "how are you?"} {
		stored, err := store.Append("s1", session.Message{
			Role:    session.RoleUser,
			Content: content,
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		if stored.Seq != int64(i)+1 {
			t.Errorf("Seq = %d, want %d", stored.Seq, i+1)
		}
		if stored.Timestamp.IsZero() {
			t.Error("Timestamp not assigned")
		}
	}

	got, err := store.Messages("s1")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d messages, want 3", len(got))
	}
	for i, msg := range got {
		if msg.Seq != int64(i)+1 {
			t.Errorf("message %d: Seq = %d", i, msg.Seq)
		}
	}
	if got[1].Content != "hi there" {
		t.Errorf("message order wrong: %+v", got)
	}
}

func TestAppendPreservesTimestamp(t *testing.T) {
	store, _ := newTestStore(t)

	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	stored, err := store.Append("s1", session.Message{
		Role:      session.RoleAssistant,
		Content:   "pinned",
		Timestamp: ts,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if !stored.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", stored.Timestamp, ts)
	}

	got, err := store.Messages("s1")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if !got[0].Timestamp.Equal(ts) {
		t.Errorf("round-tripped Timestamp = %v, want %v", got[0].Timestamp, ts)
	}
}

func TestRecent(t *testing.T) {
	store, _ := newTestStore(t)

	for _, content := range []string{"one", "two", "three", "four"} {
		if _, err := store.Append("s1", session.Message{Role: session.RoleUser, Content: content}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := store.Recent("s1", 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 || got[0].Content != "three" || got[1].Content != "four" {
		t.Errorf("recent = %+v", got)
	}

	// More than stored returns everything.
	got, err = store.Recent("s1", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("got %d messages, want 4", len(got))
	}

	// Non-positive n returns nothing.
	if got, _ := store.Recent("s1", 0); got != nil {
		t.Errorf("recent(0) = %+v", got)
	}
}

func TestSessionIsolation(t *testing.T) {
	store, _ := newTestStore(t)

	if _, err := store.Append("a", session.Message{Role: session.RoleUser, Content: "for a"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	stored, err := store.Append("b", session.Message{Role: session.RoleUser, Content: "for b"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if stored.Seq != 1 {
		t.Errorf("session b first Seq = %d, want 1", stored.Seq)
	}

	n, err := store.Len("a")
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 1 {
		t.Errorf("Len(a) = %d, want 1", n)
	}
}

func TestPurgeKeepsSequenceCounter(t *testing.T) {
	store, _ := newTestStore(t)

	for range 3 {
		if _, err := store.Append("s1", session.Message{Role: session.RoleUser, Content: "x"}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	if err := store.Purge("s1"); err != nil {
		t.Fatalf("purge: %v", err)
	}
	n, err := store.Len("s1")
	if err != nil {
		t.Fatalf("len: %v", err)
	}
	if n != 0 {
		t.Errorf("Len after purge = %d, want 0", n)
	}

	// Sequences continue; they are never reused within a session.
	stored, err := store.Append("s1", session.Message{Role: session.RoleUser, Content: "again"})
	if err != nil {
		t.Fatalf("append after purge: %v", err)
	}
	if stored.Seq != 4 {
		t.Errorf("Seq after purge = %d, want 4", stored.Seq)
	}
}

func TestReopenMigrationIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	open := func() (session.HistoryStore, *sql.DB) {
		store, db, err := Open(path)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		return store, db
	}

	store, db := open()
	if _, err := store.Append("s1", session.Message{Role: session.RoleUser, Content: "persisted"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	store, db = open()
	defer func() { _ = db.Close() }()

	got, err := store.Messages("s1")
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(got) != 1 || got[0].Content != "persisted" {
		t.Errorf("messages after reopen = %+v", got)
	}
}
