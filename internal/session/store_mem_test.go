package session

import (
	"sync"
	"testing"
	"time"
)

func TestInMemoryHistoryStore_Append_AssignsSequence(t *testing.T) {
	t.Parallel()

	s := NewInMemoryHistoryStore()

	first, err := s.Append("s1", Message{Role: RoleUser, Content: "hello"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	second, err := s.Append("s1", Message{Role: RoleAssistant, Content: "hi"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	if first.Seq != 1 || second.Seq != 2 {
		t.Errorf("seq = %d, %d, want 1, 2", first.Seq, second.Seq)
	}
	if first.Timestamp.IsZero() {
		t.Error("expected timestamp to be assigned")
	}
}

func TestInMemoryHistoryStore_Append_PreservesExplicitTimestamp(t *testing.T) {
	t.Parallel()

	s := NewInMemoryHistoryStore()
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	msg, err := s.Append("s1", Message{Role: RoleUser, Content: "x", Timestamp: ts})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if !msg.Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v, want %v", msg.Timestamp, ts)
	}
}

func TestInMemoryHistoryStore_SessionsAreIsolated(t *testing.T) {
	t.Parallel()

	s := NewInMemoryHistoryStore()
	_, _ = s.Append("a", Message{Role: RoleUser, Content: "1"})
	_, _ = s.Append("b", Message{Role: RoleUser, Content: "2"})

	msgs, err := s.Messages("a")
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "1" {
		t.Errorf("session a messages = %+v, want single message %q", msgs, "1")
	}
}

func TestInMemoryHistoryStore_Recent(t *testing.T) {
	t.Parallel()

	s := NewInMemoryHistoryStore()
	for _, content := range []string{"1", "2", "3", "4"} {
		_, _ = s.Append("s1", Message{Role: RoleUser, Content: content})
	}

	tests := []struct {
		name string
		n    int
		want []string
	}{
		{name: "subset", n: 2, want: []string{"3", "4"}},
		{name: "all when n exceeds length", n: 10, want: []string{"1", "2", "3", "4"}},
		{name: "zero", n: 0, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msgs, err := s.Recent("s1", tt.n)
			if err != nil {
				t.Fatalf("Recent: %v", err)
			}
			if len(msgs) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(msgs), len(tt.want))
			}
			for i, w := range tt.want {
				if msgs[i].Content != w {
					t.Errorf("msgs[%d].Content = %q, want %q", i, msgs[i].Content, w)
				}
			}
		})
	}
}

func TestInMemoryHistoryStore_Purge_DoesNotReuseSequences(t *testing.T) {
	t.Parallel()

	s := NewInMemoryHistoryStore()
	_, _ = s.Append("s1", Message{Role: RoleUser, Content: "old"})
	_, _ = s.Append("s1", Message{Role: RoleUser, Content: "old2"})

	if err := s.Purge("s1"); err != nil {
		t.Fatalf("Purge: %v", err)
	}

	n, _ := s.Len("s1")
	if n != 0 {
		t.Fatalf("Len after purge = %d, want 0", n)
	}

	msg, _ := s.Append("s1", Message{Role: RoleUser, Content: "new"})
	if msg.Seq != 3 {
		t.Errorf("seq after purge = %d, want 3 (sequences never reused)", msg.Seq)
	}
}

func TestInMemoryHistoryStore_ConcurrentAppend(t *testing.T) {
	t.Parallel()

	s := NewInMemoryHistoryStore()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Append("s1", Message{Role: RoleUser, Content: "m"})
		}()
	}
	wg.Wait()

	msgs, err := s.Messages("s1")
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 50 {
		t.Fatalf("len = %d, want 50", len(msgs))
	}

	seen := make(map[int64]bool)
	for _, m := range msgs {
		if seen[m.Seq] {
			t.Fatalf("duplicate seq %d", m.Seq)
		}
		seen[m.Seq] = true
	}
}
