package skill

import (
	"errors"
	"log/slog"
	"testing"
)

func staticSkill(name, description string, trigger TriggerMode) StaticSkill {
	return StaticSkill{
		Meta:    Metadata{Name: name, Description: description, Trigger: trigger},
		Content: "content of " + name,
	}
}

func TestCatalog_List_RegistrationOrder(t *testing.T) {
	t.Parallel()

	c := NewCatalog(slog.Default())

	builtin := NewStaticSource("builtin", []StaticSkill{
		staticSkill("alpha", "a", TriggerAlways),
		staticSkill("beta", "b", TriggerAlways),
	})
	ws := NewStaticSource("workspace", []StaticSkill{
		staticSkill("gamma", "g", TriggerAlways),
	})

	if err := c.RegisterSource(builtin); err != nil {
		t.Fatalf("RegisterSource: %v", err)
	}
	if err := c.RegisterSource(ws); err != nil {
		t.Fatalf("RegisterSource: %v", err)
	}

	got := c.List(nil)
	want := []string{"alpha", "beta", "gamma"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("List[%d].Name = %q, want %q", i, got[i].Name, name)
		}
	}
}

func TestCatalog_DuplicateName_LastWriterWins(t *testing.T) {
	t.Parallel()

	c := NewCatalog(slog.Default())

	builtin := NewStaticSource("builtin", []StaticSkill{
		{Meta: Metadata{Name: "code-review", Description: "builtin reviewer", Trigger: TriggerAlways}, Content: "builtin body"},
	})
	ws := NewStaticSource("workspace", []StaticSkill{
		{Meta: Metadata{Name: "code-review", Description: "workspace reviewer", Trigger: TriggerAlways}, Content: "workspace body"},
	})

	_ = c.RegisterSource(builtin)
	_ = c.RegisterSource(ws)

	got := c.List(nil)
	if len(got) != 1 {
		t.Fatalf("List returned %d entries, want exactly 1", len(got))
	}
	if got[0].Name != "code-review" || got[0].SourceName != "workspace" {
		t.Errorf("surviving entry = %+v, want code-review from workspace", got[0])
	}
	if got[0].Description != "workspace reviewer" {
		t.Errorf("description = %q, want the later registration's", got[0].Description)
	}

	content, err := c.Load("code-review")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if content != "workspace body" {
		t.Errorf("content = %q, want the later registration's body", content)
	}
}

func TestCatalog_Load_LazyAndIdempotent(t *testing.T) {
	t.Parallel()

	loads := 0
	src := &countingSource{
		inner: NewStaticSource("builtin", []StaticSkill{staticSkill("alpha", "a", TriggerManual)}),
		loads: &loads,
	}

	c := NewCatalog(slog.Default())
	if err := c.RegisterSource(src); err != nil {
		t.Fatalf("RegisterSource: %v", err)
	}
	if loads != 0 {
		t.Fatalf("content loaded eagerly (%d loads), want lazy", loads)
	}

	for range 3 {
		content, err := c.Load("alpha")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if content != "content of alpha" {
			t.Fatalf("content = %q", content)
		}
	}
	if loads != 1 {
		t.Errorf("source.Load called %d times, want 1 (cached after first)", loads)
	}
}

func TestCatalog_Load_Unknown(t *testing.T) {
	t.Parallel()

	c := NewCatalog(slog.Default())
	_, err := c.Load("missing")
	if !errors.Is(err, ErrSkillNotFound) {
		t.Errorf("Load error = %v, want ErrSkillNotFound", err)
	}
}

func TestCatalog_Version_BumpsOnRegistration(t *testing.T) {
	t.Parallel()

	c := NewCatalog(slog.Default())
	v0 := c.Version()
	_ = c.RegisterSource(NewStaticSource("builtin", nil))
	if c.Version() == v0 {
		t.Error("version unchanged after registration")
	}
}

func TestCatalog_List_Filter(t *testing.T) {
	t.Parallel()

	c := NewCatalog(slog.Default())
	_ = c.RegisterSource(NewStaticSource("builtin", []StaticSkill{
		staticSkill("always-on", "", TriggerAlways),
		{Meta: Metadata{Name: "deploy", Trigger: TriggerAuto, Keywords: []string{"deploy", "release"}}},
		staticSkill("manual-only", "", TriggerManual),
	}))

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{
			name:   "always only",
			filter: Filter{UserMessage: "hello"},
			want:   []string{"always-on"},
		},
		{
			name:   "keyword activates auto",
			filter: Filter{UserMessage: "please Deploy the service"},
			want:   []string{"always-on", "deploy"},
		},
		{
			name:   "manual activation",
			filter: Filter{ManuallyActive: []string{"manual-only"}},
			want:   []string{"always-on", "manual-only"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := c.List(&tt.filter)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d skills, want %d (%v)", len(got), len(tt.want), got)
			}
			for i, name := range tt.want {
				if got[i].Name != name {
					t.Errorf("got[%d].Name = %q, want %q", i, got[i].Name, name)
				}
			}
		})
	}
}

// countingSource wraps a Source counting Load calls.
type countingSource struct {
	inner Source
	loads *int
}

func (s *countingSource) Name() string { return s.inner.Name() }

func (s *countingSource) List() ([]Metadata, error) { return s.inner.List() }

func (s *countingSource) Load(name string) (string, error) {
	*s.loads++
	return s.inner.Load(name)
}
