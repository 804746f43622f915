package skill

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr error
		check   func(t *testing.T, meta Metadata, body string)
	}{
		{
			name: "full frontmatter",
			content: `---
name: code-review
description: Reviews pull requests
tags: [review, quality]
trigger: auto
keywords: [review, pr]
---
# Code Review

Review the diff carefully.`,
			check: func(t *testing.T, meta Metadata, body string) {
				if meta.Name != "code-review" {
					t.Errorf("name = %q", meta.Name)
				}
				if meta.Trigger != TriggerAuto {
					t.Errorf("trigger = %q, want auto", meta.Trigger)
				}
				if len(meta.Tags) != 2 {
					t.Errorf("tags = %v", meta.Tags)
				}
				if body != "# Code Review\n\nReview the diff carefully." {
					t.Errorf("body = %q", body)
				}
			},
		},
		{
			name: "trigger defaults to manual",
			content: `---
name: quiet
---
body`,
			check: func(t *testing.T, meta Metadata, _ string) {
				if meta.Trigger != TriggerManual {
					t.Errorf("trigger = %q, want manual default", meta.Trigger)
				}
			},
		},
		{
			name:    "missing frontmatter",
			content: "just markdown",
			wantErr: ErrNoFrontmatter,
		},
		{
			name: "missing name",
			content: `---
description: nameless
---
body`,
			wantErr: ErrMissingSkillName,
		},
		{
			name: "invalid trigger",
			content: `---
name: broken
trigger: sometimes
---
body`,
			wantErr: ErrInvalidTrigger,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			meta, body, err := ParseFile(tt.content, "test.md")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFile: %v", err)
			}
			tt.check(t, meta, body)
		})
	}
}

func TestDirSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(fname, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, fname), []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	write("review.md", "---\nname: code-review\ndescription: reviews\n---\nreview body")
	write("broken.md", "no frontmatter here")
	write("notes.txt", "ignored")

	src := NewDirSource("workspace", dir)

	metas, err := src.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 1 || metas[0].Name != "code-review" {
		t.Fatalf("List = %+v, want single code-review (broken and non-md skipped)", metas)
	}

	body, err := src.Load("code-review")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if body != "review body" {
		t.Errorf("body = %q", body)
	}

	if _, err := src.Load("missing"); !errors.Is(err, ErrSkillNotFound) {
		t.Errorf("Load missing = %v, want ErrSkillNotFound", err)
	}
}

func TestDirSource_MissingDir(t *testing.T) {
	t.Parallel()

	src := NewDirSource("workspace", filepath.Join(t.TempDir(), "absent"))
	metas, err := src.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 0 {
		t.Errorf("List = %v, want empty for missing dir", metas)
	}
}
