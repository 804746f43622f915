package skill

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Source is a skill provider. The catalog never inspects a source's
// internal storage; it only calls List for metadata and Load for content.
type Source interface {
	// Name identifies the source ("builtin", "workspace", or an external
	// set name). Reported on every skill the source registers.
	Name() string

	// List returns metadata for every skill the source provides, in a
	// deterministic order.
	List() ([]Metadata, error)

	// Load returns the full content for a named skill.
	Load(name string) (string, error)
}

// DirSource provides skills from a directory of .md files with YAML
// frontmatter. Metadata is read eagerly by List; Load re-reads the file so
// content edits are picked up on catalog reload.
type DirSource struct {
	name string
	dir  string
}

// NewDirSource creates a DirSource with the given source name and directory.
func NewDirSource(name, dir string) *DirSource {
	return &DirSource{name: name, dir: dir}
}

// Name returns the configured source name.
func (s *DirSource) Name() string { return s.name }

// List scans the directory for .md files and parses their frontmatter.
// A missing directory yields no skills and no error; unparseable files are
// skipped.
func (s *DirSource) List() ([]Metadata, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("skill: scanning %s: %w", s.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		names = append(names, entry.Name())
	}
	slices.Sort(names)

	metas := make([]Metadata, 0, len(names))
	for _, fname := range names {
		path := filepath.Join(s.dir, fname)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		meta, _, err := ParseFile(string(data), path)
		if err != nil {
			continue
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

// Load reads and parses the skill file whose frontmatter name matches.
func (s *DirSource) Load(name string) (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", fmt.Errorf("skill: scanning %s: %w", s.dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		meta, body, err := ParseFile(string(data), path)
		if err != nil {
			continue
		}
		if meta.Name == name {
			return body, nil
		}
	}
	return "", fmt.Errorf("%w: %q in source %s", ErrSkillNotFound, name, s.name)
}

// StaticSource provides skills from an in-memory map. Used for builtin
// skills compiled into the binary and as a test double.
type StaticSource struct {
	name   string
	skills map[string]StaticSkill
	order  []string
}

// StaticSkill pairs metadata with its content for a StaticSource.
type StaticSkill struct {
	Meta    Metadata
	Content string
}

// NewStaticSource creates a StaticSource. Skills are listed in the order
// given.
func NewStaticSource(name string, skills []StaticSkill) *StaticSource {
	m := make(map[string]StaticSkill, len(skills))
	order := make([]string, 0, len(skills))
	for _, sk := range skills {
		m[sk.Meta.Name] = sk
		order = append(order, sk.Meta.Name)
	}
	return &StaticSource{name: name, skills: m, order: order}
}

// Name returns the configured source name.
func (s *StaticSource) Name() string { return s.name }

// List returns metadata in insertion order.
func (s *StaticSource) List() ([]Metadata, error) {
	metas := make([]Metadata, 0, len(s.order))
	for _, name := range s.order {
		metas = append(metas, s.skills[name].Meta)
	}
	return metas, nil
}

// Load returns the content for a named skill.
func (s *StaticSource) Load(name string) (string, error) {
	sk, ok := s.skills[name]
	if !ok {
		return "", fmt.Errorf("%w: %q in source %s", ErrSkillNotFound, name, s.name)
	}
	return sk.Content, nil
}
