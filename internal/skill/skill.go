// Package skill discovers agent skills from multiple sources (builtin,
// workspace, external sets), exposes lightweight metadata eagerly and full
// content lazily. Skills are SKILL.md-style markdown files with YAML
// frontmatter.
package skill

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrSkillNotFound indicates that no registered source defines the skill.
var ErrSkillNotFound = errors.New("skill: not found")

// TriggerMode controls when a skill is activated.
type TriggerMode string

const (
	// TriggerAlways activates the skill on every turn.
	TriggerAlways TriggerMode = "always"
	// TriggerAuto activates when keywords match the user message.
	TriggerAuto TriggerMode = "auto"
	// TriggerManual activates only when explicitly requested.
	TriggerManual TriggerMode = "manual"
)

// Sentinel errors for skill file parsing.
var (
	ErrNoFrontmatter    = errors.New("skill: missing YAML frontmatter")
	ErrInvalidTrigger   = errors.New("skill: invalid trigger mode")
	ErrMissingSkillName = errors.New("skill: missing required 'name' field")
)

// Metadata is the always-resident description of a skill. Full content is
// loaded lazily through the catalog.
type Metadata struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Tags        []string    `yaml:"tags"`
	Trigger     TriggerMode `yaml:"trigger"`
	Keywords    []string    `yaml:"keywords"`
}

// Skill is a catalog entry: metadata plus the name of the source that
// registered it. Two sources may define the same skill name; the catalog
// keeps only the last registration.
type Skill struct {
	Metadata
	SourceName string
}

// ParseFile parses SKILL.md-style content: YAML frontmatter delimited by
// "---" followed by a markdown body. Returns the metadata and body.
func ParseFile(content, path string) (Metadata, string, error) {
	front, body, err := splitFrontmatter(content)
	if err != nil {
		return Metadata{}, "", fmt.Errorf("%w (%s)", err, path)
	}

	var meta Metadata
	if err := yaml.Unmarshal([]byte(front), &meta); err != nil {
		return Metadata{}, "", fmt.Errorf("skill: invalid YAML in %s: %w", path, err)
	}

	if meta.Name == "" {
		return Metadata{}, "", fmt.Errorf("%w in %s", ErrMissingSkillName, path)
	}

	// Default trigger to manual (most restrictive).
	if meta.Trigger == "" {
		meta.Trigger = TriggerManual
	}
	switch meta.Trigger {
	case TriggerAlways, TriggerAuto, TriggerManual:
	default:
		return Metadata{}, "", fmt.Errorf("%w %q in %s", ErrInvalidTrigger, meta.Trigger, path)
	}

	return meta, strings.TrimSpace(body), nil
}

// splitFrontmatter splits content into YAML frontmatter and body.
// The content must begin with "---\n" and have a closing "---".
func splitFrontmatter(content string) (front, body string, err error) {
	const delimiter = "---"

	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, delimiter) {
		return "", "", ErrNoFrontmatter
	}

	rest := content[len(delimiter):]
	if len(rest) == 0 || rest[0] != '\n' {
		return "", "", ErrNoFrontmatter
	}
	rest = rest[1:]

	idx := strings.Index(rest, "\n"+delimiter)
	if idx < 0 {
		return "", "", ErrNoFrontmatter
	}

	return rest[:idx], rest[idx+1+len(delimiter):], nil
}
