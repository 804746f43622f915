// Package security keeps secrets out of log output. Configuration values
// are expanded from the environment, so tokens can reach any code path
// that logs; the redactor scrubs them before they hit a handler.
package security

import (
	"regexp"
	"strings"
	"sync"
)

// RedactPlaceholder is the replacement string for redacted secrets.
const RedactPlaceholder = "***REDACTED***"

// Redactor replaces secret values in strings with a placeholder. It
// matches both known API key formats and literal values registered from
// the loaded configuration. Safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	patterns []*regexp.Regexp
	literals []string
}

// NewRedactor creates a Redactor pre-loaded with patterns for common
// API key and bearer token formats.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: defaultPatterns(),
	}
}

// AddLiteral registers a literal secret value to be redacted on sight.
// Empty strings are ignored.
func (r *Redactor) AddLiteral(secret string) {
	if secret == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.literals = append(r.literals, secret)
}

// Redact replaces all known secret patterns and literal values in s
// with RedactPlaceholder.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	patterns := r.patterns
	literals := r.literals
	r.mu.RUnlock()

	for _, p := range patterns {
		s = p.ReplaceAllString(s, RedactPlaceholder)
	}
	for _, lit := range literals {
		if strings.Contains(s, lit) {
			s = strings.ReplaceAll(s, lit, RedactPlaceholder)
		}
	}
	return s
}

// defaultPatterns returns compiled patterns for key formats likely to
// appear in agent runtime configuration.
func defaultPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		// Anthropic keys. Must precede the generic sk- pattern.
		regexp.MustCompile(`sk-ant-[a-zA-Z0-9\-]{20,}`),
		// OpenAI-style keys.
		regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`),
		// GitHub tokens.
		regexp.MustCompile(`(ghp_|gho_|ghs_|github_pat_)[a-zA-Z0-9_]{20,}`),
		// Bearer header values.
		regexp.MustCompile(`Bearer [a-zA-Z0-9\-._~+/]{16,}=*`),
	}
}
