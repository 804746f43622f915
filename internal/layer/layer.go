// Package layer loads named prompt layers from base configuration paths and
// an optional workspace override directory. A workspace layer with the same
// name permanently shadows its base counterpart, wholesale — layers are
// never merged field-by-field.
package layer

import (
	"errors"
	"time"
)

// ErrLayerNotFound indicates that neither the base configuration nor the
// workspace override directory defines the requested layer.
var ErrLayerNotFound = errors.New("layer: not found")

// SourceKind identifies where a layer's content came from.
type SourceKind string

const (
	// SourceBase is a layer defined by the base configuration.
	SourceBase SourceKind = "base"
	// SourceWorkspace is a layer overridden by the workspace.
	SourceWorkspace SourceKind = "workspace"
)

// Layer is a named, independently sourced block of system prompt content.
// Identity is the Name.
type Layer struct {
	Name     string
	Content  string
	Source   SourceKind
	LoadedAt time.Time
}
