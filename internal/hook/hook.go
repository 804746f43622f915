// Package hook provides named lifecycle extension points for the context
// engine. Components fire events at well-defined stages; observers register
// handlers without the core depending on them. Handler failures are collected
// and surfaced as warnings, never as pipeline failures.
package hook

import "context"

// Event names a lifecycle extension point.
type Event string

// Lifecycle events fired by the engine. The set is open: new events may be
// added without changing the registry contract.
const (
	// EventConfigLoaded fires after configuration has been loaded and
	// validated. Payload: "config_path", "version".
	EventConfigLoaded Event = "config.loaded"

	// EventLayerLoaded fires after a prompt layer has been read from its
	// source, exactly once per load (not once per cache hit).
	// Payload: "layer", "content", "source".
	EventLayerLoaded Event = "layer.loaded"

	// EventMainPromptBuilt fires after a main-agent context has been
	// assembled. Payload: "prompt", "tokens", "session_id".
	EventMainPromptBuilt Event = "prompt.main_built"

	// EventSubagentPromptBuilt fires after a subagent context has been
	// assembled. Payload: "prompt", "tokens", "session_id".
	EventSubagentPromptBuilt Event = "prompt.subagent_built"

	// EventCacheCorrupt fires when a cache entry fails its integrity check
	// and is discarded for recomputation. Payload: "fingerprint".
	EventCacheCorrupt Event = "cache.corrupt"
)

// Payload carries event data to handlers. Handlers must treat it as
// read-only; it may be shared across handlers of the same trigger.
type Payload map[string]any

// Handler observes a single event occurrence. A non-nil error is recorded
// and surfaced to the triggering caller as a warning after all handlers for
// the event have run; it never stops other handlers.
type Handler func(ctx context.Context, p Payload) error
