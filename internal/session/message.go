// Package session defines the conversation message model and session
// history storage used by the context engine.
package session

import "time"

// Role identifies the author of a message.
type Role string

const (
	// RoleSystem marks behavioral instructions. System messages are never
	// dropped by history compression.
	RoleSystem Role = "system"
	// RoleUser is a message from the human or calling agent.
	RoleUser Role = "user"
	// RoleAssistant is a model response, including synthetic summaries.
	RoleAssistant Role = "assistant"
	// RoleTool is a tool invocation result.
	RoleTool Role = "tool"
)

// Message is a single entry in a session's conversation history.
// Messages are immutable once appended; ordering is by Seq, which is
// strictly increasing within a session and never reused.
type Message struct {
	Role      Role
	Content   string
	Timestamp time.Time
	Seq       int64
}

// IsSystem reports whether the message carries system-role instructions.
func (m Message) IsSystem() bool {
	return m.Role == RoleSystem
}
