package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jmertens/ctxweave/internal/session"
)

// messageJSON is a serializable history message.
type messageJSON struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Seq       int64  `json:"seq"`
	Timestamp string `json:"timestamp,omitempty"`
}

func toMessageJSON(m session.Message) messageJSON {
	out := messageJSON{
		Role:    string(m.Role),
		Content: m.Content,
		Seq:     m.Seq,
	}
	if !m.Timestamp.IsZero() {
		out.Timestamp = m.Timestamp.UTC().Format(time.RFC3339)
	}
	return out
}

// handleListMessages returns a session's history in sequence order.
func (g *Gateway) handleListMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if g.history == nil {
			http.Error(w, "history backend disabled", http.StatusNotFound)
			return
		}

		messages, err := g.history.Messages(id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		resp := make([]messageJSON, len(messages))
		for i, m := range messages {
			resp[i] = toMessageJSON(m)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// handleAppendMessage stores one message in a session's history. The store
// assigns the sequence number; the response carries the stored message.
func (g *Gateway) handleAppendMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if g.history == nil {
			http.Error(w, "history backend disabled", http.StatusNotFound)
			return
		}

		var body MessageBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
			return
		}
		switch session.Role(body.Role) {
		case session.RoleSystem, session.RoleUser, session.RoleAssistant, session.RoleTool:
		default:
			http.Error(w, "unknown role "+body.Role, http.StatusBadRequest)
			return
		}

		stored, err := g.history.Append(id, session.Message{
			Role:    session.Role(body.Role),
			Content: body.Content,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(toMessageJSON(stored))
	}
}

// handlePurgeSession removes all history for a session.
func (g *Gateway) handlePurgeSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			http.Error(w, "missing session id", http.StatusBadRequest)
			return
		}
		if g.history == nil {
			http.Error(w, "history backend disabled", http.StatusNotFound)
			return
		}

		if err := g.history.Purge(id); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
