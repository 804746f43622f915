package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	ctxengine "github.com/jmertens/ctxweave/internal/context"
	"github.com/jmertens/ctxweave/internal/session"
)

// AssembleRequest is the JSON body for POST /v1/assemble.
type AssembleRequest struct {
	SessionID    string   `json:"session_id"`
	TaskType     string   `json:"task_type,omitempty"`
	MaxTokens    int      `json:"max_tokens,omitempty"`
	Subagent     bool     `json:"subagent,omitempty"`
	ManualSkills []string `json:"manual_skills,omitempty"`

	// Messages, when present, replaces the stored session history for
	// this assembly. Otherwise the session's history backend is read.
	Messages []MessageBody `json:"messages,omitempty"`
}

// MessageBody is one history message in API requests and responses.
type MessageBody struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Seq     int64  `json:"seq,omitempty"`
}

// handleAssemble returns an http.HandlerFunc for POST /v1/assemble.
func (g *Gateway) handleAssemble() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AssembleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
			return
		}
		if req.SessionID == "" {
			http.Error(w, "session_id is required", http.StatusBadRequest)
			return
		}
		if req.MaxTokens == 0 {
			req.MaxTokens = g.maxTokens(req.TaskType)
		}
		var profile *ctxengine.BudgetProfile
		if g.profile != nil {
			p := g.profile(req.TaskType)
			profile = &p
		}

		messages, err := g.resolveMessages(req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		result, err := g.assembler.BuildContext(r.Context(), ctxengine.BuildRequest{
			SessionID:    req.SessionID,
			TaskType:     req.TaskType,
			MaxTokens:    req.MaxTokens,
			Profile:      profile,
			Subagent:     req.Subagent,
			Messages:     messages,
			ManualSkills: req.ManualSkills,
		})
		if err != nil {
			g.metrics.recordAssemble(err)
			// A missing layer is a server-side configuration defect, not a
			// client conflict.
			status := http.StatusInternalServerError
			if errors.Is(err, ctxengine.ErrBudgetInfeasible) {
				status = http.StatusUnprocessableEntity
			}
			http.Error(w, err.Error(), status)
			return
		}
		g.metrics.recordAssemble(nil)
		g.metrics.observeTokens(result.TokenCount)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(result)
	}
}

// resolveMessages picks inline messages over the stored session history.
func (g *Gateway) resolveMessages(req AssembleRequest) ([]session.Message, error) {
	if len(req.Messages) > 0 {
		messages := make([]session.Message, len(req.Messages))
		for i, m := range req.Messages {
			seq := m.Seq
			if seq == 0 {
				seq = int64(i) + 1
			}
			messages[i] = session.Message{
				Role:    session.Role(m.Role),
				Content: m.Content,
				Seq:     seq,
			}
		}
		return messages, nil
	}
	if g.history == nil {
		return nil, nil
	}
	return g.history.Messages(req.SessionID)
}
