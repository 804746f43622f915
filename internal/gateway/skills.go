package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jmertens/ctxweave/internal/skill"
)

// SkillSummary is one entry in the GET /v1/skills response.
type SkillSummary struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	Trigger     string   `json:"trigger"`
	Keywords    []string `json:"keywords,omitempty"`
	Source      string   `json:"source"`
}

// SkillContent is the GET /v1/skills/{name} response.
type SkillContent struct {
	SkillSummary
	Content string `json:"content"`
}

// handleListSkills returns an http.HandlerFunc for GET /v1/skills.
func (g *Gateway) handleListSkills() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		skills := g.skills.List(nil)
		resp := make([]SkillSummary, len(skills))
		for i, s := range skills {
			resp[i] = summarize(s)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// handleGetSkill returns an http.HandlerFunc for GET /v1/skills/{name}.
// It loads the full skill content through the catalog's lazy cache.
func (g *Gateway) handleGetSkill() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		var found *skill.Skill
		for _, s := range g.skills.List(nil) {
			if s.Name == name {
				found = &s
				break
			}
		}
		if found == nil {
			http.Error(w, "skill not found", http.StatusNotFound)
			return
		}

		content, err := g.skills.Load(name)
		if err != nil {
			if errors.Is(err, skill.ErrSkillNotFound) {
				http.Error(w, "skill not found", http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(SkillContent{
			SkillSummary: summarize(*found),
			Content:      content,
		})
	}
}

func summarize(s skill.Skill) SkillSummary {
	return SkillSummary{
		Name:        s.Name,
		Description: s.Description,
		Tags:        s.Tags,
		Trigger:     string(s.Trigger),
		Keywords:    s.Keywords,
		Source:      s.SourceName,
	}
}
