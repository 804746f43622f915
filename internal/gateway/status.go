package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	ctxengine "github.com/jmertens/ctxweave/internal/context"
)

// StatusResponse is the JSON response for GET /v1/status.
type StatusResponse struct {
	// Uptime is whole seconds since the gateway started listening.
	Uptime       int64                    `json:"uptime_seconds"`
	Assembler    ctxengine.AssemblerStats `json:"assembler"`
	Cache        ctxengine.CacheStats     `json:"cache"`
	Layers       []string                 `json:"layers"`
	LayerVersion int64                    `json:"layer_version"`
	Skills       int                      `json:"skills"`
	SkillVersion int64                    `json:"skill_version"`
}

// handleStatus returns an http.HandlerFunc for GET /v1/status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			Uptime: int64(time.Since(g.startedAt) / time.Second),
		}

		if g.assembler != nil {
			resp.Assembler = g.assembler.Stats()
			resp.Cache = g.assembler.Cache().Stats()
		}
		if g.layers != nil {
			resp.Layers = g.layers.Names()
			resp.LayerVersion = g.layers.Version()
		}
		if g.skills != nil {
			resp.Skills = g.skills.Len()
			resp.SkillVersion = g.skills.Version()
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
