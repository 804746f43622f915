package gateway

import (
	"encoding/json"
	"net/http"
)

// HealthResponse is the JSON response for GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
	Skills int    `json:"skills"`
}

// handleHealth returns an http.HandlerFunc for GET /healthz.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{Status: "ok"}
		if g.skills != nil {
			resp.Skills = g.skills.Len()
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
