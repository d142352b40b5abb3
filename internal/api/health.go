package api

import (
	"net/http"
	"time"

	respond "github.com/mythosaz/destiny2-ha/internal/api/respond"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	available func() bool
}

// NewHealthHandler creates a health handler backed by the scheduler's
// availability flag.
func NewHealthHandler(available func() bool) *HealthHandler {
	if available == nil {
		available = func() bool { return false }
	}
	return &HealthHandler{available: available}
}

// CheckHealth handles GET /api/health
// Always returns 200; body reports healthy/degraded. 500 indicates handler failure only.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	status := "degraded"
	if h.available() {
		status = "healthy"
	}
	response := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	respond.WriteJSON(w, http.StatusOK, response)
}
