package api

import (
	"net/http"

	respond "github.com/mythosaz/destiny2-ha/internal/api/respond"
	"github.com/mythosaz/destiny2-ha/internal/manifest"
	"github.com/mythosaz/destiny2-ha/internal/model"
)

// SnapshotHandler serves the latest completed sync state.
type SnapshotHandler struct {
	snapshot   func() *model.CycleSnapshot
	cacheStats func() map[manifest.Category]int
}

// NewSnapshotHandler creates a snapshot handler.
func NewSnapshotHandler(snapshot func() *model.CycleSnapshot, cacheStats func() map[manifest.Category]int) *SnapshotHandler {
	return &SnapshotHandler{snapshot: snapshot, cacheStats: cacheStats}
}

// GetSnapshot handles GET /api/snapshot. Returns 404 until the first cycle
// has completed.
func (h *SnapshotHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot()
	if snap == nil {
		respond.WriteNotFound(w, "no sync cycle has completed yet")
		return
	}
	respond.WriteJSON(w, http.StatusOK, snap)
}

// GetCacheStats handles GET /api/cache-stats, reporting memoized manifest
// definitions per category.
func (h *SnapshotHandler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	stats := h.cacheStats()
	out := make(map[string]int, len(stats))
	for category, count := range stats {
		out[string(category)] = count
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"categories": out})
}
