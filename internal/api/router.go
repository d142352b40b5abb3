package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/mythosaz/destiny2-ha/internal/api/recovery"
	"github.com/mythosaz/destiny2-ha/internal/authflow"
	"github.com/mythosaz/destiny2-ha/internal/manifest"
	"github.com/mythosaz/destiny2-ha/internal/model"
)

// Deps are the collaborators the router exposes over HTTP.
type Deps struct {
	Snapshot   func() *model.CycleSnapshot
	CacheStats func() map[manifest.Category]int
	Available  func() bool
	Flow       *authflow.Flow
	Metrics    http.Handler
	Log        zerolog.Logger
}

// NewRouter creates the HTTP router with all service routes.
func NewRouter(deps Deps) *mux.Router {
	router := mux.NewRouter()

	router.Use(recovery.Middleware)

	healthHandler := NewHealthHandler(deps.Available)
	snapshotHandler := NewSnapshotHandler(deps.Snapshot, deps.CacheStats)
	linkHandler := NewLinkHandler(deps.Flow, deps.Log)

	router.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")

	router.HandleFunc("/api/snapshot", snapshotHandler.GetSnapshot).Methods("GET")
	router.HandleFunc("/api/cache-stats", snapshotHandler.GetCacheStats).Methods("GET")

	router.HandleFunc("/api/link", linkHandler.StartAuthorization).Methods("POST")
	router.HandleFunc("/api/destiny2/callback", linkHandler.Callback).Methods("GET")

	if deps.Metrics != nil {
		router.Handle("/metrics", deps.Metrics).Methods("GET")
	}

	return router
}
