package syncservice

import (
	"context"
	gosync "sync"

	"github.com/rs/zerolog"

	"github.com/mythosaz/destiny2-ha/internal/auth"
	"github.com/mythosaz/destiny2-ha/internal/bungie"
	"github.com/mythosaz/destiny2-ha/internal/config"
	"github.com/mythosaz/destiny2-ha/internal/credstore"
	"github.com/mythosaz/destiny2-ha/internal/manifest"
	"github.com/mythosaz/destiny2-ha/internal/metrics"
	"github.com/mythosaz/destiny2-ha/internal/model"
	"github.com/mythosaz/destiny2-ha/internal/scheduler"
	syncer "github.com/mythosaz/destiny2-ha/internal/sync"
)

// supervisor owns the sync loop for the linked account. The service starts
// without one when no account is linked yet; Start is called on startup when
// a stored credential exists and again from the linking flow, replacing any
// loop already running.
type supervisor struct {
	cfg   *config.Config
	store credstore.Store
	mets  *metrics.Metrics
	log   zerolog.Logger

	mu       gosync.Mutex
	cancel   context.CancelFunc
	coord    *syncer.Coordinator
	resolver *manifest.Resolver
	sched    *scheduler.Scheduler
}

func newSupervisor(cfg *config.Config, store credstore.Store, mets *metrics.Metrics, log zerolog.Logger) *supervisor {
	return &supervisor{cfg: cfg, store: store, mets: mets, log: log}
}

// Start wires a coordinator and scheduler for the record and launches the
// polling loop. A loop already running for a previous credential is stopped
// first; the new loop inherits nothing from it.
func (s *supervisor) Start(ctx context.Context, rec *credstore.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	client := bungie.New(bungie.Options{
		BaseURL:  s.cfg.APIBaseURL,
		TokenURL: s.cfg.OAuthTokenURL,
		APIKey:   rec.Credential.APIKey,
		Timeout:  s.cfg.RequestTimeout(),
	}, s.log)

	identity := rec.Identity
	persist := func(ctx context.Context, cred model.Credential) error {
		return s.store.Save(ctx, &credstore.Record{Credential: cred, Identity: identity})
	}
	lifecycle := auth.NewLifecycle(rec.Credential, client, persist, auth.RealClock{}, s.cfg.TokenLookahead(), s.log)

	s.resolver = manifest.NewResolver(client, s.log)
	s.coord = syncer.NewCoordinator(client, lifecycle, s.resolver, auth.RealClock{}, identity, s.log)

	coord, resolver := s.coord, s.resolver
	run := func(ctx context.Context) error {
		snap, err := coord.RunCycle(ctx)
		if err != nil {
			return err
		}
		s.mets.ObserveSnapshot(snap)
		s.mets.ObserveCacheStats(resolver.CacheStats())
		return nil
	}

	s.sched = scheduler.New(run, scheduler.Config{Interval: s.cfg.UpdateInterval()}, s.log)
	s.sched.OnCycle = s.mets.ObserveCycle

	sched := s.sched
	go func() { _ = sched.Run(loopCtx) }()

	s.log.Info().Str("membership_id", identity.MembershipID).Msg("sync loop started")
}

// Snapshot returns the latest completed snapshot, nil before the first cycle
// or while no account is linked.
func (s *supervisor) Snapshot() *model.CycleSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.coord == nil {
		return nil
	}
	return s.coord.Snapshot()
}

// CacheStats reports manifest cache occupancy, empty while no account is
// linked.
func (s *supervisor) CacheStats() map[manifest.Category]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolver == nil {
		return map[manifest.Category]int{}
	}
	return s.resolver.CacheStats()
}

// Available reports whether the last attempted cycle succeeded. False while
// no account is linked.
func (s *supervisor) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sched == nil {
		return false
	}
	return s.sched.Available()
}
