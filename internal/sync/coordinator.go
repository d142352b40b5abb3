// Package sync runs the periodic account synchronization cycle: token
// check, concurrent resource fetches, per-field degradation, and assembly
// of the aggregate snapshot consumed by the exposition layer.
package sync

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	gosync "sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mythosaz/destiny2-ha/internal/auth"
	"github.com/mythosaz/destiny2-ha/internal/bungie"
	"github.com/mythosaz/destiny2-ha/internal/model"
	"github.com/mythosaz/destiny2-ha/internal/rotators"
)

const (
	// postmasterBucketHash is the "Lost Items" inventory bucket.
	postmasterBucketHash uint64 = 215593132
	// postmasterCriticalThreshold flags a roster when any character's
	// postmaster reaches this many items (capacity is 21).
	postmasterCriticalThreshold = 18

	componentProfileInventory = "102"
	componentCharacters       = "200,201"
)

// API is the slice of the Bungie client the coordinator consumes.
type API interface {
	Milestones(ctx context.Context, bearer string) (map[string]bungie.MilestoneEntry, error)
	Profile(ctx context.Context, bearer string, membershipType int, membershipID, components string) (*bungie.ProfileResponse, error)
}

// NameResolver turns definition hashes into display names.
type NameResolver interface {
	MilestoneName(ctx context.Context, id uint64) string
	ActivityName(ctx context.Context, id uint64) string
	ClassName(ctx context.Context, id uint64) string
	RaceName(ctx context.Context, id uint64) string
	GenderName(ctx context.Context, id uint64) string
}

// TokenProvider guards every cycle with a valid access token.
type TokenProvider interface {
	EnsureValid(ctx context.Context) error
	AccessToken() string
}

// Coordinator executes sync cycles for one linked account. The host
// scheduler guarantees RunCycle is never re-entered concurrently; the
// mutex only protects snapshot reads from other goroutines (HTTP layer).
type Coordinator struct {
	api      API
	tokens   TokenProvider
	names    NameResolver
	clock    auth.Clock
	identity model.AccountIdentity
	log      zerolog.Logger

	mu   gosync.Mutex
	last *model.CycleSnapshot
	// Explicit last-good store for the fields that fall back to their
	// previous value when the upstream returns a transient 500.
	lastGoodVault      *int
	lastGoodCharacters *model.CharacterRoster
}

// NewCoordinator wires a coordinator for one account.
func NewCoordinator(api API, tokens TokenProvider, names NameResolver, clock auth.Clock, identity model.AccountIdentity, log zerolog.Logger) *Coordinator {
	if clock == nil {
		clock = auth.RealClock{}
	}
	return &Coordinator{
		api:      api,
		tokens:   tokens,
		names:    names,
		clock:    clock,
		identity: identity,
		log:      log,
	}
}

// Snapshot returns the last complete snapshot, nil before the first
// successful cycle. Never a partially built aggregate.
func (c *Coordinator) Snapshot() *model.CycleSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

type milestonesOutcome struct {
	buckets   model.RotatorBuckets
	seasonEnd *time.Time
	abort     error
}

type vaultOutcome struct {
	count *int
	abort error
}

type charactersOutcome struct {
	roster *model.CharacterRoster
	abort  error
}

// RunCycle executes one full cycle. On a cycle-aborting error the previous
// snapshot is returned unchanged; otherwise the freshly assembled snapshot
// replaces it atomically.
func (c *Coordinator) RunCycle(ctx context.Context) (*model.CycleSnapshot, error) {
	if err := c.tokens.EnsureValid(ctx); err != nil {
		return c.Snapshot(), err
	}
	bearer := c.tokens.AccessToken()
	now := c.clock.Now()

	// The three fetches have no data dependency on each other.
	var (
		wg    gosync.WaitGroup
		miles milestonesOutcome
		vault vaultOutcome
		chars charactersOutcome
	)
	wg.Add(3)
	go func() { defer wg.Done(); miles = c.fetchMilestones(ctx, bearer) }()
	go func() { defer wg.Done(); vault = c.fetchVaultCount(ctx, bearer) }()
	go func() { defer wg.Done(); chars = c.fetchCharacters(ctx, bearer) }()
	wg.Wait()

	for _, abort := range []error{miles.abort, vault.abort, chars.abort} {
		if abort != nil {
			return c.Snapshot(), abort
		}
	}

	snap := &model.CycleSnapshot{
		FetchedAt:      now,
		WeeklyResetAt:  NextWeeklyReset(now),
		DailyResetAt:   NextDailyReset(now),
		SeasonEndAt:    miles.seasonEnd,
		VaultItemCount: vault.count,
		Characters:     chars.roster,
		Rotators:       miles.buckets,
		Guardian:       c.identity,
	}

	c.mu.Lock()
	c.last = snap
	c.lastGoodVault = snap.VaultItemCount
	c.lastGoodCharacters = snap.Characters
	c.mu.Unlock()

	c.log.Debug().
		Int("raids", len(snap.Rotators.Raids)).
		Int("dungeons", len(snap.Rotators.Dungeons)).
		Int("other", len(snap.Rotators.Other)).
		Msg("cycle complete")

	return snap, nil
}

func emptyBuckets() model.RotatorBuckets {
	return model.RotatorBuckets{
		Raids:    []model.Milestone{},
		Dungeons: []model.Milestone{},
		Other:    []model.Milestone{},
	}
}

// fetchMilestones decodes the milestone listing into rotator buckets and the
// latest end date. Any non-200 or malformed payload degrades to empty
// buckets; only transport failures abort the cycle.
func (c *Coordinator) fetchMilestones(ctx context.Context, bearer string) milestonesOutcome {
	out := milestonesOutcome{buckets: emptyBuckets()}

	entries, err := c.api.Milestones(ctx, bearer)
	if err != nil {
		if errors.Is(err, model.ErrTransport) {
			out.abort = err
			return out
		}
		c.log.Warn().Err(err).Msg("milestones fetch degraded")
		return out
	}

	// Map order is not stable; iterate hashes ascending so bucket order is.
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return milestoneHash(keys[i], entries[keys[i]]) < milestoneHash(keys[j], entries[keys[j]])
	})

	var latest *time.Time
	for _, k := range keys {
		entry := entries[k]
		hash := milestoneHash(k, entry)
		name := c.names.MilestoneName(ctx, hash)

		var activityNames []string
		for _, a := range entry.Activities {
			if a.ActivityHash == 0 {
				continue
			}
			activityNames = append(activityNames, c.names.ActivityName(ctx, a.ActivityHash))
		}
		first := ""
		if len(activityNames) > 0 {
			first = activityNames[0]
		}
		endsAt := parseTimestamp(entry.EndDate)

		m := model.Milestone{
			Hash:         hash,
			Name:         name,
			ActivityName: first,
			HasMaster:    rotators.HasElevatedDifficulty(activityNames),
			EndsAt:       endsAt,
		}

		switch rotators.Classify(name, first, endsAt) {
		case rotators.BucketRaids:
			out.buckets.Raids = append(out.buckets.Raids, m)
		case rotators.BucketDungeons:
			out.buckets.Dungeons = append(out.buckets.Dungeons, m)
		case rotators.BucketOther:
			out.buckets.Other = append(out.buckets.Other, m)
		}

		if endsAt != nil && (latest == nil || endsAt.After(*latest)) {
			latest = endsAt
		}
	}
	out.seasonEnd = latest
	return out
}

// fetchVaultCount counts the profile inventory. HTTP 500 preserves the last
// good value (transient upstream fault, not a real zero); other non-200 or
// malformed payloads null the field for this cycle.
func (c *Coordinator) fetchVaultCount(ctx context.Context, bearer string) vaultOutcome {
	if c.identity.MembershipID == "" {
		c.log.Warn().Msg("no membership id; skipping vault fetch")
		return vaultOutcome{}
	}

	profile, err := c.api.Profile(ctx, bearer, c.identity.MembershipType, c.identity.MembershipID, componentProfileInventory)
	if err != nil {
		if errors.Is(err, model.ErrTransport) {
			return vaultOutcome{abort: err}
		}
		if bungie.StatusCode(err) == http.StatusInternalServerError {
			c.log.Warn().Msg("vault fetch returned 500; preserving last known value")
			c.mu.Lock()
			defer c.mu.Unlock()
			return vaultOutcome{count: c.lastGoodVault}
		}
		c.log.Warn().Err(err).Msg("vault fetch degraded")
		return vaultOutcome{}
	}

	count := len(profile.VaultItems())
	return vaultOutcome{count: &count}
}

// fetchCharacters builds the roster with resolved names and postmaster
// counts, most recently played first. Same 500/other policy as the vault.
func (c *Coordinator) fetchCharacters(ctx context.Context, bearer string) charactersOutcome {
	if c.identity.MembershipID == "" {
		c.log.Warn().Msg("no membership id; skipping characters fetch")
		return charactersOutcome{}
	}

	profile, err := c.api.Profile(ctx, bearer, c.identity.MembershipType, c.identity.MembershipID, componentCharacters)
	if err != nil {
		if errors.Is(err, model.ErrTransport) {
			return charactersOutcome{abort: err}
		}
		if bungie.StatusCode(err) == http.StatusInternalServerError {
			c.log.Warn().Msg("characters fetch returned 500; preserving last known value")
			c.mu.Lock()
			defer c.mu.Unlock()
			return charactersOutcome{roster: c.lastGoodCharacters}
		}
		c.log.Warn().Err(err).Msg("characters fetch degraded")
		return charactersOutcome{}
	}

	data := profile.CharacterData()
	if data == nil {
		c.log.Warn().Msg("characters component missing from profile response")
		return charactersOutcome{}
	}

	ids := make([]string, 0, len(data))
	for id := range data {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var (
		characters []model.CharacterSnapshot
		critical   bool
	)
	for _, id := range ids {
		info := data[id]

		postmaster := 0
		for _, item := range profile.InventoryItemsFor(id) {
			if item.BucketHash == postmasterBucketHash {
				postmaster++
			}
		}
		if postmaster >= postmasterCriticalThreshold {
			critical = true
		}

		characters = append(characters, model.CharacterSnapshot{
			CharacterID:     id,
			Class:           c.names.ClassName(ctx, info.ClassHash),
			Race:            c.names.RaceName(ctx, info.RaceHash),
			Gender:          c.names.GenderName(ctx, info.GenderHash),
			Light:           info.Light,
			EmblemHash:      info.EmblemHash,
			LastPlayed:      info.DateLastPlayed,
			PostmasterCount: postmaster,
		})
	}

	// Most recently played first; an empty timestamp sorts last. Stable, so
	// ties keep input order.
	sort.SliceStable(characters, func(i, j int) bool {
		return characters[i].LastPlayed > characters[j].LastPlayed
	})

	return charactersOutcome{roster: &model.CharacterRoster{
		Count:              len(characters),
		Characters:         characters,
		PostmasterCritical: critical,
	}}
}

func milestoneHash(key string, entry bungie.MilestoneEntry) uint64 {
	if entry.MilestoneHash != 0 {
		return entry.MilestoneHash
	}
	hash, err := strconv.ParseUint(key, 10, 64)
	if err != nil {
		return 0
	}
	return hash
}

func parseTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
