// Package manifest resolves opaque definition hashes from the Bungie
// manifest into display names. Lookups are lazy: only hashes actually
// encountered during sync are fetched, and every successful resolution is
// memoized for the process lifetime (the catalog is static per process).
package manifest

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mythosaz/destiny2-ha/internal/bungie"
)

// Category is a manifest definition table.
type Category string

const (
	CategoryMilestone     Category = "DestinyMilestoneDefinition"
	CategoryActivity      Category = "DestinyActivityDefinition"
	CategoryClass         Category = "DestinyClassDefinition"
	CategoryRace          Category = "DestinyRaceDefinition"
	CategoryGender        Category = "DestinyGenderDefinition"
	CategoryInventoryItem Category = "DestinyInventoryItemDefinition"
)

// Lookup fetches one definition. Implemented by *bungie.Client.
type Lookup interface {
	Definition(ctx context.Context, definitionType string, id uint64) (*bungie.Definition, error)
}

type cacheKey struct {
	category Category
	id       uint64
}

// Resolver memoizes (category, hash) -> display name. Safe for concurrent
// readers and writers; duplicate in-flight lookups for the same key may both
// hit the network, the second write wins with the same value.
type Resolver struct {
	mu    sync.RWMutex
	cache map[cacheKey]string

	src Lookup
	log zerolog.Logger
}

// NewResolver creates an empty resolver backed by the given lookup.
func NewResolver(src Lookup, log zerolog.Logger) *Resolver {
	return &Resolver{
		cache: make(map[cacheKey]string),
		src:   src,
		log:   log,
	}
}

// Placeholder is the deterministic name used when a hash cannot be resolved.
func Placeholder(id uint64) string {
	return fmt.Sprintf("Unknown (%d)", id)
}

// Resolve returns the display name for a hash. Cache hits cost no I/O. A
// failed lookup is not cached and returns the placeholder for this call
// only, so a later call may retry and succeed.
func (r *Resolver) Resolve(ctx context.Context, category Category, id uint64) string {
	key := cacheKey{category: category, id: id}

	r.mu.RLock()
	name, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return name
	}

	def, err := r.src.Definition(ctx, string(category), id)
	if err != nil {
		r.log.Debug().Err(err).Str("category", string(category)).Uint64("hash", id).
			Msg("manifest lookup failed")
		return Placeholder(id)
	}

	name = def.DisplayProperties.Name
	if name == "" {
		name = Placeholder(id)
	}

	r.mu.Lock()
	r.cache[key] = name
	r.mu.Unlock()
	return name
}

// MilestoneName resolves a milestone hash.
func (r *Resolver) MilestoneName(ctx context.Context, id uint64) string {
	return r.Resolve(ctx, CategoryMilestone, id)
}

// ActivityName resolves an activity hash.
func (r *Resolver) ActivityName(ctx context.Context, id uint64) string {
	return r.Resolve(ctx, CategoryActivity, id)
}

// ClassName resolves a character class hash.
func (r *Resolver) ClassName(ctx context.Context, id uint64) string {
	return r.Resolve(ctx, CategoryClass, id)
}

// RaceName resolves a character race hash.
func (r *Resolver) RaceName(ctx context.Context, id uint64) string {
	return r.Resolve(ctx, CategoryRace, id)
}

// GenderName resolves a character gender hash.
func (r *Resolver) GenderName(ctx context.Context, id uint64) string {
	return r.Resolve(ctx, CategoryGender, id)
}

// CacheStats returns the number of cached names per category. Diagnostic
// only.
func (r *Resolver) CacheStats() map[Category]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make(map[Category]int)
	for k := range r.cache {
		stats[k.category]++
	}
	return stats
}
