// Package auth owns the OAuth credential for the linked account: it decides
// when the access token needs a proactive refresh, performs the exchange,
// and writes the updated credential through to the store before using it.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mythosaz/destiny2-ha/internal/bungie"
	"github.com/mythosaz/destiny2-ha/internal/model"
)

// DefaultLookahead is how far before expiry a refresh is triggered.
const DefaultLookahead = 5 * time.Minute

const defaultTokenLifetime = 3600 // seconds, when the exchange omits expires_in

// TokenSource performs the refresh exchange. Implemented by *bungie.Client.
type TokenSource interface {
	RefreshToken(ctx context.Context, cred model.Credential) (*bungie.TokenResponse, error)
}

// PersistFunc durably merges updated token fields into host storage. Must be
// idempotent; called before the refreshed token is used.
type PersistFunc func(ctx context.Context, cred model.Credential) error

// State labels the lifecycle for diagnostics.
type State string

const (
	StateValid      State = "valid"
	StateNearExpiry State = "near-expiry"
	StateFatal      State = "fatal"
)

// Lifecycle holds the current credential and keeps it valid. Exclusive owner
// of the credential record during the process lifetime.
type Lifecycle struct {
	mu        sync.Mutex
	cred      model.Credential
	lastFatal bool

	src       TokenSource
	persist   PersistFunc
	clock     Clock
	lookahead time.Duration
	log       zerolog.Logger
}

// NewLifecycle constructs a Lifecycle around the stored credential.
func NewLifecycle(cred model.Credential, src TokenSource, persist PersistFunc, clock Clock, lookahead time.Duration, log zerolog.Logger) *Lifecycle {
	if clock == nil {
		clock = RealClock{}
	}
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}
	return &Lifecycle{
		cred:      cred,
		src:       src,
		persist:   persist,
		clock:     clock,
		lookahead: lookahead,
		log:       log,
	}
}

// EnsureValid refreshes the access token when it is inside the lookahead
// window of its expiry. On success the merged credential is persisted before
// it replaces the in-memory copy; on any failure the prior credential stays
// untouched and the error aborts the caller's cycle.
func (l *Lifecycle) EnsureValid(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if now.Add(l.lookahead).Before(l.cred.ExpiresAt) {
		l.lastFatal = false
		return nil
	}

	l.log.Debug().Time("expires_at", l.cred.ExpiresAt).Msg("refreshing access token")

	tok, err := l.src.RefreshToken(ctx, l.cred)
	if err != nil {
		l.lastFatal = true
		return err
	}

	updated := l.cred
	updated.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		updated.RefreshToken = tok.RefreshToken
	}
	lifetime := tok.ExpiresIn
	if lifetime <= 0 {
		lifetime = defaultTokenLifetime
	}
	updated.ExpiresAt = now.Add(time.Duration(lifetime) * time.Second)

	// Write-through: the new token may not be used until it is durable.
	if err := l.persist(ctx, updated); err != nil {
		l.lastFatal = true
		return fmt.Errorf("persist refreshed credential: %w", err)
	}

	l.cred = updated
	l.lastFatal = false
	l.log.Info().Time("expires_at", updated.ExpiresAt).Msg("access token refreshed")
	return nil
}

// AccessToken returns the current access token.
func (l *Lifecycle) AccessToken() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cred.AccessToken
}

// Credential returns a copy of the current credential.
func (l *Lifecycle) Credential() model.Credential {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cred
}

// State reports where the lifecycle sits relative to the refresh window.
// Fatal is sticky only until the next EnsureValid attempt.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lastFatal {
		return StateFatal
	}
	if l.clock.Now().Add(l.lookahead).Before(l.cred.ExpiresAt) {
		return StateValid
	}
	return StateNearExpiry
}
