// Package authflow implements account linking: it hands out Bungie
// authorization URLs keyed by a one-time state token, then completes the
// exchange when the callback arrives and persists the linked credential.
package authflow

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/mythosaz/destiny2-ha/internal/auth"
	"github.com/mythosaz/destiny2-ha/internal/bungie"
	"github.com/mythosaz/destiny2-ha/internal/credstore"
	"github.com/mythosaz/destiny2-ha/internal/model"
)

// pendingTTL bounds how long an authorization URL stays redeemable.
const pendingTTL = 10 * time.Minute

// ErrUnknownState is returned when a callback carries a state token that was
// never issued or has expired.
var ErrUnknownState = errors.New("authflow: unknown or expired state")

// Exchanger is the token-endpoint surface the flow needs from the API client.
type Exchanger interface {
	ExchangeCode(ctx context.Context, clientID, clientSecret, code, redirectURI string) (*bungie.TokenResponse, error)
}

// AppCredentials identifies the caller's registered Bungie application.
type AppCredentials struct {
	APIKey       string `json:"apiKey"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

type pending struct {
	app     AppCredentials
	created time.Time
}

// Flow coordinates the two-step OAuth linking handshake.
type Flow struct {
	exchanger   Exchanger
	store       credstore.Store
	authURL     string
	redirectURI string
	clock       auth.Clock
	log         zerolog.Logger

	// OnLinked, when set, runs after a credential is persisted. The service
	// uses it to adopt the new account without a restart.
	OnLinked func(rec *credstore.Record)

	mu      sync.Mutex
	pending map[string]pending
}

// New constructs a Flow. redirectURI is the externally reachable callback
// URL; it must match the application registration on bungie.net.
func New(exchanger Exchanger, store credstore.Store, authURL, redirectURI string, log zerolog.Logger) *Flow {
	return &Flow{
		exchanger:   exchanger,
		store:       store,
		authURL:     authURL,
		redirectURI: redirectURI,
		clock:       auth.RealClock{},
		log:         log,
		pending:     make(map[string]pending),
	}
}

// Begin registers the application credentials under a fresh state token and
// returns the authorization URL the account holder must visit.
func (f *Flow) Begin(app AppCredentials) (authorizeURL, state string, err error) {
	if app.APIKey == "" || app.ClientID == "" || app.ClientSecret == "" {
		return "", "", errors.New("authflow: apiKey, clientId and clientSecret are all required")
	}

	state = uuid.NewString()

	f.mu.Lock()
	now := f.clock.Now()
	for key, p := range f.pending {
		if now.Sub(p.created) > pendingTTL {
			delete(f.pending, key)
		}
	}
	f.pending[state] = pending{app: app, created: now}
	f.mu.Unlock()

	query := url.Values{}
	query.Set("client_id", app.ClientID)
	query.Set("response_type", "code")
	query.Set("state", state)
	authorizeURL = fmt.Sprintf("%s?%s", f.authURL, query.Encode())

	f.log.Info().Str("client_id", app.ClientID).Msg("authorization started")
	return authorizeURL, state, nil
}

// Complete redeems the callback's code against the token endpoint, persists
// the linked credential, and returns the stored record. The state token is
// consumed whether or not the exchange succeeds.
func (f *Flow) Complete(ctx context.Context, state, code string) (*credstore.Record, error) {
	f.mu.Lock()
	p, ok := f.pending[state]
	delete(f.pending, state)
	f.mu.Unlock()

	if !ok || f.clock.Now().Sub(p.created) > pendingTTL {
		return nil, ErrUnknownState
	}

	tok, err := f.exchanger.ExchangeCode(ctx, p.app.ClientID, p.app.ClientSecret, code, f.redirectURI)
	if err != nil {
		return nil, errors.Wrap(err, "code exchange failed")
	}

	rec := &credstore.Record{
		Credential: model.Credential{
			APIKey:       p.app.APIKey,
			ClientID:     p.app.ClientID,
			ClientSecret: p.app.ClientSecret,
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			ExpiresAt:    f.clock.Now().Add(time.Duration(tok.ExpiresIn) * time.Second),
		},
		Identity: model.AccountIdentity{
			MembershipID: tok.MembershipID,
			// -1 lets the platform resolve cross-save on every profile call.
			MembershipType: -1,
		},
	}

	if err := f.store.Save(ctx, rec); err != nil {
		return nil, errors.Wrap(err, "persisting linked credential")
	}

	f.log.Info().Str("membership_id", rec.Identity.MembershipID).Msg("account linked")
	if f.OnLinked != nil {
		f.OnLinked(rec)
	}
	return rec, nil
}
