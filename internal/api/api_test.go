package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mythosaz/destiny2-ha/internal/authflow"
	"github.com/mythosaz/destiny2-ha/internal/bungie"
	"github.com/mythosaz/destiny2-ha/internal/credstore"
	"github.com/mythosaz/destiny2-ha/internal/manifest"
	"github.com/mythosaz/destiny2-ha/internal/model"
)

type stubExchanger struct {
	err error
}

func (s *stubExchanger) ExchangeCode(ctx context.Context, clientID, clientSecret, code, redirectURI string) (*bungie.TokenResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &bungie.TokenResponse{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresIn:    3600,
		MembershipID: "member-1",
	}, nil
}

type stubStore struct {
	rec *credstore.Record
}

func (s *stubStore) Load(ctx context.Context) (*credstore.Record, error) {
	if s.rec == nil {
		return nil, credstore.ErrNotLinked
	}
	return s.rec, nil
}
func (s *stubStore) Save(ctx context.Context, rec *credstore.Record) error {
	s.rec = rec
	return nil
}
func (s *stubStore) Close() error { return nil }

type testEnv struct {
	server *httptest.Server
	store  *stubStore
	snap   *model.CycleSnapshot
	avail  bool
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{store: &stubStore{}}

	flow := authflow.New(&stubExchanger{}, env.store,
		"https://www.bungie.net/en/OAuth/Authorize",
		"http://localhost:8124/api/destiny2/callback", zerolog.Nop())

	router := NewRouter(Deps{
		Snapshot:   func() *model.CycleSnapshot { return env.snap },
		CacheStats: func() map[manifest.Category]int { return map[manifest.Category]int{manifest.CategoryMilestone: 4} },
		Available:  func() bool { return env.avail },
		Flow:       flow,
		Log:        zerolog.Nop(),
	})

	env.server = httptest.NewServer(router)
	t.Cleanup(env.server.Close)
	return env
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealth_ReflectsAvailability(t *testing.T) {
	env := newTestEnv(t)

	var body map[string]interface{}
	status := getJSON(t, env.server.URL+"/api/health", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "degraded", body["status"])

	env.avail = true
	status = getJSON(t, env.server.URL+"/api/health", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
}

func TestSnapshot_NotFoundUntilFirstCycle(t *testing.T) {
	env := newTestEnv(t)

	status := getJSON(t, env.server.URL+"/api/snapshot", nil)
	assert.Equal(t, http.StatusNotFound, status)

	count := 12
	env.snap = &model.CycleSnapshot{
		FetchedAt:      time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		VaultItemCount: &count,
	}

	var body model.CycleSnapshot
	status = getJSON(t, env.server.URL+"/api/snapshot", &body)
	assert.Equal(t, http.StatusOK, status)
	require.NotNil(t, body.VaultItemCount)
	assert.Equal(t, 12, *body.VaultItemCount)
}

func TestCacheStats(t *testing.T) {
	env := newTestEnv(t)

	var body struct {
		Categories map[string]int `json:"categories"`
	}
	status := getJSON(t, env.server.URL+"/api/cache-stats", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 4, body.Categories[string(manifest.CategoryMilestone)])
}

func TestLink_FullHandshake(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.server.URL+"/api/link", "application/json",
		strings.NewReader(`{"apiKey":"k","clientId":"c","clientSecret":"s"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var started map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&started))
	require.NotEmpty(t, started["state"])
	require.Contains(t, started["authorizeUrl"], "client_id=c")

	cbResp, err := http.Get(env.server.URL + "/api/destiny2/callback?code=abc&state=" + started["state"])
	require.NoError(t, err)
	defer cbResp.Body.Close()
	assert.Equal(t, http.StatusOK, cbResp.StatusCode)
	assert.Contains(t, cbResp.Header.Get("Content-Type"), "text/html")

	require.NotNil(t, env.store.rec, "callback must persist the credential")
	assert.Equal(t, "member-1", env.store.rec.Identity.MembershipID)
}

func TestLink_RejectsBadRequests(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.server.URL+"/api/link", "application/json", strings.NewReader(`{not json`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	status := getJSON(t, env.server.URL+"/api/destiny2/callback", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status = getJSON(t, env.server.URL+"/api/destiny2/callback?code=abc&state=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}
