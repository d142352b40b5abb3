package bungie

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mythosaz/destiny2-ha/internal/model"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(Options{
		BaseURL:  srv.URL,
		TokenURL: srv.URL + "/App/OAuth/Token/",
		APIKey:   "test-key",
	}, zerolog.Nop())
	return c, srv
}

func TestMilestones_DecodesEnvelope(t *testing.T) {
	var gotAuth, gotKey string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("X-API-Key")
		_, _ = w.Write([]byte(`{"Response":{"123":{"milestoneHash":123,"activities":[{"activityHash":456}],"endDate":"2024-06-04T17:00:00Z"}},"ErrorCode":1}`))
	}))

	milestones, err := c.Milestones(context.Background(), "bearer-token")
	if err != nil {
		t.Fatalf("Milestones: %v", err)
	}
	if gotAuth != "Bearer bearer-token" {
		t.Fatalf("expected bearer header, got %q", gotAuth)
	}
	if gotKey != "test-key" {
		t.Fatalf("expected API key header, got %q", gotKey)
	}

	entry, ok := milestones["123"]
	if !ok {
		t.Fatalf("expected milestone 123, got %v", milestones)
	}
	if entry.MilestoneHash != 123 || len(entry.Activities) != 1 || entry.Activities[0].ActivityHash != 456 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestMilestones_Non200IsAPIError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := c.Milestones(context.Background(), "tok")
	if !errors.Is(err, model.ErrUpstream) {
		t.Fatalf("expected upstream fault, got %v", err)
	}
	if StatusCode(err) != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", StatusCode(err))
	}
}

func TestRefreshToken_SendsFormGrant(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if g := r.PostFormValue("grant_type"); g != "refresh_token" {
			t.Errorf("expected refresh_token grant, got %q", g)
		}
		if rt := r.PostFormValue("refresh_token"); rt != "old-refresh" {
			t.Errorf("expected stored refresh token, got %q", rt)
		}
		_, _ = w.Write([]byte(`{"access_token":"new-access","refresh_token":"new-refresh","expires_in":3600,"membership_id":"42"}`))
	}))

	tok, err := c.RefreshToken(context.Background(), model.Credential{
		ClientID:     "cid",
		ClientSecret: "secret",
		RefreshToken: "old-refresh",
	})
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if tok.AccessToken != "new-access" || tok.RefreshToken != "new-refresh" || tok.ExpiresIn != 3600 {
		t.Fatalf("unexpected token: %+v", tok)
	}
}

func TestRefreshToken_RejectionIsAuthExpired(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.RefreshToken(context.Background(), model.Credential{RefreshToken: "stale"})
	if !errors.Is(err, model.ErrAuthExpired) {
		t.Fatalf("expected auth expired, got %v", err)
	}
}

func TestProfile_PathAndComponents(t *testing.T) {
	var gotPath, gotQuery string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"Response":{"profileInventory":{"data":{"items":[{"itemHash":1,"bucketHash":2}]}}}}`))
	}))

	profile, err := c.Profile(context.Background(), "tok", -1, "4611686018467260757", "102")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if gotPath != "/Destiny2/-1/Profile/4611686018467260757/" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotQuery != "components=102" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if items := profile.VaultItems(); len(items) != 1 || items[0].BucketHash != 2 {
		t.Fatalf("unexpected items: %+v", profile.VaultItems())
	}
}

func TestDefinition_NoBearerRequired(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("manifest lookup must not send a bearer token")
		}
		if r.URL.Path != "/Destiny2/Manifest/DestinyActivityDefinition/456/" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"Response":{"displayProperties":{"name":"Vault of Glass: Master"}}}`))
	}))

	def, err := c.Definition(context.Background(), "DestinyActivityDefinition", 456)
	if err != nil {
		t.Fatalf("Definition: %v", err)
	}
	if def.DisplayProperties.Name != "Vault of Glass: Master" {
		t.Fatalf("unexpected name %q", def.DisplayProperties.Name)
	}
}

func TestMilestones_MalformedEnvelopeIsDecodeFault(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ErrorCode":5,"ErrorStatus":"SystemDisabled"}`))
	}))

	_, err := c.Milestones(context.Background(), "tok")
	if !errors.Is(err, model.ErrDecode) {
		t.Fatalf("expected decode fault, got %v", err)
	}
}
