// Package bungie is a thin client for the Bungie platform API: the OAuth
// token endpoint, the milestones listing, the profile endpoint, and manifest
// definition lookups.
package bungie

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/mythosaz/destiny2-ha/internal/model"
)

// APIError is a non-200 platform response. It unwraps to model.ErrUpstream
// so callers can apply the degrade policy without inspecting bodies.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("bungie API status %d: %s", e.StatusCode, body)
}

func (e *APIError) Unwrap() error { return model.ErrUpstream }

// Client issues requests against the Bungie platform. The API key header is
// fixed at construction; bearer tokens are supplied per call because they
// rotate with every refresh.
type Client struct {
	http     *resty.Client
	tokenURL string
	apiKey   string
	log      zerolog.Logger
}

// Options configures a Client.
type Options struct {
	BaseURL  string
	TokenURL string
	APIKey   string
	Timeout  time.Duration
}

// New creates a Client with a bounded per-call timeout.
func New(opts Options, log zerolog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	c := resty.New().
		SetBaseURL(opts.BaseURL).
		SetHeader("X-API-Key", opts.APIKey).
		SetTimeout(opts.Timeout)

	return &Client{http: c, tokenURL: opts.TokenURL, apiKey: opts.APIKey, log: log}
}

// RefreshToken performs a refresh_token grant exchange. A non-200 means the
// stored refresh token was rejected and maps to model.ErrAuthExpired.
func (c *Client) RefreshToken(ctx context.Context, cred model.Credential) (*TokenResponse, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetFormData(map[string]string{
			"grant_type":    "refresh_token",
			"refresh_token": cred.RefreshToken,
			"client_id":     cred.ClientID,
			"client_secret": cred.ClientSecret,
		}).
		Post(c.tokenURL)
	if err != nil {
		return nil, fmt.Errorf("%w: token refresh: %v", model.ErrTransport, err)
	}
	if resp.StatusCode() != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode()).Msg("token refresh rejected")
		return nil, fmt.Errorf("%w: token refresh status %d", model.ErrAuthExpired, resp.StatusCode())
	}
	return decodeToken(resp.Body())
}

// ExchangeCode performs an authorization_code grant exchange during account
// linking. redirectURI may be empty when the registered application does not
// use one.
func (c *Client) ExchangeCode(ctx context.Context, clientID, clientSecret, code, redirectURI string) (*TokenResponse, error) {
	form := map[string]string{
		"grant_type":    "authorization_code",
		"code":          code,
		"client_id":     clientID,
		"client_secret": clientSecret,
	}
	if redirectURI != "" {
		form["redirect_uri"] = redirectURI
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetFormData(form).
		Post(c.tokenURL)
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange: %v", model.ErrTransport, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return decodeToken(resp.Body())
}

func decodeToken(body []byte) (*TokenResponse, error) {
	var tok TokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("%w: token payload: %v", model.ErrDecode, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: token payload missing access_token", model.ErrDecode)
	}
	return &tok, nil
}

// Milestones fetches the public milestones listing, keyed by milestone hash.
func (c *Client) Milestones(ctx context.Context, bearer string) (map[string]MilestoneEntry, error) {
	body, err := c.get(ctx, bearer, "/Destiny2/Milestones/")
	if err != nil {
		return nil, err
	}

	var milestones map[string]MilestoneEntry
	if err := json.Unmarshal(body, &milestones); err != nil {
		return nil, fmt.Errorf("%w: milestones payload: %v", model.ErrDecode, err)
	}
	return milestones, nil
}

// Profile fetches the account profile with the given components selection
// (102 = profile inventory, 200 = characters, 201 = character inventories).
// membershipType -1 lets the server resolve cross-save.
func (c *Client) Profile(ctx context.Context, bearer string, membershipType int, membershipID, components string) (*ProfileResponse, error) {
	path := fmt.Sprintf("/Destiny2/%d/Profile/%s/?components=%s", membershipType, membershipID, components)
	body, err := c.get(ctx, bearer, path)
	if err != nil {
		return nil, err
	}

	var profile ProfileResponse
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("%w: profile payload: %v", model.ErrDecode, err)
	}
	return &profile, nil
}

// Definition fetches one manifest definition. Only the API key header is
// required; no bearer.
func (c *Client) Definition(ctx context.Context, definitionType string, id uint64) (*Definition, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/Destiny2/Manifest/%s/%d/", definitionType, id))
	if err != nil {
		return nil, fmt.Errorf("%w: manifest %s/%d: %v", model.ErrTransport, definitionType, id, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	env, err := decodeEnvelope(resp.Body())
	if err != nil {
		return nil, err
	}
	var def Definition
	if err := json.Unmarshal(env, &def); err != nil {
		return nil, fmt.Errorf("%w: definition payload: %v", model.ErrDecode, err)
	}
	return &def, nil
}

// get issues an authenticated GET and unwraps the platform envelope.
func (c *Client) get(ctx context.Context, bearer, path string) (json.RawMessage, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+bearer).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %v", model.ErrTransport, path, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return decodeEnvelope(resp.Body())
}

func decodeEnvelope(body []byte) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: response envelope: %v", model.ErrDecode, err)
	}
	if env.Response == nil {
		return nil, fmt.Errorf("%w: response envelope missing Response (code %d %s)", model.ErrDecode, env.ErrorCode, env.ErrorStatus)
	}
	return env.Response, nil
}

// StatusCode extracts the HTTP status from an APIError, 0 otherwise.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
