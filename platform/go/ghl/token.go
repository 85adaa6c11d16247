package ghl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/parklogic/parksync/platform/go/persistence"
)

// refreshSafetyMargin is how long before the recorded expiry a token is
// treated as already expired, so a token never dies mid-request.
const refreshSafetyMargin = 60 * time.Second

// TokenStore is the persistence surface the manager needs. Implemented by
// persistence.TokenStore.
type TokenStore interface {
	Get(ctx context.Context, credentialID string) (persistence.TokenRecord, error)
	Put(ctx context.Context, rec persistence.TokenRecord) error
}

// TokenManagerConfig wires a TokenManager.
type TokenManagerConfig struct {
	AuthBaseURL  string // e.g. https://services.leadconnectorhq.com
	ClientID     string
	ClientSecret string
	CredentialID string // key of the stored token row; one per CRM app connection
	Store        TokenStore
	HTTPClient   *http.Client
	Now          func() time.Time
}

// TokenManager owns the OAuth token lifecycle for one CRM application
// credential shared by every park. Concurrent callers needing a refresh
// collapse onto a single in-flight exchange: GHL refresh tokens are
// single-use, so two parallel refreshes would invalidate each other.
type TokenManager struct {
	authBase     string
	clientID     string
	clientSecret string
	credentialID string
	store        TokenStore
	httpc        *http.Client
	now          func() time.Time
	group        singleflight.Group
}

// NewTokenManager constructs a TokenManager.
func NewTokenManager(cfg TokenManagerConfig) (*TokenManager, error) {
	if cfg.Store == nil {
		return nil, errors.New("token store is required")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("client id and secret are required")
	}
	if cfg.CredentialID == "" {
		return nil, errors.New("credential id is required")
	}

	m := &TokenManager{
		authBase:     strings.TrimRight(cfg.AuthBaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		credentialID: cfg.CredentialID,
		store:        cfg.Store,
		httpc:        cfg.HTTPClient,
		now:          cfg.Now,
	}
	if m.httpc == nil {
		m.httpc = &http.Client{Timeout: 30 * time.Second}
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m, nil
}

// AccessToken returns a currently valid access token, refreshing and
// persisting new state when the stored one is expired or about to expire.
func (m *TokenManager) AccessToken(ctx context.Context) (string, error) {
	rec, err := m.store.Get(ctx, m.credentialID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("load token state: %w", err)
	}

	if m.now().Before(expiryOf(rec).Add(-refreshSafetyMargin)) {
		return rec.AccessToken, nil
	}

	// All callers hitting the expiry window share one refresh; the losers
	// wait and reuse the winner's result.
	token, err, _ := m.group.Do(m.credentialID, func() (any, error) {
		return m.refresh(ctx, rec)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

// Seed exchanges an authorization code for initial token state and persists
// it. Run from the CLI after the operator completes the OAuth consent flow.
func (m *TokenManager) Seed(ctx context.Context, code, redirectURI string) error {
	form := url.Values{
		"client_id":     {m.clientID},
		"client_secret": {m.clientSecret},
		"grant_type":    {"authorization_code"},
		"code":          {code},
	}
	if redirectURI != "" {
		form.Set("redirect_uri", redirectURI)
	}

	resp, err := m.tokenCall(ctx, form)
	if err != nil {
		return err
	}
	return m.persist(ctx, resp)
}

func (m *TokenManager) refresh(ctx context.Context, prior persistence.TokenRecord) (string, error) {
	// Re-read in case another process refreshed while we waited for the lock.
	if rec, err := m.store.Get(ctx, m.credentialID); err == nil {
		if rec.AccessToken != prior.AccessToken && m.now().Before(expiryOf(rec).Add(-refreshSafetyMargin)) {
			return rec.AccessToken, nil
		}
		prior = rec
	}

	form := url.Values{
		"client_id":     {m.clientID},
		"client_secret": {m.clientSecret},
		"grant_type":    {"refresh_token"},
		"refresh_token": {prior.RefreshToken},
	}

	resp, err := m.tokenCall(ctx, form)
	if err != nil {
		return "", err
	}
	if err := m.persist(ctx, resp); err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

func (m *TokenManager) tokenCall(ctx context.Context, form url.Values) (tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.authBase+"/oauth/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return tokenResponse{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpc.Do(req)
	if err != nil {
		return tokenResponse{}, &UpstreamError{Op: "oauth/token", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return tokenResponse{}, &AuthError{Op: "oauth/token", Detail: strings.TrimSpace(string(detail))}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return tokenResponse{}, &UpstreamError{Op: "oauth/token", StatusCode: resp.StatusCode}
	}

	var decoded tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return tokenResponse{}, &UpstreamError{Op: "oauth/token", Err: fmt.Errorf("decode response: %w", err)}
	}
	if decoded.AccessToken == "" || decoded.RefreshToken == "" {
		return tokenResponse{}, &UpstreamError{Op: "oauth/token", Err: errors.New("token response missing fields")}
	}
	return decoded, nil
}

func (m *TokenManager) persist(ctx context.Context, resp tokenResponse) error {
	rec := persistence.TokenRecord{
		CredentialID: m.credentialID,
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		IssuedAt:     m.now().UTC(),
		ExpiresIn:    resp.ExpiresIn,
	}
	if err := m.store.Put(ctx, rec); err != nil {
		return fmt.Errorf("persist token state: %w", err)
	}
	return nil
}

func expiryOf(rec persistence.TokenRecord) time.Time {
	return rec.IssuedAt.Add(time.Duration(rec.ExpiresIn) * time.Second)
}
