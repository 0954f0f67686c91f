package eximpedia

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	tokenTTL           = time.Hour
	tokenRefreshTries  = 3
	tokenClientTimeout = 30 * time.Second
)

// ErrTokenRefreshFailed is returned once every refresh attempt has
// failed, or when the API keeps rejecting a token that was just issued.
var ErrTokenRefreshFailed = errors.New("eximpedia token refresh failed")

// TokenManager owns the process-wide upstream credential. Concurrent
// callers coalesce onto a single in-flight refresh so the token endpoint
// is never hammered by a burst of expiring requests.
type TokenManager struct {
	cfg  Config
	http *http.Client
	log  zerolog.Logger

	group singleflight.Group

	mu     sync.Mutex
	token  string
	expiry time.Time
	onPlan func(PlanConstraints)

	backoffBase time.Duration
}

// NewTokenManager returns a manager with an empty token cache. The first
// Token call performs the initial refresh.
func NewTokenManager(cfg Config, log zerolog.Logger) *TokenManager {
	return &TokenManager{
		cfg:         cfg,
		http:        &http.Client{Timeout: tokenClientTimeout},
		log:         log.With().Str("client", "eximpedia_token").Logger(),
		backoffBase: time.Second,
	}
}

// OnPlanConstraints registers a hook invoked whenever a token response
// carries plan metadata. The budget tracker uses this to reconcile its
// counters with the provider's.
func (m *TokenManager) OnPlanConstraints(fn func(PlanConstraints)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onPlan = fn
}

// Token returns a valid access token, refreshing when the cached one is
// inside the expiry buffer.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	if tok, ok := m.cached(); ok {
		return tok, nil
	}
	v, err, _ := m.group.Do("token", func() (any, error) {
		// A waiter that queued behind a finished refresh sees the fresh
		// token here instead of refreshing again.
		if tok, ok := m.cached(); ok {
			return tok, nil
		}
		return m.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached token so the next Token call refreshes.
// Called when the API rejects a request with 401 despite a token we
// believed valid.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.expiry = time.Time{}
}

func (m *TokenManager) cached() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "", false
	}
	if !time.Now().Before(m.expiry.Add(-m.cfg.RefreshBuffer)) {
		return "", false
	}
	return m.token, true
}

func (m *TokenManager) refresh(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"client_id":     m.cfg.ClientID,
		"client_secret": m.cfg.ClientSecret,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling token request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < tokenRefreshTries; attempt++ {
		tok, err := m.requestToken(ctx, body)
		if err == nil {
			return tok, nil
		}
		lastErr = err
		if attempt < tokenRefreshTries-1 {
			wait := m.backoffBase << (attempt + 1)
			m.log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Dur("wait", wait).
				Msg("token refresh attempt failed, backing off")
			if err := sleepCtx(ctx, wait); err != nil {
				return "", err
			}
		}
	}
	return "", fmt.Errorf("%w after %d attempts: %v", ErrTokenRefreshFailed, tokenRefreshTries, lastErr)
}

func (m *TokenManager) requestToken(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BaseURL+"/oauth2/token", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("posting token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", errors.New("token response missing AccessToken")
	}

	expiry := time.Now().Add(tokenTTL)
	m.mu.Lock()
	m.token = tr.AccessToken
	m.expiry = expiry
	onPlan := m.onPlan
	m.mu.Unlock()

	if onPlan != nil && tr.PlanConstraints != nil {
		onPlan(*tr.PlanConstraints)
	}

	m.log.Info().Time("expiry", expiry).Msg("access token refreshed")
	return tr.AccessToken, nil
}

// sleepCtx waits for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
