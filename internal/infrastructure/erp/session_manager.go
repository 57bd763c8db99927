package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	domain "github.com/storefront/backend/internal/domain/erp"
)

// SessionManager owns the authenticated session. Login is single-flight:
// concurrent callers needing a session await the same in-flight attempt
// instead of issuing duplicates, and attempts are spaced by a minimum
// interval regardless of caller count - both required to stay inside the
// remote's login rate limit.
type SessionManager struct {
	config  *Config
	client  *http.Client
	backoff *BackoffTracker
	logger  *zap.Logger

	mu      sync.RWMutex
	session *domain.Session

	group   singleflight.Group
	limiter *rate.Limiter
}

// NewSessionManager creates a session manager with no session. The
// backoff tracker is shared with the gateway so a rate-limited login
// penalizes the login endpoint for every caller.
func NewSessionManager(config *Config, client *http.Client, backoff *BackoffTracker, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		config:  config,
		client:  client,
		backoff: backoff,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(config.LoginMinInterval), 1),
	}
}

// GetValidSession returns the cached session while it is valid, logging
// in otherwise. Callers arriving during an in-flight login share its
// result.
func (m *SessionManager) GetValidSession(ctx context.Context) (*domain.Session, error) {
	m.mu.RLock()
	session := m.session
	m.mu.RUnlock()
	if session.IsValid() {
		return session, nil
	}

	// The shared login runs detached from the initiating caller's
	// context: a caller giving up must not cancel the attempt for the
	// callers queued behind it. Each caller still honors its own
	// deadline while waiting.
	ch := m.group.DoChan("login", func() (interface{}, error) {
		return m.login(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Session), nil
	}
}

// Invalidate discards the current session. Called on any auth-category
// failure so the next caller performs a fresh login.
func (m *SessionManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		m.logger.Info("ERP session invalidated")
	}
	m.session = nil
}

// HasValidSession reports whether a usable session is cached
func (m *SessionManager) HasValidSession() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.IsValid()
}

// login performs one login attempt. Runs inside the single-flight group.
func (m *SessionManager) login(ctx context.Context) (*domain.Session, error) {
	// A caller that queued behind an earlier login may find a fresh
	// session already stored.
	m.mu.RLock()
	session := m.session
	m.mu.RUnlock()
	if session.IsValid() {
		return session, nil
	}

	// Honor any backoff recorded against the login endpoint before the
	// minimum-interval wait.
	if delay := m.backoff.Delay(EndpointLogin); delay > 0 {
		m.logger.Warn("Delaying login attempt", zap.Duration("delay", delay))
		if err := sleepContext(ctx, delay); err != nil {
			return nil, err
		}
	}

	// Space attempts by the configured minimum interval; a caller
	// arriving inside the interval waits out the remainder here.
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	session, err := m.doLogin(ctx)
	if err != nil {
		if domain.CategoryOf(err) == domain.CategoryRateLimit {
			// Login throttling from the remote is stricter than regular
			// endpoint throttling: jump straight to the fixed delay.
			m.backoff.SetDelay(EndpointLogin, m.config.LoginRateLimitDelay)
		} else {
			m.backoff.RecordFailure(EndpointLogin)
		}
		return nil, err
	}

	m.backoff.RecordSuccess(EndpointLogin)
	m.mu.Lock()
	m.session = session
	m.mu.Unlock()

	m.logger.Info("ERP login succeeded",
		zap.String("zone", session.Zone),
		zap.Time("expires_at", session.ExpiresAt),
	)
	return session, nil
}

// doLogin issues the login request and builds the session
func (m *SessionManager) doLogin(ctx context.Context) (*domain.Session, error) {
	payload := map[string]string{
		"COM_CODE":     m.config.CompanyCode,
		"USER_ID":      m.config.UserID,
		"API_CERT_KEY": m.config.APIKey,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("erp: failed to encode login request: %w", err)
	}

	loginURL := strings.TrimRight(m.config.BaseURL, "/") + "/" + EndpointLogin
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("erp: failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, &domain.RemoteError{
			Category: domain.CategoryNetwork,
			Message:  "login request failed",
			Err:      err,
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &domain.RemoteError{
			Category: domain.CategoryNetwork,
			Message:  "failed to read login response",
			Err:      err,
		}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewRemoteError(resp.StatusCode, "login rejected", domain.ErrAuthFailed)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &domain.RemoteError{
			Category: domain.CategoryCritical,
			Status:   resp.StatusCode,
			Message:  "malformed login response",
			Err:      domain.ErrInvalidResponse,
		}
	}
	if !env.IsSuccess() {
		status := env.StatusCode()
		if status == 0 {
			status = http.StatusUnauthorized
		}
		return nil, domain.NewRemoteError(status, env.ErrorMessage(), domain.ErrAuthFailed)
	}

	var data loginData
	if err := json.Unmarshal(env.Data, &data); err != nil || data.SessionID == "" {
		return nil, &domain.RemoteError{
			Category: domain.CategoryCritical,
			Status:   resp.StatusCode,
			Message:  "login response missing session",
			Err:      domain.ErrInvalidResponse,
		}
	}

	// Expire the session conservatively earlier than the remote's
	// stated lifetime.
	expiresAt := time.Now().Add(m.config.SessionLifetime - m.config.SessionSafetyMargin)

	return &domain.Session{
		Token:       data.SessionID,
		ExpiresAt:   expiresAt,
		Zone:        data.Zone,
		AuthCookies: collectCookies(resp),
	}, nil
}

// collectCookies flattens the login response cookies into a header value
func collectCookies(resp *http.Response) string {
	cookies := resp.Cookies()
	if len(cookies) == 0 {
		return ""
	}
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// sleepContext waits for d or until the context is cancelled
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
