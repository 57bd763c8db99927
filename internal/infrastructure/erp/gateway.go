package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domain "github.com/storefront/backend/internal/domain/erp"
	"github.com/storefront/backend/internal/domain/store"
)

// maxResponseSize is the maximum allowed response size from the remote (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Gateway is the single chokepoint for all remote ERP calls. Every call
// passes the lockout guard, the circuit breaker, and the per-endpoint
// backoff before being issued; every outcome feeds those state holders
// back. The gateway itself holds no other mutable state.
type Gateway struct {
	config  *Config
	client  *http.Client
	session *SessionManager
	breaker *CircuitBreaker
	backoff *BackoffTracker
	lockout *LockoutGuard
	logger  *zap.Logger
}

// NewGateway creates a gateway with freshly constructed protective state.
// The state holders live for the gateway's lifetime (process lifetime in
// production, one test in tests) and are reset only by success/failure
// events, never by a clock alone.
func NewGateway(config *Config, logger *zap.Logger) (*Gateway, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client := &http.Client{
		Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
	}
	backoff := NewBackoffTracker(config.BackoffBase, config.BackoffMax)

	return &Gateway{
		config:  config,
		client:  client,
		session: NewSessionManager(config, client, backoff, logger),
		breaker: NewCircuitBreaker(config.BreakerThreshold, config.BreakerTimeout),
		backoff: backoff,
		lockout: NewLockoutGuard(config.LockoutMaxErrors, config.LockoutWindow, config.LockoutDuration),
		logger:  logger,
	}, nil
}

// InvalidateSession discards the current session, forcing a fresh login
// on the next authenticated call
func (g *Gateway) InvalidateSession() {
	g.session.Invalidate()
}

// Execute performs one remote call through the full protective chain.
// On auth-signalling failures (non-JSON body on an authenticated call,
// application-level session expiry) the session is invalidated and the
// call retried once with a fresh login.
func (g *Gateway) Execute(ctx context.Context, endpoint string, body map[string]any, requiresAuth bool) (*Envelope, error) {
	return g.execute(ctx, endpoint, body, requiresAuth, 1)
}

func (g *Gateway) execute(ctx context.Context, endpoint string, body map[string]any, requiresAuth bool, authRetries int) (*Envelope, error) {
	if err := g.lockout.Check(); err != nil {
		return nil, err
	}
	if err := g.breaker.Allow(); err != nil {
		return nil, err
	}

	// Allow may have admitted this call as the one half-open trial. If
	// the call aborts before an outcome is recorded, the trial slot must
	// be released or the breaker stays wedged rejecting everything.
	resolved := false
	defer func() {
		if !resolved {
			g.breaker.CancelTrial()
		}
	}()

	if delay := g.backoff.Delay(endpoint); delay > 0 {
		g.logger.Debug("Backing off before remote call",
			zap.String("endpoint", endpoint),
			zap.Duration("delay", delay),
		)
		if err := sleepContext(ctx, delay); err != nil {
			return nil, err
		}
	}

	var session *domain.Session
	if requiresAuth {
		s, err := g.session.GetValidSession(ctx)
		if err != nil {
			resolved = true
			g.recordFailure(endpoint, err)
			return nil, err
		}
		session = s
	}

	env, err := g.doCall(ctx, endpoint, body, session)
	if err != nil {
		category := domain.CategoryOf(err)
		resolved = true
		g.recordFailure(endpoint, err)

		if category == domain.CategoryAuth && requiresAuth {
			g.session.Invalidate()
			if authRetries > 0 {
				g.logger.Warn("Retrying remote call with fresh session",
					zap.String("endpoint", endpoint),
				)
				return g.execute(ctx, endpoint, body, requiresAuth, authRetries-1)
			}
		}
		return nil, err
	}

	resolved = true
	g.recordSuccess(endpoint)
	return env, nil
}

// doCall issues the HTTP request and parses the envelope. It returns a
// classified *domain.RemoteError on every failure path.
func (g *Gateway) doCall(ctx context.Context, endpoint string, body map[string]any, session *domain.Session) (*Envelope, error) {
	payload := make(map[string]any, len(body)+1)
	for k, v := range body {
		payload[k] = v
	}

	callURL := strings.TrimRight(g.config.BaseURL, "/") + "/" + endpoint
	if session != nil {
		// Session-bearing calls go to the zone host, carry the token as
		// a query parameter, and repeat the API key as a secondary
		// secret in the body, per the remote protocol.
		host := strings.ReplaceAll(g.config.ZoneURLTemplate, "{zone}", strings.ToLower(session.Zone))
		callURL = strings.TrimRight(host, "/") + "/" + endpoint + "?SESSION_ID=" + session.Token
		payload["API_CERT_KEY"] = g.config.APIKey
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("erp: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callURL, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("erp: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if session != nil && session.AuthCookies != "" {
		req.Header.Set("Cookie", session.AuthCookies)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &domain.RemoteError{
			Category: domain.CategoryNetwork,
			Message:  "request failed",
			Err:      err,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &domain.RemoteError{
			Category: domain.CategoryNetwork,
			Status:   resp.StatusCode,
			Message:  "failed to read response",
			Err:      err,
		}
	}

	// The remote signals rate limiting with HTTP 412. Raise immediately
	// so the caller can fall back to cached data.
	if resp.StatusCode == http.StatusPreconditionFailed || resp.StatusCode == http.StatusTooManyRequests {
		return nil, domain.NewRemoteError(resp.StatusCode, "rate limited", domain.ErrRateLimited)
	}

	// A non-JSON body from an authenticated call is itself an auth
	// signal: the remote serves its login page instead of data.
	contentType := resp.Header.Get("Content-Type")
	if session != nil && !strings.Contains(contentType, "application/json") {
		return nil, &domain.RemoteError{
			Category: domain.CategoryAuth,
			Status:   resp.StatusCode,
			Message:  "non-JSON response on authenticated call",
			Err:      domain.ErrSessionExpired,
		}
	}

	if resp.StatusCode >= 400 {
		return nil, domain.NewRemoteError(resp.StatusCode, snippet(respBody), domain.ErrRequestFailed)
	}

	var env Envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, &domain.RemoteError{
			Category: domain.CategoryCritical,
			Status:   resp.StatusCode,
			Message:  "malformed response envelope",
			Err:      domain.ErrInvalidResponse,
		}
	}

	// The remote reports application-level failures inside an HTTP 200.
	if !env.IsSuccess() {
		if env.IsSessionExpired() {
			return nil, &domain.RemoteError{
				Category: domain.CategoryAuth,
				Status:   resp.StatusCode,
				Message:  env.ErrorMessage(),
				Err:      domain.ErrSessionExpired,
			}
		}
		status := env.StatusCode()
		if status == 0 {
			status = http.StatusInternalServerError
		}
		return nil, domain.NewRemoteError(status, env.ErrorMessage(), domain.ErrRequestFailed)
	}

	return &env, nil
}

// recordSuccess resets all protective state for this call
func (g *Gateway) recordSuccess(endpoint string) {
	g.backoff.RecordSuccess(endpoint)
	g.breaker.RecordSuccess()
	g.lockout.RecordSuccess()
}

// recordFailure classifies the error and updates backoff and breaker
// always, the lockout guard only for categories that count toward it
func (g *Gateway) recordFailure(endpoint string, err error) {
	category := domain.CategoryOf(err)
	g.backoff.RecordFailure(endpoint)
	g.breaker.RecordFailure()
	g.lockout.RecordFailure(category)

	g.logger.Warn("Remote call failed",
		zap.String("endpoint", endpoint),
		zap.String("category", category.String()),
		zap.Error(err),
	)
}

// ---------------------------------------------------------------------------
// Typed Operations
// ---------------------------------------------------------------------------

// FetchInventory retrieves the current stock balance snapshot
func (g *Gateway) FetchInventory(ctx context.Context) ([]store.CatalogProduct, error) {
	body := map[string]any{
		"BASE_DATE": time.Now().Format(dateLayout),
	}
	env, err := g.Execute(ctx, EndpointInventory, body, true)
	if err != nil {
		return nil, err
	}

	var data inventoryData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: failed to parse inventory payload: %v", domain.ErrInvalidResponse, err)
	}

	products := make([]store.CatalogProduct, 0, len(data.Rows))
	for _, row := range data.Rows {
		if row.ProductCode == "" {
			continue
		}
		products = append(products, store.CatalogProduct{
			Code:     row.ProductCode,
			Name:     row.ProductName,
			Quantity: row.quantity(),
			Price:    decimal.Zero,
		})
	}
	return products, nil
}

// SaveSalesOrder submits a built sales order payload and parses the
// assigned document identifiers and per-line results
func (g *Gateway) SaveSalesOrder(ctx context.Context, payload map[string]any) (*OrderSaveResult, error) {
	env, err := g.Execute(ctx, EndpointSaveOrder, payload, true)
	if err != nil {
		return nil, err
	}

	var data orderSaveData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: failed to parse order save payload: %v", domain.ErrInvalidResponse, err)
	}

	result := &OrderSaveResult{
		DocNos:       data.SlipNos,
		DocDate:      time.Now().Format(dateLayout),
		SuccessCount: data.SuccessCount,
		FailCount:    data.FailCount,
	}
	for _, line := range data.Details {
		if !line.IsSuccess {
			if result.LineErrors == nil {
				result.LineErrors = make(map[int]string)
			}
			result.LineErrors[line.Line] = line.Message
		}
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

// StatusSnapshot is a point-in-time view of all protective state
type StatusSnapshot struct {
	Breaker      BreakerSnapshot          `json:"breaker"`
	Lockout      LockoutSnapshot          `json:"lockout"`
	Backoff      map[string]time.Duration `json:"backoff"`
	SessionValid bool                     `json:"session_valid"`
}

// Status returns the current protective state for operational visibility
func (g *Gateway) Status() StatusSnapshot {
	return StatusSnapshot{
		Breaker:      g.breaker.Snapshot(),
		Lockout:      g.lockout.Snapshot(),
		Backoff:      g.backoff.Snapshot(),
		SessionValid: g.session.HasValidSession(),
	}
}

// snippet trims a response body for inclusion in an error message
func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
