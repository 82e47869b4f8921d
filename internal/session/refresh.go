package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/brainboard/brainboard/internal/core"
	"github.com/brainboard/brainboard/internal/metrics"
)

const refreshKey = "refresh"

// RefreshAccessToken exchanges the refresh token for a new token triple.
// Concurrent callers, including the scheduled loop, share one in-flight
// exchange and observe the same result. Any failure clears the credentials,
// fires OnUnauthorized once and reports false with a nil error.
func (c *Client) RefreshAccessToken(ctx context.Context) (bool, error) {
	if c.creds.RefreshToken() == "" {
		return false, ErrNoRefreshToken
	}

	// The shared call must outlive any single waiter.
	shared := context.WithoutCancel(ctx)
	ch := c.refreshes.DoChan(refreshKey, func() (any, error) {
		return c.refresh(shared), nil
	})

	select {
	case res := <-ch:
		return res.Val.(bool), nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (c *Client) refresh(ctx context.Context) bool {
	refreshToken := c.creds.RefreshToken()
	if refreshToken == "" {
		return false
	}

	c.mu.Lock()
	c.refreshN++
	c.mu.Unlock()

	tokens, err := c.exchange(ctx, refreshToken)
	if err != nil {
		c.logger.Warn("Token refresh failed; credentials cleared", zap.Error(err))
		c.expire(ctx)
		metrics.RecordRefresh(false)
		return false
	}

	if err := c.creds.Save(ctx, tokens.AccessToken, tokens.RefreshToken, tokens.ExpiresIn); err != nil {
		c.logger.Warn("Failed to persist refreshed credentials", zap.Error(err))
		c.expire(ctx)
		metrics.RecordRefresh(false)
		return false
	}

	c.logger.Debug("Access token refreshed", zap.Time("expires_at", c.creds.Snapshot().ExpiresAt))
	metrics.RecordRefresh(true)
	return true
}

// exchange posts the refresh token directly; it does not consume a
// rate-limit slot and never recurses into the refresh check.
func (c *Client) exchange(ctx context.Context, refreshToken string) (core.TokenResponse, error) {
	var tokens core.TokenResponse

	payload, err := json.Marshal(core.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return tokens, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/refresh", bytes.NewReader(payload))
	if err != nil {
		return tokens, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(CSRFHeader, c.csrfToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return tokens, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	metrics.RecordAPIRequest("/auth/refresh", resp.StatusCode)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return tokens, fmt.Errorf("refresh returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return tokens, fmt.Errorf("decode refresh response: %w", err)
	}
	if tokens.AccessToken == "" || tokens.ExpiresIn <= 0 {
		return tokens, fmt.Errorf("refresh response missing token or expiry")
	}
	return tokens, nil
}

// RefreshCount reports how many refresh exchanges this client has started.
func (c *Client) RefreshCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshN
}

// Start launches the scheduled refresh loop. Calling Start on a running
// client is a no-op.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.loop(loopCtx, c.done)
}

// Close stops the scheduled refresh loop and waits for it to exit.
func (c *Client) Close() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

func (c *Client) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// tick runs one scheduled check.
func (c *Client) tick(ctx context.Context) {
	if c.creds.AccessToken() == "" || !c.creds.IsExpired() {
		return
	}
	if _, err := c.RefreshAccessToken(ctx); err != nil {
		c.logger.Debug("Scheduled refresh skipped", zap.Error(err))
	}
}
