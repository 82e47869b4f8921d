package session

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/brainboard/brainboard/internal/core"
	"github.com/brainboard/brainboard/internal/security"
)

// Info summarizes the current session.
type Info struct {
	Authenticated bool      `json:"authenticated"`
	Expired       bool      `json:"expired"`
	ExpiresAt     time.Time `json:"expires_at,omitempty"`
	SessionStart  time.Time `json:"session_start,omitempty"`
	CSRFToken     string    `json:"csrf_token"`
}

// Login authenticates with email and password and stores the returned
// credentials. The returned profile is nil when the server omits it.
func (c *Client) Login(ctx context.Context, email, password string) (*core.Profile, error) {
	email = strings.TrimSpace(email)
	if !security.ValidateEmail(email) {
		return nil, invalidInput("invalid email address")
	}
	if report := security.ValidatePasswordStrength(password); !report.Valid {
		return nil, invalidInput(report.Message())
	}

	body := core.LoginRequest{
		Email:     security.SanitizeText(email),
		Password:  password,
		CSRFToken: c.csrfToken,
	}

	var tokens core.TokenResponse
	if err := c.Request(ctx, "/auth/login", RequestOptions{Method: http.MethodPost, Body: body, mode: callAnonymous}, &tokens); err != nil {
		return nil, err
	}
	if err := c.begin(ctx, tokens); err != nil {
		return nil, err
	}
	c.logger.Debug("Logged in", zap.String("email", body.Email))
	return tokens.User, nil
}

// Signup registers a new account and stores the returned credentials.
func (c *Client) Signup(ctx context.Context, data core.SignupData) (*core.Profile, error) {
	data.Email = strings.TrimSpace(data.Email)
	data.FirstName = strings.TrimSpace(data.FirstName)
	data.LastName = strings.TrimSpace(data.LastName)
	data.Phone = strings.TrimSpace(data.Phone)

	if data.FirstName == "" || data.LastName == "" {
		return nil, invalidInput("first and last name are required")
	}
	if !security.ValidateEmail(data.Email) {
		return nil, invalidInput("invalid email address")
	}
	if report := security.ValidatePasswordStrength(data.Password); !report.Valid {
		return nil, invalidInput(report.Message())
	}
	if !security.ValidatePhone(data.Phone) {
		return nil, invalidInput("invalid phone number")
	}

	data.Email = security.SanitizeText(data.Email)
	data.FirstName = security.SanitizeText(data.FirstName)
	data.LastName = security.SanitizeText(data.LastName)
	data.Phone = security.SanitizeText(data.Phone)
	data.CSRFToken = c.csrfToken

	var tokens core.TokenResponse
	if err := c.Request(ctx, "/auth/signup", RequestOptions{Method: http.MethodPost, Body: data, mode: callAnonymous}, &tokens); err != nil {
		return nil, err
	}
	if err := c.begin(ctx, tokens); err != nil {
		return nil, err
	}
	return tokens.User, nil
}

// begin stores a fresh token triple and restarts the session clock.
func (c *Client) begin(ctx context.Context, tokens core.TokenResponse) error {
	if tokens.AccessToken == "" || tokens.ExpiresIn <= 0 {
		return &RequestError{Endpoint: "/auth", Message: "response missing token or expiry", Kind: ErrRequestFailed}
	}
	if err := c.creds.Save(ctx, tokens.AccessToken, tokens.RefreshToken, tokens.ExpiresIn); err != nil {
		return fmt.Errorf("store credentials: %w", err)
	}
	if err := c.volatile.Set(ctx, keySessionStart, strconv.FormatInt(c.now().UnixMilli(), 10)); err != nil {
		c.logger.Warn("Failed to record session start", zap.Error(err))
	}
	return nil
}

// Logout notifies the server and ends the local session. The server call is
// best effort and a failure is only logged: the local session always ends.
func (c *Client) Logout(ctx context.Context) {
	if c.creds.AccessToken() != "" {
		if err := c.Request(ctx, "/auth/logout", RequestOptions{Method: http.MethodPost, mode: callClosing}, nil); err != nil {
			c.logger.Warn("Logout request failed", zap.Error(err))
		}
	}
	if err := c.end(ctx); err != nil {
		c.logger.Warn("Failed to seed a new credential key", zap.Error(err))
	}
}

// end clears credentials and the volatile namespace, then seeds a new codec
// key for whatever session comes next.
func (c *Client) end(ctx context.Context) error {
	c.creds.Clear(ctx)
	if err := c.volatile.Clear(ctx); err != nil {
		c.logger.Warn("Failed to clear volatile session data", zap.Error(err))
	}
	codec, err := c.ensureVolatile(ctx)
	if err != nil {
		return err
	}
	c.creds.setCodec(codec)
	return nil
}

// Session reports the current session state.
func (c *Client) Session(ctx context.Context) (Info, error) {
	creds := c.creds.Snapshot()
	info := Info{
		Authenticated: creds.AccessToken != "",
		ExpiresAt:     creds.ExpiresAt,
		CSRFToken:     c.csrfToken,
	}
	if info.Authenticated {
		info.Expired = c.creds.IsExpired()
	}

	start, err := c.sessionStart(ctx)
	if err != nil {
		return info, err
	}
	info.SessionStart = start
	return info, nil
}

// ValidateSession enforces the maximum session age. A session older than
// the limit is ended and reported as false.
func (c *Client) ValidateSession(ctx context.Context) (bool, error) {
	start, err := c.sessionStart(ctx)
	if err != nil {
		return false, err
	}
	if !start.IsZero() && c.now().Sub(start) > c.maxSessionAge {
		c.logger.Debug("Session exceeded maximum age", zap.Time("session_start", start))
		if err := c.end(ctx); err != nil {
			return false, err
		}
		return false, nil
	}
	return c.creds.AccessToken() != "", nil
}

func (c *Client) sessionStart(ctx context.Context) (time.Time, error) {
	raw, ok, err := c.volatile.Get(ctx, keySessionStart)
	if err != nil {
		return time.Time{}, fmt.Errorf("read session start: %w", err)
	}
	if !ok {
		return time.Time{}, nil
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, nil
	}
	return time.UnixMilli(millis), nil
}
