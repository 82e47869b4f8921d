package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/brainboard/brainboard/internal/metrics"
)

// DefaultBaseURL is the BrainBoard API root.
const DefaultBaseURL = "https://api.brainboard.example.com/v1"

// Defaults for the scheduled refresh and the session lifetime.
const (
	DefaultRefreshInterval = 30 * time.Second
	DefaultMaxSessionAge   = 24 * time.Hour
	DefaultTimeout         = 15 * time.Second
)

// Volatile keys.
const (
	keyEncryptionKey = "encryption_key"
	keySessionStart  = "session_start"
)

// Logger is the subset of the logging API the client uses. Both *zap.Logger
// and the gofulmen logger satisfy it.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
}

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client

	// Durable holds the encoded credentials across sessions.
	Durable KV
	// Volatile holds the codec key and session-start marker.
	Volatile KV
	// Codec selects the credential codec: "xor" (default) or "aead".
	Codec string

	RateStore       RateLimitStore
	MaxPerWindow    int
	Window          time.Duration
	RefreshInterval time.Duration
	MaxSessionAge   time.Duration
	MaxUploadBytes  int64

	Random io.Reader
	Clock  func() time.Time
	Logger Logger

	// OnUnauthorized is called once each time the session is lost: a 401,
	// an expired token that cannot be refreshed, or a failed refresh. The
	// CLI uses it to point the user back at login.
	OnUnauthorized func()
}

// callMode selects how much session handling a call gets.
type callMode int

const (
	// callAuthenticated refreshes an expired token and sends the bearer header.
	callAuthenticated callMode = iota
	// callAnonymous skips the refresh check and the bearer header.
	callAnonymous
	// callClosing sends the held token as-is and never fires OnUnauthorized.
	callClosing
)

// RequestOptions describes one call through Request.
type RequestOptions struct {
	Method string
	Header http.Header
	Query  url.Values
	// Body is JSON-encoded when non-nil.
	Body any

	mode callMode
}

// Client is an authenticated BrainBoard API client.
type Client struct {
	baseURL         string
	httpClient      *http.Client
	volatile        KV
	codecName       string
	random          io.Reader
	clock           func() time.Time
	logger          Logger
	onUnauthorized  func()
	refreshInterval time.Duration
	maxSessionAge   time.Duration
	maxUploadBytes  int64

	csrfToken string
	creds     *CredentialStore
	limiter   *RateLimiter
	refreshes singleflight.Group
	refreshN  int

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a client: it generates the CSRF token, ensures a codec key in
// the volatile namespace, and loads any stored credentials.
func New(ctx context.Context, opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", opts.BaseURL)
	}

	c := &Client{
		baseURL:         baseURL,
		httpClient:      opts.HTTPClient,
		volatile:        opts.Volatile,
		codecName:       opts.Codec,
		random:          opts.Random,
		clock:           opts.Clock,
		logger:          opts.Logger,
		onUnauthorized:  opts.OnUnauthorized,
		refreshInterval: opts.RefreshInterval,
		maxSessionAge:   opts.MaxSessionAge,
		maxUploadBytes:  opts.MaxUploadBytes,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if c.volatile == nil {
		c.volatile = NewMemoryKV()
	}
	if c.random == nil {
		c.random = cryptoReader
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.refreshInterval <= 0 {
		c.refreshInterval = DefaultRefreshInterval
	}
	if c.maxSessionAge <= 0 {
		c.maxSessionAge = DefaultMaxSessionAge
	}
	if c.maxUploadBytes <= 0 {
		c.maxUploadBytes = MaxUploadBytes
	}

	c.csrfToken, err = NewCSRFToken(c.random)
	if err != nil {
		return nil, fmt.Errorf("generate csrf token: %w", err)
	}

	codec, err := c.ensureVolatile(ctx)
	if err != nil {
		return nil, err
	}

	c.creds = NewCredentialStore(opts.Durable, codec, c.clock, c.logger)
	c.creds.Load(ctx)

	c.limiter = &RateLimiter{
		Store:        opts.RateStore,
		Key:          parsed.Host,
		MaxPerWindow: opts.MaxPerWindow,
		Window:       opts.Window,
		Clock:        c.clock,
	}

	return c, nil
}

// ensureVolatile makes sure the volatile namespace has a codec key and a
// session-start marker and returns the codec for that key.
func (c *Client) ensureVolatile(ctx context.Context) (Codec, error) {
	key, ok, err := c.volatile.Get(ctx, keyEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("read codec key: %w", err)
	}
	if !ok || key == "" {
		if key, err = NewCSRFToken(c.random); err != nil {
			return nil, fmt.Errorf("generate codec key: %w", err)
		}
		if err := c.volatile.Set(ctx, keyEncryptionKey, key); err != nil {
			return nil, fmt.Errorf("store codec key: %w", err)
		}
	}

	if _, ok, err := c.volatile.Get(ctx, keySessionStart); err != nil {
		return nil, fmt.Errorf("read session start: %w", err)
	} else if !ok {
		if err := c.volatile.Set(ctx, keySessionStart, strconv.FormatInt(c.now().UnixMilli(), 10)); err != nil {
			return nil, fmt.Errorf("store session start: %w", err)
		}
	}

	return NewCodec(c.codecName, key, c.random)
}

// CSRFToken returns the per-instance anti-forgery token.
func (c *Client) CSRFToken() string {
	return c.csrfToken
}

// Credentials exposes the credential store.
func (c *Client) Credentials() *CredentialStore {
	return c.creds
}

// Limiter exposes the request rate limiter.
func (c *Client) Limiter() *RateLimiter {
	return c.limiter
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request is the gateway every API call goes through. On success the JSON
// response body is decoded into out when out is non-nil.
func (c *Client) Request(ctx context.Context, endpoint string, opts RequestOptions, out any) error {
	if err := c.prepare(ctx, opts.mode); err != nil {
		return err
	}

	var body io.Reader
	if opts.Body != nil {
		payload, err := json.Marshal(opts.Body)
		if err != nil {
			return invalidInput(fmt.Sprintf("encode request body: %v", err))
		}
		body = bytes.NewReader(payload)
	}

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	if len(opts.Query) > 0 {
		endpoint = endpoint + "?" + opts.Query.Encode()
	}

	return c.dispatch(ctx, method, endpoint, body, "application/json", opts.Header, opts.mode, out)
}

// prepare consumes a rate-limit slot and refreshes an expired token.
func (c *Client) prepare(ctx context.Context, mode callMode) error {
	if err := c.limiter.CheckAndConsume(ctx); err != nil {
		if errors.Is(err, ErrRateLimitExceeded) {
			metrics.RecordRateLimited()
		}
		return err
	}

	if mode != callAuthenticated || c.creds.AccessToken() == "" || !c.creds.IsExpired() {
		return nil
	}

	ok, err := c.RefreshAccessToken(ctx)
	switch {
	case errors.Is(err, ErrNoRefreshToken):
		c.expire(ctx)
		return fmt.Errorf("%w: session expired and no refresh token is held", ErrUnauthorized)
	case err != nil:
		return err
	case !ok:
		// refresh has already cleared the credentials and fired the hook.
		return fmt.Errorf("%w: session expired and could not be refreshed", ErrUnauthorized)
	}
	return nil
}

// expire clears the credentials and fires the redirect hook.
func (c *Client) expire(ctx context.Context) {
	c.creds.Clear(ctx)
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}

func (c *Client) dispatch(ctx context.Context, method, endpoint string, body io.Reader, contentType string, extra http.Header, mode callMode, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return &RequestError{Endpoint: endpoint, Message: err.Error(), Kind: ErrRequestFailed}
	}

	for key, values := range extra {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(CSRFHeader, c.csrfToken)
	if token := c.creds.AccessToken(); token != "" && mode != callAnonymous {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.Debug("API request", zap.String("method", method), zap.String("endpoint", endpoint))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordAPIRequest(endpointLabel(endpoint), 0)
		return &RequestError{Endpoint: endpoint, Message: err.Error(), Kind: ErrRequestFailed}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	metrics.RecordAPIRequest(endpointLabel(endpoint), resp.StatusCode)

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RequestError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: fmt.Sprintf("read response: %v", err), Kind: ErrRequestFailed}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return c.handleFailure(ctx, endpoint, resp, payload, mode)
	}

	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return &RequestError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err), Kind: ErrRequestFailed}
	}
	return nil
}

func (c *Client) handleFailure(ctx context.Context, endpoint string, resp *http.Response, payload []byte, mode callMode) error {
	message := serverMessage(payload)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		c.logger.Warn("Session rejected by server; credentials cleared", zap.String("endpoint", endpoint))
		if mode == callClosing {
			c.creds.Clear(ctx)
		} else {
			c.expire(ctx)
		}
		return &RequestError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: message, Kind: ErrUnauthorized}
	case http.StatusTooManyRequests:
		if wait := retryAfter(resp, c.now()); wait > 0 {
			if err := c.limiter.Record429(ctx, wait); err != nil {
				c.logger.Warn("Failed to record server backoff", zap.Error(err))
			}
		}
	}

	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return &RequestError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: message, Kind: ErrRequestFailed}
}

// serverMessage pulls "message" from a JSON error body, also accepting the
// {"error":{"message":...}} envelope shape.
func serverMessage(payload []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	if body.Error != nil {
		return body.Error.Message
	}
	return ""
}

func retryAfter(resp *http.Response, now time.Time) time.Duration {
	value := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		return at.Sub(now)
	}
	return 0
}

// endpointLabel trims query strings and IDs so metrics stay low-cardinality.
func endpointLabel(endpoint string) string {
	path, _, _ := strings.Cut(endpoint, "?")
	if strings.HasPrefix(path, "/posts/") {
		parts := strings.Split(path, "/")
		if len(parts) >= 3 {
			parts[2] = "{id}"
		}
		return strings.Join(parts, "/")
	}
	return path
}

func (c *Client) now() time.Time {
	if c.clock != nil {
		return c.clock()
	}
	return time.Now()
}
