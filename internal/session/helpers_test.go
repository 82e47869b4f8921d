package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brainboard/brainboard/internal/core"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

var errStoreDown = errors.New("store unavailable")

// failingKV rejects every call.
type failingKV struct{}

func (failingKV) Get(context.Context, string) (string, bool, error) { return "", false, errStoreDown }
func (failingKV) Set(context.Context, string, string) error         { return errStoreDown }
func (failingKV) Delete(context.Context, ...string) error           { return errStoreDown }
func (failingKV) Clear(context.Context) error                       { return errStoreDown }

// failOnKeyKV rejects writes to one key and passes everything else through.
type failOnKeyKV struct {
	*MemoryKV
	key string
}

func (f failOnKeyKV) Set(ctx context.Context, key, value string) error {
	if key == f.key {
		return errStoreDown
	}
	return f.MemoryKV.Set(ctx, key, value)
}

func fixedRandom() *bytes.Reader {
	return bytes.NewReader(bytes.Repeat([]byte{0xab}, 4096))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func tokens(access, refresh string, expiresIn int64) core.TokenResponse {
	return core.TokenResponse{AccessToken: access, RefreshToken: refresh, ExpiresIn: expiresIn}
}

type testEnv struct {
	server   *httptest.Server
	client   *Client
	clock    *fakeClock
	durable  *MemoryKV
	volatile *MemoryKV
}

func newTestEnv(t *testing.T, handler http.Handler, mutate ...func(*Options)) *testEnv {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	env := &testEnv{
		server:   server,
		clock:    newFakeClock(),
		durable:  NewMemoryKV(),
		volatile: NewMemoryKV(),
	}
	opts := Options{
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		Durable:    env.durable,
		Volatile:   env.volatile,
		Clock:      env.clock.Now,
	}
	for _, fn := range mutate {
		fn(&opts)
	}

	client, err := New(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	env.client = client
	return env
}

// signIn stores credentials without going through the network.
func (e *testEnv) signIn(t *testing.T, expiresIn int64) {
	t.Helper()
	require.NoError(t, e.client.Credentials().Save(context.Background(), "access-1", "refresh-1", expiresIn))
}
