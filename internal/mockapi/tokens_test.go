package mockapi

import (
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestTokenIssueAndVerify(t *testing.T) {
	clock := newTestClock()
	issuer := newTokenIssuer([]byte("test-key"), time.Minute, time.Hour, clock.Now)

	access, refresh, err := issuer.issue("user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, refresh)

	userID, tokenID, err := issuer.verify(access)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
	assert.NotEmpty(t, tokenID)

	clock.Advance(2 * time.Minute)
	_, _, err = issuer.verify(access)
	assert.ErrorIs(t, err, errTokenInvalid)
}

func TestTokenVerifyRejectsForeignTokens(t *testing.T) {
	clock := newTestClock()
	issuer := newTokenIssuer([]byte("test-key"), time.Minute, time.Hour, clock.Now)
	other := newTokenIssuer([]byte("other-key"), time.Minute, time.Hour, clock.Now)

	forged, _, err := other.issue("user-1")
	require.NoError(t, err)
	_, _, err = issuer.verify(forged)
	assert.ErrorIs(t, err, errTokenInvalid)

	hs256, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &accessClaims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Minute)),
		},
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	_, _, err = issuer.verify(hs256)
	assert.ErrorIs(t, err, errTokenInvalid)

	_, _, err = issuer.verify("not-a-jwt")
	assert.ErrorIs(t, err, errTokenInvalid)
}

func TestTokenExchangeRotates(t *testing.T) {
	clock := newTestClock()
	issuer := newTokenIssuer([]byte("test-key"), time.Minute, time.Hour, clock.Now)

	_, refresh, err := issuer.issue("user-1")
	require.NoError(t, err)

	userID, access, next, err := issuer.exchange(refresh)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
	assert.NotEqual(t, refresh, next)
	_, _, err = issuer.verify(access)
	require.NoError(t, err)

	_, _, _, err = issuer.exchange(refresh)
	assert.ErrorIs(t, err, errRefreshInvalid)

	clock.Advance(2 * time.Hour)
	_, _, _, err = issuer.exchange(next)
	assert.ErrorIs(t, err, errRefreshInvalid)
}

func TestTokenRevoke(t *testing.T) {
	clock := newTestClock()
	issuer := newTokenIssuer([]byte("test-key"), time.Minute, time.Hour, clock.Now)

	access, refresh, err := issuer.issue("user-1")
	require.NoError(t, err)
	userID, tokenID, err := issuer.verify(access)
	require.NoError(t, err)

	issuer.revoke(userID, tokenID)

	_, _, err = issuer.verify(access)
	assert.ErrorIs(t, err, errTokenInvalid)
	_, _, _, err = issuer.exchange(refresh)
	assert.ErrorIs(t, err, errRefreshInvalid)
}
