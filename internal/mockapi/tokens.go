package mockapi

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	errTokenInvalid         = errors.New("invalid or expired token")
	errInvalidSigningMethod = errors.New("unexpected signing method")
	errRefreshInvalid       = errors.New("invalid or expired refresh token")
)

const refreshTokenBytes = 32

type accessClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

type refreshRecord struct {
	userID    string
	expiresAt time.Time
}

// tokenIssuer signs HS512 access tokens and keeps opaque refresh tokens in
// memory. Refresh tokens rotate on every exchange.
type tokenIssuer struct {
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	clock      func() time.Time

	mu      sync.Mutex
	refresh map[string]refreshRecord
	revoked map[string]time.Time
}

func newTokenIssuer(key []byte, accessTTL, refreshTTL time.Duration, clock func() time.Time) *tokenIssuer {
	return &tokenIssuer{
		key:        key,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		clock:      clock,
		refresh:    make(map[string]refreshRecord),
		revoked:    make(map[string]time.Time),
	}
}

// issue returns a new access/refresh pair for userID.
func (t *tokenIssuer) issue(userID string) (access, refresh string, err error) {
	now := t.clock()
	claims := &accessClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.accessTTL)),
		},
	}
	access, err = jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(t.key)
	if err != nil {
		return "", "", fmt.Errorf("signed string: %w", err)
	}

	raw := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("read random bytes: %w", err)
	}
	refresh = base64.RawURLEncoding.EncodeToString(raw)

	t.mu.Lock()
	t.refresh[refresh] = refreshRecord{userID: userID, expiresAt: now.Add(t.refreshTTL)}
	t.mu.Unlock()
	return access, refresh, nil
}

// verify returns the user ID and token ID of a valid, unrevoked access token.
func (t *tokenIssuer) verify(token string) (string, string, error) {
	parsed, err := jwt.ParseWithClaims(token, &accessClaims{},
		func(tok *jwt.Token) (interface{}, error) {
			if tok.Method.Alg() != jwt.SigningMethodHS512.Alg() {
				return nil, errInvalidSigningMethod
			}
			return t.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.clock),
	)
	if err != nil || parsed == nil || !parsed.Valid {
		return "", "", errTokenInvalid
	}
	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || claims.UserID == "" {
		return "", "", errTokenInvalid
	}

	t.mu.Lock()
	_, revoked := t.revoked[claims.ID]
	t.mu.Unlock()
	if revoked {
		return "", "", errTokenInvalid
	}
	return claims.UserID, claims.ID, nil
}

// exchange consumes a refresh token and issues a new pair.
func (t *tokenIssuer) exchange(refresh string) (string, string, string, error) {
	t.mu.Lock()
	record, ok := t.refresh[refresh]
	delete(t.refresh, refresh)
	t.mu.Unlock()

	if !ok || !t.clock().Before(record.expiresAt) {
		return "", "", "", errRefreshInvalid
	}
	access, next, err := t.issue(record.userID)
	return record.userID, access, next, err
}

// revoke blocks an access token ID until its natural expiry and drops every
// refresh token of the user.
func (t *tokenIssuer) revoke(userID, tokenID string) {
	now := t.clock()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.revoked[tokenID] = now.Add(t.accessTTL)
	for token, record := range t.refresh {
		if record.userID == userID {
			delete(t.refresh, token)
		}
	}
	for id, until := range t.revoked {
		if now.After(until) {
			delete(t.revoked, id)
		}
	}
}
