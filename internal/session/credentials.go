package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/brainboard/brainboard/internal/core"
)

// Durable keys for the stored credential fields.
const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyTokenExpiry  = "token_expiry"
)

// RefreshMargin is how long before expiry a token counts as expired.
const RefreshMargin = 60 * time.Second

var errMissingExpiry = errors.New("access token stored without expiry")

// CredentialStore keeps the current tokens in memory and mirrors them, encoded,
// into the durable namespace.
type CredentialStore struct {
	mu      sync.RWMutex
	durable KV
	codec   Codec
	clock   func() time.Time
	logger  Logger
	creds   core.Credentials
}

// NewCredentialStore wires a store over durable using codec for the token
// fields. A nil clock uses time.Now.
func NewCredentialStore(durable KV, codec Codec, clock func() time.Time, logger Logger) *CredentialStore {
	if durable == nil {
		durable = NewMemoryKV()
	}
	if codec == nil {
		codec = XORCodec{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CredentialStore{durable: durable, codec: codec, clock: clock, logger: logger}
}

// Save stores the token pair with ExpiresAt = now + expiresIn seconds. The
// in-memory credentials change only after all three fields are persisted; a
// failed write removes the stored fields so a mixed pair never survives.
func (s *CredentialStore) Save(ctx context.Context, access, refresh string, expiresIn int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Millisecond precision matches what durable storage can hold.
	expiresAt := time.UnixMilli(s.now().Add(time.Duration(expiresIn) * time.Second).UnixMilli())

	encodedAccess, err := s.codec.Encode(access)
	if err != nil {
		return err
	}
	encodedRefresh, err := s.codec.Encode(refresh)
	if err != nil {
		return err
	}

	fields := [][2]string{
		{keyAccessToken, encodedAccess},
		{keyRefreshToken, encodedRefresh},
		{keyTokenExpiry, strconv.FormatInt(expiresAt.UnixMilli(), 10)},
	}
	for _, field := range fields {
		if err := s.durable.Set(ctx, field[0], field[1]); err != nil {
			if delErr := s.durable.Delete(ctx, keyAccessToken, keyRefreshToken, keyTokenExpiry); delErr != nil {
				s.logger.Warn("Failed to remove partially stored credentials", zap.Error(delErr))
			}
			return fmt.Errorf("store %s: %w", field[0], err)
		}
	}

	s.creds = core.Credentials{AccessToken: access, RefreshToken: refresh, ExpiresAt: expiresAt}
	return nil
}

// Load rebuilds the credentials from durable storage. Any read or decode
// failure clears every stored field instead of returning an error.
func (s *CredentialStore) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.read(ctx)
	if err != nil {
		s.logger.Warn("Discarding unreadable stored credentials", zap.Error(err))
		s.clearLocked(ctx)
		return
	}
	s.creds = creds
}

func (s *CredentialStore) read(ctx context.Context) (core.Credentials, error) {
	var creds core.Credentials

	if encoded, ok, err := s.durable.Get(ctx, keyAccessToken); err != nil {
		return creds, err
	} else if ok {
		if creds.AccessToken, err = s.codec.Decode(encoded); err != nil {
			return creds, err
		}
	}

	if encoded, ok, err := s.durable.Get(ctx, keyRefreshToken); err != nil {
		return creds, err
	} else if ok {
		if creds.RefreshToken, err = s.codec.Decode(encoded); err != nil {
			return creds, err
		}
	}

	if raw, ok, err := s.durable.Get(ctx, keyTokenExpiry); err != nil {
		return creds, err
	} else if ok {
		millis, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return creds, err
		}
		creds.ExpiresAt = time.UnixMilli(millis)
	}

	if creds.AccessToken != "" && creds.ExpiresAt.IsZero() {
		return creds, errMissingExpiry
	}
	return creds, nil
}

// HasStoredCredentials reports whether durable holds an access token,
// without decoding it.
func HasStoredCredentials(ctx context.Context, durable KV) (bool, error) {
	_, ok, err := durable.Get(ctx, keyAccessToken)
	return ok, err
}

// Clear removes all three fields from memory and durable storage.
func (s *CredentialStore) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked(ctx)
}

func (s *CredentialStore) clearLocked(ctx context.Context) {
	s.creds = core.Credentials{}
	if err := s.durable.Delete(ctx, keyAccessToken, keyRefreshToken, keyTokenExpiry); err != nil {
		s.logger.Warn("Failed to remove stored credentials", zap.Error(err))
	}
}

// IsExpired is true when no expiry is recorded or now is within
// RefreshMargin of it.
func (s *CredentialStore) IsExpired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.creds.ExpiresAt.IsZero() {
		return true
	}
	return !s.now().Before(s.creds.ExpiresAt.Add(-RefreshMargin))
}

// Snapshot returns a copy of the current credentials.
func (s *CredentialStore) Snapshot() core.Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

// AccessToken returns the current access token, if any.
func (s *CredentialStore) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.AccessToken
}

// RefreshToken returns the current refresh token, if any.
func (s *CredentialStore) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds.RefreshToken
}

func (s *CredentialStore) setCodec(codec Codec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codec = codec
}

func (s *CredentialStore) now() time.Time {
	if s.clock != nil {
		return s.clock()
	}
	return time.Now()
}
