package mockapi

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/argon2"

	"github.com/brainboard/brainboard/internal/core"
)

var (
	errEmailTaken         = errors.New("email already registered")
	errInvalidCredentials = errors.New("invalid email or password")
	errUserNotFound       = errors.New("user not found")
	errInvalidHash        = errors.New("invalid argon2id hash")
)

// argon2Params are sized for a test double: real enough to exercise the
// PHC format, cheap enough to hash on every signup in tests.
type argon2Params struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

var defaultArgon2 = argon2Params{MemoryKiB: 19 * 1024, Iterations: 2, Parallelism: 1, SaltLength: 16, KeyLength: 32}

// hashPassword returns $argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt>$<hash>.
func hashPassword(password string, p argon2Params) (string, error) {
	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, p.Iterations, p.MemoryKiB, p.Parallelism, p.KeyLength)
	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.MemoryKiB, p.Iterations, p.Parallelism,
		b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

func verifyPassword(encoded, password string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, errInvalidHash
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, errInvalidHash
	}
	var p argon2Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.MemoryKiB, &p.Iterations, &p.Parallelism); err != nil {
		return false, errInvalidHash
	}
	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return false, errInvalidHash
	}
	want, err := b64.DecodeString(parts[5])
	if err != nil {
		return false, errInvalidHash
	}

	got := argon2.IDKey([]byte(password), salt, p.Iterations, p.MemoryKiB, p.Parallelism, uint32(len(want))) // #nosec G115 -- hash length comes from a decoded 32-byte key
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

type userRecord struct {
	profile      core.Profile
	passwordHash string
}

// userStore keeps accounts in memory, keyed by ID with an email index.
type userStore struct {
	mu      sync.RWMutex
	byID    map[string]*userRecord
	byEmail map[string]string
	params  argon2Params
}

func newUserStore(params argon2Params) *userStore {
	return &userStore{
		byID:    make(map[string]*userRecord),
		byEmail: make(map[string]string),
		params:  params,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *userStore) create(id string, data core.SignupData, now time.Time) (core.Profile, error) {
	hash, err := hashPassword(data.Password, s.params)
	if err != nil {
		return core.Profile{}, err
	}

	email := normalizeEmail(data.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[email]; exists {
		return core.Profile{}, errEmailTaken
	}

	profile := core.Profile{
		ID:         id,
		FirstName:  data.FirstName,
		LastName:   data.LastName,
		Email:      email,
		Phone:      data.Phone,
		Newsletter: data.Newsletter,
		CreatedAt:  now.UTC(),
	}
	s.byID[id] = &userRecord{profile: profile, passwordHash: hash}
	s.byEmail[email] = id
	return profile, nil
}

func (s *userStore) authenticate(email, password string) (core.Profile, error) {
	s.mu.RLock()
	id, ok := s.byEmail[normalizeEmail(email)]
	var record userRecord
	if ok {
		record = *s.byID[id]
	}
	s.mu.RUnlock()
	if !ok {
		return core.Profile{}, errInvalidCredentials
	}

	match, err := verifyPassword(record.passwordHash, password)
	if err != nil {
		return core.Profile{}, err
	}
	if !match {
		return core.Profile{}, errInvalidCredentials
	}
	return record.profile, nil
}

func (s *userStore) get(id string) (core.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.byID[id]
	if !ok {
		return core.Profile{}, errUserNotFound
	}
	return record.profile, nil
}

func (s *userStore) update(id string, update core.ProfileUpdate) (core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.byID[id]
	if !ok {
		return core.Profile{}, errUserNotFound
	}
	if update.FirstName != "" {
		record.profile.FirstName = update.FirstName
	}
	if update.LastName != "" {
		record.profile.LastName = update.LastName
	}
	record.profile.Phone = update.Phone
	return record.profile, nil
}

func (s *userStore) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
