package mockapi

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainboard/brainboard/internal/core"
)

var cheapArgon2 = argon2Params{MemoryKiB: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestHashPasswordPHCFormat(t *testing.T) {
	encoded, err := hashPassword("Secret#123", cheapArgon2)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=1024,t=1,p=1$"))

	ok, err := verifyPassword(encoded, "Secret#123")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = verifyPassword(encoded, "secret#123")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	for _, encoded := range []string{
		"",
		"$bcrypt$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$aGFzaA",
	} {
		_, err := verifyPassword(encoded, "anything")
		assert.ErrorIs(t, err, errInvalidHash, encoded)
	}
}

func TestUserStore(t *testing.T) {
	store := newUserStore(cheapArgon2)
	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	profile, err := store.create("u1", core.SignupData{
		FirstName: "Ada", LastName: "Lovelace", Email: " Ada@Example.com ", Password: "Engine#1843",
	}, now)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", profile.Email)

	_, err = store.create("u2", core.SignupData{Email: "ada@example.com", Password: "Other#1234"}, now)
	assert.ErrorIs(t, err, errEmailTaken)

	got, err := store.authenticate("ADA@example.com", "Engine#1843")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)

	_, err = store.authenticate("ada@example.com", "wrong")
	assert.ErrorIs(t, err, errInvalidCredentials)
	_, err = store.authenticate("nobody@example.com", "Engine#1843")
	assert.ErrorIs(t, err, errInvalidCredentials)

	updated, err := store.update("u1", core.ProfileUpdate{FirstName: "Augusta", Phone: "+44 20 7946 0000"})
	require.NoError(t, err)
	assert.Equal(t, "Augusta", updated.FirstName)
	assert.Equal(t, "Lovelace", updated.LastName)
	assert.Equal(t, "+44 20 7946 0000", updated.Phone)

	_, err = store.get("missing")
	assert.ErrorIs(t, err, errUserNotFound)
}
