package user

import (
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/argon2"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"), "hash should be PHC-encoded argon2id")

	t.Run("salted per call", func(t *testing.T) {
		other, err := HashPassword("secret1")
		require.NoError(t, err)
		assert.NotEqual(t, hash, other, "same input must never produce the same hash twice")
	})

	t.Run("round trip", func(t *testing.T) {
		assert.True(t, VerifyPassword("secret1", hash))
		assert.False(t, VerifyPassword("secret2", hash))
	})
}

// TestVerifyPassword_LegacyParameters checks that verification replays
// the cost parameters stored in the hash, so hashes created under older
// settings keep verifying after the defaults change.
func TestVerifyPassword_LegacyParameters(t *testing.T) {
	salt := []byte("0123456789abcdef")
	key := argon2.IDKey([]byte("secret1"), salt, 2, 32*1024, 1, 32)

	legacy := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, 32*1024, 2, 1,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))

	assert.True(t, VerifyPassword("secret1", legacy))
	assert.False(t, VerifyPassword("secret2", legacy))
}

func TestVerifyPassword_MalformedHashes(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"plain text", "not-a-hash"},
		{"wrong algorithm", "$bcrypt$v=19$m=65536,t=2,p=2$c2FsdA$aGFzaA"},
		{"truncated", "$argon2id$v=19$m=65536,t=2,p=2$c2FsdA"},
		{"bad base64 salt", "$argon2id$v=19$m=65536,t=2,p=2$!!!$aGFzaA"},
		{"bad base64 hash", "$argon2id$v=19$m=65536,t=2,p=2$c2FsdA$!!!"},
		{"bad version", "$argon2id$v=999$m=65536,t=2,p=2$c2FsdA$aGFzaA"},
		{"garbage params", "$argon2id$v=19$nope$c2FsdA$aGFzaA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Must return false, never panic or error.
			assert.False(t, VerifyPassword("whatever", tt.hash))
		})
	}
}
