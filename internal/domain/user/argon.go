package user

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argonParams are the argon2id cost parameters a hash was produced with.
// Verification replays whatever parameters the stored hash encodes, so
// hashParams can change without invalidating existing credentials.
type argonParams struct {
	memory      uint32
	iterations  uint32
	parallelism uint8
}

// hashParams is what new hashes are created with.
var hashParams = argonParams{
	memory:      64 * 1024,
	iterations:  3,
	parallelism: 2,
}

const (
	saltLength = 16
	keyLength  = 32
)

// HashPassword hashes a password with argon2id and a fresh random salt,
// returning the PHC-encoded string.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	p := hashParams
	key := argon2.IDKey([]byte(password), salt, p.iterations, p.memory, p.parallelism, keyLength)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.iterations, p.parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))

	return encoded, nil
}

// VerifyPassword verifies a password against a PHC-encoded argon2id
// hash, in constant time over the derived key. Malformed hashes verify
// as false rather than returning an error.
func VerifyPassword(password, encodedHash string) bool {
	p, salt, key, err := decodeHash(encodedHash)
	if err != nil {
		return false
	}

	candidate := argon2.IDKey([]byte(password), salt, p.iterations, p.memory, p.parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, candidate) == 1
}

// decodeHash splits a PHC-encoded argon2id string into its cost
// parameters, salt and derived key.
func decodeHash(encodedHash string) (argonParams, []byte, []byte, error) {
	var p argonParams

	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return p, nil, nil, errors.New("not an argon2id hash")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, errors.New("unsupported argon2 version")
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.iterations, &p.parallelism); err != nil {
		return p, nil, nil, errors.New("malformed argon2 parameters")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, errors.New("malformed salt")
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, errors.New("malformed derived key")
	}

	return p, salt, key, nil
}
