// Package cryptox implements password hashing for accountd using argon2id.
// Hashes are encoded in PHC string format, so every hash carries its own
// parameters and salt and can be verified without external state.
package cryptox

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/accountd/accountd/internal/common"
	"golang.org/x/crypto/argon2"
)

// argon2id parameters (OWASP-recommended).
const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 4
	argonSaltLen = 16
	argonKeyLen  = 32
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = errors.New("password cannot be empty")

// HashPassword derives an argon2id hash of password with a fresh random salt
// and returns it as a PHC string:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
//
// Two calls with the same password produce different strings.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	plain := []byte(password)
	defer common.WipeByteArray(plain)

	salt := common.GenerateRandByteArray(argonSaltLen)
	hash := argon2.IDKey(plain, salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory,
		argonTime,
		argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)
	common.WipeByteArray(hash)

	return encoded, nil
}

// VerifyPassword recomputes the hash of password using the parameters and
// salt embedded in encodedHash and compares the result in constant time.
// A structurally invalid hash string verifies as false, indistinguishable
// from a wrong password.
func VerifyPassword(password, encodedHash string) bool {
	params, salt, want, err := decodeHash(encodedHash)
	if err != nil {
		return false
	}

	plain := []byte(password)
	defer common.WipeByteArray(plain)

	got := argon2.IDKey(plain, salt, params.time, params.memory, params.threads, uint32(len(want)))
	match := subtle.ConstantTimeCompare(got, want) == 1
	common.WipeByteArray(got)
	return match
}

type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
}

func decodeHash(encodedHash string) (*argonParams, []byte, []byte, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return nil, nil, nil, errors.New("invalid hash format")
	}
	if parts[1] != "argon2id" {
		return nil, nil, nil, fmt.Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, nil, err
	}
	if version != argon2.Version {
		return nil, nil, nil, fmt.Errorf("unsupported argon2 version: %d", version)
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return nil, nil, nil, err
	}
	if threads == 0 || threads > 255 {
		return nil, nil, nil, fmt.Errorf("invalid threads value: %d", threads)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, nil, err
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, nil, err
	}
	if len(hash) == 0 {
		return nil, nil, nil, errors.New("empty hash")
	}

	return &argonParams{memory: memory, time: time, threads: uint8(threads)}, salt, hash, nil
}
