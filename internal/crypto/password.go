// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const saltLen = 16

// ErrMalformedHash is returned by ParseHash for strings that are not an
// encoded argon2id hash.
var ErrMalformedHash = errors.New("malformed password hash")

// HashPrefix starts every encoded hash.
const HashPrefix = "$argon2id$"

// PasswordHash is an argon2id key together with the parameters and salt it
// was derived with.
type PasswordHash struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	Salt    []byte
	Key     []byte
}

// String encodes h in PHC format.
func (h PasswordHash) String() string {
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		HashPrefix, argon2.Version, h.Memory, h.Time, h.Threads,
		base64.RawStdEncoding.EncodeToString(h.Salt),
		base64.RawStdEncoding.EncodeToString(h.Key),
	)
}

// ParseHash decodes a hash produced by PasswordHash.String.
func ParseHash(encoded string) (PasswordHash, error) {
	parts := strings.Split(encoded, "$")
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	if len(parts) != 6 || parts[1] != "argon2id" {
		return PasswordHash{}, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return PasswordHash{}, fmt.Errorf("%w: unsupported version %q", ErrMalformedHash, parts[2])
	}

	var h PasswordHash
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &h.Memory, &h.Time, &h.Threads); err != nil {
		return PasswordHash{}, fmt.Errorf("%w: %w", ErrMalformedHash, err)
	}
	if h.Memory == 0 || h.Time == 0 || h.Threads == 0 {
		return PasswordHash{}, fmt.Errorf("%w: zero parameter", ErrMalformedHash)
	}

	var err error
	if h.Salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return PasswordHash{}, fmt.Errorf("%w: %w", ErrMalformedHash, err)
	}
	if h.Key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(h.Key) == 0 {
		return PasswordHash{}, fmt.Errorf("%w: bad key", ErrMalformedHash)
	}
	return h, nil
}

// argonHasher is the private implementation of [PasswordHasher].
type argonHasher struct {
	// Argon2id tuning parameters.
	time    uint32
	memory  uint32
	threads uint8
	keyLen  uint32
}

// NewPasswordHasher constructs a [PasswordHasher] with the smallest Argon2id
// parameters OWASP lists as acceptable:
//   - time cost:   2 iterations
//   - memory cost: 19 MiB
//   - parallelism: 1 thread
//   - key length:  32 bytes (256 bits)
func NewPasswordHasher() PasswordHasher {
	return &argonHasher{
		time:    2,
		memory:  19 * 1024, // 19 MiB
		threads: 1,
		keyLen:  32,
	}
}

func (a *argonHasher) Hash(password string) (PasswordHash, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return PasswordHash{}, fmt.Errorf("generate salt: %w", err)
	}

	return PasswordHash{
		Time:    a.time,
		Memory:  a.memory,
		Threads: a.threads,
		Salt:    salt,
		Key:     argon2.IDKey([]byte(password), salt, a.time, a.memory, a.threads, a.keyLen),
	}, nil
}

// Verify re-derives the key with the parameters stored in hash, so hashes
// made with other settings still verify.
func (a *argonHasher) Verify(password string, hash PasswordHash) bool {
	if len(hash.Key) == 0 {
		return false
	}
	key := argon2.IDKey([]byte(password), hash.Salt, hash.Time, hash.Memory, hash.Threads, uint32(len(hash.Key)))
	return subtle.ConstantTimeCompare(key, hash.Key) == 1
}
