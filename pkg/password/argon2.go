// Package password hashes account secrets with Argon2id and a server-side pepper.
//
// Hashes are stored in PHC form: $argon2id$v=19$m=65536,t=3,p=2$<salt>$<key>.
package password

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	algorithmID  = "argon2id"
	saltLength   = 16
	keyLength    = 32
	minMemoryKiB = 8 * 1024
)

var (
	// ErrInvalidHash is returned when a stored hash cannot be parsed.
	ErrInvalidHash = errors.New("password: invalid hash format")
	// ErrEmptySecret is returned when hashing an empty secret.
	ErrEmptySecret = errors.New("password: empty secret")
)

// Params are the Argon2id cost settings applied to new hashes.
type Params struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
}

// DefaultParams follows the RFC 9106 second recommended option.
var DefaultParams = Params{Time: 3, MemoryKiB: 64 * 1024, Threads: 2}

// Hasher hashes and verifies secrets. It is safe for concurrent use.
type Hasher struct {
	params Params
	pepper []byte
	random io.Reader
}

// NewHasher validates params and returns a Hasher. An empty pepper is allowed
// outside production; config validation enforces it there.
func NewHasher(params Params, pepper string) (*Hasher, error) {
	if params.Time < 1 {
		return nil, errors.New("password: time cost must be >= 1")
	}
	if params.MemoryKiB < minMemoryKiB {
		return nil, fmt.Errorf("password: memory must be >= %d KiB", minMemoryKiB)
	}
	if params.Threads < 1 {
		return nil, errors.New("password: threads must be >= 1")
	}
	return &Hasher{params: params, pepper: []byte(pepper), random: rand.Reader}, nil
}

// Hash returns the PHC encoding of secret.
func (h *Hasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}

	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(h.random, salt); err != nil {
		return "", err
	}
	key := argon2.IDKey(h.peppered(secret), salt, h.params.Time, h.params.MemoryKiB, h.params.Threads, keyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.params.MemoryKiB,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether secret matches encoded. The comparison runs in
// constant time; the parameters come from the stored hash.
func (h *Hasher) Verify(secret, encoded string) (bool, error) {
	p, salt, key, err := decode(encoded)
	if err != nil {
		return false, err
	}
	computed := argon2.IDKey(h.peppered(secret), salt, p.Time, p.MemoryKiB, p.Threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(computed, key) == 1, nil
}

// NeedsRehash reports whether encoded was produced with weaker settings than h.
func (h *Hasher) NeedsRehash(encoded string) bool {
	p, _, key, err := decode(encoded)
	if err != nil {
		return true
	}
	return p.Time < h.params.Time || p.MemoryKiB < h.params.MemoryKiB || p.Threads < h.params.Threads || len(key) != keyLength
}

func (h *Hasher) peppered(secret string) []byte {
	if len(h.pepper) == 0 {
		return []byte(secret)
	}
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(secret))
	return mac.Sum(nil)
}

func decode(encoded string) (Params, []byte, []byte, error) {
	var p Params
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != algorithmID {
		return p, nil, nil, ErrInvalidHash
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return p, nil, nil, ErrInvalidHash
	}

	var threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.MemoryKiB, &p.Time, &threads); err != nil {
		return p, nil, nil, ErrInvalidHash
	}
	if p.Time < 1 || p.MemoryKiB < 1 || threads < 1 || threads > 255 {
		return p, nil, nil, ErrInvalidHash
	}
	p.Threads = uint8(threads)

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return p, nil, nil, ErrInvalidHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, ErrInvalidHash
	}
	return p, salt, key, nil
}
