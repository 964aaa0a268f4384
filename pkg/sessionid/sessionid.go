// Package sessionid generates and parses the time-ordered 128-bit identifiers
// used for sessions, users and products.
//
// Identifiers follow the UUIDv7 layout: a 48-bit unix millisecond prefix, a
// 12-bit sequence that keeps identifiers minted within one millisecond ordered,
// and 62 random bits. On the wire they are 32 lowercase hex characters.
package sessionid

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	encodedLen = 32
	maxSeq     = 0x0fff
	seqSeedMax = 0x07ff
)

// ErrMalformed is returned by Parse for anything that is not a 32 char lowercase hex string.
var ErrMalformed = errors.New("sessionid: malformed identifier")

// ID is a 128-bit time-ordered identifier.
type ID uuid.UUID

// Nil is the zero identifier.
var Nil ID

// String returns the wire form: lowercase hex, no hyphens.
func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// UUID returns the canonical UUID representation.
func (id ID) UUID() uuid.UUID {
	return uuid.UUID(id)
}

// IsZero reports whether id is the zero identifier.
func (id ID) IsZero() bool {
	return id == Nil
}

// Compare orders identifiers by creation time, then by sequence and random suffix.
func (id ID) Compare(other ID) int {
	return bytes.Compare(id[:], other[:])
}

// Time returns the millisecond timestamp embedded in the identifier.
func (id ID) Time() time.Time {
	var ms [8]byte
	copy(ms[2:], id[:6])
	return time.UnixMilli(int64(binary.BigEndian.Uint64(ms[:])))
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Parse decodes the wire form produced by String.
func Parse(s string) (ID, error) {
	if len(s) != encodedLen {
		return Nil, ErrMalformed
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return Nil, ErrMalformed
		}
	}
	var id ID
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return Nil, ErrMalformed
	}
	return id, nil
}

// Generator mints strictly increasing identifiers.
// It is safe for concurrent use; the lock is never held across I/O other than
// reading from the random source.
type Generator struct {
	mu     sync.Mutex
	now    func() time.Time
	random io.Reader
	lastMs int64
	seq    uint16
}

// Option customises a Generator.
type Option func(*Generator)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// WithRandom replaces the random source.
func WithRandom(r io.Reader) Option {
	return func(g *Generator) {
		if r != nil {
			g.random = r
		}
	}
}

// NewGenerator builds a Generator reading crypto/rand and the system clock.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		now:    time.Now,
		random: rand.Reader,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// New returns the next identifier.
func (g *Generator) New() ID {
	var entropy [10]byte
	if _, err := io.ReadFull(g.random, entropy[:]); err != nil {
		// crypto/rand does not fail on supported platforms; a custom reader
		// that does still yields ordered ids through the sequence.
		binary.BigEndian.PutUint64(entropy[2:], uint64(time.Now().UnixNano()))
	}

	g.mu.Lock()
	ms := g.now().UnixMilli()
	if ms > g.lastMs {
		g.lastMs = ms
		g.seq = binary.BigEndian.Uint16(entropy[:2]) & seqSeedMax
	} else {
		// same millisecond, or the clock moved backwards
		g.seq++
		if g.seq > maxSeq {
			g.lastMs++
			g.seq = 0
		}
	}
	ms, seq := g.lastMs, g.seq
	g.mu.Unlock()

	var id ID
	var prefix [8]byte
	binary.BigEndian.PutUint64(prefix[:], uint64(ms))
	copy(id[:6], prefix[2:])
	id[6] = 0x70 | byte(seq>>8)&0x0f
	id[7] = byte(seq)
	copy(id[8:], entropy[2:])
	id[8] = id[8]&0x3f | 0x80
	return id
}

var defaultGenerator = NewGenerator()

// New returns an identifier from the process-wide generator.
func New() ID {
	return defaultGenerator.New()
}
