package pairing

import (
	"crypto/rand"
	"crypto/sha256"
	"io"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"

	"github.com/spacecore/spacecore/pkg/errors"
)

const secretLabel = "spacecore-pairing-secret-v1"

// Code is a six-word pairing code: a short-lived, human-displayable stand-in
// for the 256-bit secret the challenge-response handshake is keyed on.
type Code struct {
	raw       [6]byte
	Words     [6]string
	ExpiresAt time.Time
}

// Generate creates a new random code that expires after ttl.
func Generate(ttl time.Duration) (*Code, error) {
	var raw [6]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return nil, errors.Internal("failed to generate pairing code randomness").Wrap(err)
	}
	var words [6]string
	for i, b := range raw {
		words[i] = wordlist[b]
	}
	return &Code{raw: raw, Words: words, ExpiresAt: time.Now().Add(ttl)}, nil
}

// ParseWords reconstructs a Code from six words typed in by a user. The
// code's expiry is unknown to the joiner side and is left zero; expiry is
// enforced only by the initiator, which knows when it generated the code.
func ParseWords(words []string) (*Code, error) {
	if len(words) != 6 {
		return nil, errors.InvalidArgument("pairing code must be exactly six words")
	}
	var raw [6]byte
	var w [6]string
	for i, word := range words {
		word = strings.ToLower(strings.TrimSpace(word))
		idx, ok := wordIndex[word]
		if !ok {
			return nil, errors.InvalidArgument("unrecognized pairing code word: " + word)
		}
		raw[i] = idx
		w[i] = word
	}
	return &Code{raw: raw, Words: w}, nil
}

// String renders the code as hyphen-joined words for display.
func (c *Code) String() string {
	return strings.Join(c.Words[:], "-")
}

// Expired reports whether the code's expiration has passed. A code with a
// zero ExpiresAt (reconstructed from words on the joiner side) never
// reports expired locally; the initiator is the side that enforces it.
func (c *Code) Expired() bool {
	return !c.ExpiresAt.IsZero() && time.Now().After(c.ExpiresAt)
}

// Secret expands the code's six raw bytes into a 256-bit key via
// HKDF-SHA-256, domain-separated so the handshake never uses the
// low-entropy word indices directly as key material.
func (c *Code) Secret() []byte {
	r := hkdf.New(sha256.New, c.raw[:], nil, []byte(secretLabel))
	out := make([]byte, 32)
	if _, err := io.ReadFull(r, out); err != nil {
		// hkdf.Expand only fails when the requested length exceeds its
		// output limit (255 * hash size); 32 bytes never does.
		panic(err)
	}
	return out
}
