package pairing

import (
	"crypto/rand"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"

	"github.com/spacecore/spacecore/pkg/errors"
)

// SessionKeys are the symmetric keys derived from the pairing ECDH
// exchange: one to encrypt messages this side sends, one to decrypt
// messages it receives, and a shared MAC key.
type SessionKeys struct {
	SendKey    [32]byte
	ReceiveKey [32]byte
	MacKey     [32]byte
}

type ephemeralKeyPair struct {
	private [32]byte
	public  [32]byte
}

func generateEphemeralKeyPair() (*ephemeralKeyPair, error) {
	var kp ephemeralKeyPair
	if _, err := rand.Read(kp.private[:]); err != nil {
		return nil, errors.Internal("failed to generate ephemeral key pair").Wrap(err)
	}
	pub, err := curve25519.X25519(kp.private[:], curve25519.Basepoint)
	if err != nil {
		return nil, errors.Internal("failed to compute ephemeral public key").Wrap(err)
	}
	copy(kp.public[:], pub)
	return &kp, nil
}

// deriveSessionKeys computes the ECDH shared secret and expands it into
// two labeled symmetric keys plus a MAC key via HKDF-SHA-256. The two
// labeled keys are assigned to SendKey/ReceiveKey based on role so both
// sides agree on which key encrypts which direction — deriving the same
// label for "send" on both ends, as a naive per-role-symmetric expansion
// would, leaves both sides encrypting with the same key, which is not a
// usable duplex channel.
func deriveSessionKeys(local *ephemeralKeyPair, remotePublic []byte, isInitiator bool) (*SessionKeys, error) {
	shared, err := curve25519.X25519(local.private[:], remotePublic)
	if err != nil {
		return nil, errors.Internal("failed to compute ECDH shared secret").Wrap(err)
	}

	a, err := expandKey(shared, "spacecore-pairing-key-a-v1")
	if err != nil {
		return nil, err
	}
	b, err := expandKey(shared, "spacecore-pairing-key-b-v1")
	if err != nil {
		return nil, err
	}
	mac, err := expandKey(shared, "spacecore-pairing-mac-key-v1")
	if err != nil {
		return nil, err
	}

	if isInitiator {
		return &SessionKeys{SendKey: a, ReceiveKey: b, MacKey: mac}, nil
	}
	return &SessionKeys{SendKey: b, ReceiveKey: a, MacKey: mac}, nil
}

func expandKey(secret []byte, label string) ([32]byte, error) {
	var out [32]byte
	r := hkdf.New(sha256.New, secret, nil, []byte(label))
	if _, err := io.ReadFull(r, out[:]); err != nil {
		return out, errors.Internal("key derivation failed").Wrap(err)
	}
	return out, nil
}
