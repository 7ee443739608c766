package pairing

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"os"
	"path/filepath"

	"golang.org/x/crypto/pbkdf2"

	"github.com/spacecore/spacecore/pkg/errors"
)

const (
	pbkdf2Iterations = 100_000
	saltSize         = 16
	nonceSize        = 12
)

// KeyStore persists per-peer key material encrypted at rest with a
// user-supplied password, one file per peer under a base directory.
type KeyStore struct {
	dir string
}

// OpenKeyStore returns a KeyStore rooted at dir, creating it if needed.
func OpenKeyStore(dir string) (*KeyStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.IOError("failed to create key store directory", dir, false)
	}
	return &KeyStore{dir: dir}, nil
}

func (ks *KeyStore) path(peerDeviceID string) string {
	return filepath.Join(ks.dir, peerDeviceID+".enc")
}

// Save encrypts keyMaterial under a key derived from password via
// PBKDF2-HMAC-SHA-256 (100k iterations) and seals it with AES-256-GCM.
func (ks *KeyStore) Save(password, peerDeviceID string, keyMaterial []byte) error {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return errors.Internal("failed to generate key store salt").Wrap(err)
	}
	gcm, err := newGCM(password, salt)
	if err != nil {
		return err
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return errors.Internal("failed to generate key store nonce").Wrap(err)
	}
	ciphertext := gcm.Seal(nil, nonce, keyMaterial, nil)

	blob := make([]byte, 0, len(salt)+len(nonce)+len(ciphertext))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, ciphertext...)

	if err := os.WriteFile(ks.path(peerDeviceID), blob, 0600); err != nil {
		return errors.IOError("failed to write peer key material", peerDeviceID, false)
	}
	return nil
}

// Load decrypts the key material previously saved for peerDeviceID.
func (ks *KeyStore) Load(password, peerDeviceID string) ([]byte, error) {
	blob, err := os.ReadFile(ks.path(peerDeviceID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("peer key material", peerDeviceID)
		}
		return nil, errors.IOError("failed to read peer key material", peerDeviceID, false)
	}
	if len(blob) < saltSize+nonceSize {
		return nil, errors.InvalidArgument("corrupt peer key material: " + peerDeviceID)
	}
	salt, nonce, ciphertext := blob[:saltSize], blob[saltSize:saltSize+nonceSize], blob[saltSize+nonceSize:]

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.AuthenticationFailed("failed to decrypt peer key material, wrong password?")
	}
	return plaintext, nil
}

// Delete removes a peer's persisted key material. Safe to call when no
// material exists.
func (ks *KeyStore) Delete(peerDeviceID string) error {
	if err := os.Remove(ks.path(peerDeviceID)); err != nil && !os.IsNotExist(err) {
		return errors.IOError("failed to delete peer key material", peerDeviceID, false)
	}
	return nil
}

func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, 32, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Internal("failed to construct AES cipher").Wrap(err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Internal("failed to construct AES-GCM").Wrap(err)
	}
	return gcm, nil
}
