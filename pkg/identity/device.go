// Package identity holds the local device's identity and the SdPath
// abstraction used to address files across devices.
package identity

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/spacecore/spacecore/pkg/errors"
)

// Device is this process's persistent identity: a stable UUID, a
// human-readable name, an Ed25519 signing keypair, and a filesystem-safe
// slug derived from the name. Created once on first start and retained for
// the process lifetime; identity files are rewritten only on name change.
type Device struct {
	UUID       string `json:"uuid"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	PublicKey  []byte `json:"public_key"`
	PrivateKey []byte `json:"private_key"`
}

// identityFile is the on-disk, serializable form of Device.
type identityFile struct {
	UUID       string `json:"uuid"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	PublicKey  string `json:"public_key"`  // hex
	PrivateKey string `json:"private_key"` // hex
}

// LoadOrCreate reads the device identity from path, creating a new one
// (with a fresh UUID and Ed25519 keypair) if the file does not exist.
func LoadOrCreate(path string, name string) (*Device, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return decodeIdentity(data)
	}
	if !os.IsNotExist(err) {
		return nil, errors.IOError("failed to read device identity", path, false)
	}

	device, genErr := newDevice(name)
	if genErr != nil {
		return nil, genErr
	}
	if err := device.save(path); err != nil {
		return nil, err
	}
	return device, nil
}

func newDevice(name string) (*Device, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, errors.Internal("failed to generate device signing key").Wrap(err)
	}
	return &Device{
		UUID:       uuid.New().String(),
		Name:       name,
		Slug:       Slugify(name),
		PublicKey:  pub,
		PrivateKey: priv,
	}, nil
}

// Rename updates the device's name and slug and rewrites the identity file.
// The UUID and keypair are unchanged.
func (d *Device) Rename(path, newName string) error {
	d.Name = newName
	d.Slug = Slugify(newName)
	return d.save(path)
}

// Sign produces an Ed25519 signature over message using the device's
// private key.
func (d *Device) Sign(message []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(d.PrivateKey), message)
}

func (d *Device) save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.IOError("failed to create identity directory", path, false)
	}
	data, err := encodeIdentity(d)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.IOError("failed to write device identity", path, false)
	}
	return nil
}

func encodeIdentity(d *Device) ([]byte, error) {
	f := identityFile{
		UUID:       d.UUID,
		Name:       d.Name,
		Slug:       d.Slug,
		PublicKey:  hex.EncodeToString(d.PublicKey),
		PrivateKey: hex.EncodeToString(d.PrivateKey),
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, errors.Internal("failed to encode device identity").Wrap(err)
	}
	return data, nil
}

func decodeIdentity(data []byte) (*Device, error) {
	var f identityFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.InvalidArgument("malformed device identity file")
	}
	pub, err := hex.DecodeString(f.PublicKey)
	if err != nil {
		return nil, errors.InvalidArgument("malformed device public key")
	}
	priv, err := hex.DecodeString(f.PrivateKey)
	if err != nil {
		return nil, errors.InvalidArgument("malformed device private key")
	}
	return &Device{UUID: f.UUID, Name: f.Name, Slug: f.Slug, PublicKey: pub, PrivateKey: priv}, nil
}

var slugInvalidChars = regexp.MustCompile(`[^a-z0-9-]+`)
var slugCollapseDashes = regexp.MustCompile(`-+`)

// Slugify converts a human-readable device name into a filesystem-safe slug.
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "-")
	s = slugInvalidChars.ReplaceAllString(s, "-")
	s = slugCollapseDashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		s = "device"
	}
	return s
}
