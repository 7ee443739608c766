package identity

import (
	"path/filepath"
	"testing"
)

func TestLoadOrCreate_CreatesNewIdentity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")

	device, err := LoadOrCreate(path, "my-laptop")
	if err != nil {
		t.Fatalf("failed to create identity: %v", err)
	}
	if device.UUID == "" {
		t.Error("expected non-empty UUID")
	}
	if device.Slug != "my-laptop" {
		t.Errorf("expected slug 'my-laptop', got %q", device.Slug)
	}
	if len(device.PublicKey) == 0 || len(device.PrivateKey) == 0 {
		t.Error("expected a generated keypair")
	}
}

func TestLoadOrCreate_ReloadsExistingIdentity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")

	first, err := LoadOrCreate(path, "my-laptop")
	if err != nil {
		t.Fatalf("failed to create identity: %v", err)
	}

	second, err := LoadOrCreate(path, "ignored-name")
	if err != nil {
		t.Fatalf("failed to reload identity: %v", err)
	}

	if second.UUID != first.UUID {
		t.Errorf("expected stable UUID across reloads, got %q then %q", first.UUID, second.UUID)
	}
	if second.Name != "my-laptop" {
		t.Errorf("expected reload to preserve persisted name, got %q", second.Name)
	}
}

func TestRename_UpdatesNameAndSlug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")
	device, err := LoadOrCreate(path, "old-name")
	if err != nil {
		t.Fatalf("failed to create identity: %v", err)
	}
	originalUUID := device.UUID

	if err := device.Rename(path, "New Name!!"); err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if device.Slug != "new-name" {
		t.Errorf("expected slug 'new-name', got %q", device.Slug)
	}
	if device.UUID != originalUUID {
		t.Error("expected UUID to remain stable across rename")
	}

	reloaded, err := LoadOrCreate(path, "unused")
	if err != nil {
		t.Fatalf("failed to reload after rename: %v", err)
	}
	if reloaded.Name != "New Name!!" {
		t.Errorf("expected persisted rename, got %q", reloaded.Name)
	}
}

func TestSign_ProducesVerifiableSignature(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.json")
	device, err := LoadOrCreate(path, "signer")
	if err != nil {
		t.Fatalf("failed to create identity: %v", err)
	}

	msg := []byte("challenge nonce")
	sig := device.Sign(msg)
	if len(sig) == 0 {
		t.Error("expected a non-empty signature")
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"My Laptop":     "my-laptop",
		"  spaced  ":    "spaced",
		"Weird!@#Chars": "weird-chars",
		"":               "device",
	}
	for input, want := range cases {
		if got := Slugify(input); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", input, got, want)
		}
	}
}
