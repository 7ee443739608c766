package pairing

import (
	"bytes"
	"testing"
)

func TestKeyStore_SaveLoadRoundTrip(t *testing.T) {
	ks, err := OpenKeyStore(t.TempDir())
	if err != nil {
		t.Fatalf("open key store: %v", err)
	}
	material := []byte("super secret session key material")
	if err := ks.Save("correct horse battery staple", "peer-1", material); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := ks.Load("correct horse battery staple", "peer-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !bytes.Equal(got, material) {
		t.Errorf("loaded material %q != saved %q", got, material)
	}
}

func TestKeyStore_LoadWithWrongPasswordFails(t *testing.T) {
	ks, err := OpenKeyStore(t.TempDir())
	if err != nil {
		t.Fatalf("open key store: %v", err)
	}
	if err := ks.Save("right-password", "peer-1", []byte("data")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := ks.Load("wrong-password", "peer-1"); err == nil {
		t.Fatal("expected error decrypting with wrong password")
	}
}

func TestKeyStore_LoadMissingPeerReturnsNotFound(t *testing.T) {
	ks, err := OpenKeyStore(t.TempDir())
	if err != nil {
		t.Fatalf("open key store: %v", err)
	}
	if _, err := ks.Load("pw", "nonexistent"); err == nil {
		t.Fatal("expected error loading nonexistent peer")
	}
}

func TestKeyStore_DeleteRemovesMaterial(t *testing.T) {
	ks, err := OpenKeyStore(t.TempDir())
	if err != nil {
		t.Fatalf("open key store: %v", err)
	}
	if err := ks.Save("pw", "peer-1", []byte("data")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := ks.Delete("peer-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := ks.Load("pw", "peer-1"); err == nil {
		t.Fatal("expected error loading deleted peer")
	}
}

func TestKeyStore_DeleteIsIdempotent(t *testing.T) {
	ks, err := OpenKeyStore(t.TempDir())
	if err != nil {
		t.Fatalf("open key store: %v", err)
	}
	if err := ks.Delete("never-existed"); err != nil {
		t.Fatalf("delete of nonexistent peer should not error, got: %v", err)
	}
}
