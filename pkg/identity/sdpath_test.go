package identity

import "testing"

func TestSdPath_PhysicalRoundTrip(t *testing.T) {
	p := Physical("device-1", "/mnt/data/file.txt")
	if !p.IsPhysical() || p.IsContent() {
		t.Fatal("expected Physical variant")
	}
	deviceID, path, err := p.AsPhysical()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deviceID != "device-1" || path != "/mnt/data/file.txt" {
		t.Errorf("unexpected physical fields: %q %q", deviceID, path)
	}
	if _, err := p.AsContent(); err == nil {
		t.Error("expected error calling AsContent on a Physical SdPath")
	}
}

func TestSdPath_ContentRoundTrip(t *testing.T) {
	p := Content("v1_full:deadbeef")
	if !p.IsContent() || p.IsPhysical() {
		t.Fatal("expected Content variant")
	}
	contentID, err := p.AsContent()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if contentID != "v1_full:deadbeef" {
		t.Errorf("unexpected content id: %q", contentID)
	}
	if _, _, err := p.AsPhysical(); err == nil {
		t.Error("expected error calling AsPhysical on a Content SdPath")
	}
}
