//go:build integration

package indexer

import (
	"context"
	"testing"

	"github.com/spacecore/spacecore/pkg/store"
)

func createTestStore(t *testing.T) *store.GORMStore {
	t.Helper()
	s, err := store.New(&store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: ":memory:"},
	})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	return s
}

func createTestLocation(t *testing.T, st *store.GORMStore, name string) *store.Location {
	t.Helper()
	ctx := context.Background()
	deviceID, err := st.CreateDevice(ctx, &store.Device{Name: "test-device", Slug: name + "-device", PublicKey: []byte("k")})
	if err != nil {
		t.Fatalf("create device: %v", err)
	}
	device, err := st.GetDevice(ctx, deviceID)
	if err != nil {
		t.Fatalf("get device: %v", err)
	}
	locID, err := st.CreateLocation(ctx, &store.Location{DeviceID: device.ID, Name: name})
	if err != nil {
		t.Fatalf("create location: %v", err)
	}
	loc, err := st.GetLocation(ctx, locID)
	if err != nil {
		t.Fatalf("get location: %v", err)
	}
	return loc
}
