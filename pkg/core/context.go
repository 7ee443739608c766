// Package core assembles the process-wide singletons — device identity,
// store, event bus, volume registry — into a single Context handle that
// every action and query receives explicitly. There is no package-level
// ambient state: two Contexts in the same process are fully independent.
package core

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spacecore/spacecore/internal/logger"
	"github.com/spacecore/spacecore/pkg/config"
	"github.com/spacecore/spacecore/pkg/errors"
	"github.com/spacecore/spacecore/pkg/eventbus"
	"github.com/spacecore/spacecore/pkg/identity"
	"github.com/spacecore/spacecore/pkg/store"
	"github.com/spacecore/spacecore/pkg/volume"
)

// Context is the handle passed to every action and query: this device's
// identity, the relational store, the event bus, and the volume registry.
type Context struct {
	Config   *config.AppConfig
	Device   *identity.Device
	Store    store.Store
	Bus      *eventbus.Bus
	Volumes  *volume.Registry

	startedAt time.Time
}

// New assembles a Context from a loaded configuration. It opens the
// store, loads or creates the device identity, and wires the event bus
// and volume registry, but does not start any background goroutines —
// callers invoke Start for that once the Context is fully constructed.
func New(cfg *config.AppConfig) (*Context, error) {
	storeCfg := &store.Config{
		Type: store.DatabaseType(cfg.Database.Type),
		SQLite: store.SQLiteConfig{
			Path: cfg.Database.SQLite.Path,
		},
		Postgres: store.PostgresConfig{
			Host:         cfg.Database.Postgres.Host,
			Port:         cfg.Database.Postgres.Port,
			Database:     cfg.Database.Postgres.Database,
			User:         cfg.Database.Postgres.User,
			Password:     cfg.Database.Postgres.Password,
			SSLMode:      cfg.Database.Postgres.SSLMode,
			MaxOpenConns: cfg.Database.Postgres.MaxOpenConns,
			MaxIdleConns: cfg.Database.Postgres.MaxIdleConns,
		},
	}
	storeCfg.ApplyDefaults()
	if err := storeCfg.Validate(); err != nil {
		return nil, err
	}

	db, err := store.New(storeCfg)
	if err != nil {
		return nil, err
	}

	identityPath := filepath.Join(cfg.DataDir, "identity.json")
	device, err := identity.LoadOrCreate(identityPath, cfg.Daemon.DeviceName)
	if err != nil {
		db.Close()
		return nil, err
	}

	bus := eventbus.New()
	probe := volume.NewDefaultProbe(device.UUID)
	volumes := volume.NewRegistry(db, probe, device.UUID)

	return &Context{
		Config:  cfg,
		Device:  device,
		Store:   db,
		Bus:     bus,
		Volumes: volumes,
	}, nil
}

// Start records process start and publishes CoreStarted. It must be
// called exactly once, after all subsystems depending on the Context
// (job scheduler, sync engine, daemon server) have subscribed to the bus.
func (c *Context) Start(ctx context.Context) error {
	if !c.startedAt.IsZero() {
		return errors.AlreadyRunning("core-context")
	}
	c.startedAt = time.Now()

	local, err := c.ensureLocalDeviceRow(ctx)
	if err != nil {
		return err
	}
	logger.Info("core started", "device_id", local.UUID, "device_name", local.Name)

	c.Bus.Publish(ctx, eventbus.Event{
		Kind:      eventbus.KindCoreStarted,
		EmittedAt: c.startedAt,
		Core:      &eventbus.CoreEvent{Reason: "startup"},
	})
	return nil
}

// ensureLocalDeviceRow upserts a store.Device row for this process's
// identity, marking it as the local device.
func (c *Context) ensureLocalDeviceRow(ctx context.Context) (*store.Device, error) {
	existing, err := c.Store.GetDevice(ctx, c.Device.UUID)
	if err == nil {
		return existing, nil
	}
	if !errors.IsNotFound(err) {
		return nil, err
	}

	row := &store.Device{
		UUID:      c.Device.UUID,
		Name:      c.Device.Name,
		Slug:      c.Device.Slug,
		PublicKey: c.Device.PublicKey,
		IsLocal:   true,
	}
	if _, err := c.Store.CreateDevice(ctx, row); err != nil {
		return nil, err
	}
	return c.Store.GetDevice(ctx, c.Device.UUID)
}

// Shutdown publishes a Shutdown event and releases store resources. Job
// draining and connection teardown are the caller's responsibility
// (they run with cfg.ShutdownTimeout before this is invoked).
func (c *Context) Shutdown(ctx context.Context, reason string) error {
	c.Bus.Publish(ctx, eventbus.Event{
		Kind:      eventbus.KindShutdown,
		EmittedAt: time.Now(),
		Core:      &eventbus.CoreEvent{Reason: reason},
	})
	return c.Store.Close()
}

// Uptime returns how long this Context has been running, or zero if
// Start has not been called.
func (c *Context) Uptime() time.Duration {
	if c.startedAt.IsZero() {
		return 0
	}
	return time.Since(c.startedAt)
}
