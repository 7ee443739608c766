package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spacecore/spacecore/internal/logger"
	"github.com/spacecore/spacecore/internal/telemetry"
	"github.com/spacecore/spacecore/pkg/config"
	"github.com/spacecore/spacecore/pkg/core"
	"github.com/spacecore/spacecore/pkg/daemon"
	"github.com/spacecore/spacecore/pkg/identity"
	"github.com/spacecore/spacecore/pkg/indexer"
	"github.com/spacecore/spacecore/pkg/job"
	"github.com/spacecore/spacecore/pkg/job/copyjob"
	"github.com/spacecore/spacecore/pkg/metrics"
	"github.com/spacecore/spacecore/pkg/pairing"
	"github.com/spacecore/spacecore/pkg/registry"
	"github.com/spacecore/spacecore/pkg/resolver"
	"github.com/spacecore/spacecore/pkg/sync"
	"github.com/spf13/cobra"
)

var (
	foreground bool
	pidFile    string
	logFile    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the spacecore daemon",
	Long: `Start the spacecore daemon, which indexes files, runs scheduled jobs,
and serves requests from spacecore CLI commands over a local Unix socket.

By default, the daemon runs in the background. Use --foreground to run
in the foreground for debugging or when managed by a process supervisor.

Examples:
  # Start in background (default)
  spacecore start

  # Start in foreground
  spacecore start --foreground

  # Start with custom config file
  spacecore start --config /etc/spacecore/config.yaml`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in foreground (default: background/daemon mode)")
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/spacecore/spacecore.pid)")
	startCmd.Flags().StringVar(&logFile, "log-file", "", "Path to log file for daemon mode (default: $XDG_STATE_HOME/spacecore/spacecore.log)")
}

func runStart(cmd *cobra.Command, args []string) error {
	if !foreground {
		return startDaemon()
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "spacecore",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "spacecore",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	logger.Info("log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("telemetry disabled")
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	}

	coreCtx, err := core.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize core context: %w", err)
	}

	jobMetrics := metrics.NewJobMetrics()
	scheduler := job.New(coreCtx.Store, coreCtx.Bus, cfg.Jobs.WorkerPoolSize, jobMetrics)

	syncBuffer, err := sync.OpenEventBuffer(filepath.Join(cfg.DataDir, "sync-buffer.db"), cfg.Sync.BufferSize)
	if err != nil {
		return fmt.Errorf("failed to open sync event buffer: %w", err)
	}
	defer func() { _ = syncBuffer.Close() }()

	peers := sync.NewEngine(coreCtx.Device, coreCtx.Store, coreCtx.Bus, syncBuffer, sync.Config{
		LiveEventRetry: cfg.Sync.LiveEventRetry,
		Metrics:        metrics.NewSyncMetrics(),
	})

	res := resolver.New(coreCtx.Store, peers, coreCtx.Device.UUID)

	blankCopyFactory := func(state []byte) (job.Job, error) {
		return copyjob.New(res, coreCtx.Volumes, nil, identity.SdPath{}, copyjob.Options{}), nil
	}
	scheduler.RegisterFactory("file.copy", blankCopyFactory)
	scheduler.RegisterFactory("file.move", blankCopyFactory)
	scheduler.RegisterFactory("index.location", func(state []byte) (job.Job, error) {
		return indexer.New(coreCtx.Store, 0, "", "", indexer.Options{}), nil
	})

	keyStore, err := pairing.OpenKeyStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open pairing key store: %w", err)
	}
	pairingMgr := pairing.NewManager(
		coreCtx.Device, coreCtx.Store, keyStore, coreCtx.Bus,
		keystorePassword(coreCtx.Device),
		cfg.Pairing.ListenPortMin, cfg.Pairing.ListenPortMax,
		cfg.Pairing.MessageTimeout, cfg.Pairing.CodeExpiration,
		metrics.NewPairingMetrics(),
	)

	if err := coreCtx.Start(ctx); err != nil {
		return fmt.Errorf("failed to start core context: %w", err)
	}
	peers.Start(ctx)
	if err := scheduler.ResumeAll(ctx); err != nil {
		logger.Warn("failed to resume some jobs", "error", err)
	}

	reg := registry.New()
	registry.RegisterCoreMethods(reg)

	rc := &registry.RequestContext{
		Core:     coreCtx,
		Jobs:     scheduler,
		Pairing:  pairingMgr,
		Sync:     peers,
		Resolver: res,
	}

	socketPath := cfg.Daemon.SocketPath
	if socketPath == "" {
		socketPath = resolveSocketPath()
	}
	srv := daemon.NewServer(socketPath, reg, rc, coreCtx.Bus)

	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("spacecore daemon is running", "socket", socketPath)
	fmt.Printf("spacecore daemon listening on %s\n", socketPath)

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received, initiating graceful shutdown")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Error("daemon shutdown error", "error", err)
		}
		scheduler.Shutdown(cfg.ShutdownTimeout)
		peers.Stop()
		if err := coreCtx.Shutdown(shutdownCtx, "signal"); err != nil {
			logger.Error("core shutdown error", "error", err)
			return err
		}
		logger.Info("spacecore daemon stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("daemon server error", "error", err)
			return err
		}
		logger.Info("spacecore daemon stopped")
	}

	return nil
}

// keystorePassword derives the pairing key store's encryption password
// from the device's own private key material, so it never needs separate
// management or prompting: the store is only ever read back by this same
// device process.
func keystorePassword(device *identity.Device) string {
	return fmt.Sprintf("%x", device.PrivateKey)
}
