package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-extras/cobraflags"
	"github.com/jzelinskie/cobrautil/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	v1 "github.com/kubev2v/guest-inspection-agent/api/v1"
	"github.com/kubev2v/guest-inspection-agent/internal/config"
	"github.com/kubev2v/guest-inspection-agent/internal/handlers"
	"github.com/kubev2v/guest-inspection-agent/internal/models"
	"github.com/kubev2v/guest-inspection-agent/internal/server"
	"github.com/kubev2v/guest-inspection-agent/internal/services"
	"github.com/kubev2v/guest-inspection-agent/internal/store"
	"github.com/kubev2v/guest-inspection-agent/internal/store/migrations"
	"github.com/kubev2v/guest-inspection-agent/pkg/eventqueue"
	"github.com/kubev2v/guest-inspection-agent/pkg/guestfs"
	"github.com/kubev2v/guest-inspection-agent/pkg/inspection"
	"github.com/kubev2v/guest-inspection-agent/pkg/libvirt"
	"github.com/kubev2v/guest-inspection-agent/pkg/lock"
	"github.com/kubev2v/guest-inspection-agent/pkg/scheduler"
)

const shutdownTimeout = 10 * time.Second

func NewRunCommand(cfg *config.Configuration) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the inspection agent",
		Long: `Run the inspection agent.

The agent registers the configured libvirt connections, waits for the warm-up
delay and inspects every machine of the local connections once. New machine
definitions are picked up as they appear.`,
		PreRunE: cobrautil.CommandStack(
			cobrautil.SyncViperPreRunE(envPrefix),
			presetFlagsPreRunE,
			func(_ *cobra.Command, _ []string) error {
				return validateConfiguration(cfg)
			},
		),
		RunE: func(cmd *cobra.Command, _ []string) error {
			flush, err := setupLogger(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			defer flush()

			ctx, cancel := newCommandContext(cmd)
			defer cancel()

			return runAgent(ctx, cfg)
		},
	}

	registerRunFlags(cmd.Flags(), cfg)

	return cmd
}

func registerRunFlags(flags *pflag.FlagSet, cfg *config.Configuration) {
	flags.BoolVar(&cfg.Server.Enabled, "server-enabled", cfg.Server.Enabled, "Serve the inspection API")
	flags.IntVar(&cfg.Server.HTTPPort, "server-http-port", cfg.Server.HTTPPort, "Port of the inspection API")
	flags.StringVar(&cfg.Server.ServerMode, "server-mode", cfg.Server.ServerMode, "Server mode: dev (HTTP) or prod (HTTPS with a self-signed certificate)")

	flags.StringSliceVar(&cfg.Agent.Connections, "connection", cfg.Agent.Connections, "libvirt connection URI, repeatable")
	flags.StringVar(&cfg.Agent.LibvirtConfigDir, "libvirt-config-dir", cfg.Agent.LibvirtConfigDir, "libvirt configuration directory of the system connections")
	flags.StringVar(&cfg.Agent.DataFolder, "data-folder", cfg.Agent.DataFolder, "Folder holding the agent lock file")
	flags.DurationVar(&cfg.Agent.WarmupDelay, "warmup-delay", cfg.Agent.WarmupDelay, "Delay before the first inspection pass")
	flags.DurationVar(&cfg.Agent.MachineTimeout, "machine-timeout", cfg.Agent.MachineTimeout, "Maximum duration of one machine inspection, 0 for none")
	flags.BoolVar(&cfg.Agent.Watch, "watch", cfg.Agent.Watch, "Watch the domain directories of local connections")

	flags.StringVar(&cfg.Engine.GuestfishPath, "guestfish-path", cfg.Engine.GuestfishPath, "Path of the guestfish binary")
}

func presetFlagsPreRunE(cmd *cobra.Command, _ []string) error {
	cobraflags.PresetRequiredFlags(envPrefix, make(map[*pflag.Flag]bool), cmd)
	return nil
}

func runAgent(ctx context.Context, cfg *config.Configuration) error {
	logger := zap.S().Named("agent")
	logger.Infow("starting guest inspection agent", "configuration", cfg.DebugMap())

	if err := os.MkdirAll(cfg.Agent.DataFolder, 0o750); err != nil {
		return fmt.Errorf("failed to create data folder: %w", err)
	}
	instanceLock := lock.New(cfg.Agent.DataFolder)
	if err := instanceLock.TryLock(); err != nil {
		return fmt.Errorf("failed to acquire %s: %w", instanceLock.Path(), err)
	}
	defer func() {
		if err := instanceLock.Unlock(); err != nil {
			logger.Warnw("failed to release lock", "path", instanceLock.Path(), "error", err)
		}
	}()

	db, err := store.NewDB(store.InMemory)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := migrations.Run(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	st := store.NewStore(db)
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warnw("failed to close store", "error", err)
		}
	}()

	// one worker: the engine never runs two sessions at once
	sched := scheduler.NewScheduler[models.InspectionResult](1)
	defer sched.Close()

	worker := services.NewInspectionWorker(
		sched,
		eventqueue.New[models.Event](),
		inspection.NewInspector(guestfs.NewEngineFactory(cfg.Engine.GuestfishPath)),
		services.NewMultiReporter(services.NewLogReporter(), services.NewStoreReporter(st)),
	).
		WithWarmupDelay(cfg.Agent.WarmupDelay).
		WithMachineTimeout(cfg.Agent.MachineTimeout)

	connections := make([]*libvirt.Connection, 0, len(cfg.Agent.Connections))
	for _, uri := range cfg.Agent.Connections {
		conn, err := libvirt.Open(uri, cfg.Agent.LibvirtConfigDir)
		if err != nil {
			return fmt.Errorf("failed to open connection %s: %w", uri, err)
		}
		connections = append(connections, conn)
	}

	var srv *server.Server
	if cfg.Server.Enabled {
		h := handlers.New(worker, services.NewInspectionService(st))
		srv, err = server.NewServer(cfg, func(router *gin.RouterGroup) {
			v1.RegisterHandlers(router, h)
		})
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})

	for _, conn := range connections {
		worker.NotifyConnectionAdded(conn)
		if !cfg.Agent.Watch || !conn.IsLocal() {
			continue
		}
		watcher := libvirt.NewWatcher(conn, worker)
		g.Go(func() error {
			if err := watcher.Run(gctx); err != nil {
				logger.Warnw("domain watcher stopped", "uri", conn.URI(), "error", err)
			}
			return nil
		})
	}

	if srv != nil {
		g.Go(func() error {
			logger.Infow("serving inspection api", "port", cfg.Server.HTTPPort, "mode", cfg.Server.ServerMode)
			return srv.Start(gctx)
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			srv.Stop(shutdownCtx)
			return nil
		})
	}

	err = g.Wait()
	logger.Infow("guest inspection agent stopped", "status", worker.Status().State)
	return err
}
