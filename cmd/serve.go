package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/grovetools/framefill/cli"
	"github.com/grovetools/framefill/config"
	"github.com/grovetools/framefill/internal/bridge"
	"github.com/grovetools/framefill/internal/daemon/collector"
	"github.com/grovetools/framefill/internal/daemon/engine"
	"github.com/grovetools/framefill/internal/daemon/pidfile"
	"github.com/grovetools/framefill/internal/daemon/server"
	"github.com/grovetools/framefill/internal/daemon/store"
	"github.com/grovetools/framefill/internal/session"
	"github.com/grovetools/framefill/logging"
	"github.com/grovetools/framefill/pkg/alert"
	"github.com/grovetools/framefill/pkg/daemon"
	"github.com/grovetools/framefill/pkg/detect"
	"github.com/grovetools/framefill/pkg/geometry"
	"github.com/grovetools/framefill/pkg/paths"
	"github.com/grovetools/framefill/version"
)

// NewServeCmd returns the daemon command with subcommands. find backs
// /api/detect; the endpoint is disabled when it is nil.
func NewServeCmd(find detect.Func) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the framefill daemon",
		Long: `The daemon holds the open collections, talks to the host plugin over a
websocket and reconciles collections with the document and the filesystem.`,
	}

	cmd.AddCommand(newServeStartCmd(find))
	cmd.AddCommand(newServeStopCmd())
	cmd.AddCommand(newServeStatusCmd())

	return cmd
}

func pidPath(cfg *config.Config) string {
	if cfg.Server.PidFile != "" {
		return cfg.Server.PidFile
	}
	return paths.PidFilePath()
}

func newServeStartCmd(find detect.Func) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.NewLogger("framefilld")
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			if err := paths.EnsureDirs(); err != nil {
				return err
			}
			pid := pidPath(cfg)

			// 1. Acquire Lock
			if err := pidfile.Acquire(pid); err != nil {
				return err
			}
			defer func() {
				if err := pidfile.Release(pid); err != nil {
					logger.Errorf("Failed to release pidfile: %v", err)
				}
			}()

			// 2. Store, host bridge and session
			st := store.New()
			hub := bridge.NewHub(nil)
			sess, err := session.New(cfg, session.Deps{
				Document: hub,
				Tokens:   hub,
				Notifier: alert.Multi{hub, st, alert.NewLogNotifier()},
				Store:    st,
			})
			if err != nil {
				return err
			}
			hub.SetHandler(bridge.SessionHandler(sess))
			reg := sess.Registry()

			// 3. Engine with the drift collectors
			eng := engine.New(st, logger)
			eng.Register(collector.NewDocumentDriftCollector(reg, hub, cfg.Reconcile.DocumentEvery()))
			eng.Register(collector.NewFolderDriftCollector(reg, cfg.Reconcile.FolderEvery()))
			if cfg.Reconcile.Watch {
				eng.Register(collector.NewFolderWatchCollector(reg, cfg.Reconcile.DebounceWindow()))
			}

			// 4. Server
			srv := server.New(logger)
			srv.SetEngine(eng)
			srv.SetRegistry(reg)
			srv.SetHost(hub)
			if find != nil {
				srv.SetDetector(func(data []byte) ([]geometry.Rect, error) {
					return find(data, detect.DefaultOptions())
				})
			}
			srv.SetRunningConfig(&server.RunningConfig{
				Version:          version.GetInfo().Short(),
				Listen:           cfg.Server.Listen,
				FitPolicy:        cfg.Placement.FitPolicy,
				Mismatch:         cfg.Placement.Mismatch,
				MaxOpen:          cfg.Collections.MaxOpen,
				DocumentInterval: cfg.Reconcile.DocumentEvery(),
				FolderInterval:   cfg.Reconcile.FolderEvery(),
				Watch:            cfg.Reconcile.Watch,
				Collectors:       eng.Collectors(),
				StartedAt:        time.Now(),
			})

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			// 5. Config watcher
			cwd, _ := os.Getwd()
			if watcher, err := daemon.NewConfigWatcher(cwd, 0, func(file string, _ *config.Config, err error) {
				if err != nil {
					st.Notify("Configuration", err.Error())
					return
				}
				logger.WithField("file", file).Info("Configuration changed; restart the daemon to apply it")
				st.BroadcastConfigReload(file)
			}); err != nil {
				logger.WithError(err).Warn("Config watcher disabled")
			} else {
				go watcher.Start(ctx)
			}

			// 6. Handle Signals
			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-stop
				logger.Info("Received stop signal")
				cancel()

				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Errorf("Server shutdown error: %v", err)
				}
			}()

			// 7. Engine and host relay in background
			go eng.Start(ctx)
			go hub.Relay(ctx, st)

			// 8. Server (blocking)
			logger.WithField("pid", os.Getpid()).Info("Starting daemon")
			return srv.ListenAndServe(cfg.Server.Listen)
		},
	}
}

func newServeStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}

			running, pid, err := pidfile.IsRunning(pidPath(cfg))
			if err != nil {
				return fmt.Errorf("error checking status: %w", err)
			}
			if !running {
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
				return nil
			}

			process, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("failed to find process %d: %w", pid, err)
			}
			if err := process.Signal(syscall.SIGTERM); err != nil {
				return fmt.Errorf("failed to send stop signal: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Sent SIGTERM to process %d\n", pid)
			return nil
		},
	}
}

func newServeStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			running, pid, err := pidfile.IsRunning(pidPath(cfg))
			if err != nil {
				return fmt.Errorf("error: %w", err)
			}
			if !running {
				fmt.Fprintln(cmd.OutOrStdout(), "Stopped")
				os.Exit(1) // non-zero for scripts
			}

			client := daemon.NewClient(listenAddr(cfg))
			defer client.Close()

			p := cli.Pretty(cmd)
			if !client.IsRunning() {
				p.Field("pid", pid)
				p.WarnPretty("process is alive but the API does not respond")
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			active, err := client.Config(ctx)
			if err != nil {
				return err
			}
			state, err := client.State(ctx)
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return cli.PrintJSON(cmd, map[string]interface{}{"pid": pid, "config": active, "state": state})
			}
			p.Field("pid", pid)
			p.Field("version", active.Version)
			p.Field("listen", active.Listen)
			p.Field("uptime", time.Since(active.StartedAt).Round(time.Second))
			for _, name := range active.Collectors {
				status := state.Collectors[name]
				line := string(status.State)
				if status.Restarts > 0 {
					line += fmt.Sprintf(" (%d restarts, last error: %s)", status.Restarts, status.LastError)
				}
				p.Field("collector "+name, line)
			}
			p.Field("collections", len(state.Collections))
			p.Field("released", state.Reconcile.Released)
			p.Field("refreshed", state.Reconcile.Refreshed)
			return nil
		},
	}
}
