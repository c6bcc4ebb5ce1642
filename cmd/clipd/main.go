package main

import (
	"clipboard-sync/internal/clipboard"
	"clipboard-sync/internal/config"
	"clipboard-sync/internal/logging"
	"clipboard-sync/internal/remote"
	"clipboard-sync/internal/server"
	"clipboard-sync/internal/service"
	"clipboard-sync/internal/storage"
	"clipboard-sync/internal/storage/sqlite"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	verbose    int
	quiet      bool
	dbPath     string
	listen     string
}

func main() {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "clipd",
		Short: "Clipboard history daemon",
		Long: `clipd watches the system clipboard, keeps the history in SQLite and
serves it to clients over HTTP, pushing changes on a websocket.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(os.Stderr, opts.verbose, opts.quiet)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}

	pflags := rootCmd.PersistentFlags()
	pflags.StringVar(&opts.configPath, "config", "", "config file (default: "+config.DefaultPath()+")")
	pflags.CountVarP(&opts.verbose, "verbose", "v", "increase log verbosity")
	pflags.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress all logs")
	rootCmd.Flags().StringVar(&opts.dbPath, "db", "", "database path")
	rootCmd.Flags().StringVar(&opts.listen, "listen", "", "listen address (host:port)")

	rootCmd.AddCommand(stopCmd(opts), statusCmd(opts))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(opts *options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if opts.dbPath != "" {
		cfg.Daemon.DBPath = opts.dbPath
	}
	if opts.listen != "" {
		cfg.Daemon.Listen = opts.listen
	}
	return cfg, nil
}

func run(opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	pid, err := server.NewPIDFile(cfg.Daemon.PIDPath)
	if err != nil {
		return err
	}
	if err := pid.Acquire(); err != nil {
		return err
	}
	defer pid.Remove()

	// Initialize storage
	store, err := sqlite.New(storage.Config{DBPath: cfg.Daemon.DBPath})
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	// Initialize monitor
	monitor := clipboard.NewMonitor(clipboard.Config{
		PollInterval: cfg.Daemon.PollInterval,
		DedupeWindow: cfg.Daemon.DedupeWindow,
		IgnoreWindow: cfg.Daemon.IgnoreWindow,
	})

	clipService := service.New(monitor, store, service.Config{MaxHistory: cfg.Daemon.MaxHistory})
	srv := server.New(clipService, server.Config{Addr: cfg.Daemon.Listen})

	// Create and start clipboard service
	if err := clipService.Start(); err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		clipService.Stop()
		return err
	}

	slog.Info("clipboard daemon started",
		"addr", srv.Addr(),
		"database", cfg.Daemon.DBPath,
		"max_history", cfg.Daemon.MaxHistory)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	// Clean shutdown
	slog.Info("shutting down", "signal", sig.String())
	if err := srv.Stop(); err != nil {
		slog.Error("error stopping server", "error", err)
	}
	if err := clipService.Stop(); err != nil {
		slog.Error("error stopping service", "error", err)
	}
	return nil
}

func stopCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			pidFile, err := server.NewPIDFile(cfg.Daemon.PIDPath)
			if err != nil {
				return err
			}
			pid, err := pidFile.Running()
			if err != nil {
				return err
			}
			if pid == 0 {
				return errors.New("daemon is not running")
			}
			if err := server.KillProcess(pid); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stopped clipd (pid %d)\n", pid)
			return nil
		},
	}
}

func statusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the daemon is running and reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			pidFile, err := server.NewPIDFile(cfg.Daemon.PIDPath)
			if err != nil {
				return err
			}
			pid, err := pidFile.Running()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if pid == 0 {
				fmt.Fprintln(out, "clipd: not running")
			} else {
				fmt.Fprintf(out, "clipd: running (pid %d)\n", pid)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
			defer cancel()
			status, err := remote.NewClient(cfg.Client.APIURL, nil).Status(ctx)
			if err != nil {
				return fmt.Errorf("api %s unreachable: %w", cfg.Client.APIURL, err)
			}
			fmt.Fprintf(out, "api: %s at %s, %s push clients\n", status["status"], status["addr"], status["clients"])
			return nil
		},
	}
}
