package main

import (
	"clipboard-sync/internal/config"
	"clipboard-sync/internal/logging"
	"clipboard-sync/internal/remote"
	"clipboard-sync/internal/search"
	"clipboard-sync/internal/session"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	verbose    int
	quiet      bool
	apiURL     string
	fuzzy      bool
}

func main() {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "clipctl",
		Short: "Browse and manage clipboard history",
		Long: `clipctl talks to a running clipd. It keeps a live copy of the history,
so list, search and browse always show what the daemon has.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(os.Stderr, opts.verbose, opts.quiet)
		},
	}

	pflags := rootCmd.PersistentFlags()
	pflags.StringVar(&opts.configPath, "config", "", "config file (default: "+config.DefaultPath()+")")
	pflags.CountVarP(&opts.verbose, "verbose", "v", "increase log verbosity")
	pflags.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress all logs")
	pflags.StringVar(&opts.apiURL, "api", "", "daemon URL (overrides config)")
	pflags.BoolVar(&opts.fuzzy, "fuzzy", false, "use fuzzy search")

	rootCmd.AddCommand(
		listCmd(opts),
		searchCmd(opts),
		pinCmd(opts, true),
		pinCmd(opts, false),
		deleteCmd(opts),
		clearCmd(opts),
		captureCmd(opts),
		ignoreCmd(opts),
		copyCmd(opts),
		watchCmd(opts),
		browseCmd(opts),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(opts *options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if opts.apiURL != "" {
		cfg.Client.APIURL = strings.TrimRight(opts.apiURL, "/")
		if cfg.Client.WSURL, err = config.WSURL(cfg.Client.APIURL); err != nil {
			return config.Config{}, err
		}
	}
	if opts.fuzzy {
		cfg.Client.Search.Mode = search.ModeFuzzy
	}
	return cfg, nil
}

// openSession connects a session to the daemon and loads the history. The
// caller must Close it.
func openSession(ctx context.Context, opts *options) (*session.Session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	push := remote.NewPushSource(cfg.Client.WSURL)
	sess := session.New(
		remote.NewClient(cfg.Client.APIURL, nil),
		push,
		session.Options{
			LoadLimit:      cfg.Client.LoadLimit,
			CommandTimeout: cfg.Client.CommandTimeout,
			Search:         cfg.Client.Search,
		},
	)
	// Pushes sent while disconnected are lost
	push.OnReconnect = func() {
		go func() {
			if _, err := sess.LoadRecent(context.Background(), 0); err != nil {
				slog.Warn("reload after reconnect failed", "error", err)
			}
		}()
	}

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := sess.Start(startCtx); err != nil {
		sess.Close()
		return nil, fmt.Errorf("cannot reach clipd at %s: %w", cfg.Client.APIURL, err)
	}
	return sess, nil
}
