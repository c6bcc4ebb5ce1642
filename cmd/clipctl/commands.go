package main

import (
	"clipboard-sync/internal/session"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	sysclip "github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

// withSession opens a session for the duration of fn.
func withSession(cmd *cobra.Command, opts *options, fn func(ctx context.Context, sess *session.Session) error) error {
	ctx := cmd.Context()
	sess, err := openSession(ctx, opts)
	if err != nil {
		return err
	}
	defer sess.Close()
	return fn(ctx, sess)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid clip id %q", arg)
	}
	return id, nil
}

func listCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show pinned and recent clips",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, sess *session.Session) error {
				printState(cmd.OutOrStdout(), sess.State())
				return nil
			})
		},
	}
}

func searchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Show clips matching a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, sess *session.Session) error {
				sess.SetQuery(strings.Join(args, " "))
				printState(cmd.OutOrStdout(), sess.State())
				return nil
			})
		},
	}
}

func pinCmd(opts *options, pinned bool) *cobra.Command {
	use, short := "pin <id>", "Pin a clip"
	if !pinned {
		use, short = "unpin <id>", "Unpin a clip"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, opts, func(ctx context.Context, sess *session.Session) error {
				return sess.TogglePin(ctx, id, pinned)
			})
		},
	}
}

func deleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete clips",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			return withSession(cmd, opts, func(ctx context.Context, sess *session.Session) error {
				var errs []error
				for _, id := range ids {
					errs = append(errs, sess.Delete(ctx, id))
				}
				return errors.Join(errs...)
			})
		},
	}
}

func clearCmd(opts *options) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the whole history, pinned clips included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear history without --yes")
			}
			return withSession(cmd, opts, func(ctx context.Context, sess *session.Session) error {
				return sess.ClearAll(ctx)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm clearing")
	return cmd
}

func captureCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "capture",
		Short: "Store the current clipboard content now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, sess *session.Session) error {
				clip, err := sess.CaptureCurrent(ctx)
				if err != nil {
					return err
				}
				if clip == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "Clipboard is empty")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Captured clip %d: %s\n", clip.ID, preview(*clip, maxPreviewLength))
				return nil
			})
		},
	}
}

func ignoreCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ignore <content>",
		Short: "Tell the daemon not to capture the next copy of content",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, sess *session.Session) error {
				return sess.IgnoreNext(ctx, strings.Join(args, " "))
			})
		},
	}
}

func copyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "copy <id>",
		Short: "Put a clip back on the clipboard without recapturing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, opts, func(ctx context.Context, sess *session.Session) error {
				return copyClip(ctx, sess, id)
			})
		},
	}
}

// copyClip writes a cached clip to the system clipboard, asking the daemon
// to skip the resulting update.
func copyClip(ctx context.Context, sess *session.Session, id int64) error {
	clip, ok := sess.Lookup(id)
	if !ok {
		return fmt.Errorf("no clip with id %d", id)
	}
	if err := sess.IgnoreNext(ctx, clip.Content); err != nil {
		return err
	}
	if err := sysclip.WriteAll(clip.Content); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	return nil
}

func watchCmd(opts *options) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print every change to the history until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(ctx context.Context, sess *session.Session) error {
				out := cmd.OutOrStdout()
				sess.SetQuery(query)
				unwatch := sess.Watch(func(st session.State) {
					fmt.Fprintln(out, summary(st))
				})
				defer unwatch()

				sigChan := make(chan os.Signal, 1)
				signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
				defer signal.Stop(sigChan)

				select {
				case <-sigChan:
					return nil
				case <-sess.Done():
					return errors.New("push connection closed")
				}
			})
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "filter with this query")
	return cmd
}
