package cli

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/pribylovaa/go-feed-comments/internal/bootstrap"
	"github.com/pribylovaa/go-feed-comments/internal/config"
	"github.com/pribylovaa/go-feed-comments/internal/engine"
	"github.com/pribylovaa/go-feed-comments/internal/models"
	"github.com/pribylovaa/go-feed-comments/internal/service"
	"github.com/pribylovaa/go-feed-comments/pkg/log"
)

// WatchOptions — флаги watch.
type WatchOptions struct {
	*RootOptions
	Interval time.Duration
}

func newWatchCommand(root *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: root}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the latest page, then follow new comments",
		Long: `Load the latest page and poll the feed for new comments until interrupted.
In text format new comments are printed as lines; json and yaml print one
document per batch.

Examples:
  feedctl watch
  feedctl watch --interval 2s --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts)
		},
	}

	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "poll interval (default sync.poll_interval)")

	return cmd
}

// batchPrinter печатает записи, приходящие из хуков движка.
type batchPrinter struct {
	mu     sync.Mutex
	w      io.Writer
	format string
	now    func() time.Time
}

func (p *batchPrinter) print(entries []models.Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	views := make([]entryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, newEntryView(e))
	}

	if p.format == FormatText {
		_ = renderLines(p.w, views, p.now())
		return
	}

	for _, v := range views {
		_ = renderEntry(p.w, p.format, v, p.now())
	}
}

func runWatch(cmd *cobra.Command, opts *WatchOptions) error {
	if opts.Interval < 0 {
		return NewExitError(ExitCommandError, "--interval must be >= 0")
	}

	ctx := log.Into(cmd.Context(), opts.logger(cmd.ErrOrStderr()))

	printer := &batchPrinter{w: cmd.OutOrStdout(), format: opts.Format, now: opts.now}

	hooks := engine.Hooks{
		OnRead: func(ev engine.ReadEvent) {
			if ev.Source == engine.SourceLive {
				printer.print(ev.Entries)
			}
		},
	}

	if opts.Interval > 0 {
		opts.open = withInterval(opts.open, opts.Interval)
	}

	app, _, err := opts.openApp(ctx, hooks)
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	if _, err := app.Service.Load(ctx); err != nil {
		return WrapExitError(ExitFailure, "failed to load comments", err)
	}

	entries, err := app.Service.List(ctx, service.ListInput{})
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list comments", err)
	}

	printer.mu.Lock()
	err = renderList(printer.w, opts.Format, listOf(app, entries), opts.now())
	printer.mu.Unlock()
	if err != nil {
		return err
	}

	if err := app.Engine.Run(ctx); err != nil {
		return WrapExitError(ExitFailure, "polling stopped", err)
	}

	return nil
}

// withInterval подменяет sync.poll_interval перед сборкой виджета.
func withInterval(open OpenFunc, d time.Duration) OpenFunc {
	return func(ctx context.Context, cfg *config.Config, hooks engine.Hooks) (*bootstrap.App, error) {
		c := *cfg
		c.Sync.PollInterval = d
		return open(ctx, &c, hooks)
	}
}

func newTopicCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "topic <identifier>",
		Short: "Print the feed topic of a resource identifier",
		Long: `Print the keccak256 feed topic the widget derives from a resource identifier.
A 0x-prefixed 32-byte hex identifier is used as the topic as is.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), bootstrap.Topic(args[0]).Hex())
			return err
		},
	}
}
