package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pribylovaa/go-feed-comments/internal/bootstrap"
	"github.com/pribylovaa/go-feed-comments/internal/engine"
	"github.com/pribylovaa/go-feed-comments/internal/models"
	"github.com/pribylovaa/go-feed-comments/internal/service"
	"github.com/pribylovaa/go-feed-comments/pkg/log"
)

// LoadOptions — флаги load.
type LoadOptions struct {
	*RootOptions
	Own bool
}

func newLoadCommand(root *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: root}

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Print the latest page of comments",
		Long: `Load the latest page of comments (sync.page_size entries) and print them.

Examples:
  feedctl load --config ./local.yaml
  feedctl load --own --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Own, "own", false, "only comments of the configured identity")

	return cmd
}

func runLoad(cmd *cobra.Command, opts *LoadOptions) error {
	ctx := log.Into(cmd.Context(), opts.logger(cmd.ErrOrStderr()))

	app, _, err := opts.openApp(ctx, engine.Hooks{})
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	if _, err := app.Service.Load(ctx); err != nil {
		return WrapExitError(ExitFailure, "failed to load comments", err)
	}

	entries, err := app.Service.List(ctx, service.ListInput{Own: opts.Own})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list comments", err)
	}

	return renderList(cmd.OutOrStdout(), opts.Format, listOf(app, entries), opts.now())
}

// PostOptions — флаги post.
type PostOptions struct {
	*RootOptions
	Name     string
	ThreadID string
}

func newPostCommand(root *RootOptions) *cobra.Command {
	opts := &PostOptions{RootOptions: root}

	cmd := &cobra.Command{
		Use:   "post <text>...",
		Short: "Write a comment to the feed",
		Long: `Write a comment at the next free feed index and verify it by reading it back.
Arguments are joined with spaces.

Examples:
  feedctl post "first!"
  feedctl post --name alice hello there`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPost(cmd, opts, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "display name (overrides identity.display_name)")
	cmd.Flags().StringVar(&opts.ThreadID, "thread", "", "thread id")

	return cmd
}

func runPost(cmd *cobra.Command, opts *PostOptions, text string) error {
	ctx := log.Into(cmd.Context(), opts.logger(cmd.ErrOrStderr()))

	app, _, err := opts.openApp(ctx, engine.Hooks{})
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	if _, err := app.Service.Load(ctx); err != nil {
		return WrapExitError(ExitFailure, "failed to load comments", err)
	}

	entry, err := app.Service.Submit(ctx, service.SubmitInput{
		DisplayName: opts.Name,
		Text:        text,
		ThreadID:    opts.ThreadID,
	})
	if err != nil {
		if entry != nil {
			_ = renderEntry(cmd.OutOrStdout(), opts.Format, newEntryView(*entry), opts.now())
		}

		if errors.Is(err, service.ErrInvalidArgument) {
			return WrapExitError(ExitCommandError, "invalid comment", err)
		}
		return WrapExitError(ExitFailure, "comment was not stored", err)
	}

	return renderEntry(cmd.OutOrStdout(), opts.Format, newEntryView(*entry), opts.now())
}

// HistoryOptions — флаги history.
type HistoryOptions struct {
	*RootOptions
	Pages int
}

func newHistoryCommand(root *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: root}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the latest page plus older pages",
		Long: `Load the latest page, then page backwards through older comments.
Paging stops early at the beginning of the feed; --pages 0 pages to the beginning.

Examples:
  feedctl history --pages 2
  feedctl history --pages 0 --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Pages, "pages", 1, "number of older pages to load (0 = all)")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	if opts.Pages < 0 {
		return NewExitError(ExitCommandError, "--pages must be >= 0")
	}

	ctx := log.Into(cmd.Context(), opts.logger(cmd.ErrOrStderr()))

	app, _, err := opts.openApp(ctx, engine.Hooks{})
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	if _, err := app.Service.Load(ctx); err != nil {
		return WrapExitError(ExitFailure, "failed to load comments", err)
	}

	for i := 0; opts.Pages == 0 || i < opts.Pages; i++ {
		page, err := app.Service.History(ctx)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to load history", err)
		}

		if page.Exhausted {
			break
		}
	}

	entries, err := app.Service.List(ctx, service.ListInput{})
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list comments", err)
	}

	return renderList(cmd.OutOrStdout(), opts.Format, listOf(app, entries), opts.now())
}

func listOf(app *bootstrap.App, entries []models.Entry) listView {
	return newListView(app.Topic.Hex(), app.Engine.Cursor(), app.Engine.Exhausted(), entries)
}
