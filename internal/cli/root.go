// Package cli — терминальный клиент фида комментариев (feedctl).
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/pribylovaa/go-feed-comments/internal/bootstrap"
	"github.com/pribylovaa/go-feed-comments/internal/config"
	"github.com/pribylovaa/go-feed-comments/internal/engine"
)

// Форматы вывода.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ValidFormats — допустимые значения --format.
var ValidFormats = []string{FormatText, FormatJSON, FormatYAML}

// OpenFunc собирает виджет по конфигурации.
type OpenFunc func(ctx context.Context, cfg *config.Config, hooks engine.Hooks) (*bootstrap.App, error)

// RootOptions — глобальные флаги и зависимости команд.
type RootOptions struct {
	ConfigPath string
	Format     string
	Verbose    bool

	open OpenFunc
	now  func() time.Time
}

// NewRootCommand создаёт корневую команду feedctl.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{open: bootstrap.New, now: time.Now})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedctl",
		Short: "feedctl - terminal client for a feed-backed comment thread",
		Long: `feedctl reads and writes comments of one resource thread stored in an
append-only indexed feed. The feed and identity come from the same config
as the widget host (--config, CONFIG_PATH, ./local.yaml or env vars).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to config file (overrides CONFIG_PATH env)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", FormatText, "output format (text|json|yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log engine activity to stderr")

	cmd.AddCommand(newLoadCommand(opts))
	cmd.AddCommand(newPostCommand(opts))
	cmd.AddCommand(newHistoryCommand(opts))
	cmd.AddCommand(newWatchCommand(opts))
	cmd.AddCommand(newTopicCommand())

	return cmd
}

// logger — логи движка в stderr; без --verbose только предупреждения.
func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openApp загружает конфигурацию и собирает виджет.
func (o *RootOptions) openApp(ctx context.Context, hooks engine.Hooks) (*bootstrap.App, *config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	app, err := o.open(ctx, cfg, hooks)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open feed", err)
	}

	return app, cfg, nil
}
