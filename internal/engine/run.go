package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pribylovaa/go-feed-comments/pkg/log"
)

// Run опрашивает фид каждые PollInterval, пока не отменён ctx.
// Требует завершённой начальной загрузки; сбои опроса логируются и не прерывают цикл.
func (e *Engine) Run(ctx context.Context) error {
	const op = "engine/run/Run"

	if !e.Loaded() {
		return fmt.Errorf("%s: %w", op, ErrNotLoaded)
	}

	lg := log.From(ctx).With("op", op, "topic", e.topic.Hex())
	lg.Info("polling_started", "interval", e.opts.PollInterval)

	t := time.NewTicker(e.opts.PollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			lg.Info("polling_stopped")
			return nil
		case <-t.C:
			if _, err := e.Poll(ctx); err != nil {
				if errors.Is(err, context.Canceled) || ctx.Err() != nil {
					continue
				}

				lg.Warn("poll_tick_failed", "err", err)
			}
		}
	}
}
