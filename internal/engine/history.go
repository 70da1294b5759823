package engine

import (
	"context"
	"fmt"

	"github.com/pribylovaa/go-feed-comments/internal/metrics"
	"github.com/pribylovaa/go-feed-comments/internal/models"
	"github.com/pribylovaa/go-feed-comments/pkg/log"
)

// LoadHistory догружает страницу записей старше самой старой известной и добавляет её в начало списка.
//
// Поведение:
//   - читается [max(0, start-PageSize+1), start], где start — индекс перед самым старым
//     уже запрошенным; start < 0 означает, что история исчерпана (пустой результат, без чтений);
//   - уже известные индексы не запрашиваются повторно;
//   - загрузки истории выполняются по одной и не пересекаются с отправкой;
//     результат отбрасывается, если за время чтения список был перезагружен.
//
// Ошибки: ErrNotLoaded до начальной загрузки, ErrUnavailable при сбое чтения.
func (e *Engine) LoadHistory(ctx context.Context) ([]models.Entry, error) {
	const op = "engine/history/LoadHistory"

	e.historyMu.Lock()
	defer e.historyMu.Unlock()

	e.mu.Lock()
	if !e.loaded {
		e.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", op, ErrNotLoaded)
	}
	floor := e.floor
	e.mu.Unlock()

	if floor == 0 {
		return nil, nil
	}

	end := floor - 1
	var start uint64
	if n := uint64(e.opts.PageSize); end+1 > n {
		start = end + 1 - n
	}

	lg := log.From(ctx).With("op", op, "topic", e.topic.Hex(), "start", start, "end", end)

	rng, err := e.store.ReadRange(ctx, e.topic, start, end)
	if err != nil {
		lg.Warn("history_failed", "err", err)
		metrics.ReadFailures.WithLabelValues("history").Inc()
		return nil, fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}

	e.mu.Lock()
	if e.floor != floor {
		e.mu.Unlock()
		lg.Debug("history_stale")
		return nil, nil
	}

	added := e.prependLocked(rng)
	e.floor = start
	next := e.cursor
	e.mu.Unlock()

	metrics.EntriesRead.WithLabelValues(string(SourceHistory)).Add(float64(len(added)))
	lg.Debug("history_loaded", "entries", len(added))

	if len(added) > 0 {
		e.opts.Hooks.read(ReadEvent{Source: SourceHistory, Entries: added, NextIndex: next})
	}

	return added, nil
}
