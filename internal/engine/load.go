package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/pribylovaa/go-feed-comments/internal/feed"
	"github.com/pribylovaa/go-feed-comments/internal/metrics"
	"github.com/pribylovaa/go-feed-comments/internal/models"
	"github.com/pribylovaa/go-feed-comments/pkg/log"
)

// LoadInitial загружает последние PageSize+1 записей фида и устанавливает курсор.
//
// Поведение:
//   - пустой фид (ErrNotFound или nextIndex == 0) — пустая страница, не ошибка;
//   - ровно одна запись — она же, без чтения диапазона;
//   - иначе один ReadRange по [max(0, next-1-PageSize), next-2] плюс последняя запись в конце;
//   - повторная загрузка с nextIndex меньше текущего курсора возвращается, но не применяется.
//
// Ошибки:
//   - ErrUnavailable — сбой чтения, локальное состояние не меняется;
//   - ErrBusy — выполняется отправка.
func (e *Engine) LoadInitial(ctx context.Context) (*models.Page, error) {
	const op = "engine/load/LoadInitial"

	lg := log.From(ctx).With("op", op, "topic", e.topic.Hex())

	if err := e.enter(ctx, PhaseLoading); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer e.leave()

	entries, next, err := e.fetchInitial(ctx)
	if err != nil {
		lg.Warn("load_failed", "err", err)
		metrics.ReadFailures.WithLabelValues("load").Inc()
		return nil, fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}

	page := &models.Page{NextIndex: next}
	for _, fe := range entries {
		page.Comments = append(page.Comments, fe.Comment)
	}

	e.mu.Lock()
	if e.loaded && next < e.cursor {
		cursor := e.cursor
		e.mu.Unlock()

		lg.Info("load_stale", "next_index", next, "cursor", cursor)
		return page, nil
	}

	added := e.replaceLocked(entries)
	e.cursor = next
	e.floor = next
	if len(entries) > 0 {
		e.floor = entries[0].Index
	}
	e.loaded = true
	e.mu.Unlock()

	metrics.EntriesRead.WithLabelValues(string(SourceInitial)).Add(float64(len(added)))
	metrics.Cursor.Set(float64(next))
	lg.Debug("loaded", "entries", len(added), "next_index", next)

	e.opts.Hooks.read(ReadEvent{Source: SourceInitial, Entries: added, NextIndex: next})

	return page, nil
}

// fetchInitial читает начальное окно фида. Пустой фид — (nil, 0, nil).
func (e *Engine) fetchInitial(ctx context.Context) ([]feed.Entry, uint64, error) {
	latest, err := e.store.ReadLatest(ctx, e.topic)
	if err != nil {
		if errors.Is(err, feed.ErrNotFound) {
			return nil, 0, nil
		}

		return nil, 0, err
	}

	next := latest.NextIndex
	if next == 0 {
		return nil, 0, nil
	}

	last := feed.Entry{Index: next - 1, Comment: latest.Comment}
	if next == 1 {
		return []feed.Entry{last}, next, nil
	}

	var start uint64
	if n := uint64(e.opts.PageSize); next-1 > n {
		start = next - 1 - n
	}

	rng, err := e.store.ReadRange(ctx, e.topic, start, next-2)
	if err != nil {
		return nil, 0, err
	}

	return append(rng, last), next, nil
}
