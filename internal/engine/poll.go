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

// Poll дочитывает записи, появившиеся после локального курсора, не больше BatchSize за вызов.
//
// Поведение:
//   - пока выполняется отправка или загрузка — ничего не читает и возвращает пустой результат;
//   - nextIndex не вырос — ровно одно чтение ReadLatest, состояние не меняется;
//   - иначе читается [cursor, min(cursor+BatchSize, next)-1]; последняя запись фида,
//     если попадает в окно, берётся из ReadLatest без повторного чтения;
//   - черновики с ошибкой, совпавшие по (Text, MessageID) с новыми записями, удаляются;
//   - курсор сдвигается на индекс после последней прочитанной записи; слоты внутри окна,
//     которые ещё не распространились, повторно не читаются и в список не попадут
//     (их можно получить только перезагрузкой).
//
// Ошибки: ErrNotLoaded до начальной загрузки, ErrUnavailable при сбое чтения.
func (e *Engine) Poll(ctx context.Context) ([]models.Entry, error) {
	const op = "engine/poll/Poll"

	e.mu.Lock()
	if !e.loaded {
		e.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", op, ErrNotLoaded)
	}
	e.mu.Unlock()

	if !e.tryEnter(PhasePolling) {
		metrics.PollsSkipped.Inc()
		return nil, nil
	}
	defer e.leave()

	start := e.Cursor()
	lg := log.From(ctx).With("op", op, "topic", e.topic.Hex(), "cursor", start)

	incoming, err := e.fetchNew(ctx, start)
	if err != nil {
		lg.Warn("poll_failed", "err", err)
		metrics.ReadFailures.WithLabelValues("poll").Inc()
		return nil, fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}

	if len(incoming) == 0 {
		return nil, nil
	}

	e.mu.Lock()
	if e.cursor != start {
		e.mu.Unlock()
		lg.Debug("poll_stale")
		return nil, nil
	}

	added := e.appendLiveLocked(incoming)
	if last := incoming[len(incoming)-1].Index + 1; last > e.cursor {
		e.cursor = last
	}
	next := e.cursor
	e.mu.Unlock()

	metrics.EntriesRead.WithLabelValues(string(SourceLive)).Add(float64(len(added)))
	metrics.Cursor.Set(float64(next))
	lg.Debug("polled", "entries", len(added), "next_index", next)

	if len(added) > 0 {
		e.opts.Hooks.read(ReadEvent{Source: SourceLive, Entries: added, NextIndex: next})
	}

	return added, nil
}

// fetchNew читает следующую пачку записей начиная с cursor.
func (e *Engine) fetchNew(ctx context.Context, cursor uint64) ([]feed.Entry, error) {
	latest, err := e.store.ReadLatest(ctx, e.topic)
	if err != nil {
		if errors.Is(err, feed.ErrNotFound) {
			return nil, nil
		}

		return nil, err
	}

	next := latest.NextIndex
	if next <= cursor {
		return nil, nil
	}

	end := min(cursor+uint64(e.opts.BatchSize), next) - 1
	if end < next-1 {
		return e.store.ReadRange(ctx, e.topic, cursor, end)
	}

	var out []feed.Entry
	if end > cursor {
		out, err = e.store.ReadRange(ctx, e.topic, cursor, end-1)
		if err != nil {
			return nil, err
		}
	}

	return append(out, feed.Entry{Index: next - 1, Comment: latest.Comment}), nil
}
