package engine

import (
	"context"
	"fmt"

	"github.com/pribylovaa/go-feed-comments/internal/metrics"
	"github.com/pribylovaa/go-feed-comments/internal/models"
	"github.com/pribylovaa/go-feed-comments/pkg/log"
)

// Submit дописывает комментарий в фид по индексу локального курсора и проверяет запись чтением.
//
// Поведение:
//   - запись добавляется в список в состоянии Sending; если в списке уже есть запись
//     с ошибкой и тем же (Text, MessageID), повторно используется она;
//   - успех: запись подтверждается с Index = курсор, переносится в хвост, курсор +1;
//   - неудача: запись помечается ошибкой, курсор не меняется.
//
// Ошибки: ErrBusy, ErrWriteRejected, ErrVerificationFailed. При ошибке отправки
// возвращается и запись в состоянии ErrorFlagged.
func (e *Engine) Submit(ctx context.Context, comment models.Comment) (*models.Entry, error) {
	const op = "engine/submit/Submit"

	if err := e.enter(ctx, PhaseSending); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer e.leave()

	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = e.now()
	}
	comment.CreatedAt = truncate(comment.CreatedAt)

	e.mu.Lock()
	resend := false
	var id string
	if i := e.flaggedLocked(comment); i >= 0 {
		en := e.entries[i]
		if err := en.Transition(models.StateSending); err != nil {
			e.mu.Unlock()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		en.Comment = comment
		e.entries[i] = en
		id, resend = en.ID, true
	} else {
		id = newEntryID()
		e.entries = append(e.entries, models.Entry{ID: id, Comment: comment, State: models.StateSending})
	}
	e.mu.Unlock()

	en, err := e.send(ctx, id, resend)
	if err != nil {
		return en, fmt.Errorf("%s: %w", op, err)
	}

	return en, nil
}

// Resend повторяет отправку записи с ошибкой, со свежей меткой времени.
// Запись в состоянии Sending или Confirmed повторно не отправляется (models.ErrIllegalTransition).
func (e *Engine) Resend(ctx context.Context, entryID string) (*models.Entry, error) {
	const op = "engine/submit/Resend"

	if err := e.enter(ctx, PhaseSending); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer e.leave()

	e.mu.Lock()
	i := e.indexOfLocked(entryID)
	if i < 0 {
		e.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", op, ErrEntryNotFound)
	}

	en := e.entries[i]
	if err := en.Transition(models.StateSending); err != nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	en.Comment.CreatedAt = e.now()
	e.entries[i] = en
	e.mu.Unlock()

	out, err := e.send(ctx, entryID, true)
	if err != nil {
		return out, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// send выполняет запись с проверкой для записи id в состоянии Sending.
// Вызывается только в фазе PhaseSending. Догрузка истории на это время ждёт, и наоборот.
func (e *Engine) send(ctx context.Context, id string, resend bool) (*models.Entry, error) {
	e.historyMu.Lock()
	defer e.historyMu.Unlock()

	e.mu.Lock()
	i := e.indexOfLocked(id)
	c := e.entries[i].Comment
	expected := e.cursor
	e.mu.Unlock()

	lg := log.From(ctx).With("entry_id", id, "expected_index", expected, "resend", resend)

	werr := e.writeVerified(ctx, c, expected)

	e.mu.Lock()
	i = e.indexOfLocked(id)
	en := e.entries[i]

	if werr != nil {
		_ = en.Transition(models.StateErrorFlagged)
		e.entries[i] = en
		e.mu.Unlock()

		lg.Warn("send_failed", "err", werr)
		e.opts.Hooks.failure(FailureEvent{Entry: en, Err: werr})
		return &en, werr
	}

	_ = en.Transition(models.StateConfirmed)
	en.Index = expected
	e.entries = append(e.entries[:i], e.entries[i+1:]...)
	e.entries = append(e.entries, en)
	if expected+1 > e.cursor {
		e.cursor = expected + 1
	}
	next := e.cursor
	e.mu.Unlock()

	metrics.Sends.WithLabelValues("confirmed").Inc()
	metrics.Cursor.Set(float64(next))
	lg.Info("send_confirmed", "index", expected)

	e.opts.Hooks.write(WriteEvent{Entry: en, Resend: resend})
	return &en, nil
}

// writeVerified пишет комментарий по индексу expected и читает его обратно.
// Совпадение проверяется по тексту и метке времени.
func (e *Engine) writeVerified(ctx context.Context, c models.Comment, expected uint64) error {
	res, err := e.store.WriteAt(ctx, e.topic, c, expected)
	if err != nil {
		metrics.Sends.WithLabelValues("rejected").Inc()
		return fmt.Errorf("%w: %w", ErrWriteRejected, err)
	}

	if res == nil {
		metrics.Sends.WithLabelValues("rejected").Inc()
		return fmt.Errorf("%w: empty write result", ErrWriteRejected)
	}

	got, err := e.store.ReadAt(ctx, e.topic, expected)
	if err != nil {
		metrics.Sends.WithLabelValues("verification_failed").Inc()
		return fmt.Errorf("%w: read back index %d: %w", ErrVerificationFailed, expected, err)
	}

	if got == nil || got.Text != c.Text || !got.CreatedAt.Equal(c.CreatedAt) {
		metrics.Sends.WithLabelValues("verification_failed").Inc()
		return fmt.Errorf("%w: index %d holds another comment", ErrVerificationFailed, expected)
	}

	return nil
}
