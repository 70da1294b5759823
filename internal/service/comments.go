package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-feed-comments/internal/engine"
	"github.com/pribylovaa/go-feed-comments/internal/metrics"
	"github.com/pribylovaa/go-feed-comments/internal/models"
	"github.com/pribylovaa/go-feed-comments/pkg/log"
	"golang.org/x/text/unicode/norm"
)

// SubmitInput — новый комментарий.
// DisplayName переопределяет имя из конфигурации; итоговое имя обязательно.
type SubmitInput struct {
	DisplayName string
	Text        string
	ThreadID    string
}

// ListInput — параметры выдачи локального списка.
// Own — только комментарии текущей идентичности.
type ListInput struct {
	Own bool
}

// HistoryPage — результат догрузки истории.
type HistoryPage struct {
	Entries   []models.Entry
	Exhausted bool
}

// Status — снимок состояния движка.
type Status struct {
	Loaded    bool
	Exhausted bool
	Phase     string
	Cursor    uint64
	Entries   int
	Flagged   int
}

// Load — начальная загрузка (или перезагрузка) фида.
//
// Поведение/ошибки:
//   - пустой фид — пустая страница без ошибки;
//   - ErrBusy — выполняется отправка;
//   - ErrUnavailable — сбой чтения фида.
func (s *Service) Load(ctx context.Context) (*models.Page, error) {
	const op = "service/comments/Load"

	lg := log.From(ctx).With("op", op)

	page, err := s.sync.LoadInitial(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapEngineErr(lg, err))
	}

	return page, nil
}

// Submit — отправка нового комментария.
//
// Валидация:
//   - Text нормализуется (TrimSpace, NFC) и не должен быть пустым;
//   - длина Text в символах не больше limits.max_characters;
//   - имя автора (из входа или конфигурации) не должно быть пустым.
//
// Поведение/ошибки:
//   - ErrRateLimited — превышен лимит отправок;
//   - ErrBusy — уже выполняется другая отправка;
//   - ErrSendFailed — запись не прошла или не подтвердилась; вместе с ошибкой
//     возвращается запись с ошибкой (её ID нужен для Resend);
//   - ErrUnavailable / ErrInternal — прочие сбои.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*models.Entry, error) {
	const op = "service/comments/Submit"

	lg := log.From(ctx).With("op", op)

	text := norm.NFC.String(strings.TrimSpace(in.Text))
	if text == "" {
		lg.Warn("invalid argument: empty text")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	if n := utf8.RuneCountInString(text); n > s.limits.MaxCharacters && s.limits.MaxCharacters > 0 {
		lg.Warn("invalid argument: text too long", "chars", n, "max", s.limits.MaxCharacters)
		return nil, fmt.Errorf("%s: %w: text longer than %d characters", op, ErrInvalidArgument, s.limits.MaxCharacters)
	}

	author := s.identity
	if name := strings.TrimSpace(in.DisplayName); name != "" {
		author.DisplayName = name
	}

	if author.DisplayName == "" {
		lg.Warn("invalid argument: empty display name")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	if !s.limiter.Allow() {
		metrics.RateLimitHits.Inc()
		lg.Warn("rate limited")
		return nil, fmt.Errorf("%s: %w", op, ErrRateLimited)
	}

	comment := models.Comment{
		Author:    author,
		Text:      text,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
		MessageID: uuid.NewString(),
		ThreadID:  strings.TrimSpace(in.ThreadID),
	}

	entry, err := s.sync.Submit(ctx, comment)
	if err != nil {
		return entry, fmt.Errorf("%s: %w", op, mapEngineErr(lg, err))
	}

	return entry, nil
}

// Resend — повторная отправка записи с ошибкой.
//
// Поведение/ошибки:
//   - ErrInvalidArgument — пустой id;
//   - ErrNotFound — записи нет;
//   - ErrConflict — запись уже подтверждена или отправляется;
//   - остальное — как у Submit.
func (s *Service) Resend(ctx context.Context, id string) (*models.Entry, error) {
	const op = "service/comments/Resend"

	id = strings.TrimSpace(id)
	lg := log.From(ctx).With("op", op, "entry_id", id)

	if id == "" {
		lg.Warn("invalid argument: empty id")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	if !s.limiter.Allow() {
		metrics.RateLimitHits.Inc()
		lg.Warn("rate limited")
		return nil, fmt.Errorf("%s: %w", op, ErrRateLimited)
	}

	entry, err := s.sync.Resend(ctx, id)
	if err != nil {
		return entry, fmt.Errorf("%s: %w", op, mapEngineErr(lg, err))
	}

	return entry, nil
}

// History — догрузка более старых комментариев.
// Пустой результат с Exhausted=true — история закончилась.
func (s *Service) History(ctx context.Context) (*HistoryPage, error) {
	const op = "service/comments/History"

	lg := log.From(ctx).With("op", op)

	entries, err := s.sync.LoadHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapEngineErr(lg, err))
	}

	return &HistoryPage{Entries: entries, Exhausted: s.sync.Exhausted()}, nil
}

// List — локальный список комментариев.
// Own требует настроенной идентичности (имя или адрес).
func (s *Service) List(ctx context.Context, in ListInput) ([]models.Entry, error) {
	const op = "service/comments/List"

	entries := s.sync.Entries()
	if !in.Own {
		return entries, nil
	}

	if s.identity.DisplayName == "" && s.identity.Address == "" {
		log.From(ctx).Warn("invalid argument: own filter without identity", "op", op)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	return models.FilterByAuthor(entries, s.identity), nil
}

// Status — снимок состояния движка.
func (s *Service) Status() Status {
	entries := s.sync.Entries()

	flagged := 0
	for _, e := range entries {
		if e.Error() {
			flagged++
		}
	}

	return Status{
		Loaded:    s.sync.Loaded(),
		Exhausted: s.sync.Exhausted(),
		Phase:     s.sync.Phase().String(),
		Cursor:    s.sync.Cursor(),
		Entries:   len(entries),
		Flagged:   flagged,
	}
}

// mapEngineErr транслирует ошибки движка в ошибки сервиса.
func mapEngineErr(lg *slog.Logger, err error) error {
	switch {
	case errors.Is(err, engine.ErrBusy):
		lg.Warn("send in flight")
		return ErrBusy
	case errors.Is(err, engine.ErrWriteRejected), errors.Is(err, engine.ErrVerificationFailed):
		lg.Warn("send failed", "err", err)
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	case errors.Is(err, engine.ErrEntryNotFound):
		lg.Warn("entry not found")
		return ErrNotFound
	case errors.Is(err, models.ErrIllegalTransition):
		lg.Warn("entry is not resendable", "err", err)
		return ErrConflict
	case errors.Is(err, engine.ErrUnavailable), errors.Is(err, engine.ErrNotLoaded),
		errors.Is(err, context.DeadlineExceeded):
		lg.Warn("feed unavailable", "err", err)
		return ErrUnavailable
	default:
		lg.Error("engine error", "err", err)
		return ErrInternal
	}
}
