// service содержит бизнес-логику виджета комментариев поверх движка синхронизации.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/pribylovaa/go-feed-comments/internal/config"
	"github.com/pribylovaa/go-feed-comments/internal/engine"
	"github.com/pribylovaa/go-feed-comments/internal/models"
	"golang.org/x/time/rate"
)

var (
	// ErrInvalidArgument — неверные входные параметры запроса к сервису.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound — локальной записи нет.
	ErrNotFound = errors.New("not found")
	// ErrBusy — отправка уже выполняется.
	ErrBusy = errors.New("busy")
	// ErrConflict — запись уже подтверждена или отправляется.
	ErrConflict = errors.New("conflict")
	// ErrRateLimited — превышен лимит отправок.
	ErrRateLimited = errors.New("rate limited")
	// ErrSendFailed — запись не попала в фид; запись помечена ошибкой и ждёт повторной отправки.
	ErrSendFailed = errors.New("send failed")
	// ErrUnavailable — фид временно недоступен или ещё не загружен.
	ErrUnavailable = errors.New("unavailable")
	// ErrInternal — внутренняя ошибка.
	ErrInternal = errors.New("internal")
)

// Syncer — операции движка синхронизации, которые использует сервис.
type Syncer interface {
	LoadInitial(ctx context.Context) (*models.Page, error)
	Submit(ctx context.Context, comment models.Comment) (*models.Entry, error)
	Resend(ctx context.Context, entryID string) (*models.Entry, error)
	LoadHistory(ctx context.Context) ([]models.Entry, error)
	Entries() []models.Entry
	Cursor() uint64
	Phase() engine.Phase
	Loaded() bool
	Exhausted() bool
}

// Service — бизнес-логика виджета комментариев.
type Service struct {
	sync     Syncer
	identity models.Identity
	limits   config.LimitsConfig
	limiter  *rate.Limiter
	now      func() time.Time
}

// New создает новый экземпляр Service.
func New(syncer Syncer, identity models.Identity, limits config.LimitsConfig) *Service {
	limit := rate.Inf
	if limits.SubmitRate > 0 {
		limit = rate.Limit(limits.SubmitRate)
	}

	burst := limits.SubmitBurst
	if burst <= 0 {
		burst = 1
	}

	return &Service{
		sync:     syncer,
		identity: identity,
		limits:   limits,
		limiter:  rate.NewLimiter(limit, burst),
		now:      time.Now,
	}
}

// Identity возвращает идентичность, от имени которой пишет виджет.
func (s *Service) Identity() models.Identity {
	return s.identity
}
