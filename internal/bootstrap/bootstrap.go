// Package bootstrap собирает виджет из конфигурации: фид, движок, сервис.
// Общий код процесса виджета и терминального клиента.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pribylovaa/go-feed-comments/internal/config"
	"github.com/pribylovaa/go-feed-comments/internal/engine"
	"github.com/pribylovaa/go-feed-comments/internal/feed"
	"github.com/pribylovaa/go-feed-comments/internal/feed/memory"
	"github.com/pribylovaa/go-feed-comments/internal/feed/mongo"
	"github.com/pribylovaa/go-feed-comments/internal/feed/pebble"
	"github.com/pribylovaa/go-feed-comments/internal/identity"
	"github.com/pribylovaa/go-feed-comments/internal/service"
)

const connectTimeout = 10 * time.Second

// Closer освобождает ресурсы хранилища.
type Closer func(ctx context.Context) error

// App — собранный виджет.
type App struct {
	Topic   feed.Topic
	Store   feed.Store
	Engine  *engine.Engine
	Service *service.Service

	closeStore Closer
}

// Topic возвращает топик фида: идентификатор вида 0x<64 hex> используется как готовый топик,
// любой другой хэшируется keccak256.
func Topic(identifier string) feed.Topic {
	if strings.HasPrefix(identifier, "0x") {
		if t, err := feed.ParseTopic(identifier); err == nil {
			return t
		}
	}

	return feed.MakeTopic(identifier)
}

// OpenStore открывает фид выбранного бэкенда и оборачивает его метриками.
func OpenStore(ctx context.Context, cfg *config.Config) (feed.Store, Closer, error) {
	const op = "bootstrap/OpenStore"

	switch cfg.Feed.Backend {
	case config.BackendMemory, "":
		return feed.Metered(memory.New()), func(context.Context) error { return nil }, nil

	case config.BackendMongo:
		dbCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()

		m, err := mongo.New(dbCtx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}

		return feed.Metered(m), m.Close, nil

	case config.BackendPebble:
		p, err := pebble.Open(cfg.Pebble.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}

		return feed.Metered(p), func(context.Context) error { return p.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("%s: unknown backend %q", op, cfg.Feed.Backend)
	}
}

// New открывает фид и собирает движок и сервис. hooks передаются движку как есть.
func New(ctx context.Context, cfg *config.Config, hooks engine.Hooks) (*App, error) {
	const op = "bootstrap/New"

	who, err := identity.FromConfig(cfg.Identity)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	store, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	topic := Topic(cfg.Feed.Identifier)
	eng := engine.New(store, topic, engine.Options{
		PageSize:     cfg.Sync.PageSize,
		BatchSize:    cfg.Sync.BatchSize,
		PollInterval: cfg.Sync.PollInterval,
		Hooks:        hooks,
	})

	return &App{
		Topic:      topic,
		Store:      store,
		Engine:     eng,
		Service:    service.New(eng, who, cfg.Limits),
		closeStore: closeStore,
	}, nil
}

// LoadWithRetry повторяет начальную загрузку, пока она не удастся или не истечёт ctx.
// Пауза между попытками растёт вдвое до maxDelay.
func (a *App) LoadWithRetry(ctx context.Context, lg *slog.Logger, initial, maxDelay time.Duration) error {
	const op = "bootstrap/LoadWithRetry"

	delay := initial
	for {
		_, err := a.Service.Load(ctx)
		if err == nil {
			return nil
		}

		if !errors.Is(err, service.ErrUnavailable) {
			return fmt.Errorf("%s: %w", op, err)
		}

		lg.Warn("initial_load_failed", "err", err, "retry_in", delay)

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

// Close закрывает хранилище.
func (a *App) Close(ctx context.Context) error {
	if a.closeStore == nil {
		return nil
	}

	return a.closeStore(ctx)
}
