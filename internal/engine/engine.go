// Package engine синхронизирует локальный список комментариев с append-only фидом.
//
// Engine владеет локальным состоянием (список записей, курсор nextIndex) и выполняет
// начальную загрузку, опрос новых записей, отправку с проверкой записи и догрузку истории.
// Операции отправки и опроса взаимно исключены через явный автомат фаз (см. state.go).
package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pribylovaa/go-feed-comments/internal/feed"
	"github.com/pribylovaa/go-feed-comments/internal/models"
)

// Значения по умолчанию для Options.
const (
	DefaultPageSize     = 9
	DefaultBatchSize    = 5
	DefaultPollInterval = 10 * time.Second
)

var (
	// ErrBusy — отправка уже выполняется.
	ErrBusy = errors.New("send in flight")
	// ErrNotLoaded — начальная загрузка ещё не завершена.
	ErrNotLoaded = errors.New("initial load not completed")
	// ErrUnavailable — временный сбой чтения фида.
	ErrUnavailable = errors.New("feed unavailable")
	// ErrWriteRejected — фид отказал в условной записи.
	ErrWriteRejected = errors.New("write rejected")
	// ErrVerificationFailed — запись по ожидаемому индексу не совпала с отправленной.
	ErrVerificationFailed = errors.New("write verification failed")
	// ErrEntryNotFound — локальной записи с таким ID нет.
	ErrEntryNotFound = errors.New("entry not found")
)

// Options — параметры движка. Нулевые значения заменяются значениями по умолчанию.
type Options struct {
	// PageSize — размер начальной страницы и страницы истории.
	PageSize int
	// BatchSize — максимум новых записей за один опрос.
	BatchSize    int
	PollInterval time.Duration
	Hooks        Hooks
	// Now — часы для меток времени отправки (точность — миллисекунды).
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}

	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}

	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}

	if o.Now == nil {
		o.Now = time.Now
	}

	return o
}

// Engine — движок синхронизации одного фида.
type Engine struct {
	store feed.Store
	topic feed.Topic
	opts  Options

	mu    sync.Mutex
	phase Phase
	// idle закрывается при возврате в PhaseIdle.
	idle    chan struct{}
	entries []models.Entry
	cursor  uint64
	loaded  bool
	// floor — наименьший индекс, который уже запрашивался; история читается строго ниже.
	floor uint64

	// historyMu сериализует догрузку истории между собой и с отправкой.
	// Порядок захвата: historyMu, затем mu.
	historyMu sync.Mutex
}

// New создаёт движок для фида topic.
func New(store feed.Store, topic feed.Topic, opts Options) *Engine {
	idle := make(chan struct{})
	close(idle)

	return &Engine{
		store: store,
		topic: topic,
		opts:  opts.withDefaults(),
		phase: PhaseIdle,
		idle:  idle,
	}
}

// Topic возвращает топик фида.
func (e *Engine) Topic() feed.Topic {
	return e.topic
}

// Options возвращает действующие параметры движка.
func (e *Engine) Options() Options {
	return e.opts
}

// Entries возвращает копию локального списка.
func (e *Engine) Entries() []models.Entry {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]models.Entry, len(e.entries))
	copy(out, e.entries)

	return out
}

// Entry возвращает локальную запись по ID.
func (e *Engine) Entry(id string) (models.Entry, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.indexOfLocked(id)
	if i < 0 {
		return models.Entry{}, false
	}

	return e.entries[i], true
}

// Cursor возвращает локальный nextIndex.
func (e *Engine) Cursor() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.cursor
}

// Loaded сообщает, завершена ли начальная загрузка.
func (e *Engine) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.loaded
}

// Exhausted сообщает, что более старых записей в фиде нет.
func (e *Engine) Exhausted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.loaded && e.floor == 0
}

// now — метка времени новой отправки: UTC, миллисекунды.
func (e *Engine) now() time.Time {
	return truncate(e.opts.Now())
}

func truncate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func newEntryID() string {
	return ulid.Make().String()
}
