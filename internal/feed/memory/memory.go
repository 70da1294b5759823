// Package memory — реализация фида в памяти процесса.
// Используется локальным окружением виджета и тестами.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/pribylovaa/go-feed-comments/internal/feed"
	"github.com/pribylovaa/go-feed-comments/internal/models"
)

// Store — фиды в памяти: по срезу записей на топик.
type Store struct {
	mu    sync.RWMutex
	feeds map[feed.Topic][]models.Comment
}

// New создаёт пустое хранилище.
func New() *Store {
	return &Store{feeds: make(map[feed.Topic][]models.Comment)}
}

// ReadAt возвращает запись по индексу или feed.ErrNotFound.
func (s *Store) ReadAt(ctx context.Context, topic feed.Topic, index uint64) (*models.Comment, error) {
	const op = "feed/memory/ReadAt"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.feeds[topic]
	if index >= uint64(len(entries)) {
		return nil, fmt.Errorf("%s: %w", op, feed.ErrNotFound)
	}

	c := entries[index]
	return &c, nil
}

// ReadRange возвращает записи [start, end]; индексы за пределами фида пропускаются.
func (s *Store) ReadRange(ctx context.Context, topic feed.Topic, start, end uint64) ([]feed.Entry, error) {
	const op = "feed/memory/ReadRange"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if end < start {
		return nil, fmt.Errorf("%s: %w", op, feed.ErrInvalidRange)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.feeds[topic]
	var out []feed.Entry
	for i := start; i <= end && i < uint64(len(entries)); i++ {
		out = append(out, feed.Entry{Index: i, Comment: entries[i]})
	}

	return out, nil
}

// ReadLatest возвращает последнюю запись и следующий свободный индекс.
func (s *Store) ReadLatest(ctx context.Context, topic feed.Topic) (*feed.Latest, error) {
	const op = "feed/memory/ReadLatest"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.feeds[topic]
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w", op, feed.ErrNotFound)
	}

	return &feed.Latest{
		Comment:   entries[len(entries)-1],
		NextIndex: uint64(len(entries)),
	}, nil
}

// WriteAt дописывает запись, если expected — следующий свободный индекс.
func (s *Store) WriteAt(ctx context.Context, topic feed.Topic, comment models.Comment, expected uint64) (*feed.WriteResult, error) {
	const op = "feed/memory/WriteAt"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.feeds[topic]
	if expected != uint64(len(entries)) {
		return nil, fmt.Errorf("%s: %w: expected %d, next %d", op, feed.ErrIndexTaken, expected, len(entries))
	}

	s.feeds[topic] = append(entries, comment)

	return &feed.WriteResult{
		Index:     expected,
		Reference: topic.Hex() + "/" + strconv.FormatUint(expected, 10),
	}, nil
}

// Len возвращает число записей в фиде.
func (s *Store) Len(topic feed.Topic) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.feeds[topic])
}
