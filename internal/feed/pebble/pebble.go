// Package pebble — встроенный однопроцессный фид поверх Pebble.
//
// Формат ключей: feed/<topic hex>/<index, 20 знаков с ведущими нулями>.
// Ведущие нули сохраняют порядок индексов при лексикографической итерации.
package pebble

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	pebbledb "github.com/cockroachdb/pebble"

	"github.com/pribylovaa/go-feed-comments/internal/feed"
	"github.com/pribylovaa/go-feed-comments/internal/feed/codec"
	"github.com/pribylovaa/go-feed-comments/internal/models"
)

const keyPrefix = "feed/"

// Store — фид в базе Pebble.
type Store struct {
	db *pebbledb.DB
	// wmu сериализует условную запись: чтение последнего индекса + Set.
	wmu sync.Mutex
}

// Open открывает (или создаёт) базу по пути path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("pebble: empty path")
	}

	db, err := pebbledb.Open(path, &pebbledb.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open %q: %w", path, err)
	}

	return &Store{db: db}, nil
}

// Close закрывает базу.
func (s *Store) Close() error {
	return s.db.Close()
}

func topicPrefix(topic feed.Topic) []byte {
	return []byte(keyPrefix + strings.TrimPrefix(topic.Hex(), "0x") + "/")
}

func entryKey(topic feed.Topic, index uint64) []byte {
	return append(topicPrefix(topic), fmt.Sprintf("%020d", index)...)
}

// upperBound — первый ключ после всех ключей топика ('/'+1 == '0').
func upperBound(topic feed.Topic) []byte {
	p := topicPrefix(topic)
	p[len(p)-1]++
	return p
}

func indexFromKey(topic feed.Topic, key []byte) (uint64, error) {
	raw := strings.TrimPrefix(string(key), string(topicPrefix(topic)))
	return strconv.ParseUint(raw, 10, 64)
}

// ReadAt возвращает запись по индексу или feed.ErrNotFound.
func (s *Store) ReadAt(ctx context.Context, topic feed.Topic, index uint64) (*models.Comment, error) {
	const op = "feed/pebble/ReadAt"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	val, closer, err := s.db.Get(entryKey(topic, index))
	if err != nil {
		if errors.Is(err, pebbledb.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, feed.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer closer.Close()

	c, err := codec.Unmarshal(val)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &c, nil
}

// ReadRange возвращает записи [start, end] по возрастанию индекса.
func (s *Store) ReadRange(ctx context.Context, topic feed.Topic, start, end uint64) ([]feed.Entry, error) {
	const op = "feed/pebble/ReadRange"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if end < start {
		return nil, fmt.Errorf("%s: %w", op, feed.ErrInvalidRange)
	}

	upper := upperBound(topic)
	if end < ^uint64(0) {
		upper = entryKey(topic, end+1)
	}

	iter, err := s.db.NewIter(&pebbledb.IterOptions{
		LowerBound: entryKey(topic, start),
		UpperBound: upper,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: iter: %w", op, err)
	}
	defer iter.Close()

	var out []feed.Entry
	for iter.First(); iter.Valid(); iter.Next() {
		idx, err := indexFromKey(topic, iter.Key())
		if err != nil {
			return nil, fmt.Errorf("%s: key %q: %w", op, iter.Key(), err)
		}

		c, err := codec.Unmarshal(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("%s: index %d: %w", op, idx, err)
		}

		out = append(out, feed.Entry{Index: idx, Comment: c})
	}

	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// ReadLatest возвращает последнюю запись фида.
func (s *Store) ReadLatest(ctx context.Context, topic feed.Topic) (*feed.Latest, error) {
	const op = "feed/pebble/ReadLatest"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	latest, err := s.latest(topic)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return latest, nil
}

func (s *Store) latest(topic feed.Topic) (*feed.Latest, error) {
	iter, err := s.db.NewIter(&pebbledb.IterOptions{
		LowerBound: topicPrefix(topic),
		UpperBound: upperBound(topic),
	})
	if err != nil {
		return nil, fmt.Errorf("iter: %w", err)
	}
	defer iter.Close()

	if !iter.Last() {
		if err := iter.Error(); err != nil {
			return nil, err
		}

		return nil, feed.ErrNotFound
	}

	idx, err := indexFromKey(topic, iter.Key())
	if err != nil {
		return nil, fmt.Errorf("key %q: %w", iter.Key(), err)
	}

	c, err := codec.Unmarshal(iter.Value())
	if err != nil {
		return nil, err
	}

	return &feed.Latest{Comment: c, NextIndex: idx + 1}, nil
}

// WriteAt записывает комментарий, если expected — следующий свободный индекс.
func (s *Store) WriteAt(ctx context.Context, topic feed.Topic, comment models.Comment, expected uint64) (*feed.WriteResult, error) {
	const op = "feed/pebble/WriteAt"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	val, err := codec.Marshal(comment)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()

	var next uint64
	latest, err := s.latest(topic)
	switch {
	case err == nil:
		next = latest.NextIndex
	case errors.Is(err, feed.ErrNotFound):
		next = 0
	default:
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if expected != next {
		return nil, fmt.Errorf("%s: %w: expected %d, next %d", op, feed.ErrIndexTaken, expected, next)
	}

	key := entryKey(topic, expected)
	if err := s.db.Set(key, val, pebbledb.Sync); err != nil {
		return nil, fmt.Errorf("%s: set: %w", op, err)
	}

	return &feed.WriteResult{Index: expected, Reference: string(key)}, nil
}
