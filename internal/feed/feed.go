// Package feed описывает фид — append-only последовательность слотов,
// адресуемых неотрицательным индексом. Фид читается и пишется через Store.
package feed

import (
	"context"
	"errors"

	"github.com/pribylovaa/go-feed-comments/internal/models"
)

var (
	// ErrNotFound — слот пуст или фид ещё не создан.
	ErrNotFound = errors.New("not found")
	// ErrIndexTaken — ожидаемый индекс не является следующим свободным.
	ErrIndexTaken = errors.New("index taken")
	// ErrInvalidRange — некорректные границы диапазона.
	ErrInvalidRange = errors.New("invalid range")
)

// Entry — комментарий вместе с его позицией в фиде.
type Entry struct {
	Index   uint64
	Comment models.Comment
}

// Latest — последняя запись фида и следующий свободный индекс.
// Запись лежит по индексу NextIndex-1.
type Latest struct {
	Comment   models.Comment
	NextIndex uint64
}

// WriteResult — подтверждение записи от хранилища.
// Reference — ссылка на запись в хранилище (ObjectID, ключ и т.д.).
type WriteResult struct {
	Index     uint64
	Reference string
}

// Store — узкий интерфейс фида, который потребляет движок синхронизации.
//
// Контракт:
//   - ReadAt: ErrNotFound, если слот пуст;
//   - ReadRange: границы включительно, результат по возрастанию индекса;
//     пропущенные (ещё не распространившиеся) слоты допускаются;
//   - ReadLatest: ErrNotFound, если фид пуст;
//   - WriteAt: пишет только если expected равен следующему свободному индексу,
//     иначе ErrIndexTaken. В одном слоте не более одного писателя.
type Store interface {
	ReadAt(ctx context.Context, topic Topic, index uint64) (*models.Comment, error)
	ReadRange(ctx context.Context, topic Topic, start, end uint64) ([]Entry, error)
	ReadLatest(ctx context.Context, topic Topic) (*Latest, error)
	WriteAt(ctx context.Context, topic Topic, comment models.Comment, expected uint64) (*WriteResult, error)
}
