package mongo

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/pribylovaa/go-feed-comments/internal/feed"
	"github.com/pribylovaa/go-feed-comments/internal/feed/codec"
	"github.com/pribylovaa/go-feed-comments/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// entryDoc — документ слота фида.
// Поля записи кодека встраиваются в документ на верхний уровень.
type entryDoc struct {
	ID     primitive.ObjectID `bson:"_id,omitempty"`
	Topic  string             `bson:"topic"`
	Index  int64              `bson:"index"`
	Record codec.Record       `bson:",inline"`
}

func (d entryDoc) entry() (feed.Entry, error) {
	c, err := d.Record.Comment()
	if err != nil {
		return feed.Entry{}, err
	}

	return feed.Entry{Index: uint64(d.Index), Comment: c}, nil
}

// toIndex переводит индекс фида в int64 документа; индексы вне int64 хранилищу недоступны.
func toIndex(i uint64) int64 {
	if i > math.MaxInt64 {
		return math.MaxInt64
	}

	return int64(i)
}

// ReadAt возвращает комментарий по индексу или feed.ErrNotFound.
func (m *Mongo) ReadAt(ctx context.Context, topic feed.Topic, index uint64) (*models.Comment, error) {
	const op = "feed/mongo/ReadAt"

	filter := bson.D{
		{Key: "topic", Value: topic.Hex()},
		{Key: "index", Value: toIndex(index)},
	}

	var doc entryDoc
	if err := m.entries.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, feed.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	e, err := doc.entry()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &e.Comment, nil
}

// ReadRange возвращает записи [start, end] по возрастанию индекса.
// Отсутствующие слоты просто пропускаются.
func (m *Mongo) ReadRange(ctx context.Context, topic feed.Topic, start, end uint64) ([]feed.Entry, error) {
	const op = "feed/mongo/ReadRange"

	if end < start {
		return nil, fmt.Errorf("%s: %w", op, feed.ErrInvalidRange)
	}

	filter := bson.D{
		{Key: "topic", Value: topic.Hex()},
		{Key: "index", Value: bson.D{
			{Key: "$gte", Value: toIndex(start)},
			{Key: "$lte", Value: toIndex(end)},
		}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "index", Value: 1}})

	cur, err := m.entries.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: find: %w", op, err)
	}
	defer cur.Close(ctx)

	var out []feed.Entry
	for cur.Next(ctx) {
		var doc entryDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%s: decode: %w", op, err)
		}

		e, err := doc.entry()
		if err != nil {
			return nil, fmt.Errorf("%s: index %d: %w", op, doc.Index, err)
		}

		out = append(out, e)
	}

	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%s: cursor: %w", op, err)
	}

	return out, nil
}

// ReadLatest возвращает запись с наибольшим индексом.
func (m *Mongo) ReadLatest(ctx context.Context, topic feed.Topic) (*feed.Latest, error) {
	const op = "feed/mongo/ReadLatest"

	latest, err := m.latest(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return latest, nil
}

func (m *Mongo) latest(ctx context.Context, topic feed.Topic) (*feed.Latest, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "index", Value: -1}})

	var doc entryDoc
	if err := m.entries.FindOne(ctx, bson.D{{Key: "topic", Value: topic.Hex()}}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, feed.ErrNotFound
		}

		return nil, err
	}

	e, err := doc.entry()
	if err != nil {
		return nil, err
	}

	return &feed.Latest{Comment: e.Comment, NextIndex: e.Index + 1}, nil
}

// WriteAt вставляет документ в слот expected, если он следующий свободный.
// Гонку двух писателей за один слот разрешает уникальный индекс.
func (m *Mongo) WriteAt(ctx context.Context, topic feed.Topic, comment models.Comment, expected uint64) (*feed.WriteResult, error) {
	const op = "feed/mongo/WriteAt"

	var next uint64
	latest, err := m.latest(ctx, topic)
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

	doc := entryDoc{
		Topic:  topic.Hex(),
		Index:  toIndex(expected),
		Record: codec.FromComment(comment),
	}

	res, err := m.entries.InsertOne(ctx, doc)
	if err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%s: %w", op, feed.ErrIndexTaken)
		}

		return nil, fmt.Errorf("%s: insert: %w", op, err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("%s: inserted id type", op)
	}

	return &feed.WriteResult{Index: expected, Reference: oid.Hex()}, nil
}
