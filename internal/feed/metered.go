package feed

import (
	"context"
	"time"

	"github.com/pribylovaa/go-feed-comments/internal/metrics"
	"github.com/pribylovaa/go-feed-comments/internal/models"
)

// Metered оборачивает Store и пишет длительность каждого вызова
// в metrics.StoreLatency.
func Metered(s Store) Store {
	return metered{next: s}
}

type metered struct {
	next Store
}

func observe(call string, start time.Time) {
	metrics.StoreLatency.WithLabelValues(call).Observe(time.Since(start).Seconds())
}

func (m metered) ReadAt(ctx context.Context, topic Topic, index uint64) (*models.Comment, error) {
	defer observe("read_at", time.Now())
	return m.next.ReadAt(ctx, topic, index)
}

func (m metered) ReadRange(ctx context.Context, topic Topic, start, end uint64) ([]Entry, error) {
	defer observe("read_range", time.Now())
	return m.next.ReadRange(ctx, topic, start, end)
}

func (m metered) ReadLatest(ctx context.Context, topic Topic) (*Latest, error) {
	defer observe("read_latest", time.Now())
	return m.next.ReadLatest(ctx, topic)
}

func (m metered) WriteAt(ctx context.Context, topic Topic, comment models.Comment, expected uint64) (*WriteResult, error) {
	defer observe("write_at", time.Now())
	return m.next.WriteAt(ctx, topic, comment, expected)
}
