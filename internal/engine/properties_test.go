package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pribylovaa/go-feed-comments/internal/feed"
	"github.com/pribylovaa/go-feed-comments/internal/feed/memory"
	"github.com/pribylovaa/go-feed-comments/internal/models"
	"github.com/stretchr/testify/require"
)

// recordingStore считает чтения индексов и может отказывать в записи.
type recordingStore struct {
	feed.Store

	mu         sync.Mutex
	reads      map[uint64]int
	failWrites atomic.Int32
}

func newRecordingStore(s feed.Store) *recordingStore {
	return &recordingStore{Store: s, reads: make(map[uint64]int)}
}

func (r *recordingStore) ReadRange(ctx context.Context, topic feed.Topic, start, end uint64) ([]feed.Entry, error) {
	r.mu.Lock()
	for i := start; i <= end; i++ {
		r.reads[i]++
	}
	r.mu.Unlock()

	return r.Store.ReadRange(ctx, topic, start, end)
}

func (r *recordingStore) WriteAt(ctx context.Context, topic feed.Topic, c models.Comment, expected uint64) (*feed.WriteResult, error) {
	if r.failWrites.Add(-1) >= 0 {
		return nil, errors.New("rejected by test")
	}

	return r.Store.WriteAt(ctx, topic, c, expected)
}

func seed(t *testing.T, s feed.Store, n int) {
	t.Helper()

	for i := 0; i < n; i++ {
		_, err := s.WriteAt(context.Background(), testTopic, cm(fmt.Sprintf("seed-%d", i), int64(i)), uint64(i))
		require.NoError(t, err)
	}
}

func requireNoDuplicateIndex(t *testing.T, entries []models.Entry) {
	t.Helper()

	seen := make(map[uint64]struct{})
	for _, en := range entries {
		if !en.Confirmed() {
			continue
		}
		_, dup := seen[en.Index]
		require.False(t, dup, "index %d confirmed twice", en.Index)
		seen[en.Index] = struct{}{}
	}
}

// Два писателя на одном фиде, случайная последовательность операций:
// подтверждённые индексы не повторяются, курсор не убывает.
func TestProperties_NoDuplicatesMonotonicCursor(t *testing.T) {
	t.Parallel()

	for s := int64(1); s <= 20; s++ {
		t.Run(fmt.Sprint("seed_", s), func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			store := memory.New()
			seed(t, store, 7)

			rnd := rand.New(rand.NewSource(s))
			engines := []*Engine{
				New(store, testTopic, Options{BatchSize: 2, PageSize: 3, Now: stepClock()}),
				New(store, testTopic, Options{BatchSize: 3, PageSize: 2, Now: stepClock()}),
			}
			cursors := make([]uint64, len(engines))

			for _, e := range engines {
				_, err := e.LoadInitial(ctx)
				require.NoError(t, err)
			}

			for step := 0; step < 60; step++ {
				k := rnd.Intn(len(engines))
				e := engines[k]

				switch rnd.Intn(5) {
				case 0, 1:
					_, _ = e.Submit(ctx, cm(fmt.Sprintf("w%d-%d", k, step), int64(step)))
				case 2:
					_, err := e.Poll(ctx)
					require.NoError(t, err)
				case 3:
					_, err := e.LoadHistory(ctx)
					require.NoError(t, err)
				case 4:
					if flagged := firstFlagged(e.Entries()); flagged != "" {
						_, _ = e.Resend(ctx, flagged)
					}
				}

				c := e.Cursor()
				require.GreaterOrEqual(t, c, cursors[k], "cursor regressed")
				cursors[k] = c
				requireNoDuplicateIndex(t, e.Entries())
			}

			// догоняем фид: оба движка видят одинаковые подтверждённые записи.
			for _, e := range engines {
				for {
					got, err := e.Poll(ctx)
					require.NoError(t, err)
					if len(got) == 0 && e.Cursor() == uint64(store.Len(testTopic)) {
						break
					}
				}
				requireNoDuplicateIndex(t, e.Entries())
				require.EqualValues(t, store.Len(testTopic), e.Cursor())
			}
		})
	}
}

func firstFlagged(entries []models.Entry) string {
	for _, en := range entries {
		if en.Error() {
			return en.ID
		}
	}

	return ""
}

// Две параллельные повторные отправки одной записи дают не больше одного подтверждения.
func TestResend_ParallelSameEntry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	mem := memory.New()
	store := newRecordingStore(mem)
	e := New(store, testTopic, Options{Now: stepClock()})

	_, err := e.LoadInitial(ctx)
	require.NoError(t, err)

	store.failWrites.Store(1)
	failed, err := e.Submit(ctx, cm("again", 1))
	require.ErrorIs(t, err, ErrWriteRejected)

	var (
		wg  sync.WaitGroup
		oks atomic.Int32
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Resend(ctx, failed.ID)
			switch {
			case err == nil:
				oks.Add(1)
			case errors.Is(err, ErrBusy), errors.Is(err, models.ErrIllegalTransition):
			default:
				t.Errorf("unexpected resend error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, oks.Load())
	require.Equal(t, 1, mem.Len(testTopic))

	entries := e.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, models.StateConfirmed, entries[0].State)
}

// История по фиду из K записей заканчивается пустым результатом и не перечитывает индексы.
func TestLoadHistory_Terminates(t *testing.T) {
	t.Parallel()

	for _, k := range []int{0, 1, 2, 9, 10, 11, 23, 40} {
		t.Run(fmt.Sprint("K_", k), func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			mem := memory.New()
			seed(t, mem, k)
			store := newRecordingStore(mem)
			e := New(store, testTopic, Options{PageSize: 4})

			_, err := e.LoadInitial(ctx)
			require.NoError(t, err)

			calls := 0
			for {
				got, err := e.LoadHistory(ctx)
				require.NoError(t, err)
				calls++
				require.Less(t, calls, k+3, "history did not terminate")
				if len(got) == 0 {
					break
				}
			}

			require.True(t, e.Exhausted())
			require.Len(t, indices(e.Entries()), k)
			requireNoDuplicateIndex(t, e.Entries())

			for idx, n := range store.reads {
				require.Equal(t, 1, n, "index %d read %d times", idx, n)
			}
		})
	}
}

// Run опрашивает фид по таймеру и останавливается по отмене контекста.
func TestRun_PollsUntilCanceled(t *testing.T) {
	t.Parallel()

	store := memory.New()
	seed(t, store, 2)

	var (
		mu   sync.Mutex
		live int
	)
	e := New(store, testTopic, Options{
		PollInterval: 5 * time.Millisecond,
		Hooks: Hooks{OnRead: func(ev ReadEvent) {
			if ev.Source == SourceLive {
				mu.Lock()
				live += len(ev.Entries)
				mu.Unlock()
			}
		}},
	})

	_, err := e.LoadInitial(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	_, err = store.WriteAt(context.Background(), testTopic, cm("from another widget", 77), 2)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return e.Cursor() == 3 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, live)
}
