package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-feed-comments/internal/bootstrap"
	"github.com/pribylovaa/go-feed-comments/internal/config"
	"github.com/pribylovaa/go-feed-comments/internal/engine"
	"github.com/pribylovaa/go-feed-comments/internal/feed"
	"github.com/pribylovaa/go-feed-comments/internal/feed/memory"
	"github.com/pribylovaa/go-feed-comments/internal/models"
	"github.com/pribylovaa/go-feed-comments/internal/service"
)

var (
	fixedNow  = time.Date(2024, time.March, 1, 10, 30, 0, 0, time.UTC)
	testTopic = "0x" + strings.Repeat("11", 32)
)

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

// syncBuffer — bytes.Buffer, безопасный для записи из хуков движка.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// writeConfig пишет минимальный конфиг и возвращает путь к нему.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "feedctl.yaml")
	data := fmt.Sprintf("feed:\n  identifier: %q\nidentity:\n  display_name: \"alice\"\n%s", testTopic, extra)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

// memoryOpener собирает виджет поверх общего хранилища в памяти.
func memoryOpener(store feed.Store) OpenFunc {
	return func(_ context.Context, cfg *config.Config, hooks engine.Hooks) (*bootstrap.App, error) {
		topic := bootstrap.Topic(cfg.Feed.Identifier)
		eng := engine.New(store, topic, engine.Options{
			PageSize:     cfg.Sync.PageSize,
			BatchSize:    cfg.Sync.BatchSize,
			PollInterval: cfg.Sync.PollInterval,
			Hooks:        hooks,
		})

		return &bootstrap.App{
			Topic:   topic,
			Store:   store,
			Engine:  eng,
			Service: service.New(eng, models.Identity{DisplayName: cfg.Identity.DisplayName}, cfg.Limits),
		}, nil
	}
}

func seed(t *testing.T, store feed.Store, texts []string, times []time.Time) {
	t.Helper()

	topic := bootstrap.Topic(testTopic)
	for i, text := range texts {
		_, err := store.WriteAt(context.Background(), topic, models.Comment{
			Author:    models.Identity{DisplayName: "bob"},
			Text:      text,
			CreatedAt: times[i],
		}, uint64(i))
		require.NoError(t, err)
	}
}

// execute запускает feedctl с аргументами и возвращает stdout.
func execute(t *testing.T, store feed.Store, args ...string) (string, error) {
	t.Helper()

	opts := &RootOptions{open: memoryOpener(store), now: func() time.Time { return fixedNow }}
	cmd := newRootCommand(opts)

	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "feedctl", cmd.Use)

	for _, name := range []string{"load", "post", "history", "watch", "topic"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, memory.New(), "load", "--config", writeConfig(t, ""), "--format", "xml")
	require.Error(t, err)
	require.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestBadConfig(t *testing.T) {
	_, err := execute(t, memory.New(), "load", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	require.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRenderList_Golden(t *testing.T) {
	v := listView{
		Topic:  "0x" + strings.Repeat("22", 32),
		Cursor: 8,
		Entries: []entryView{
			newEntryView(models.Entry{
				ID:    "01HZX0000000000000000000A1",
				Index: 7,
				State: models.StateConfirmed,
				Comment: models.Comment{
					Author:    models.Identity{DisplayName: "alice", Address: "0x970E8128AB834E8EAC17Ab8E3812F010678CF791"},
					Text:      "hello",
					CreatedAt: time.Date(2024, time.March, 1, 9, 5, 0, 123_000_000, time.UTC),
				},
			}),
			newEntryView(models.Entry{
				ID:    "01HZX0000000000000000000B2",
				Index: 3,
				State: models.StateErrorFlagged,
				Comment: models.Comment{
					Author:    models.Identity{DisplayName: "alice"},
					Text:      "retry me",
					CreatedAt: time.Date(2024, time.February, 29, 23, 59, 0, 0, time.UTC),
				},
			}),
		},
	}

	for _, format := range ValidFormats {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, renderList(&buf, format, v, fixedNow))
			golden(t).Assert(t, "list_"+format, buf.Bytes())
		})
	}
}

func TestLoadCommand_Golden(t *testing.T) {
	store := memory.New()
	seed(t, store,
		[]string{"happy new year", "leap day", "morning"},
		[]time.Time{
			time.Date(2023, time.December, 31, 18, 45, 0, 0, time.UTC),
			time.Date(2024, time.February, 29, 23, 59, 0, 0, time.UTC),
			time.Date(2024, time.March, 1, 9, 5, 0, 0, time.UTC),
		},
	)

	out, err := execute(t, store, "load", "--config", writeConfig(t, "sync:\n  page_size: 4\n"))
	require.NoError(t, err)
	golden(t).Assert(t, "load_text", []byte(out))
}

func TestLoadCommand_Empty(t *testing.T) {
	out, err := execute(t, memory.New(), "load", "--config", writeConfig(t, ""))
	require.NoError(t, err)
	golden(t).Assert(t, "load_empty_text", []byte(out))
}

func TestLoadCommand_Own(t *testing.T) {
	store := memory.New()
	seed(t, store, []string{"from bob"}, []time.Time{fixedNow})

	cfg := writeConfig(t, "")
	_, err := execute(t, store, "post", "--config", cfg, "mine")
	require.NoError(t, err)

	out, err := execute(t, store, "load", "--config", cfg, "--own", "--format", "json")
	require.NoError(t, err)

	var v listView
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	require.Len(t, v.Entries, 1)
	require.Equal(t, "mine", v.Entries[0].Text)
	require.EqualValues(t, 2, v.Cursor)
}

func TestPostCommand(t *testing.T) {
	store := memory.New()
	seed(t, store, []string{"a", "b"}, []time.Time{fixedNow, fixedNow})

	out, err := execute(t, store, "post", "--config", writeConfig(t, ""), "--name", "carol", "hello", "there")
	require.NoError(t, err)
	require.Contains(t, out, "#2")
	require.Contains(t, out, "carol: hello there")

	latest, err := store.ReadLatest(context.Background(), bootstrap.Topic(testTopic))
	require.NoError(t, err)
	require.EqualValues(t, 3, latest.NextIndex)
	require.Equal(t, "hello there", latest.Comment.Text)
}

// rejectingStore — фид, не принимающий записи.
type rejectingStore struct {
	*memory.Store
}

func (rejectingStore) WriteAt(context.Context, feed.Topic, models.Comment, uint64) (*feed.WriteResult, error) {
	return nil, errors.New("gateway down")
}

func TestPostCommand_Errors(t *testing.T) {
	cfg := writeConfig(t, "")

	out, err := execute(t, rejectingStore{memory.New()}, "post", "--config", cfg, "--format", "yaml", "lost")
	require.Error(t, err)
	require.Equal(t, ExitFailure, GetExitCode(err))
	require.Contains(t, out, "state: error")

	_, err = execute(t, memory.New(), "post", "--config", cfg, "   ")
	require.Error(t, err)
	require.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, memory.New(), "post", "--config", cfg)
	require.Error(t, err)
}

func TestHistoryCommand(t *testing.T) {
	store := memory.New()
	texts := make([]string, 12)
	times := make([]time.Time, 12)
	for i := range texts {
		texts[i] = fmt.Sprintf("c%d", i)
		times[i] = fixedNow.Add(time.Duration(i) * time.Minute)
	}
	seed(t, store, texts, times)

	cfg := writeConfig(t, "sync:\n  page_size: 4\n")

	cases := []struct {
		pages     string
		want      int
		first     string
		exhausted bool
	}{
		{"1", 9, "c3", false},
		{"2", 12, "c0", true},
		{"0", 12, "c0", true},
	}

	for _, tc := range cases {
		t.Run("pages="+tc.pages, func(t *testing.T) {
			out, err := execute(t, store, "history", "--config", cfg, "--pages", tc.pages, "--format", "json")
			require.NoError(t, err)

			var v listView
			require.NoError(t, json.Unmarshal([]byte(out), &v))
			require.Len(t, v.Entries, tc.want)
			require.Equal(t, tc.first, v.Entries[0].Text)
			require.Equal(t, tc.exhausted, v.Exhausted)
			require.EqualValues(t, 12, v.Cursor)
		})
	}

	_, err := execute(t, store, "history", "--config", cfg, "--pages", "-1")
	require.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestWatchCommand_PrintsNewComments(t *testing.T) {
	store := memory.New()
	seed(t, store, []string{"old"}, []time.Time{fixedNow})

	opts := &RootOptions{open: memoryOpener(store), now: func() time.Time { return fixedNow }}
	cmd := newRootCommand(opts)

	out := &syncBuffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"watch", "--config", writeConfig(t, ""), "--interval", "10ms"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "bob: old") },
		2*time.Second, 5*time.Millisecond)

	_, err := store.WriteAt(context.Background(), bootstrap.Topic(testTopic), models.Comment{
		Author:    models.Identity{DisplayName: "dave"},
		Text:      "fresh",
		CreatedAt: fixedNow,
	}, 1)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "#1    10:30  dave: fresh") },
		2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestTopicCommand(t *testing.T) {
	out, err := execute(t, memory.New(), "topic", testTopic)
	require.NoError(t, err)
	require.Equal(t, testTopic+"\n", out)

	out, err = execute(t, memory.New(), "topic", "https://example.org/posts/1")
	require.NoError(t, err)
	require.Equal(t, feed.MakeTopic("https://example.org/posts/1").Hex()+"\n", out)
}

func TestGetExitCode(t *testing.T) {
	require.Equal(t, ExitSuccess, GetExitCode(nil))
	require.Equal(t, ExitFailure, GetExitCode(errors.New("x")))
	require.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrap: %w", NewExitError(ExitCommandError, "bad"))))
}
