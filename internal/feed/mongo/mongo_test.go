package mongo

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-feed-comments/internal/config"
	"github.com/pribylovaa/go-feed-comments/internal/feed"
	"github.com/pribylovaa/go-feed-comments/internal/models"
	"github.com/stretchr/testify/require"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// testTimeout — общий дедлайн на операции с БД в тестах.
const testTimeout = 10 * time.Second

// TestMain запускает MongoDB в контейнере один раз на весь пакет тестов.
// Адрес контейнера прокидывается в ENV DATABASE_URL, а каждый тест
// создаёт свою БД с уникальным именем (см. newTestConfig).
func TestMain(m *testing.M) {
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		os.Exit(m.Run())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	req := testcontainers.ContainerRequest{
		Image:        "mongo:7.0",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(90 * time.Second),
	}

	mongoC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start mongo testcontainer: %v\n", err)
		os.Exit(1)
	}

	host, err := mongoC.Host(ctx)
	if err != nil {
		_ = mongoC.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get container host: %v\n", err)
		os.Exit(1)
	}

	port, err := mongoC.MappedPort(ctx, "27017/tcp")
	if err != nil {
		_ = mongoC.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "failed to get mapped port: %v\n", err)
		os.Exit(1)
	}

	_ = os.Setenv("DATABASE_URL", fmt.Sprintf("mongodb://%s:%s", host, port.Port()))

	code := m.Run()

	_ = mongoC.Terminate(context.Background())
	os.Exit(code)
}

// newTestConfig создаёт конфиг с отдельной тестовой БД.
// Без DATABASE_URL (интеграционный режим выключен) тест пропускается.
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()

	baseURL := os.Getenv("DATABASE_URL")
	if baseURL == "" {
		t.Skip("DATABASE_URL is not set; run with GO_TEST_INTEGRATION=1")
	}

	dbName := "feed_test_" + uuid.New().String()
	if baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL + dbName
	} else {
		baseURL = baseURL + "/" + dbName
	}

	return &config.Config{
		Feed: config.FeedConfig{Identifier: "test", Backend: config.BackendMongo},
		DB:   config.DBConfig{URL: baseURL},
	}
}

// mustNewMongo создаёт подключение к тестовой БД и регистрирует очистку по завершении теста.
func mustNewMongo(t *testing.T, cfg *config.Config) *Mongo {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	m, err := New(ctx, cfg)
	require.NoError(t, err, "cannot connect to MongoDB (DATABASE_URL=%s)", cfg.DB.URL)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
		defer cancel()
		_ = m.db.Drop(ctx)
		_ = m.Close(ctx)
	})

	return m
}

func comment(text string, ms int64) models.Comment {
	return models.Comment{
		Author:    models.Identity{DisplayName: "alice", Address: "0x00000000000000000000000000000000000000Aa"},
		Text:      text,
		CreatedAt: time.UnixMilli(ms).UTC(),
		MessageID: "m-" + text,
	}
}

// TestDatabaseFromURI — имя БД берётся из пути URI, иначе дефолт.
func TestDatabaseFromURI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"mongodb://localhost:27017/widget", "widget"},
		{"mongodb://u:p@h:1/widget?replicaSet=rs0", "widget"},
		{"mongodb://localhost:27017", defaultDBName},
		{"mongodb://localhost:27017/", defaultDBName},
		{"::bad", defaultDBName},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, databaseFromURI(tt.in), tt.in)
	}
}

func TestNew_BadConfig(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), nil)
	require.Error(t, err)

	_, err = New(context.Background(), &config.Config{})
	require.Error(t, err)
}

// TestMongo_EmptyFeed — пустой фид: ReadLatest/ReadAt -> feed.ErrNotFound.
func TestMongo_EmptyFeed(t *testing.T) {
	m := mustNewMongo(t, newTestConfig(t))

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	topic := feed.MakeTopic("empty")

	_, err := m.ReadLatest(ctx, topic)
	require.ErrorIs(t, err, feed.ErrNotFound)

	_, err = m.ReadAt(ctx, topic, 0)
	require.ErrorIs(t, err, feed.ErrNotFound)

	got, err := m.ReadRange(ctx, topic, 0, 10)
	require.NoError(t, err)
	require.Empty(t, got)
}

// TestMongo_WriteRead — запись по порядку, чтение по индексу/диапазону/последней.
func TestMongo_WriteRead(t *testing.T) {
	m := mustNewMongo(t, newTestConfig(t))

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	topic := feed.MakeTopic("room")
	for i := 0; i < 5; i++ {
		res, err := m.WriteAt(ctx, topic, comment(string(rune('a'+i)), int64(1000+i)), uint64(i))
		require.NoError(t, err)
		require.EqualValues(t, i, res.Index)
		require.NotEmpty(t, res.Reference)
	}

	latest, err := m.ReadLatest(ctx, topic)
	require.NoError(t, err)
	require.EqualValues(t, 5, latest.NextIndex)
	require.Equal(t, "e", latest.Comment.Text)

	c, err := m.ReadAt(ctx, topic, 2)
	require.NoError(t, err)
	require.Equal(t, comment("c", 1002), *c)

	rng, err := m.ReadRange(ctx, topic, 3, 9)
	require.NoError(t, err)
	require.Len(t, rng, 2)
	require.EqualValues(t, 3, rng[0].Index)
	require.EqualValues(t, 4, rng[1].Index)

	_, err = m.ReadRange(ctx, topic, 3, 2)
	require.ErrorIs(t, err, feed.ErrInvalidRange)
}

// TestMongo_WriteAt_Conditional — слот занимает ровно один писатель.
func TestMongo_WriteAt_Conditional(t *testing.T) {
	m := mustNewMongo(t, newTestConfig(t))

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	topic := feed.MakeTopic("race")

	_, err := m.WriteAt(ctx, topic, comment("gap", 1), 3)
	require.ErrorIs(t, err, feed.ErrIndexTaken)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := m.WriteAt(ctx, topic, comment(fmt.Sprint(i), int64(i)), 0); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, wins)

	latest, err := m.ReadLatest(ctx, topic)
	require.NoError(t, err)
	require.EqualValues(t, 1, latest.NextIndex)
}
