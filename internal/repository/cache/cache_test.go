package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"shortlink-backend/internal/domain"
	"shortlink-backend/internal/repository"
	"shortlink-backend/internal/repository/memory"
	"shortlink-backend/internal/repository/storetest"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

func ptr[T any](v T) *T { return &v }

// unreachableClient указывает на закрытый порт: каждая команда Redis завершается ошибкой
func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCachedStorage_DegradesWithoutRedis(t *testing.T) {
	ctx := context.Background()
	storage := memory.New()
	require.NoError(t, storage.Insert(ctx, &domain.Link{ShortCode: "abc12345", OriginalURL: "https://example.com", IsActive: true}))

	cached := New(storage, unreachableClient(t), time.Minute, zap.NewNop())

	link, err := cached.FindActiveByShortCode(ctx, "abc12345")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", link.OriginalURL)

	_, err = cached.FindActiveByShortCode(ctx, "missing1")
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)

	updated, err := cached.UpdateLink(ctx, "abc12345", repository.LinkUpdate{IsActive: ptr(false)})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	_, err = cached.FindActiveByShortCode(ctx, "abc12345")
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)

	assert.NoError(t, cached.Ping(ctx))
}

func TestCachedStorage_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repository.Storage {
		return New(memory.New(), unreachableClient(t), time.Minute, zap.NewNop())
	})
}

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate redis container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client, err := NewClient(ctx, endpoint, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCachedStorage_Redis(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()

	storage := memory.New()
	require.NoError(t, storage.Insert(ctx, &domain.Link{ShortCode: "abc12345", OriginalURL: "https://example.com", IsActive: true}))
	cached := New(storage, client, time.Minute, zap.NewNop())

	// промах заполняет кэш
	link, err := cached.FindActiveByShortCode(ctx, "abc12345")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", link.OriginalURL)
	assert.Equal(t, int64(1), client.Exists(ctx, key("abc12345")).Val())

	ttl := client.TTL(ctx, key("abc12345")).Val()
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)

	// изменение в обход кэша не видно до инвалидации
	_, err = storage.UpdateLink(ctx, "abc12345", repository.LinkUpdate{IsActive: ptr(false)})
	require.NoError(t, err)
	link, err = cached.FindActiveByShortCode(ctx, "abc12345")
	require.NoError(t, err)
	assert.Equal(t, "abc12345", link.ShortCode)

	// изменение через кэш сбрасывает запись
	_, err = cached.UpdateLink(ctx, "abc12345", repository.LinkUpdate{IsActive: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, int64(0), client.Exists(ctx, key("abc12345")).Val())
	_, err = cached.FindActiveByShortCode(ctx, "abc12345")
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)

	// отсутствие не кэшируется
	assert.Equal(t, int64(0), client.Exists(ctx, key("abc12345")).Val())

	// битая запись отбрасывается
	require.NoError(t, client.Set(ctx, key("broken01"), "{not json", time.Minute).Err())
	_, err = cached.FindActiveByShortCode(ctx, "broken01")
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)
	assert.Equal(t, int64(0), client.Exists(ctx, key("broken01")).Val())
}

// blockingStorage задерживает первое чтение активной ссылки уже после обращения к хранилищу
type blockingStorage struct {
	repository.Storage
	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func (s *blockingStorage) FindActiveByShortCode(ctx context.Context, code string) (*domain.Link, error) {
	link, err := s.Storage.FindActiveByShortCode(ctx, code)
	s.once.Do(func() {
		close(s.read)
		<-s.release
	})
	return link, err
}

func TestCachedStorage_DeactivationDuringLookup(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()

	storage := memory.New()
	require.NoError(t, storage.Insert(ctx, &domain.Link{ShortCode: "abc12345", OriginalURL: "https://example.com", IsActive: true}))
	blocking := &blockingStorage{Storage: storage, read: make(chan struct{}), release: make(chan struct{})}
	cached := New(blocking, client, time.Minute, zap.NewNop())

	type result struct {
		link *domain.Link
		err  error
	}
	done := make(chan result, 1)
	go func() {
		link, err := cached.FindActiveByShortCode(ctx, "abc12345")
		done <- result{link, err}
	}()

	// запрос прочитал активную строку, владелец деактивирует ссылку до записи в кэш
	<-blocking.read
	_, err := cached.UpdateLink(ctx, "abc12345", repository.LinkUpdate{IsActive: ptr(false)})
	require.NoError(t, err)
	close(blocking.release)

	res := <-done
	require.NoError(t, res.err)
	assert.True(t, res.link.IsActive)

	assert.Equal(t, int64(0), client.Exists(ctx, key("abc12345")).Val())
	_, err = cached.FindActiveByShortCode(ctx, "abc12345")
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)

	// после повторной активации кэш снова заполняется
	_, err = cached.UpdateLink(ctx, "abc12345", repository.LinkUpdate{IsActive: ptr(true)})
	require.NoError(t, err)
	_, err = cached.FindActiveByShortCode(ctx, "abc12345")
	require.NoError(t, err)
	assert.Equal(t, int64(1), client.Exists(ctx, key("abc12345")).Val())
	assert.Equal(t, "2", client.Get(ctx, versionKey("abc12345")).Val())
}

func TestNew_DefaultTTL(t *testing.T) {
	cached := New(memory.New(), unreachableClient(t), 0, zap.NewNop())
	assert.Equal(t, DefaultTTL, cached.ttl)
}
