// Package cache wraps a repository.Storage with a Redis read-through cache of active links.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shortlink-backend/internal/domain"
	"shortlink-backend/internal/repository"
	"shortlink-backend/pkg/metrics"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix     = "link:active:"
	versionPrefix = "link:version:"

	// versionTTL должен с запасом превышать время чтения из хранилища
	versionTTL = 24 * time.Hour

	// DefaultTTL используется, если ttl не задан
	DefaultTTL = 10 * time.Minute

	invalidateAttempts = 3
	invalidateBackoff  = 50 * time.Millisecond
)

// setIfVersion записывает ссылку, только если версия кода не менялась с момента
// чтения из хранилища
var setIfVersion = redis.NewScript(`
local current = redis.call("GET", KEYS[2]) or "0"
if current ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`)

// bumpVersion атомарно сдвигает версию кода и удаляет его запись
var bumpVersion = redis.NewScript(`
redis.call("INCR", KEYS[2])
redis.call("PEXPIRE", KEYS[2], ARGV[1])
redis.call("DEL", KEYS[1])
return 1
`)

// CachedStorage кэширует FindActiveByShortCode; остальные методы идут напрямую в хранилище.
// Отсутствие ссылки не кэшируется, поэтому новый код доступен сразу после вставки.
// Каждое изменение ссылки сдвигает версию кода, и запись из устаревшего чтения отбрасывается.
type CachedStorage struct {
	repository.Storage
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// New оборачивает storage кэшем
func New(storage repository.Storage, client *redis.Client, ttl time.Duration, log *zap.Logger) *CachedStorage {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CachedStorage{
		Storage: storage,
		client:  client,
		ttl:     ttl,
		log:     log.With(zap.String("component", "link_cache")),
	}
}

// NewClient создает клиента Redis и проверяет подключение
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

func key(code string) string {
	return keyPrefix + code
}

func versionKey(code string) string {
	return versionPrefix + code
}

// FindActiveByShortCode читает ссылку из кэша, при промахе - из хранилища.
// Ошибки Redis не мешают редиректу: запрос уходит в хранилище.
func (c *CachedStorage) FindActiveByShortCode(ctx context.Context, code string) (*domain.Link, error) {
	cacheable := true

	data, err := c.client.Get(ctx, key(code)).Bytes()
	switch {
	case err == nil:
		var link domain.Link
		if err := json.Unmarshal(data, &link); err == nil {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return &link, nil
		}
		c.log.Warn("dropping malformed cache entry", zap.String("short_code", code))
		c.invalidate(ctx, code)
	case errors.Is(err, redis.Nil):
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		c.log.Warn("cache read failed", zap.String("short_code", code), zap.Error(err))
		cacheable = false
	}

	// версию читаем до хранилища: изменение между чтениями не даст записать ответ
	var version string
	var verErr error
	if cacheable {
		version, verErr = c.version(ctx, code)
	}

	link, err := c.Storage.FindActiveByShortCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if !cacheable {
		return link, nil
	}
	if verErr != nil {
		c.log.Warn("cache version read failed, skipping cache write", zap.String("short_code", code), zap.Error(verErr))
		return link, nil
	}
	c.store(ctx, code, version, link)

	return link, nil
}

func (c *CachedStorage) version(ctx context.Context, code string) (string, error) {
	v, err := c.client.Get(ctx, versionKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return v, err
}

func (c *CachedStorage) store(ctx context.Context, code, version string, link *domain.Link) {
	data, err := json.Marshal(link)
	if err != nil {
		return
	}

	keys := []string{key(code), versionKey(code)}
	written, err := setIfVersion.Run(ctx, c.client, keys, version, data, c.ttl.Milliseconds()).Int()
	switch {
	case err != nil:
		c.log.Warn("cache write failed", zap.String("short_code", code), zap.Error(err))
	case written == 0:
		metrics.CacheLookups.WithLabelValues("stale").Inc()
		c.log.Debug("link changed during lookup, not caching", zap.String("short_code", code))
	}
}

// UpdateLink обновляет ссылку и сбрасывает ее запись в кэше
func (c *CachedStorage) UpdateLink(ctx context.Context, code string, update repository.LinkUpdate) (*domain.Link, error) {
	link, err := c.Storage.UpdateLink(ctx, code, update)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, code)
	return link, nil
}

// Ping проверяет хранилище; недоступный Redis только логируется
func (c *CachedStorage) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		c.log.Warn("redis unavailable, serving without cache", zap.Error(err))
	}
	return c.Storage.Ping(ctx)
}

// invalidate сдвигает версию кода и удаляет запись, повторяя при ошибках Redis.
// Если все попытки неудачны, устаревшая запись живет не дольше ttl.
func (c *CachedStorage) invalidate(ctx context.Context, code string) {
	keys := []string{key(code), versionKey(code)}

	var err error
retry:
	for attempt := 1; attempt <= invalidateAttempts; attempt++ {
		if err = bumpVersion.Run(ctx, c.client, keys, versionTTL.Milliseconds()).Err(); err == nil {
			return
		}
		if attempt == invalidateAttempts {
			break
		}
		select {
		case <-ctx.Done():
			break retry
		case <-time.After(invalidateBackoff * time.Duration(attempt)):
		}
	}

	metrics.CacheLookups.WithLabelValues("invalidation_failed").Inc()
	c.log.Error("cache invalidation failed, entry may be stale until ttl",
		zap.String("short_code", code),
		zap.Duration("ttl", c.ttl),
		zap.Error(err),
	)
}
