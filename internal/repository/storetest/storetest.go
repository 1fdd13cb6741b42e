// Package storetest holds the behavioural suite every repository.Storage must pass.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"shortlink-backend/internal/domain"
	"shortlink-backend/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty storage for one subtest.
type Factory func(t *testing.T) repository.Storage

// Run executes the suite against storages produced by newStorage.
func Run(t *testing.T, newStorage Factory) {
	t.Run("insert and find", func(t *testing.T) { testInsertAndFind(t, newStorage(t)) })
	t.Run("unique short code", func(t *testing.T) { testUniqueShortCode(t, newStorage(t)) })
	t.Run("concurrent inserts of one code", func(t *testing.T) { testConcurrentInsert(t, newStorage(t)) })
	t.Run("inactive links", func(t *testing.T) { testInactive(t, newStorage(t)) })
	t.Run("find by original url", func(t *testing.T) { testFindByOriginalURL(t, newStorage(t)) })
	t.Run("update link", func(t *testing.T) { testUpdateLink(t, newStorage(t)) })
	t.Run("owner links", func(t *testing.T) { testOwnerLinks(t, newStorage(t)) })
	t.Run("clicks", func(t *testing.T) { testClicks(t, newStorage(t)) })
}

func newLink(code, url string) *domain.Link {
	return &domain.Link{ShortCode: code, OriginalURL: url, IsActive: true}
}

func ptr[T any](v T) *T { return &v }

func testInsertAndFind(t *testing.T, s repository.Storage) {
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))

	link := newLink("abc12345", "https://example.com/a")
	link.Title = ptr("Example")
	require.NoError(t, s.Insert(ctx, link))
	assert.NotEmpty(t, link.ID)

	found, err := s.FindByShortCode(ctx, "abc12345")
	require.NoError(t, err)
	assert.Equal(t, link.ID, found.ID)
	assert.Equal(t, "https://example.com/a", found.OriginalURL)
	require.NotNil(t, found.Title)
	assert.Equal(t, "Example", *found.Title)
	assert.True(t, found.IsActive)
	assert.False(t, found.CreatedAt.IsZero())

	exists, err := s.ShortCodeExists(ctx, "abc12345")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.ShortCodeExists(ctx, "nope1234")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = s.FindByShortCode(ctx, "nope1234")
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)
}

func testUniqueShortCode(t *testing.T, s repository.Storage) {
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, newLink("taken123", "https://example.com/1")))
	err := s.Insert(ctx, newLink("taken123", "https://example.com/2"))
	assert.ErrorIs(t, err, repository.ErrShortCodeExists)

	found, err := s.FindByShortCode(ctx, "taken123")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/1", found.OriginalURL)
}

func testConcurrentInsert(t *testing.T, s repository.Storage) {
	ctx := context.Background()
	const writers = 8

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		dup     int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Insert(ctx, newLink("race0001", gofakeit.URL()))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case assert.ErrorIs(t, err, repository.ErrShortCodeExists):
				dup++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, writers-1, dup)
}

func testInactive(t *testing.T, s repository.Storage) {
	ctx := context.Background()

	link := newLink("sleepy01", "https://example.com/sleepy")
	require.NoError(t, s.Insert(ctx, link))
	_, err := s.UpdateLink(ctx, "sleepy01", repository.LinkUpdate{IsActive: ptr(false)})
	require.NoError(t, err)

	_, err = s.FindActiveByShortCode(ctx, "sleepy01")
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)

	// inactive codes still occupy the namespace
	exists, err := s.ShortCodeExists(ctx, "sleepy01")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.ErrorIs(t, s.Insert(ctx, newLink("sleepy01", "https://other.example")), repository.ErrShortCodeExists)

	_, err = s.FindByOriginalURL(ctx, "https://example.com/sleepy")
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)
}

func testFindByOriginalURL(t *testing.T, s repository.Storage) {
	ctx := context.Background()

	first := newLink("first001", "https://example.com/dup")
	first.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, s.Insert(ctx, first))
	require.NoError(t, s.Insert(ctx, newLink("second01", "https://example.com/dup")))

	found, err := s.FindByOriginalURL(ctx, "https://example.com/dup")
	require.NoError(t, err)
	assert.Equal(t, "first001", found.ShortCode)

	_, err = s.FindByOriginalURL(ctx, "https://example.com/none")
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)
}

func testUpdateLink(t *testing.T, s repository.Storage) {
	ctx := context.Background()
	require.NoError(t, s.Insert(ctx, newLink("upd00001", "https://example.com/u")))

	updated, err := s.UpdateLink(ctx, "upd00001", repository.LinkUpdate{
		Title:       ptr("New title"),
		Description: ptr("Described"),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.Title)
	assert.Equal(t, "New title", *updated.Title)
	require.NotNil(t, updated.Description)
	assert.Equal(t, "Described", *updated.Description)
	assert.True(t, updated.IsActive)
	assert.Equal(t, "https://example.com/u", updated.OriginalURL)

	updated, err = s.UpdateLink(ctx, "upd00001", repository.LinkUpdate{IsActive: ptr(false)})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	updated, err = s.UpdateLink(ctx, "upd00001", repository.LinkUpdate{IsActive: ptr(true)})
	require.NoError(t, err)
	assert.True(t, updated.IsActive)

	_, err = s.UpdateLink(ctx, "missing1", repository.LinkUpdate{IsActive: ptr(true)})
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)
}

func testOwnerLinks(t *testing.T, s repository.Storage) {
	ctx := context.Background()

	older := newLink("owner001", "https://example.com/o1")
	older.OwnerID = ptr("user-1")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	newer := newLink("owner002", "https://example.com/o2")
	newer.OwnerID = ptr("user-1")
	other := newLink("owner003", "https://example.com/o3")
	other.OwnerID = ptr("user-2")
	anon := newLink("anon0001", "https://example.com/anon")

	for _, l := range []*domain.Link{older, newer, other, anon} {
		require.NoError(t, s.Insert(ctx, l))
	}

	links, err := s.ListOwnerLinks(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "owner002", links[0].ShortCode)
	assert.Equal(t, "owner001", links[1].ShortCode)

	links, err = s.ListOwnerLinks(ctx, "user-3")
	require.NoError(t, err)
	assert.Empty(t, links)
}

func testClicks(t *testing.T, s repository.Storage) {
	ctx := context.Background()

	link := newLink("clicks01", "https://example.com/c")
	require.NoError(t, s.Insert(ctx, link))

	day1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 2, 23, 30, 0, 0, time.UTC)
	clicks := []*domain.Click{
		{LinkID: link.ID, ClickedAt: day1, CountryCode: ptr("US"), DeviceType: ptr(domain.DeviceDesktop), Browser: ptr("Chrome"), OS: ptr("Windows"), ReferrerType: domain.ReferrerSearch},
		{LinkID: link.ID, ClickedAt: day1.Add(time.Hour), CountryCode: ptr("US"), DeviceType: ptr(domain.DeviceMobile), Browser: ptr("Safari"), OS: ptr("iOS"), ReferrerType: domain.ReferrerSocial},
		{LinkID: link.ID, ClickedAt: day2, DeviceType: ptr(domain.DeviceBot), IsBot: true, ReferrerType: domain.ReferrerDirect},
	}
	for _, c := range clicks {
		require.NoError(t, s.InsertClick(ctx, c))
		assert.NotEmpty(t, c.ID)
	}
	// повтор той же записи не дублирует клик
	assert.ErrorIs(t, s.InsertClick(ctx, clicks[0]), repository.ErrClickExists)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.IncrementClickCount(ctx, link.ID))
	}
	assert.ErrorIs(t, s.IncrementClickCount(ctx, "no-such-link"), repository.ErrLinkNotFound)

	total, err := s.CountClicks(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	bots, err := s.CountBotClicks(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), bots)

	found, err := s.FindByShortCode(ctx, "clicks01")
	require.NoError(t, err)
	assert.Equal(t, int64(3), found.ClickCount)

	byDay, err := s.ClicksByDay(ctx, link.ID, day1.Add(-24*time.Hour), day2.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"2026-03-01": 2, "2026-03-02": 1}, byDay)

	byDay, err = s.ClicksByDay(ctx, link.ID, day2.Add(-time.Minute), day2.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"2026-03-02": 1}, byDay)

	byCountry, err := s.ClicksBreakdown(ctx, link.ID, repository.ByCountry)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"US": 2, "unknown": 1}, byCountry)

	byDevice, err := s.ClicksBreakdown(ctx, link.ID, repository.ByDevice)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{domain.DeviceDesktop: 1, domain.DeviceMobile: 1, domain.DeviceBot: 1}, byDevice)

	byReferrer, err := s.ClicksBreakdown(ctx, link.ID, repository.ByReferrer)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{domain.ReferrerSearch: 1, domain.ReferrerSocial: 1, domain.ReferrerDirect: 1}, byReferrer)

	_, err = s.ClicksBreakdown(ctx, link.ID, repository.Breakdown("ip_address; DROP TABLE clicks"))
	assert.ErrorIs(t, err, repository.ErrUnknownBreakdown)
}
