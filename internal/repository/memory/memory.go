package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"shortlink-backend/internal/domain"
	"shortlink-backend/internal/repository"

	"github.com/google/uuid"
)

// MemStorage is a process-local repository.Storage used for development and tests.
// Links and clicks are stored by value; callers always receive copies.
type MemStorage struct {
	mu     sync.RWMutex
	links  map[string]*domain.Link // by short code
	byID   map[string]string       // link id -> short code
	clicks []domain.Click
	seen   map[string]struct{} // click ids
}

func New() *MemStorage {
	return &MemStorage{
		links: make(map[string]*domain.Link),
		byID:  make(map[string]string),
		seen:  make(map[string]struct{}),
	}
}

func (s *MemStorage) Ping(context.Context) error {
	return nil
}

// --- Link Methods ---

func (s *MemStorage) FindByShortCode(_ context.Context, code string) (*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.links[code]
	if !ok {
		return nil, repository.ErrLinkNotFound
	}
	return copyLink(link), nil
}

func (s *MemStorage) FindActiveByShortCode(_ context.Context, code string) (*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.links[code]
	if !ok || !link.IsActive {
		return nil, repository.ErrLinkNotFound
	}
	return copyLink(link), nil
}

func (s *MemStorage) FindByOriginalURL(_ context.Context, originalURL string) (*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *domain.Link
	for _, link := range s.links {
		if link.OriginalURL != originalURL || !link.IsActive {
			continue
		}
		if found == nil || link.CreatedAt.Before(found.CreatedAt) {
			found = link
		}
	}
	if found == nil {
		return nil, repository.ErrLinkNotFound
	}
	return copyLink(found), nil
}

func (s *MemStorage) ShortCodeExists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.links[code]
	return ok, nil
}

func (s *MemStorage) Insert(_ context.Context, link *domain.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Проверка и вставка под одной блокировкой - аналог уникального индекса
	if _, exists := s.links[link.ShortCode]; exists {
		return repository.ErrShortCodeExists
	}
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if link.CreatedAt.IsZero() {
		link.CreatedAt = now
	}
	link.UpdatedAt = now

	s.links[link.ShortCode] = copyLink(link)
	s.byID[link.ID] = link.ShortCode
	return nil
}

func (s *MemStorage) UpdateLink(_ context.Context, code string, update repository.LinkUpdate) (*domain.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[code]
	if !ok {
		return nil, repository.ErrLinkNotFound
	}
	if update.IsActive != nil {
		link.IsActive = *update.IsActive
	}
	if update.Title != nil {
		title := *update.Title
		link.Title = &title
	}
	if update.Description != nil {
		description := *update.Description
		link.Description = &description
	}
	link.UpdatedAt = time.Now().UTC()
	return copyLink(link), nil
}

func (s *MemStorage) ListOwnerLinks(_ context.Context, ownerID string) ([]*domain.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ownerLinks []*domain.Link
	for _, link := range s.links {
		if link.IsOwnedBy(ownerID) {
			ownerLinks = append(ownerLinks, copyLink(link))
		}
	}
	sort.Slice(ownerLinks, func(i, j int) bool {
		return ownerLinks[i].CreatedAt.After(ownerLinks[j].CreatedAt)
	})
	return ownerLinks, nil
}

func (s *MemStorage) IncrementClickCount(_ context.Context, linkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.byID[linkID]
	if !ok {
		return repository.ErrLinkNotFound
	}
	s.links[code].ClickCount++
	return nil
}

// --- Click Methods ---

func (s *MemStorage) InsertClick(_ context.Context, click *domain.Click) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if click.ID == "" {
		click.ID = uuid.NewString()
	}
	if _, dup := s.seen[click.ID]; dup {
		return repository.ErrClickExists
	}
	if click.ClickedAt.IsZero() {
		click.ClickedAt = time.Now().UTC()
	}
	s.seen[click.ID] = struct{}{}
	stored := *click
	stored.Link = nil
	s.clicks = append(s.clicks, stored)
	return nil
}

func (s *MemStorage) CountClicks(_ context.Context, linkID string) (int64, error) {
	return s.countWhere(func(c *domain.Click) bool { return c.LinkID == linkID }), nil
}

func (s *MemStorage) CountBotClicks(_ context.Context, linkID string) (int64, error) {
	return s.countWhere(func(c *domain.Click) bool { return c.LinkID == linkID && c.IsBot }), nil
}

func (s *MemStorage) ClicksByDay(_ context.Context, linkID string, from, to time.Time) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byDay := make(map[string]int64)
	for i := range s.clicks {
		c := &s.clicks[i]
		if c.LinkID != linkID || c.ClickedAt.Before(from) || !c.ClickedAt.Before(to) {
			continue
		}
		byDay[c.ClickedAt.UTC().Format(time.DateOnly)]++
	}
	return byDay, nil
}

func (s *MemStorage) ClicksBreakdown(_ context.Context, linkID string, by repository.Breakdown) (map[string]int64, error) {
	if _, err := by.Column(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	breakdown := make(map[string]int64)
	for i := range s.clicks {
		c := &s.clicks[i]
		if c.LinkID != linkID {
			continue
		}
		breakdown[bucket(c, by)]++
	}
	return breakdown, nil
}

// Clicks returns a snapshot of all recorded clicks.
func (s *MemStorage) Clicks() []domain.Click {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Click, len(s.clicks))
	copy(out, s.clicks)
	return out
}

func (s *MemStorage) countWhere(match func(*domain.Click) bool) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for i := range s.clicks {
		if match(&s.clicks[i]) {
			n++
		}
	}
	return n
}

func bucket(c *domain.Click, by repository.Breakdown) string {
	var v *string
	switch by {
	case repository.ByCountry:
		v = c.CountryCode
	case repository.ByDevice:
		v = c.DeviceType
	case repository.ByBrowser:
		v = c.Browser
	case repository.ByOS:
		v = c.OS
	case repository.ByReferrer:
		v = &c.ReferrerType
	}
	if v == nil || *v == "" {
		return "unknown"
	}
	return *v
}

func copyLink(l *domain.Link) *domain.Link {
	c := *l
	return &c
}
