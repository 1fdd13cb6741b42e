package repository

import (
	"context"
	"errors"
	"time"

	"shortlink-backend/internal/domain"
)

var (
	ErrLinkNotFound     = errors.New("link not found")
	ErrShortCodeExists  = errors.New("short code already exists")
	ErrClickExists      = errors.New("click already recorded")
	ErrUnknownBreakdown = errors.New("unknown breakdown dimension")
)

// Breakdown измерение для группировки кликов
type Breakdown string

const (
	ByCountry  Breakdown = "country_code"
	ByDevice   Breakdown = "device_type"
	ByBrowser  Breakdown = "browser"
	ByOS       Breakdown = "os"
	ByReferrer Breakdown = "referrer_type"
)

// Column возвращает колонку таблицы clicks для измерения
func (b Breakdown) Column() (string, error) {
	switch b {
	case ByCountry, ByDevice, ByBrowser, ByOS, ByReferrer:
		return string(b), nil
	}
	return "", ErrUnknownBreakdown
}

// LinkStore хранилище коротких ссылок.
// Insert обязан атомарно обеспечивать уникальность short_code и возвращать
// ErrShortCodeExists при нарушении.
type LinkStore interface {
	FindByShortCode(ctx context.Context, code string) (*domain.Link, error)
	FindActiveByShortCode(ctx context.Context, code string) (*domain.Link, error)
	FindByOriginalURL(ctx context.Context, originalURL string) (*domain.Link, error)
	ShortCodeExists(ctx context.Context, code string) (bool, error)
	Insert(ctx context.Context, link *domain.Link) error
	UpdateLink(ctx context.Context, code string, update LinkUpdate) (*domain.Link, error)
	ListOwnerLinks(ctx context.Context, ownerID string) ([]*domain.Link, error)
	IncrementClickCount(ctx context.Context, linkID string) error
}

// LinkUpdate изменяемые поля ссылки; nil означает "не менять"
type LinkUpdate struct {
	IsActive    *bool
	Title       *string
	Description *string
}

// ClickStore журнал кликов, источник истины для аналитики.
// Повторная вставка клика с тем же ID возвращает ErrClickExists.
type ClickStore interface {
	InsertClick(ctx context.Context, click *domain.Click) error
	CountClicks(ctx context.Context, linkID string) (int64, error)
	CountBotClicks(ctx context.Context, linkID string) (int64, error)
	ClicksByDay(ctx context.Context, linkID string, from, to time.Time) (map[string]int64, error)
	ClicksBreakdown(ctx context.Context, linkID string, by Breakdown) (map[string]int64, error)
}

// Storage объединяет оба хранилища
type Storage interface {
	LinkStore
	ClickStore
	Ping(ctx context.Context) error
}
