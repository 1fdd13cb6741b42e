package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shortlink-backend/internal/domain"
	"shortlink-backend/internal/repository"

	"go.uber.org/zap"
)

// ErrForbidden ссылка принадлежит другому пользователю или анонимна
var ErrForbidden = errors.New("link is not owned by the user")

// DefaultStatsDays глубина ряда кликов по дням
const DefaultStatsDays = 30

// LinkService операции владельца над своими ссылками
type LinkService struct {
	storage repository.Storage
	log     *zap.Logger
	now     func() time.Time
}

func NewLinkService(storage repository.Storage, log *zap.Logger) *LinkService {
	return &LinkService{
		storage: storage,
		log:     log.With(zap.String("component", "link_service")),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ListLinks возвращает ссылки владельца, новые первыми
func (s *LinkService) ListLinks(ctx context.Context, ownerID string) ([]*domain.Link, error) {
	links, err := s.storage.ListOwnerLinks(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

// UpdateLink включает/выключает ссылку и меняет ее метаданные
func (s *LinkService) UpdateLink(ctx context.Context, ownerID, code string, update repository.LinkUpdate) (*domain.Link, error) {
	if _, err := s.owned(ctx, ownerID, code); err != nil {
		return nil, err
	}

	link, err := s.storage.UpdateLink(ctx, code, update)
	if err != nil {
		return nil, err
	}

	s.log.Info("link updated", zap.String("short_code", code), zap.String("owner_id", ownerID), zap.Bool("is_active", link.IsActive))
	return link, nil
}

// Stats собирает аналитику ссылки по журналу кликов за последние days дней
func (s *LinkService) Stats(ctx context.Context, ownerID, code string, days int) (*domain.Link, *domain.LinkStats, error) {
	link, err := s.owned(ctx, ownerID, code)
	if err != nil {
		return nil, nil, err
	}
	if days <= 0 {
		days = DefaultStatsDays
	}

	stats := &domain.LinkStats{ClickCount: link.ClickCount}

	if stats.TotalClicks, err = s.storage.CountClicks(ctx, link.ID); err != nil {
		return nil, nil, fmt.Errorf("failed to count clicks: %w", err)
	}
	if stats.BotClicks, err = s.storage.CountBotClicks(ctx, link.ID); err != nil {
		return nil, nil, fmt.Errorf("failed to count bot clicks: %w", err)
	}

	to := s.now().Truncate(24 * time.Hour).Add(24 * time.Hour)
	from := to.AddDate(0, 0, -days)
	if stats.ClicksByDay, err = s.storage.ClicksByDay(ctx, link.ID, from, to); err != nil {
		return nil, nil, fmt.Errorf("failed to get clicks by day: %w", err)
	}

	breakdowns := []struct {
		by   repository.Breakdown
		dest *map[string]int64
	}{
		{repository.ByCountry, &stats.ByCountry},
		{repository.ByDevice, &stats.ByDevice},
		{repository.ByBrowser, &stats.ByBrowser},
		{repository.ByOS, &stats.ByOS},
		{repository.ByReferrer, &stats.ByReferrer},
	}
	for _, b := range breakdowns {
		if *b.dest, err = s.storage.ClicksBreakdown(ctx, link.ID, b.by); err != nil {
			return nil, nil, fmt.Errorf("failed to get clicks by %s: %w", b.by, err)
		}
	}

	return link, stats, nil
}

// owned загружает ссылку и проверяет, что ей владеет ownerID
func (s *LinkService) owned(ctx context.Context, ownerID, code string) (*domain.Link, error) {
	link, err := s.storage.FindByShortCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !link.IsOwnedBy(ownerID) {
		return nil, ErrForbidden
	}
	return link, nil
}
