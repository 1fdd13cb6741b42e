package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shortlink-backend/internal/domain"
	"shortlink-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// pgUniqueViolation код ошибки PostgreSQL для нарушения уникальности
const pgUniqueViolation = "23505"

// PostgresStorage реализует repository.Storage поверх GORM
type PostgresStorage struct {
	db  *gorm.DB
	log *zap.Logger
}

// New создает новый экземпляр PostgreSQL storage
func New(db *gorm.DB, log *zap.Logger) *PostgresStorage {
	return &PostgresStorage{
		db:  db,
		log: log.With(zap.String("component", "storage")),
	}
}

// Ping проверяет доступность базы данных
func (s *PostgresStorage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// --- Link Methods ---

// FindByShortCode ищет ссылку по коду независимо от активности
func (s *PostgresStorage) FindByShortCode(ctx context.Context, code string) (*domain.Link, error) {
	return s.findLink(ctx, "short_code = ?", code)
}

// FindActiveByShortCode ищет активную ссылку по коду
func (s *PostgresStorage) FindActiveByShortCode(ctx context.Context, code string) (*domain.Link, error) {
	return s.findLink(ctx, "short_code = ? AND is_active = ?", code, true)
}

// FindByOriginalURL возвращает самую раннюю активную ссылку на данный URL
func (s *PostgresStorage) FindByOriginalURL(ctx context.Context, originalURL string) (*domain.Link, error) {
	var link domain.Link

	err := s.db.WithContext(ctx).
		Where("original_url = ? AND is_active = ?", originalURL, true).
		Order("created_at ASC").
		First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrLinkNotFound
	}
	if err != nil {
		s.log.Error("failed to find link by original url", zap.String("original_url", originalURL), zap.Error(err))
		return nil, fmt.Errorf("failed to find link: %w", err)
	}

	return &link, nil
}

// ShortCodeExists проверяет, занят ли код (включая неактивные ссылки)
func (s *PostgresStorage) ShortCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.Link{}).Where("short_code = ?", code).Count(&count).Error
	if err != nil {
		s.log.Error("failed to check short code existence", zap.String("short_code", code), zap.Error(err))
		return false, fmt.Errorf("failed to check short code: %w", err)
	}

	return count > 0, nil
}

// Insert сохраняет новую ссылку. Уникальность кода гарантирует индекс БД.
func (s *PostgresStorage) Insert(ctx context.Context, link *domain.Link) error {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}

	if err := s.db.WithContext(ctx).Create(link).Error; err != nil {
		if isUniqueViolation(err) {
			return repository.ErrShortCodeExists
		}
		s.log.Error("failed to save link", zap.String("short_code", link.ShortCode), zap.Error(err))
		return fmt.Errorf("failed to save link: %w", err)
	}

	s.log.Info("saved new link", zap.String("short_code", link.ShortCode), zap.String("link_id", link.ID))
	return nil
}

// UpdateLink меняет активность и метаданные ссылки
func (s *PostgresStorage) UpdateLink(ctx context.Context, code string, update repository.LinkUpdate) (*domain.Link, error) {
	link, err := s.FindByShortCode(ctx, code)
	if err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}
	if update.IsActive != nil {
		changes["is_active"] = *update.IsActive
	}
	if update.Title != nil {
		changes["title"] = *update.Title
	}
	if update.Description != nil {
		changes["description"] = *update.Description
	}
	if len(changes) == 0 {
		return link, nil
	}

	if err := s.db.WithContext(ctx).Model(link).Updates(changes).Error; err != nil {
		s.log.Error("failed to update link", zap.String("short_code", code), zap.Error(err))
		return nil, fmt.Errorf("failed to update link: %w", err)
	}

	s.log.Info("updated link", zap.String("short_code", code), zap.Any("changes", changes))
	return s.FindByShortCode(ctx, code)
}

// ListOwnerLinks возвращает ссылки владельца, новые первыми
func (s *PostgresStorage) ListOwnerLinks(ctx context.Context, ownerID string) ([]*domain.Link, error) {
	var links []*domain.Link

	err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).
		Order("created_at DESC").Find(&links).Error
	if err != nil {
		s.log.Error("failed to list owner links", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, fmt.Errorf("failed to list owner links: %w", err)
	}

	return links, nil
}

// IncrementClickCount атомарно увеличивает денормализованный счетчик
func (s *PostgresStorage) IncrementClickCount(ctx context.Context, linkID string) error {
	result := s.db.WithContext(ctx).Model(&domain.Link{}).
		Where("id = ?", linkID).
		UpdateColumn("click_count", gorm.Expr("click_count + 1"))
	if result.Error != nil {
		s.log.Error("failed to update click count", zap.String("link_id", linkID), zap.Error(result.Error))
		return fmt.Errorf("failed to update click count: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrLinkNotFound
	}

	return nil
}

// --- Click Methods ---

// InsertClick записывает событие перехода
func (s *PostgresStorage) InsertClick(ctx context.Context, click *domain.Click) error {
	if click.ID == "" {
		click.ID = uuid.NewString()
	}
	if click.ClickedAt.IsZero() {
		click.ClickedAt = time.Now().UTC()
	}

	if err := s.db.WithContext(ctx).Omit("Link").Create(click).Error; err != nil {
		if isUniqueViolation(err) {
			return repository.ErrClickExists
		}
		s.log.Error("failed to create click record", zap.String("link_id", click.LinkID), zap.Error(err))
		return fmt.Errorf("failed to create click: %w", err)
	}

	return nil
}

// CountClicks возвращает число кликов по журналу
func (s *PostgresStorage) CountClicks(ctx context.Context, linkID string) (int64, error) {
	return s.count(ctx, "link_id = ?", linkID)
}

// CountBotClicks возвращает число кликов от ботов
func (s *PostgresStorage) CountBotClicks(ctx context.Context, linkID string) (int64, error) {
	return s.count(ctx, "link_id = ? AND is_bot = ?", linkID, true)
}

// ClicksByDay возвращает число кликов по дням (UTC) в интервале [from, to)
func (s *PostgresStorage) ClicksByDay(ctx context.Context, linkID string, from, to time.Time) (map[string]int64, error) {
	var times []time.Time

	err := s.db.WithContext(ctx).Model(&domain.Click{}).
		Where("link_id = ? AND clicked_at >= ? AND clicked_at < ?", linkID, from, to).
		Pluck("clicked_at", &times).Error
	if err != nil {
		s.log.Error("failed to get clicks by day", zap.String("link_id", linkID), zap.Error(err))
		return nil, fmt.Errorf("failed to get clicks by day: %w", err)
	}

	byDay := make(map[string]int64)
	for _, t := range times {
		byDay[t.UTC().Format(time.DateOnly)]++
	}

	return byDay, nil
}

// ClicksBreakdown группирует клики ссылки по одному измерению
func (s *PostgresStorage) ClicksBreakdown(ctx context.Context, linkID string, by repository.Breakdown) (map[string]int64, error) {
	column, err := by.Column()
	if err != nil {
		return nil, err
	}

	var results []struct {
		Bucket string `gorm:"column:bucket"`
		Count  int64  `gorm:"column:count"`
	}

	err = s.db.WithContext(ctx).
		Model(&domain.Click{}).
		Select(fmt.Sprintf("COALESCE(%s, 'unknown') as bucket, count(*) as count", column)).
		Where("link_id = ?", linkID).
		Group(column).
		Find(&results).Error
	if err != nil {
		s.log.Error("failed to get clicks breakdown",
			zap.String("link_id", linkID),
			zap.String("by", column),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get clicks breakdown: %w", err)
	}

	breakdown := make(map[string]int64)
	for _, result := range results {
		breakdown[result.Bucket] += result.Count
	}

	return breakdown, nil
}

// --- Helper Methods ---

func (s *PostgresStorage) findLink(ctx context.Context, query string, args ...interface{}) (*domain.Link, error) {
	var link domain.Link

	err := s.db.WithContext(ctx).Where(query, args...).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrLinkNotFound
	}
	if err != nil {
		s.log.Error("failed to get link", zap.Any("args", args), zap.Error(err))
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return &link, nil
}

func (s *PostgresStorage) count(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.Click{}).Where(query, args...).Count(&count).Error
	if err != nil {
		s.log.Error("failed to count clicks", zap.Any("args", args), zap.Error(err))
		return 0, fmt.Errorf("failed to count clicks: %w", err)
	}
	return count, nil
}

// isUniqueViolation распознает нарушение уникальности как от транслятора GORM,
// так и напрямую от драйвера pgx
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
