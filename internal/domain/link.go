package domain

import "time"

// Link представляет короткую ссылку
type Link struct {
	ID          string    `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	ShortCode   string    `gorm:"column:short_code;size:20;uniqueIndex;not null" json:"short_code"`
	OriginalURL string    `gorm:"column:original_url;type:text;index;not null" json:"original_url"`
	Title       *string   `gorm:"column:title;size:255" json:"title,omitempty"`
	Description *string   `gorm:"column:description;type:text" json:"description,omitempty"`
	OwnerID     *string   `gorm:"column:owner_id;type:varchar(36);index" json:"owner_id,omitempty"`
	IsActive    bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	ClickCount  int64     `gorm:"column:click_count;not null;default:0" json:"click_count"` // денормализованный счетчик, источник истины - clicks
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName возвращает название таблицы для GORM
func (Link) TableName() string {
	return "links"
}

// IsAnonymous сообщает, что ссылка создана без владельца
func (l *Link) IsAnonymous() bool {
	return l.OwnerID == nil || *l.OwnerID == ""
}

// IsOwnedBy проверяет принадлежность ссылки пользователю
func (l *Link) IsOwnedBy(userID string) bool {
	return !l.IsAnonymous() && *l.OwnerID == userID
}
