package domain

import "time"

// Типы устройств
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceBot     = "bot"
	DeviceUnknown = "unknown"
)

// Типы источников перехода
const (
	ReferrerDirect   = "direct"
	ReferrerSearch   = "search"
	ReferrerSocial   = "social"
	ReferrerEmail    = "email"
	ReferrerInternal = "internal"
	ReferrerExternal = "external"
)

// Click представляет один переход по короткой ссылке
type Click struct {
	ID             string    `gorm:"primaryKey;column:id;type:varchar(36)" json:"id"`
	LinkID         string    `gorm:"column:link_id;type:varchar(36);not null;index" json:"link_id"`
	ClickedAt      time.Time `gorm:"column:clicked_at;not null;index" json:"clicked_at"`
	IPAddress      *string   `gorm:"column:ip_address;size:45" json:"ip_address,omitempty"`
	UserAgent      *string   `gorm:"column:user_agent;size:500" json:"user_agent,omitempty"`
	Referer        *string   `gorm:"column:referer;size:500" json:"referer,omitempty"`
	CountryCode    *string   `gorm:"column:country_code;size:2" json:"country_code,omitempty"` // ISO код страны
	CountryName    *string   `gorm:"column:country_name;size:100" json:"country_name,omitempty"`
	DeviceType     *string   `gorm:"column:device_type;size:10" json:"device_type,omitempty"`
	Browser        *string   `gorm:"column:browser;size:50" json:"browser,omitempty"`
	OS             *string   `gorm:"column:os;size:50" json:"os,omitempty"`
	IsBot          bool      `gorm:"column:is_bot;not null;default:false" json:"is_bot"`
	ReferrerType   string    `gorm:"column:referrer_type;size:20;not null;default:'direct'" json:"referrer_type"`
	ReferrerDomain *string   `gorm:"column:referrer_domain;size:255" json:"referrer_domain,omitempty"`
	ReferrerSource *string   `gorm:"column:referrer_source;size:50" json:"referrer_source,omitempty"`

	// Relationships
	Link *Link `gorm:"foreignKey:LinkID" json:"link,omitempty"`
}

// TableName возвращает название таблицы для GORM
func (Click) TableName() string {
	return "clicks"
}

// GetDeviceType возвращает тип устройства или "unknown"
func (c *Click) GetDeviceType() string {
	if c.DeviceType != nil {
		return *c.DeviceType
	}
	return DeviceUnknown
}
