package models

import "time"

// AuditEvent — журнал безопасности, только добавление.
// Записи никогда не обновляются и не удаляются.
type AuditEvent struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time

	ActorUserID *uint `gorm:"index"`
	Actor       *User `gorm:"foreignKey:ActorUserID"`

	Action     string `gorm:"size:50;not null;index"` // "password_reset", "auth_failed" и т.п.
	EntityType string `gorm:"size:50;not null"`       // "user", "prospect", "credential"
	EntityID   *uint
	Details    string `gorm:"type:text"`
	IPAddress  string `gorm:"size:64"`
	UserAgent  string `gorm:"size:255"`
	RequestID  string `gorm:"size:64"`
}
