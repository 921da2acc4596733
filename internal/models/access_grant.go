package models

import "time"

// AccessGrant — делегирование: админ AdminID видит записи ассоциата UserID.
// Пара (admin_id, user_id) уникальна. Отзыв удаляет строку насовсем,
// чтобы повторное делегирование не упиралось в уникальный индекс.
type AccessGrant struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time

	AdminID uint `gorm:"not null;uniqueIndex:idx_access_grants_pair"`
	UserID  uint `gorm:"not null;uniqueIndex:idx_access_grants_pair"`

	Admin User `gorm:"foreignKey:AdminID"`
	User  User `gorm:"foreignKey:UserID"`
}
