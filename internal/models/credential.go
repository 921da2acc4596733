package models

import "gorm.io/gorm"

// Credential — соль + дайджест пароля, один к одному с User.
// Salt и Digest всегда обновляются парой.
type Credential struct {
	gorm.Model
	UserID uint   `gorm:"uniqueIndex;not null"`
	Salt   string `gorm:"size:64;not null"`
	Digest string `gorm:"size:128;not null"`
}
