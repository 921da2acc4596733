package models

import "gorm.io/gorm"

type UserRole string

const (
	RoleSysAdmin  UserRole = "SYS_ADMIN"
	RoleAdmin     UserRole = "ADMIN"
	RoleAssociate UserRole = "ASSOCIATE"
)

type User struct {
	gorm.Model
	Name       string   `gorm:"size:255;not null"`
	Email      string   `gorm:"uniqueIndex;size:255;not null"`
	Role       UserRole `gorm:"type:varchar(20);not null"`
	IsActive   bool     `gorm:"not null;default:true"`
	Phone      string   `gorm:"size:50"`
	Territory  string   `gorm:"size:100"`
	FirstLogin bool     `gorm:"not null;default:true"`
}
