package models

import "gorm.io/gorm"

type ProspectStatus string

const (
	ProspectNew       ProspectStatus = "NEW"
	ProspectContacted ProspectStatus = "CONTACTED"
	ProspectQualified ProspectStatus = "QUALIFIED"
	ProspectConverted ProspectStatus = "CONVERTED"
	ProspectDropped   ProspectStatus = "DROPPED"
)

func (s ProspectStatus) Valid() bool {
	switch s {
	case ProspectNew, ProspectContacted, ProspectQualified, ProspectConverted, ProspectDropped:
		return true
	}
	return false
}

type Prospect struct {
	gorm.Model
	UserID uint `gorm:"not null;index"`
	User   User

	Name      string         `gorm:"size:255;not null"` // ФИО врача / название клиники
	Company   string         `gorm:"size:255"`
	Specialty string         `gorm:"size:100"`
	Territory string         `gorm:"size:100"`
	Status    ProspectStatus `gorm:"type:varchar(20);not null;default:'NEW'"`
	Notes     string         `gorm:"type:text"`
}
