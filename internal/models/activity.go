package models

import (
	"time"

	"gorm.io/gorm"
)

type ActivityType string

const (
	ActivityCall       ActivityType = "CALL"
	ActivityVisit      ActivityType = "VISIT"
	ActivityEmail      ActivityType = "EMAIL"
	ActivityMeeting    ActivityType = "MEETING"
	ActivitySampleDrop ActivityType = "SAMPLE_DROP"
)

func (t ActivityType) Valid() bool {
	switch t {
	case ActivityCall, ActivityVisit, ActivityEmail, ActivityMeeting, ActivitySampleDrop:
		return true
	}
	return false
}

type Activity struct {
	gorm.Model
	UserID uint `gorm:"not null;index"`
	User   User

	ProspectID *uint
	Prospect   *Prospect

	Type       ActivityType `gorm:"type:varchar(20);not null"`
	Subject    string       `gorm:"size:255"`
	Notes      string       `gorm:"type:text"`
	OccurredAt time.Time    `gorm:"not null;index"`
}
