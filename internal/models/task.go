package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskStatus string
type TaskPriority string

const (
	TaskOpen       TaskStatus = "OPEN"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskDone       TaskStatus = "DONE"
	TaskCancelled  TaskStatus = "CANCELLED"

	PriorityLow    TaskPriority = "LOW"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityHigh   TaskPriority = "HIGH"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskOpen, TaskInProgress, TaskDone, TaskCancelled:
		return true
	}
	return false
}

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Task struct {
	gorm.Model
	UserID uint `gorm:"not null;index"`
	User   User

	Title       string       `gorm:"size:255;not null"`
	Description string       `gorm:"type:text"`
	DueDate     *time.Time
	Status      TaskStatus   `gorm:"type:varchar(20);not null;default:'OPEN'"`
	Priority    TaskPriority `gorm:"type:varchar(20);not null;default:'MEDIUM'"`
}
