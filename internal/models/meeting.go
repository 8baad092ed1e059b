package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MeetingScheduled   = "scheduled"
	MeetingCompleted   = "completed"
	MeetingCancelled   = "cancelled"
	MeetingRescheduled = "rescheduled"
)

func ValidMeetingStatus(s string) bool {
	switch s {
	case MeetingScheduled, MeetingCompleted, MeetingCancelled, MeetingRescheduled:
		return true
	}
	return false
}

type Meeting struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CaseID         uuid.UUID `gorm:"type:uuid;not null;index" json:"case_id"`
	Date           time.Time `gorm:"not null;index" json:"date"`
	Time           string    `gorm:"size:20;not null" json:"time"`
	Location       string    `gorm:"size:255;not null" json:"location"`
	Notes          string    `gorm:"type:text" json:"notes,omitempty"`
	Status         string    `gorm:"size:20;not null;default:'scheduled';index" json:"status"`
	CompletedNotes string    `gorm:"type:text" json:"completed_notes,omitempty"`
	CreatedBy      uuid.UUID `gorm:"type:uuid" json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Meeting) TableName() string { return "case_meetings" }

func (m *Meeting) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
