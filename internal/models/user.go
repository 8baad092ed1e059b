package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser   = "user"
	RoleShaykh = "shaykh"
	RoleAdmin  = "admin"
)

// User is an account of any role. Shaykh profile fields are empty for plain
// users and admins.
type User struct {
	ID                     uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email                  string         `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Username               string         `gorm:"size:100" json:"username"`
	Password               string         `gorm:"not null" json:"-"`
	Role                   string         `gorm:"size:20;not null;default:'user';index" json:"role"`
	FirstName              string         `gorm:"size:100" json:"first_name"`
	LastName               string         `gorm:"size:100" json:"last_name"`
	PhoneNumber            string         `gorm:"size:30" json:"phone_number,omitempty"`
	Address                string         `gorm:"size:255" json:"address,omitempty"`
	YearsOfExperience      int            `json:"years_of_experience,omitempty"`
	EducationalInstitution string         `gorm:"size:255" json:"educational_institution,omitempty"`
	About                  string         `gorm:"type:text" json:"about,omitempty"`
	Settings               UserSettings   `gorm:"embedded;embeddedPrefix:settings_" json:"settings"`
	ResetPasswordHash      string         `gorm:"size:64;index" json:"-"`
	ResetPasswordExpiresAt *time.Time     `json:"-"`
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
	DeletedAt              gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return nil
}

func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// UserSettings are per-account preferences. EmailNotifications gates the
// assignment notices sent to shaykhs.
type UserSettings struct {
	Language           string `gorm:"size:10;not null;default:'en'" json:"language"`
	EmailNotifications bool   `gorm:"not null;default:true" json:"email_notifications"`
	PushNotifications  bool   `gorm:"not null;default:true" json:"push_notifications"`
	DarkMode           bool   `gorm:"not null;default:false" json:"dark_mode"`
}
