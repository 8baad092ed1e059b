package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/workflow"
)

// Case is the aggregate root shared by fatwas, marriages and
// reconciliations. Exactly one of the detail pointers is set, matching Kind.
type Case struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Kind            string     `gorm:"size:20;not null;index" json:"kind"`
	OwnerID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"owner_id"`
	Status          string     `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Priority        string     `gorm:"size:10;not null;default:'medium'" json:"priority"`
	AdminNotes      string     `gorm:"type:text" json:"admin_notes,omitempty"`
	CancelReason    string     `gorm:"type:text" json:"cancel_reason,omitempty"`
	StatusChangedAt *time.Time `json:"status_changed_at,omitempty"`
	StatusChangedBy *uuid.UUID `gorm:"type:uuid" json:"status_changed_by,omitempty"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Owner          *User                 `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Assignees      []CaseAssignee        `gorm:"foreignKey:CaseID" json:"assignees"`
	Meetings       []Meeting             `gorm:"foreignKey:CaseID" json:"meetings,omitempty"`
	Feedback       []Feedback            `gorm:"foreignKey:CaseID" json:"feedback,omitempty"`
	Fatwa          *FatwaDetail          `gorm:"foreignKey:CaseID" json:"fatwa,omitempty"`
	Marriage       *MarriageDetail       `gorm:"foreignKey:CaseID" json:"marriage,omitempty"`
	Reconciliation *ReconciliationDetail `gorm:"foreignKey:CaseID" json:"reconciliation,omitempty"`
}

func (c *Case) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c *Case) AssigneeIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Assignees))
	for _, a := range c.Assignees {
		ids = append(ids, a.ShaykhID)
	}
	return ids
}

// Subject is the view of the case the workflow rules evaluate.
func (c *Case) Subject() workflow.Subject {
	return workflow.Subject{
		Kind:      workflow.Kind(c.Kind),
		OwnerID:   c.OwnerID,
		Status:    workflow.Status(c.Status),
		Assignees: c.AssigneeIDs(),
	}
}

// CaseAssignee links a shaykh to a case. Fatwas and marriages hold at most
// one row per case.
type CaseAssignee struct {
	CaseID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	ShaykhID   uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"shaykh_id"`
	AssignedBy uuid.UUID `gorm:"type:uuid" json:"assigned_by"`
	AssignedAt time.Time `gorm:"not null" json:"assigned_at"`
	Shaykh     *User     `gorm:"foreignKey:ShaykhID" json:"shaykh,omitempty"`
}

type FatwaDetail struct {
	CaseID     uuid.UUID  `gorm:"type:uuid;primaryKey" json:"-"`
	Title      string     `gorm:"size:200;not null" json:"title"`
	Question   string     `gorm:"type:text;not null" json:"question"`
	Answer     string     `gorm:"type:text" json:"answer,omitempty"`
	Category   string     `gorm:"size:50;index" json:"category,omitempty"`
	Privacy    string     `gorm:"size:20;not null;default:'public'" json:"privacy"`
	Urgency    string     `gorm:"size:20;not null;default:'normal'" json:"urgency"`
	AnsweredBy *uuid.UUID `gorm:"type:uuid" json:"answered_by,omitempty"`
	AnsweredAt *time.Time `json:"answered_at,omitempty"`
	ApprovedBy *uuid.UUID `gorm:"type:uuid" json:"approved_by,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
}

const (
	MarriageReservation = "reservation"
	MarriageCertificate = "certificate"
)

type Partner struct {
	FirstName   string     `gorm:"size:100" json:"first_name"`
	LastName    string     `gorm:"size:100" json:"last_name"`
	Phone       string     `gorm:"size:30" json:"phone"`
	Email       string     `gorm:"size:255" json:"email"`
	Address     string     `gorm:"size:255" json:"address,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
}

func (p Partner) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

type Witness struct {
	Name    string `json:"name"`
	Contact string `json:"contact,omitempty"`
}

type MarriageDetail struct {
	CaseID                uuid.UUID                    `gorm:"type:uuid;primaryKey" json:"-"`
	Type                  string                       `gorm:"size:20;not null;index" json:"type"`
	PartnerOne            Partner                      `gorm:"embedded;embeddedPrefix:partner_one_" json:"partner_one"`
	PartnerTwo            Partner                      `gorm:"embedded;embeddedPrefix:partner_two_" json:"partner_two"`
	PreferredDate         *time.Time                   `json:"preferred_date,omitempty"`
	PreferredTime         string                       `gorm:"size:20" json:"preferred_time,omitempty"`
	PreferredLocation     string                       `gorm:"size:255" json:"preferred_location,omitempty"`
	MarriageDate          *time.Time                   `json:"marriage_date,omitempty"`
	MarriagePlace         string                       `gorm:"size:255" json:"marriage_place,omitempty"`
	Witnesses             datatypes.JSONSlice[Witness] `gorm:"type:jsonb" json:"witnesses"`
	RegisterAsAustralian  bool                         `gorm:"not null;default:false" json:"register_as_australian"`
	CertificateGenerated  bool                         `gorm:"not null;default:false" json:"certificate_generated"`
	CertificateNumber     string                       `gorm:"size:50;index" json:"certificate_number,omitempty"`
	CertificateIssuedDate *time.Time                   `json:"certificate_issued_date,omitempty"`
	CertificateFileKey    string                       `gorm:"size:512" json:"-"`
	CertificateFileURL    string                       `gorm:"size:1024" json:"certificate_file_url,omitempty"`
	AdditionalInformation string                       `gorm:"type:text" json:"additional_information,omitempty"`
}

type Spouse struct {
	FirstName string `gorm:"size:100" json:"first_name"`
	LastName  string `gorm:"size:100" json:"last_name"`
	Phone     string `gorm:"size:30" json:"phone"`
	Email     string `gorm:"size:255" json:"email"`
}

type ReconciliationDetail struct {
	CaseID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	Husband               Spouse    `gorm:"embedded;embeddedPrefix:husband_" json:"husband"`
	Wife                  Spouse    `gorm:"embedded;embeddedPrefix:wife_" json:"wife"`
	IssueDescription      string    `gorm:"type:text;not null" json:"issue_description"`
	AdditionalInformation string    `gorm:"type:text" json:"additional_information,omitempty"`
	Outcome               string    `gorm:"size:20;not null;default:'in-progress'" json:"outcome"`
	OutcomeDetails        string    `gorm:"type:text" json:"outcome_details,omitempty"`
	ShaykhNotes           string    `gorm:"type:text" json:"shaykh_notes,omitempty"`
}
