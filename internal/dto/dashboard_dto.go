package dto

import (
	"time"

	"github.com/google/uuid"
)

type Dashboard struct {
	Stats                DashboardStats    `json:"stats"`
	UpcomingMeetings     []UpcomingMeeting `json:"upcoming_meetings"`
	RecentActivities     []Activity        `json:"recent_activities"`
	ActivityDistribution []Share           `json:"activity_distribution"`
	MonthlyStats         []MonthStat       `json:"monthly_stats"`
	ShaykhWorkload       []Workload        `json:"shaykh_workload"`
}

type DashboardStats struct {
	TotalFatwas          int `json:"total_fatwas"`
	AnsweredFatwas       int `json:"answered_fatwas"`
	PendingFatwas        int `json:"pending_fatwas"`
	MarriageReservations int `json:"marriage_reservations"`
	MarriageCertificates int `json:"marriage_certificates"`
	Reconciliations      int `json:"reconciliations"`
	Shaykhs              int `json:"shaykhs"`
}

type UpcomingMeeting struct {
	ID       uuid.UUID `json:"id"`
	CaseID   uuid.UUID `json:"case_id"`
	Kind     string    `json:"kind"`
	Date     time.Time `json:"date"`
	Time     string    `json:"time"`
	Location string    `json:"location"`
}

type Activity struct {
	Type    string     `json:"type"`
	Message string     `json:"message"`
	CaseID  *uuid.UUID `json:"case_id,omitempty"`
	At      time.Time  `json:"at"`
}

type Share struct {
	Label   string `json:"label"`
	Count   int    `json:"count"`
	Percent int    `json:"percent"`
}

type MonthStat struct {
	Month           string `json:"month"`
	Fatwas          int    `json:"fatwas"`
	Marriages       int    `json:"marriages"`
	Reconciliations int    `json:"reconciliations"`
}

type Workload struct {
	ShaykhID    uuid.UUID `json:"shaykh_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	ActiveCases int       `json:"active_cases"`
}
