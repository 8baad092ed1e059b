package services

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/dustin/go-humanize/english"
	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/fiqhi-backend/internal/workflow"
)

const (
	dashboardListSize = 5
	dashboardMonths   = 3
)

// DashboardSnapshot is everything the admin dashboard is derived from.
// Cases carry their assignees and marriage detail.
type DashboardSnapshot struct {
	Cases    []models.Case
	Meetings []models.Meeting
	Shaykhs  []models.User
}

// BuildDashboard derives the admin dashboard from a snapshot. It has no side
// effects. Assignees that are not among the snapshot's shaykhs, such as
// removed accounts, contribute nothing.
func BuildDashboard(snap DashboardSnapshot, now time.Time) dto.Dashboard {
	now = now.UTC()
	return dto.Dashboard{
		Stats:                dashboardStats(snap),
		UpcomingMeetings:     upcomingMeetings(snap, now),
		RecentActivities:     recentActivities(snap, now),
		ActivityDistribution: activityDistribution(snap),
		MonthlyStats:         monthlyStats(snap, now),
		ShaykhWorkload:       shaykhWorkload(snap),
	}
}

func dashboardStats(snap DashboardSnapshot) dto.DashboardStats {
	stats := dto.DashboardStats{Shaykhs: len(snap.Shaykhs)}
	for _, c := range snap.Cases {
		switch workflow.Kind(c.Kind) {
		case workflow.KindFatwa:
			stats.TotalFatwas++
			switch workflow.Status(c.Status) {
			case workflow.StatusAnswered, workflow.StatusApproved:
				stats.AnsweredFatwas++
			case workflow.StatusPending:
				stats.PendingFatwas++
			}
		case workflow.KindMarriage:
			if c.Marriage != nil && c.Marriage.Type == models.MarriageCertificate {
				stats.MarriageCertificates++
			} else {
				stats.MarriageReservations++
			}
		case workflow.KindReconciliation:
			stats.Reconciliations++
		}
	}
	return stats
}

func upcomingMeetings(snap DashboardSnapshot, now time.Time) []dto.UpcomingMeeting {
	kinds := make(map[uuid.UUID]string, len(snap.Cases))
	for _, c := range snap.Cases {
		kinds[c.ID] = c.Kind
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	out := []dto.UpcomingMeeting{}
	for _, m := range snap.Meetings {
		if m.Status != models.MeetingScheduled || m.Date.Before(today) {
			continue
		}
		out = append(out, dto.UpcomingMeeting{
			ID:       m.ID,
			CaseID:   m.CaseID,
			Kind:     kinds[m.CaseID],
			Date:     m.Date,
			Time:     m.Time,
			Location: m.Location,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Time < out[j].Time
	})
	if len(out) > dashboardListSize {
		out = out[:dashboardListSize]
	}
	return out
}

func recentActivities(snap DashboardSnapshot, now time.Time) []dto.Activity {
	var pendingFatwas, pendingMarriages, pendingReconciliations int
	events := make([]dto.Activity, 0, len(snap.Cases))
	for i := range snap.Cases {
		c := &snap.Cases[i]
		pending := c.Status == string(workflow.StatusPending)
		var message string
		switch workflow.Kind(c.Kind) {
		case workflow.KindFatwa:
			message = "New fatwa question submitted"
			if pending {
				pendingFatwas++
			}
		case workflow.KindMarriage:
			message = "New marriage reservation"
			if c.Marriage != nil && c.Marriage.Type == models.MarriageCertificate {
				message = "New marriage certificate request"
			}
			if pending {
				pendingMarriages++
			}
		case workflow.KindReconciliation:
			message = "New reconciliation case opened"
			if pending {
				pendingReconciliations++
			}
		default:
			continue
		}
		id := c.ID
		events = append(events, dto.Activity{Type: c.Kind, Message: message, CaseID: &id, At: c.CreatedAt})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].At.After(events[j].At) })

	var notices []dto.Activity
	for _, n := range []struct {
		count int
		noun  string
	}{
		{pendingFatwas, "fatwa"},
		{pendingMarriages, "marriage request"},
		{pendingReconciliations, "reconciliation case"},
	} {
		if n.count == 0 {
			continue
		}
		notices = append(notices, dto.Activity{
			Type:    "system",
			Message: fmt.Sprintf("%s awaiting assignment", english.Plural(n.count, n.noun, "")),
			At:      now,
		})
	}

	out := append(notices, events...)
	if len(out) > dashboardListSize {
		out = out[:dashboardListSize]
	}
	if out == nil {
		out = []dto.Activity{}
	}
	return out
}

// activityDistribution reports each kind's share of all cases. With no cases
// every share is zero.
func activityDistribution(snap DashboardSnapshot) []dto.Share {
	counts := map[workflow.Kind]int{}
	for _, c := range snap.Cases {
		counts[workflow.Kind(c.Kind)]++
	}
	total := counts[workflow.KindFatwa] + counts[workflow.KindMarriage] + counts[workflow.KindReconciliation]

	shares := []dto.Share{
		{Label: "Fatwas", Count: counts[workflow.KindFatwa]},
		{Label: "Marriages", Count: counts[workflow.KindMarriage]},
		{Label: "Reconciliations", Count: counts[workflow.KindReconciliation]},
	}
	if total == 0 {
		return shares
	}
	for i := range shares {
		shares[i].Percent = int(math.Round(float64(shares[i].Count) * 100 / float64(total)))
	}
	return shares
}

// monthlyStats counts intake for the current month and the two before it,
// oldest first.
func monthlyStats(snap DashboardSnapshot, now time.Time) []dto.MonthStat {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	months := make([]dto.MonthStat, dashboardMonths)
	index := make(map[string]int, dashboardMonths)
	for i := 0; i < dashboardMonths; i++ {
		m := first.AddDate(0, i-(dashboardMonths-1), 0)
		months[i].Month = m.Format("Jan 2006")
		index[m.Format("2006-01")] = i
	}

	for _, c := range snap.Cases {
		i, ok := index[c.CreatedAt.UTC().Format("2006-01")]
		if !ok {
			continue
		}
		switch workflow.Kind(c.Kind) {
		case workflow.KindFatwa:
			months[i].Fatwas++
		case workflow.KindMarriage:
			months[i].Marriages++
		case workflow.KindReconciliation:
			months[i].Reconciliations++
		}
	}
	return months
}

// shaykhWorkload counts, per shaykh, the active cases they are assigned to
// across all kinds. Busiest first.
func shaykhWorkload(snap DashboardSnapshot) []dto.Workload {
	load := make(map[uuid.UUID]int, len(snap.Shaykhs))
	for _, s := range snap.Shaykhs {
		load[s.ID] = 0
	}
	for _, c := range snap.Cases {
		if !slices.Contains(workflow.ActiveStatuses, workflow.Status(c.Status)) {
			continue
		}
		for _, a := range c.Assignees {
			if _, known := load[a.ShaykhID]; known {
				load[a.ShaykhID]++
			}
		}
	}

	out := make([]dto.Workload, 0, len(snap.Shaykhs))
	for i := range snap.Shaykhs {
		s := &snap.Shaykhs[i]
		out = append(out, dto.Workload{ShaykhID: s.ID, Name: s.FullName(), Email: s.Email, ActiveCases: load[s.ID]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ActiveCases != out[j].ActiveCases {
			return out[i].ActiveCases > out[j].ActiveCases
		}
		return out[i].Name < out[j].Name
	})
	return out
}
