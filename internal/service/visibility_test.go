package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentora-api/internal/civiltime"
	"github.com/noah-isme/mentora-api/internal/models"
	"github.com/noah-isme/mentora-api/internal/service"
)

func TestDashboardVisibilityWindow(t *testing.T) {
	start := at(t, "2026-10-16", "10:00")

	cases := []struct {
		name   string
		now    string
		status models.EngagementStatus
		want   bool
	}{
		{name: "too early", now: "08:59", status: models.EngagementStatusActive, want: false},
		{name: "lead window opens", now: "09:00", status: models.EngagementStatusActive, want: true},
		{name: "approved inside lead window", now: "09:30", status: models.EngagementStatusApproved, want: true},
		{name: "approved after start", now: "10:15", status: models.EngagementStatusApproved, want: false},
		{name: "active in progress", now: "10:15", status: models.EngagementStatusActive, want: true},
		{name: "requested never shown", now: "09:30", status: models.EngagementStatusRequested, want: false},
		{name: "completed never shown", now: "10:15", status: models.EngagementStatusCompleted, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			now := at(t, "2026-10-16", tc.now)
			zone := civiltime.NewZoneAt(ist(t), func() time.Time { return now })
			filter := service.NewVisibilityFilter(zone, time.Hour)
			require.Equal(t, tc.want, filter.IsVisibleOnDashboard("2026-10-16", start, tc.status))
		})
	}
}

func TestDashboardVisibilityRequiresToday(t *testing.T) {
	now := at(t, "2026-10-16", "23:30")
	zone := civiltime.NewZoneAt(ist(t), func() time.Time { return now })
	filter := service.NewVisibilityFilter(zone, time.Hour)

	// 00:15 tomorrow is inside the lead time but not today.
	require.False(t, filter.IsVisibleOnDashboard("2026-10-17", at(t, "2026-10-17", "00:15"), models.EngagementStatusActive))
}

func TestScheduleListHidesItemsBeforeStartDate(t *testing.T) {
	filter := service.NewVisibilityFilter(civiltime.NewZoneAt(ist(t), nil), 0)

	items := []models.ScheduleItem{
		{ID: 1, ScheduledDate: "2026-10-09"},
		{ID: 2, ScheduledDate: "2026-10-12"},
		{ID: 3, ScheduledDate: "2026-10-13"},
	}

	visible := filter.FilterScheduleList(items, "2026-10-12")
	require.Len(t, visible, 2)
	require.Equal(t, uint(2), visible[0].ID)
	require.Equal(t, uint(3), visible[1].ID)
}
