package service

import (
	"time"

	"github.com/noah-isme/mentora-api/internal/civiltime"
	"github.com/noah-isme/mentora-api/internal/models"
)

// DefaultDashboardLeadTime is how long before its start a meeting appears on the dashboard.
const DefaultDashboardLeadTime = time.Hour

// VisibilityFilter answers read-only visibility questions over reconciled state.
type VisibilityFilter struct {
	zone     *civiltime.Zone
	leadTime time.Duration
}

// NewVisibilityFilter builds the filter. A non-positive lead time falls back to one hour.
func NewVisibilityFilter(zone *civiltime.Zone, leadTime time.Duration) VisibilityFilter {
	if leadTime <= 0 {
		leadTime = DefaultDashboardLeadTime
	}
	return VisibilityFilter{zone: zone, leadTime: leadTime}
}

// IsVisibleOnDashboard reports whether a meeting dated today should be shown:
// inside the lead window of an approved or active engagement, or already
// started while the engagement is still active.
func (f VisibilityFilter) IsVisibleOnDashboard(scheduledDate string, start time.Time, status models.EngagementStatus) bool {
	if !f.zone.IsToday(scheduledDate) {
		return false
	}

	now := f.zone.Now()
	switch status {
	case models.EngagementStatusApproved, models.EngagementStatusActive:
		if !now.Before(start.Add(-f.leadTime)) && now.Before(start) {
			return true
		}
	}

	return status == models.EngagementStatusActive && !now.Before(start)
}

// IsVisibleInScheduleList hides items dated before the engagement's own start date.
func (f VisibilityFilter) IsVisibleInScheduleList(scheduledDate, engagementStartDate string) bool {
	return scheduledDate >= engagementStartDate
}

// FilterScheduleList keeps the items visible in the schedule list, preserving order.
func (f VisibilityFilter) FilterScheduleList(items []models.ScheduleItem, engagementStartDate string) []models.ScheduleItem {
	visible := make([]models.ScheduleItem, 0, len(items))
	for _, item := range items {
		if f.IsVisibleInScheduleList(item.ScheduledDate, engagementStartDate) {
			visible = append(visible, item)
		}
	}
	return visible
}
