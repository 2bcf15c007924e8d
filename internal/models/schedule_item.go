package models

import "time"

// ScheduleItemStatus enumerates the per-meeting states.
type ScheduleItemStatus string

const (
	ScheduleItemStatusLocked    ScheduleItemStatus = "locked"
	ScheduleItemStatusUpcoming  ScheduleItemStatus = "upcoming"
	ScheduleItemStatusCompleted ScheduleItemStatus = "completed"
)

// CompletionCause records why an item reached its terminal state.
type CompletionCause string

const (
	CompletionCauseElapsed   CompletionCause = "elapsed"
	CompletionCauseMentor    CompletionCause = "mentor"
	CompletionCauseBackdated CompletionCause = "backdated"
)

// ScheduleItem is one concrete timed meeting of an engagement.
type ScheduleItem struct {
	ID              uint               `gorm:"primaryKey" json:"id"`
	EngagementID    uint               `gorm:"not null;uniqueIndex:idx_schedule_slot;index" json:"engagement_id"`
	WeekNumber      int                `gorm:"not null;uniqueIndex:idx_schedule_slot" json:"week_number"`
	SessionNumber   int                `gorm:"not null;uniqueIndex:idx_schedule_slot" json:"session_number"`
	Title           string             `gorm:"size:255;not null" json:"title"`
	ScheduledDate   string             `gorm:"size:10;not null;index" json:"scheduled_date"`
	ScheduledTime   string             `gorm:"size:5;not null" json:"scheduled_time"`
	Status          ScheduleItemStatus `gorm:"size:32;not null;index" json:"status"`
	CompletionCause CompletionCause    `gorm:"size:32" json:"completion_cause,omitempty"`
	CompletedAt     *time.Time         `json:"completed_at"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// IsCompleted reports whether the item reached its terminal state.
func (s ScheduleItem) IsCompleted() bool {
	return s.Status == ScheduleItemStatusCompleted
}
