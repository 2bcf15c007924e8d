package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// EngagementStatus enumerates the lifecycle states of a purchased mentorship.
type EngagementStatus string

const (
	EngagementStatusRequested       EngagementStatus = "requested"
	EngagementStatusApproved        EngagementStatus = "approved"
	EngagementStatusAwaitingPayment EngagementStatus = "awaiting_payment"
	EngagementStatusActive          EngagementStatus = "active"
	EngagementStatusCompleted       EngagementStatus = "completed"
	EngagementStatusCancelled       EngagementStatus = "cancelled"
	EngagementStatusRejected        EngagementStatus = "rejected"
)

// ErrInconsistentEngagementState is returned by the save hook when the
// completion timestamp disagrees with the status column.
var ErrInconsistentEngagementState = errors.New("engagement completed_at must be set iff status is completed")

// Engagement is a purchased mentor-student package unfolding over several weeks.
type Engagement struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	StudentID       uint             `gorm:"not null;index:idx_engagement_triple" json:"student_id"`
	MentorID        uint             `gorm:"not null;index:idx_engagement_triple" json:"mentor_id"`
	Skill           string           `gorm:"size:128;not null;index:idx_engagement_triple" json:"skill"`
	WeeksTotal      int              `gorm:"not null" json:"weeks_total"`
	SessionsPerWeek int              `gorm:"not null" json:"sessions_per_week"`
	StartInstant    time.Time        `gorm:"not null" json:"start_instant"`
	StartDate       string           `gorm:"size:10;not null" json:"start_date"`
	Status          EngagementStatus `gorm:"size:32;not null;index" json:"status"`
	CompletedAt     *time.Time       `json:"completed_at"`
	ReminderSent    bool             `gorm:"not null;default:false" json:"reminder_sent"`
	RejectionReason string           `gorm:"type:text" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// State returns the tagged lifecycle variant for the stored columns.
func (e Engagement) State() EngagementState {
	return StateFromColumns(e.Status, e.CompletedAt)
}

// Apply writes a lifecycle variant into the persisted columns.
func (e *Engagement) Apply(state EngagementState) {
	e.Status, e.CompletedAt = state.Columns()
}

// BeforeSave rejects rows that break the completion invariant.
func (e *Engagement) BeforeSave(tx *gorm.DB) error {
	if (e.Status == EngagementStatusCompleted) != (e.CompletedAt != nil) {
		return fmt.Errorf("%w (status=%s)", ErrInconsistentEngagementState, e.Status)
	}
	return nil
}

// Triple returns the course grouping key of the engagement.
func (e Engagement) Triple() CourseKey {
	return CourseKey{StudentID: e.StudentID, MentorID: e.MentorID, Skill: e.Skill}
}

// IsLive reports whether the engagement participates in course aggregation.
func (e Engagement) IsLive() bool {
	return e.Status != EngagementStatusCancelled && e.Status != EngagementStatusRejected
}
