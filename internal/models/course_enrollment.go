package models

import "time"

// CourseStatus is the derived status of a student-mentor-skill grouping.
type CourseStatus string

const (
	CourseStatusPaymentPending CourseStatus = "payment_pending"
	CourseStatusOngoing        CourseStatus = "ongoing"
	CourseStatusCompleted      CourseStatus = "completed"
)

// CourseKey identifies a course grouping.
type CourseKey struct {
	StudentID uint   `json:"student_id"`
	MentorID  uint   `json:"mentor_id"`
	Skill     string `json:"skill"`
}

// CourseEnrollment caches the recomputed course status. Rows are only ever
// written by the aggregator.
type CourseEnrollment struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	StudentID      uint         `gorm:"not null;uniqueIndex:idx_course_triple" json:"student_id"`
	MentorID       uint         `gorm:"not null;uniqueIndex:idx_course_triple" json:"mentor_id"`
	Skill          string       `gorm:"size:128;not null;uniqueIndex:idx_course_triple" json:"skill"`
	Status         CourseStatus `gorm:"size:32;not null;index" json:"status"`
	RecalculatedAt time.Time    `gorm:"not null" json:"recalculated_at"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Key returns the grouping key of the row.
func (c CourseEnrollment) Key() CourseKey {
	return CourseKey{StudentID: c.StudentID, MentorID: c.MentorID, Skill: c.Skill}
}
