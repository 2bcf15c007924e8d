package models

import "time"

// NotificationTypeStartingSoon is sent once per engagement before its first meeting.
const NotificationTypeStartingSoon = "starting_soon"

// Notification is a message addressed to one participant of an engagement.
type Notification struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	EngagementID uint      `gorm:"not null;index" json:"engagement_id"`
	Type         string    `gorm:"size:64" json:"type"`
	Message      string    `gorm:"type:text" json:"message"`
	Read         bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
