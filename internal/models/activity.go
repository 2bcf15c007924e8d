package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog captures lifecycle events raised by mentors, students and the
// reconciler. EngagementID scopes payment and schedule item events to the
// engagement they belong to so one engagement's history reads in one query.
type ActivityLog struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	ActorID      uint              `gorm:"not null;default:0;index" json:"actor_id"`
	ActorRole    string            `gorm:"size:32;not null" json:"actor_role"`
	Action       string            `gorm:"size:64;not null;index" json:"action"`
	EntityType   string            `gorm:"size:64;not null" json:"entity_type"`
	EntityID     *uint             `json:"entity_id"`
	EngagementID *uint             `gorm:"index" json:"engagement_id,omitempty"`
	Metadata     datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt    time.Time         `gorm:"index" json:"created_at"`
}
