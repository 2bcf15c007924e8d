package dto

import (
	"time"

	"github.com/noah-isme/mentora-api/internal/models"
)

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// ActivityListRequest defines filters for retrieving activity logs.
type ActivityListRequest struct {
	Page         int
	PageSize     int
	ActorID      uint
	ActorRole    string
	Action       string
	EntityType   string
	EntityID     uint
	EngagementID uint
	Since        time.Time
	Until        time.Time
}

// ActivityResponse serializes activity log entries.
type ActivityResponse struct {
	ID           uint                   `json:"id"`
	ActorID      uint                   `json:"actor_id"`
	ActorRole    string                 `json:"actor_role"`
	Action       string                 `json:"action"`
	EntityType   string                 `json:"entity_type"`
	EntityID     *uint                  `json:"entity_id"`
	EngagementID *uint                  `json:"engagement_id,omitempty"`
	Metadata     map[string]interface{} `json:"metadata"`
	CreatedAt    time.Time              `json:"created_at"`
}

// ActivityListResponse wraps paginated activity logs.
type ActivityListResponse struct {
	Items      []ActivityResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// NewActivityResponse converts a model into an activity DTO.
func NewActivityResponse(entry models.ActivityLog) ActivityResponse {
	metadata := map[string]interface{}{}
	for key, value := range entry.Metadata {
		metadata[key] = value
	}
	return ActivityResponse{
		ID:           entry.ID,
		ActorID:      entry.ActorID,
		ActorRole:    entry.ActorRole,
		Action:       entry.Action,
		EntityType:   entry.EntityType,
		EntityID:     entry.EntityID,
		EngagementID: entry.EngagementID,
		Metadata:     metadata,
		CreatedAt:    entry.CreatedAt,
	}
}
