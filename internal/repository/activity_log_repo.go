package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/mentora-api/internal/models"
)

// ActivityLogFilter narrows audit trail queries. Zero values match everything.
type ActivityLogFilter struct {
	Page         int
	PageSize     int
	ActorID      *uint
	ActorRole    string
	Action       string
	EntityType   string
	EntityID     *uint
	EngagementID *uint
	Since        time.Time
	Until        time.Time
}

// ActivityLogRepository persists lifecycle audit events.
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error)
}

type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository constructs the activity log repository.
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// List returns the newest entries first. Since is inclusive, Until exclusive.
func (r *activityLogRepository) List(ctx context.Context, filter ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	query := applyActivityFilter(r.db.WithContext(ctx).Model(&models.ActivityLog{}), filter)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var entries []models.ActivityLog
	if err := query.Order("created_at DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func applyActivityFilter(query *gorm.DB, filter ActivityLogFilter) *gorm.DB {
	if filter.ActorID != nil {
		query = query.Where("actor_id = ?", *filter.ActorID)
	}
	if filter.ActorRole != "" {
		query = query.Where("actor_role = ?", filter.ActorRole)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != nil {
		query = query.Where("entity_id = ?", *filter.EntityID)
	}
	if filter.EngagementID != nil {
		query = query.Where("engagement_id = ?", *filter.EngagementID)
	}
	if !filter.Since.IsZero() {
		query = query.Where("created_at >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		query = query.Where("created_at < ?", filter.Until)
	}
	return query
}
