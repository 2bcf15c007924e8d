package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/mentora-api/internal/models"
)

const scheduleOrder = "scheduled_date ASC, scheduled_time ASC, week_number ASC, session_number ASC"

// ScheduleItemRepository defines data operations for schedule items.
type ScheduleItemRepository interface {
	CreateBatch(ctx context.Context, items []models.ScheduleItem) error
	CountByEngagement(ctx context.Context, engagementID uint) (int64, int64, error)
	ListByEngagement(ctx context.Context, engagementID uint) ([]models.ScheduleItem, error)
	ListPending(ctx context.Context, engagementID uint) ([]models.ScheduleItem, error)
	ListByEngagements(ctx context.Context, engagementIDs []uint) ([]models.ScheduleItem, error)
	GetByID(ctx context.Context, engagementID, itemID uint) (models.ScheduleItem, error)
	FindByID(ctx context.Context, itemID uint) (models.ScheduleItem, error)
	UpdateStatus(ctx context.Context, id uint, status models.ScheduleItemStatus, cause models.CompletionCause, completedAt *time.Time) (bool, error)
	UnlockForDate(ctx context.Context, date, startsAfter string) (int64, error)
	CountStaleBefore(ctx context.Context, date string) (int64, error)
}

type scheduleItemRepository struct {
	db *gorm.DB
}

// NewScheduleItemRepository instantiates the repository.
func NewScheduleItemRepository(db *gorm.DB) ScheduleItemRepository {
	return &scheduleItemRepository{db: db}
}

func (r *scheduleItemRepository) CreateBatch(ctx context.Context, items []models.ScheduleItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&items, 100).Error
	})
}

// CountByEngagement returns the total and completed item counts.
func (r *scheduleItemRepository) CountByEngagement(ctx context.Context, engagementID uint) (int64, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.ScheduleItem{}).
		Where("engagement_id = ?", engagementID).
		Count(&total).Error; err != nil {
		return 0, 0, err
	}

	var completed int64
	if err := r.db.WithContext(ctx).
		Model(&models.ScheduleItem{}).
		Where("engagement_id = ? AND status = ?", engagementID, models.ScheduleItemStatusCompleted).
		Count(&completed).Error; err != nil {
		return 0, 0, err
	}

	return total, completed, nil
}

func (r *scheduleItemRepository) ListByEngagement(ctx context.Context, engagementID uint) ([]models.ScheduleItem, error) {
	var items []models.ScheduleItem
	if err := r.db.WithContext(ctx).
		Where("engagement_id = ?", engagementID).
		Order(scheduleOrder).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *scheduleItemRepository) ListPending(ctx context.Context, engagementID uint) ([]models.ScheduleItem, error) {
	var items []models.ScheduleItem
	if err := r.db.WithContext(ctx).
		Where("engagement_id = ? AND status <> ?", engagementID, models.ScheduleItemStatusCompleted).
		Order(scheduleOrder).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *scheduleItemRepository) ListByEngagements(ctx context.Context, engagementIDs []uint) ([]models.ScheduleItem, error) {
	if len(engagementIDs) == 0 {
		return []models.ScheduleItem{}, nil
	}

	var items []models.ScheduleItem
	if err := r.db.WithContext(ctx).
		Where("engagement_id IN ?", engagementIDs).
		Order("engagement_id ASC, " + scheduleOrder).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *scheduleItemRepository) GetByID(ctx context.Context, engagementID, itemID uint) (models.ScheduleItem, error) {
	var item models.ScheduleItem
	if err := r.db.WithContext(ctx).
		Where("id = ? AND engagement_id = ?", itemID, engagementID).
		First(&item).Error; err != nil {
		return models.ScheduleItem{}, err
	}
	return item, nil
}

func (r *scheduleItemRepository) FindByID(ctx context.Context, itemID uint) (models.ScheduleItem, error) {
	var item models.ScheduleItem
	if err := r.db.WithContext(ctx).First(&item, itemID).Error; err != nil {
		return models.ScheduleItem{}, err
	}
	return item, nil
}

// UpdateStatus never touches a completed row; the returned flag reports
// whether the row was changed.
func (r *scheduleItemRepository) UpdateStatus(ctx context.Context, id uint, status models.ScheduleItemStatus, cause models.CompletionCause, completedAt *time.Time) (bool, error) {
	updates := map[string]interface{}{"status": status}
	if status == models.ScheduleItemStatusCompleted {
		updates["completion_cause"] = cause
		updates["completed_at"] = completedAt
	}

	result := r.db.WithContext(ctx).
		Model(&models.ScheduleItem{}).
		Where("id = ? AND status <> ?", id, models.ScheduleItemStatusCompleted).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UnlockForDate moves locked items of the given civil date to upcoming. A
// non-empty startsAfter ("HH:MM") restricts it to items starting strictly
// later, so meetings that already ended stay locked for the reconciler.
func (r *scheduleItemRepository) UnlockForDate(ctx context.Context, date, startsAfter string) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.ScheduleItem{}).
		Where("scheduled_date = ? AND status = ?", date, models.ScheduleItemStatusLocked)
	if startsAfter != "" {
		query = query.Where("scheduled_time > ?", startsAfter)
	}
	result := query.Update("status", models.ScheduleItemStatusUpcoming)
	return result.RowsAffected, result.Error
}

// CountStaleBefore counts non-completed items dated before the given civil date.
func (r *scheduleItemRepository) CountStaleBefore(ctx context.Context, date string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ScheduleItem{}).
		Where("scheduled_date < ? AND status <> ?", date, models.ScheduleItemStatusCompleted).
		Count(&count).Error
	return count, err
}
