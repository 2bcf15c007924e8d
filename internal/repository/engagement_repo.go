package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/mentora-api/internal/models"
)

// EngagementRepository defines persistence operations for engagements.
type EngagementRepository interface {
	Create(ctx context.Context, engagement *models.Engagement) error
	GetByID(ctx context.Context, id uint) (models.Engagement, error)
	ListByStatus(ctx context.Context, statuses ...models.EngagementStatus) ([]models.Engagement, error)
	ListByCourse(ctx context.Context, key models.CourseKey) ([]models.Engagement, error)
	ListForParticipant(ctx context.Context, userID uint, role string) ([]models.Engagement, error)
	ListCourseKeys(ctx context.Context) ([]models.CourseKey, error)
	UpdateState(ctx context.Context, id uint, state models.EngagementState) error
	CompareAndSetState(ctx context.Context, id uint, from []models.EngagementStatus, to models.EngagementState) (bool, error)
	SetRejectionReason(ctx context.Context, id uint, reason string) error
	ClaimReminder(ctx context.Context, id uint) (bool, error)
}

type engagementRepository struct {
	db *gorm.DB
}

// NewEngagementRepository instantiates a GORM-backed repository.
func NewEngagementRepository(db *gorm.DB) EngagementRepository {
	return &engagementRepository{db: db}
}

func (r *engagementRepository) Create(ctx context.Context, engagement *models.Engagement) error {
	return r.db.WithContext(ctx).Create(engagement).Error
}

func (r *engagementRepository) GetByID(ctx context.Context, id uint) (models.Engagement, error) {
	var engagement models.Engagement
	if err := r.db.WithContext(ctx).First(&engagement, id).Error; err != nil {
		return models.Engagement{}, err
	}
	return engagement, nil
}

func (r *engagementRepository) ListByStatus(ctx context.Context, statuses ...models.EngagementStatus) ([]models.Engagement, error) {
	query := r.db.WithContext(ctx).Model(&models.Engagement{})
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	var engagements []models.Engagement
	if err := query.Order("id ASC").Find(&engagements).Error; err != nil {
		return nil, err
	}
	return engagements, nil
}

func (r *engagementRepository) ListByCourse(ctx context.Context, key models.CourseKey) ([]models.Engagement, error) {
	var engagements []models.Engagement
	if err := r.db.WithContext(ctx).
		Where("student_id = ? AND mentor_id = ? AND skill = ?", key.StudentID, key.MentorID, key.Skill).
		Order("id ASC").
		Find(&engagements).Error; err != nil {
		return nil, err
	}
	return engagements, nil
}

func (r *engagementRepository) ListForParticipant(ctx context.Context, userID uint, role string) ([]models.Engagement, error) {
	column := "student_id"
	if role == "mentor" {
		column = "mentor_id"
	}

	var engagements []models.Engagement
	if err := r.db.WithContext(ctx).
		Where(column+" = ?", userID).
		Order("start_instant ASC").
		Find(&engagements).Error; err != nil {
		return nil, err
	}
	return engagements, nil
}

func (r *engagementRepository) ListCourseKeys(ctx context.Context) ([]models.CourseKey, error) {
	var keys []models.CourseKey
	if err := r.db.WithContext(ctx).
		Model(&models.Engagement{}).
		Distinct("student_id", "mentor_id", "skill").
		Order("student_id, mentor_id, skill").
		Scan(&keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *engagementRepository) UpdateState(ctx context.Context, id uint, state models.EngagementState) error {
	status, completedAt := state.Columns()
	result := r.db.WithContext(ctx).
		Model(&models.Engagement{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "completed_at": completedAt})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CompareAndSetState applies the transition only while the row is still in one
// of the expected statuses, so concurrent actors cannot both win.
func (r *engagementRepository) CompareAndSetState(ctx context.Context, id uint, from []models.EngagementStatus, to models.EngagementState) (bool, error) {
	status, completedAt := to.Columns()
	result := r.db.WithContext(ctx).
		Model(&models.Engagement{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]interface{}{"status": status, "completed_at": completedAt})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *engagementRepository) SetRejectionReason(ctx context.Context, id uint, reason string) error {
	return r.db.WithContext(ctx).
		Model(&models.Engagement{}).
		Where("id = ?", id).
		Update("rejection_reason", reason).Error
}

// ClaimReminder flips the one-shot reminder flag and reports whether this call won it.
func (r *engagementRepository) ClaimReminder(ctx context.Context, id uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Engagement{}).
		Where("id = ? AND reminder_sent = ?", id, false).
		Update("reminder_sent", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
