package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/mentora-api/internal/models"
)

// CourseEnrollmentRepository stores the cached course-level status rows.
type CourseEnrollmentRepository interface {
	Upsert(ctx context.Context, enrollment *models.CourseEnrollment) error
	Get(ctx context.Context, key models.CourseKey) (models.CourseEnrollment, error)
}

type courseEnrollmentRepository struct {
	db *gorm.DB
}

// NewCourseEnrollmentRepository constructs the repository.
func NewCourseEnrollmentRepository(db *gorm.DB) CourseEnrollmentRepository {
	return &courseEnrollmentRepository{db: db}
}

// Upsert inserts or overwrites the row for the enrollment's triple.
func (r *courseEnrollmentRepository) Upsert(ctx context.Context, enrollment *models.CourseEnrollment) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "mentor_id"}, {Name: "skill"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "recalculated_at", "updated_at"}),
		}).
		Create(enrollment).Error
}

func (r *courseEnrollmentRepository) Get(ctx context.Context, key models.CourseKey) (models.CourseEnrollment, error) {
	var enrollment models.CourseEnrollment
	if err := r.db.WithContext(ctx).
		Where("student_id = ? AND mentor_id = ? AND skill = ?", key.StudentID, key.MentorID, key.Skill).
		First(&enrollment).Error; err != nil {
		return models.CourseEnrollment{}, err
	}
	return enrollment, nil
}
