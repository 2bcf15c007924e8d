package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/mentora-api/internal/models"
)

// CurriculumRepository looks up curriculum plans by skill.
type CurriculumRepository interface {
	GetBySkill(ctx context.Context, skill string) (models.CurriculumPlan, error)
	Upsert(ctx context.Context, plan *models.CurriculumPlan) error
}

type curriculumRepository struct {
	db *gorm.DB
}

// NewCurriculumRepository constructs the repository.
func NewCurriculumRepository(db *gorm.DB) CurriculumRepository {
	return &curriculumRepository{db: db}
}

func (r *curriculumRepository) GetBySkill(ctx context.Context, skill string) (models.CurriculumPlan, error) {
	var plan models.CurriculumPlan
	if err := r.db.WithContext(ctx).
		Where("LOWER(skill) = ?", strings.ToLower(strings.TrimSpace(skill))).
		First(&plan).Error; err != nil {
		return models.CurriculumPlan{}, err
	}
	return plan, nil
}

func (r *curriculumRepository) Upsert(ctx context.Context, plan *models.CurriculumPlan) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "skill"}},
			DoUpdates: clause.AssignmentColumns([]string{"topics", "updated_at"}),
		}).
		Create(plan).Error
}
