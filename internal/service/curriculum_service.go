package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/mentora-api/internal/dto"
	"github.com/noah-isme/mentora-api/internal/models"
	"github.com/noah-isme/mentora-api/internal/repository"
)

// ErrCurriculumNotFound indicates no curriculum plan exists for the skill.
var ErrCurriculumNotFound = fmt.Errorf("curriculum %w", ErrNotFound)

// CurriculumService manages the per-skill topic plans used for schedule titles.
type CurriculumService interface {
	Get(ctx context.Context, skill string) (dto.CurriculumPlanResponse, error)
	Upsert(ctx context.Context, skill string, payload dto.CurriculumPlanRequest) (dto.CurriculumPlanResponse, error)
}

type curriculumService struct {
	repo      repository.CurriculumRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewCurriculumService constructs the curriculum service.
func NewCurriculumService(repo repository.CurriculumRepository, validate *validator.Validate, logger zerolog.Logger) CurriculumService {
	return &curriculumService{
		repo:      repo,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "curriculum_service").Logger(),
	}
}

func (s *curriculumService) Get(ctx context.Context, skill string) (dto.CurriculumPlanResponse, error) {
	plan, err := s.repo.GetBySkill(ctx, skill)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CurriculumPlanResponse{}, ErrCurriculumNotFound
		}
		return dto.CurriculumPlanResponse{}, err
	}
	return dto.CurriculumPlanResponse{Skill: plan.Skill, Topics: plan.Topics}, nil
}

// Upsert replaces the skill's topic list.
func (s *curriculumService) Upsert(ctx context.Context, skill string, payload dto.CurriculumPlanRequest) (dto.CurriculumPlanResponse, error) {
	skill = strings.TrimSpace(skill)
	if skill == "" {
		return dto.CurriculumPlanResponse{}, errors.New("skill is required")
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.CurriculumPlanResponse{}, err
	}

	topics := make([]models.CurriculumTopic, 0, len(payload.Topics))
	for _, topic := range payload.Topics {
		title := strings.TrimSpace(s.sanitizer.Sanitize(topic.Title))
		if title == "" {
			continue
		}
		topics = append(topics, models.CurriculumTopic{Week: topic.Week, Session: topic.Session, Title: title})
	}

	plan := models.CurriculumPlan{Skill: skill, Topics: topics}
	if err := s.repo.Upsert(ctx, &plan); err != nil {
		return dto.CurriculumPlanResponse{}, err
	}

	s.logger.Info().Str("skill", skill).Int("topics", len(topics)).Msg("curriculum plan stored")
	return dto.CurriculumPlanResponse{Skill: plan.Skill, Topics: plan.Topics}, nil
}
