package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/mentora-api/internal/dto"
	"github.com/noah-isme/mentora-api/internal/models"
	"github.com/noah-isme/mentora-api/internal/repository"
)

// Audit actions emitted by the lifecycle engine.
const (
	ActionEngagementRequested   = "engagement.requested"
	ActionEngagementApproved    = "engagement.approved"
	ActionEngagementRejected    = "engagement.rejected"
	ActionEngagementCancelled   = "engagement.cancelled"
	ActionEngagementCompleted   = "engagement.completed"
	ActionEngagementReactivated = "engagement.reactivated"
	ActionPaymentSucceeded      = "payment.succeeded"
	ActionScheduleGenerated     = "schedule.generated"
	ActionScheduleItemCompleted = "schedule_item.completed"
)

// ActivityEntry captures the details required to persist an audit entry.
type ActivityEntry struct {
	Actor      ActivityActor
	Action     string
	EntityType string
	EntityID   uint
	Metadata   map[string]interface{}
	// EngagementID defaults to EntityID for engagement entities.
	EngagementID uint
}

// ActivityRecorder defines behaviour for recording activity logs.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry) error
}

// ActivityService exposes methods to query and persist activity logs.
type ActivityService interface {
	ActivityRecorder
	List(ctx context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error)
}

type activityService struct {
	repo   repository.ActivityLogRepository
	logger zerolog.Logger
}

// NewActivityService constructs the activity log service.
func NewActivityService(repo repository.ActivityLogRepository, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:   repo,
		logger: logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) Record(ctx context.Context, entry ActivityEntry) error {
	if strings.TrimSpace(entry.Action) == "" {
		return fmt.Errorf("action is required")
	}
	if strings.TrimSpace(entry.EntityType) == "" {
		return fmt.Errorf("entity type is required")
	}

	entityID := entry.EntityID
	entityType := strings.ToLower(strings.TrimSpace(entry.EntityType))
	engagementID := entry.EngagementID
	if engagementID == 0 && entityType == "engagement" {
		engagementID = entityID
	}
	model := models.ActivityLog{
		ActorID:    entry.Actor.ID,
		ActorRole:  entry.Actor.auditRole(),
		Action:     strings.ToLower(strings.TrimSpace(entry.Action)),
		EntityType: entityType,
		EntityID:   &entityID,
		Metadata:   datatypes.JSONMap(entry.Metadata),
	}
	if engagementID != 0 {
		model.EngagementID = &engagementID
	}
	if model.Metadata == nil {
		model.Metadata = datatypes.JSONMap{}
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Str("action", model.Action).Msg("failed to persist activity log")
		return err
	}
	return nil
}

func (s *activityService) List(ctx context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error) {
	filter := repository.ActivityLogFilter{
		Page:       req.Page,
		PageSize:   req.PageSize,
		ActorRole:  NormalizeRole(req.ActorRole),
		Action:     strings.TrimSpace(req.Action),
		EntityType: strings.TrimSpace(req.EntityType),
		Since:      req.Since,
		Until:      req.Until,
	}
	if req.ActorID > 0 {
		filter.ActorID = &req.ActorID
	}
	if req.EntityID > 0 {
		filter.EntityID = &req.EntityID
	}
	if req.EngagementID > 0 {
		filter.EngagementID = &req.EngagementID
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.ActivityListResponse{}, err
	}

	responses := make([]dto.ActivityResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, dto.NewActivityResponse(entry))
	}

	pagination := dto.PaginationMeta{
		Page:       maxInt(req.Page, 1),
		PageSize:   req.PageSize,
		TotalItems: total,
		TotalPages: 1,
	}
	if req.PageSize > 0 {
		pagination.TotalPages = int(math.Ceil(float64(total) / float64(req.PageSize)))
	}

	return dto.ActivityListResponse{Items: responses, Pagination: pagination}, nil
}

// recordQuietly persists an audit entry without failing the calling operation.
func recordQuietly(ctx context.Context, recorder ActivityRecorder, logger zerolog.Logger, entry ActivityEntry) {
	if recorder == nil {
		return
	}
	if err := recorder.Record(ctx, entry); err != nil {
		logger.Warn().Err(err).Str("action", entry.Action).Uint("entity_id", entry.EntityID).Msg("activity not recorded")
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
