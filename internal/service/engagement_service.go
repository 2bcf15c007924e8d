package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/mentora-api/internal/civiltime"
	"github.com/noah-isme/mentora-api/internal/dto"
	"github.com/noah-isme/mentora-api/internal/models"
	"github.com/noah-isme/mentora-api/internal/observability"
	"github.com/noah-isme/mentora-api/internal/repository"
)

// EngagementService exposes the engagement lifecycle to collaborators.
type EngagementService interface {
	Request(ctx context.Context, actor ActivityActor, payload dto.EngagementCreateRequest) (dto.EngagementResponse, error)
	Get(ctx context.Context, actor ActivityActor, id uint) (dto.EngagementResponse, error)
	Approve(ctx context.Context, actor ActivityActor, id uint) (dto.EngagementResponse, error)
	Reject(ctx context.Context, actor ActivityActor, id uint, payload dto.EngagementRejectRequest) (dto.EngagementResponse, error)
	Cancel(ctx context.Context, actor ActivityActor, id uint) (dto.EngagementResponse, error)
	ListSchedule(ctx context.Context, actor ActivityActor, id uint) ([]dto.ScheduleItemResponse, error)
	NextMeeting(ctx context.Context, actor ActivityActor, id uint) (dto.ScheduleItemResponse, error)
	Evaluate(ctx context.Context, id uint) (dto.EngagementStatusResponse, error)
	MarkScheduleItemComplete(ctx context.Context, actor ActivityActor, engagementID, itemID uint) (dto.ScheduleItemResponse, error)
	Dashboard(ctx context.Context, actor ActivityActor) ([]dto.DashboardMeeting, error)
}

type engagementService struct {
	engagements repository.EngagementRepository
	items       repository.ScheduleItemRepository
	reconciler  ScheduleReconciler
	evaluator   EngagementStatusEvaluator
	courses     CourseStatusService
	visibility  VisibilityFilter
	activity    ActivityRecorder
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	zone        *civiltime.Zone
	logger      zerolog.Logger
}

// EngagementServiceDeps groups the collaborators of the engagement service.
type EngagementServiceDeps struct {
	Engagements repository.EngagementRepository
	Items       repository.ScheduleItemRepository
	Reconciler  ScheduleReconciler
	Evaluator   EngagementStatusEvaluator
	Courses     CourseStatusService
	Visibility  VisibilityFilter
	Activity    ActivityRecorder
	Validator   *validator.Validate
	Zone        *civiltime.Zone
}

// NewEngagementService constructs the engagement lifecycle service.
func NewEngagementService(deps EngagementServiceDeps, logger zerolog.Logger) EngagementService {
	return &engagementService{
		engagements: deps.Engagements,
		items:       deps.Items,
		reconciler:  deps.Reconciler,
		evaluator:   deps.Evaluator,
		courses:     deps.Courses,
		visibility:  deps.Visibility,
		activity:    deps.Activity,
		validator:   deps.Validator,
		sanitizer:   bluemonday.StrictPolicy(),
		zone:        deps.Zone,
		logger:      logger.With().Str("component", "engagement_service").Logger(),
	}
}

func (s *engagementService) Request(ctx context.Context, actor ActivityActor, payload dto.EngagementCreateRequest) (dto.EngagementResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.EngagementResponse{}, err
	}

	start, err := s.zone.InstantFromCivil(payload.StartDate, payload.StartTime)
	if err != nil {
		return dto.EngagementResponse{}, err
	}

	engagement := models.Engagement{
		StudentID:       actor.ID,
		MentorID:        payload.MentorID,
		Skill:           strings.TrimSpace(payload.Skill),
		WeeksTotal:      payload.WeeksTotal,
		SessionsPerWeek: payload.SessionsPerWeek,
		StartInstant:    start.UTC(),
		StartDate:       s.zone.DateOf(start),
	}
	engagement.Apply(models.StateRequested{})

	if err := s.engagements.Create(ctx, &engagement); err != nil {
		return dto.EngagementResponse{}, err
	}

	s.logger.Info().Uint("engagement_id", engagement.ID).Uint("mentor_id", engagement.MentorID).Msg("engagement requested")
	recordQuietly(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     ActionEngagementRequested,
		EntityType: "engagement",
		EntityID:   engagement.ID,
		Metadata:   map[string]interface{}{"skill": engagement.Skill, "start_date": engagement.StartDate},
	})
	s.refreshCourse(ctx, engagement.Triple())

	return dto.NewEngagementResponse(engagement), nil
}

func (s *engagementService) Get(ctx context.Context, actor ActivityActor, id uint) (dto.EngagementResponse, error) {
	engagement, err := s.loadForParticipant(ctx, actor, id)
	if err != nil {
		return dto.EngagementResponse{}, err
	}
	return dto.NewEngagementResponse(engagement), nil
}

func (s *engagementService) Approve(ctx context.Context, actor ActivityActor, id uint) (dto.EngagementResponse, error) {
	return s.mentorTransition(ctx, actor, id, "approve", models.StateApproved{}, ActionEngagementApproved, "")
}

func (s *engagementService) Reject(ctx context.Context, actor ActivityActor, id uint, payload dto.EngagementRejectRequest) (dto.EngagementResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.EngagementResponse{}, err
	}
	reason := strings.TrimSpace(s.sanitizer.Sanitize(payload.Reason))
	return s.mentorTransition(ctx, actor, id, "reject", models.StateRejected{}, ActionEngagementRejected, reason)
}

func (s *engagementService) mentorTransition(ctx context.Context, actor ActivityActor, id uint, verb string, to models.EngagementState, action, reason string) (dto.EngagementResponse, error) {
	engagement, err := s.load(ctx, id)
	if err != nil {
		return dto.EngagementResponse{}, err
	}
	if !isMentorOf(actor, engagement) {
		return dto.EngagementResponse{}, ErrForbidden
	}

	applied, err := s.engagements.CompareAndSetState(ctx, id, []models.EngagementStatus{models.EngagementStatusRequested}, to)
	if err != nil {
		return dto.EngagementResponse{}, err
	}
	if !applied {
		return dto.EngagementResponse{}, invalidTransition("engagement", engagement.Status, verb)
	}
	if reason != "" {
		if err := s.engagements.SetRejectionReason(ctx, id, reason); err != nil {
			s.logger.Warn().Err(err).Uint("engagement_id", id).Msg("failed to store rejection reason")
		}
	}

	return s.afterTransition(ctx, actor, id, to, action)
}

// Cancel is a one-way transition available before payment only.
func (s *engagementService) Cancel(ctx context.Context, actor ActivityActor, id uint) (dto.EngagementResponse, error) {
	engagement, err := s.loadForParticipant(ctx, actor, id)
	if err != nil {
		return dto.EngagementResponse{}, err
	}

	from := []models.EngagementStatus{models.EngagementStatusRequested, models.EngagementStatusApproved}
	applied, err := s.engagements.CompareAndSetState(ctx, id, from, models.StateCancelled{})
	if err != nil {
		return dto.EngagementResponse{}, err
	}
	if !applied {
		return dto.EngagementResponse{}, invalidTransition("engagement", engagement.Status, "cancel")
	}

	return s.afterTransition(ctx, actor, id, models.StateCancelled{}, ActionEngagementCancelled)
}

func (s *engagementService) afterTransition(ctx context.Context, actor ActivityActor, id uint, to models.EngagementState, action string) (dto.EngagementResponse, error) {
	observability.EngagementTransitions().WithLabelValues(string(to.Status())).Inc()

	updated, err := s.load(ctx, id)
	if err != nil {
		return dto.EngagementResponse{}, err
	}

	s.logger.Info().Uint("engagement_id", id).Str("status", string(updated.Status)).Msg("engagement transitioned")
	recordQuietly(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     action,
		EntityType: "engagement",
		EntityID:   id,
	})
	s.refreshCourse(ctx, updated.Triple())

	return dto.NewEngagementResponse(updated), nil
}

func (s *engagementService) ListSchedule(ctx context.Context, actor ActivityActor, id uint) ([]dto.ScheduleItemResponse, error) {
	engagement, err := s.loadForParticipant(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	items, err := s.reconciler.Reconcile(ctx, id)
	if err != nil {
		return nil, err
	}

	visible := s.visibility.FilterScheduleList(items, engagement.StartDate)
	return dto.NewScheduleItemResponseSlice(visible), nil
}

// NextMeeting returns today's unlocked meeting, or else the next locked one.
func (s *engagementService) NextMeeting(ctx context.Context, actor ActivityActor, id uint) (dto.ScheduleItemResponse, error) {
	engagement, err := s.loadForParticipant(ctx, actor, id)
	if err != nil {
		return dto.ScheduleItemResponse{}, err
	}

	items, err := s.reconciler.Reconcile(ctx, id)
	if err != nil {
		return dto.ScheduleItemResponse{}, err
	}
	items = s.visibility.FilterScheduleList(items, engagement.StartDate)

	for _, item := range items {
		if item.Status == models.ScheduleItemStatusUpcoming {
			return dto.NewScheduleItemResponse(item), nil
		}
	}
	for _, item := range items {
		if item.Status == models.ScheduleItemStatusLocked {
			return dto.NewScheduleItemResponse(item), nil
		}
	}
	return dto.ScheduleItemResponse{}, ErrScheduleItemNotFound
}

func (s *engagementService) Evaluate(ctx context.Context, id uint) (dto.EngagementStatusResponse, error) {
	state, err := s.evaluator.Evaluate(ctx, id)
	if err != nil {
		return dto.EngagementStatusResponse{}, err
	}
	status, completedAt := state.Columns()
	return dto.EngagementStatusResponse{EngagementID: id, Status: string(status), CompletedAt: completedAt}, nil
}

// MarkScheduleItemComplete lets the engagement's mentor close a meeting that
// is currently upcoming. Evaluation and course recalculation follow
// synchronously; their failures are logged and repaired by the next sweep.
func (s *engagementService) MarkScheduleItemComplete(ctx context.Context, actor ActivityActor, engagementID, itemID uint) (dto.ScheduleItemResponse, error) {
	engagement, err := s.load(ctx, engagementID)
	if err != nil {
		return dto.ScheduleItemResponse{}, err
	}
	if !isMentorOf(actor, engagement) {
		return dto.ScheduleItemResponse{}, ErrForbidden
	}

	if _, err := s.items.GetByID(ctx, engagementID, itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ScheduleItemResponse{}, ErrScheduleItemNotFound
		}
		return dto.ScheduleItemResponse{}, err
	}

	items, err := s.reconciler.Reconcile(ctx, engagementID)
	if err != nil {
		return dto.ScheduleItemResponse{}, err
	}

	var item models.ScheduleItem
	for _, candidate := range items {
		if candidate.ID == itemID {
			item = candidate
			break
		}
	}
	if item.Status != models.ScheduleItemStatusUpcoming {
		return dto.ScheduleItemResponse{}, invalidTransition("schedule item", item.Status, "complete")
	}

	completedAt := s.zone.Now().UTC()
	changed, err := s.items.UpdateStatus(ctx, itemID, models.ScheduleItemStatusCompleted, models.CompletionCauseMentor, &completedAt)
	if err != nil {
		return dto.ScheduleItemResponse{}, err
	}
	if !changed {
		return dto.ScheduleItemResponse{}, invalidTransition("schedule item", models.ScheduleItemStatusCompleted, "complete")
	}

	item.Status = models.ScheduleItemStatusCompleted
	item.CompletionCause = models.CompletionCauseMentor
	item.CompletedAt = &completedAt
	observability.ScheduleTransitions().WithLabelValues(string(item.Status), string(models.CompletionCauseMentor)).Inc()

	recordQuietly(ctx, s.activity, s.logger, ActivityEntry{
		Actor:        actor,
		Action:       ActionScheduleItemCompleted,
		EntityType:   "schedule_item",
		EntityID:     itemID,
		EngagementID: engagementID,
		Metadata:     map[string]interface{}{"cause": string(models.CompletionCauseMentor)},
	})

	if _, err := s.evaluator.Evaluate(ctx, engagementID); err != nil {
		s.logger.Error().Err(err).Uint("engagement_id", engagementID).Msg("engagement evaluation after completion failed")
	}
	if s.courses != nil {
		if _, err := s.courses.RecalculateForScheduleItem(ctx, itemID); err != nil {
			s.logger.Error().Err(err).Uint("schedule_item_id", itemID).Msg("course status recalculation failed")
		}
	}

	return dto.NewScheduleItemResponse(item), nil
}

// Dashboard lists the meetings the caller should see right now.
func (s *engagementService) Dashboard(ctx context.Context, actor ActivityActor) ([]dto.DashboardMeeting, error) {
	engagements, err := s.engagements.ListForParticipant(ctx, actor.ID, actor.Role)
	if err != nil {
		return nil, err
	}

	now := s.zone.Now()
	meetings := make([]dto.DashboardMeeting, 0)
	for _, engagement := range engagements {
		switch engagement.Status {
		case models.EngagementStatusApproved:
			if s.visibility.IsVisibleOnDashboard(engagement.StartDate, engagement.StartInstant, engagement.Status) {
				meetings = append(meetings, dto.DashboardMeeting{
					Engagement: dto.NewEngagementResponse(engagement),
					StartsAt:   engagement.StartInstant,
				})
			}
		case models.EngagementStatusActive:
			items, err := s.reconciler.Reconcile(ctx, engagement.ID)
			if err != nil {
				s.logger.Warn().Err(err).Uint("engagement_id", engagement.ID).Msg("skipping engagement on dashboard")
				continue
			}
			for _, item := range items {
				if item.IsCompleted() {
					continue
				}
				start, err := s.zone.InstantFromCivil(item.ScheduledDate, item.ScheduledTime)
				if err != nil {
					continue
				}
				if !s.visibility.IsVisibleOnDashboard(item.ScheduledDate, start, engagement.Status) {
					continue
				}
				itemResponse := dto.NewScheduleItemResponse(item)
				meetings = append(meetings, dto.DashboardMeeting{
					Engagement: dto.NewEngagementResponse(engagement),
					Item:       &itemResponse,
					StartsAt:   start,
					InProgress: !now.Before(start),
				})
			}
		}
	}

	return meetings, nil
}

func (s *engagementService) load(ctx context.Context, id uint) (models.Engagement, error) {
	engagement, err := s.engagements.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Engagement{}, ErrEngagementNotFound
		}
		return models.Engagement{}, err
	}
	return engagement, nil
}

func (s *engagementService) loadForParticipant(ctx context.Context, actor ActivityActor, id uint) (models.Engagement, error) {
	engagement, err := s.load(ctx, id)
	if err != nil {
		return models.Engagement{}, err
	}
	if !isParticipant(actor, engagement) {
		return models.Engagement{}, ErrForbidden
	}
	return engagement, nil
}

func (s *engagementService) refreshCourse(ctx context.Context, key models.CourseKey) {
	if s.courses == nil {
		return
	}
	if _, err := s.courses.Recalculate(ctx, key); err != nil {
		s.logger.Error().Err(err).Uint("student_id", key.StudentID).Str("skill", key.Skill).Msg("course status recalculation failed")
	}
}

func isMentorOf(actor ActivityActor, engagement models.Engagement) bool {
	return actor.Is(RoleMentor) && actor.ID == engagement.MentorID
}

func isParticipant(actor ActivityActor, engagement models.Engagement) bool {
	switch NormalizeRole(actor.Role) {
	case RoleAdmin, RoleSystem:
		return true
	case RoleMentor:
		return actor.ID == engagement.MentorID
	case RoleStudent:
		return actor.ID == engagement.StudentID
	default:
		return false
	}
}
