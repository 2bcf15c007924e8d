package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/mentora-api/internal/civiltime"
	"github.com/noah-isme/mentora-api/internal/models"
	"github.com/noah-isme/mentora-api/internal/observability"
	"github.com/noah-isme/mentora-api/internal/repository"
)

// EngagementStatusEvaluator derives an engagement's status from its items.
// It is the only component allowed to move an engagement into or out of
// the completed state.
type EngagementStatusEvaluator interface {
	Evaluate(ctx context.Context, engagementID uint) (models.EngagementState, error)
}

type engagementEvaluator struct {
	engagements repository.EngagementRepository
	items       repository.ScheduleItemRepository
	payments    repository.PaymentRepository
	activity    ActivityRecorder
	zone        *civiltime.Zone
	logger      zerolog.Logger
}

// NewEngagementStatusEvaluator constructs the evaluator.
func NewEngagementStatusEvaluator(engagements repository.EngagementRepository, items repository.ScheduleItemRepository, payments repository.PaymentRepository, activity ActivityRecorder, zone *civiltime.Zone, logger zerolog.Logger) EngagementStatusEvaluator {
	return &engagementEvaluator{
		engagements: engagements,
		items:       items,
		payments:    payments,
		activity:    activity,
		zone:        zone,
		logger:      logger.With().Str("component", "engagement_evaluator").Logger(),
	}
}

func (e *engagementEvaluator) Evaluate(ctx context.Context, engagementID uint) (models.EngagementState, error) {
	engagement, err := e.engagements.GetByID(ctx, engagementID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEngagementNotFound
		}
		return nil, err
	}

	total, completed, err := e.items.CountByEngagement(ctx, engagementID)
	if err != nil {
		return nil, err
	}

	next, err := e.decide(ctx, engagement, total, completed)
	if err != nil {
		return nil, err
	}

	nextStatus, nextCompletedAt := next.Columns()
	if nextStatus == engagement.Status && (nextCompletedAt == nil) == (engagement.CompletedAt == nil) {
		return next, nil
	}

	applied, err := e.engagements.CompareAndSetState(ctx, engagementID, []models.EngagementStatus{engagement.Status}, next)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Another writer moved the row first; report what is stored now.
		current, err := e.engagements.GetByID(ctx, engagementID)
		if err != nil {
			return nil, err
		}
		return current.State(), nil
	}

	observability.EngagementTransitions().WithLabelValues(string(nextStatus)).Inc()
	e.logger.Info().
		Uint("engagement_id", engagementID).
		Str("from", string(engagement.Status)).
		Str("to", string(nextStatus)).
		Int64("items", total).
		Int64("completed_items", completed).
		Msg("engagement status changed")

	action := ActionEngagementCompleted
	if engagement.Status == models.EngagementStatusCompleted {
		action = ActionEngagementReactivated
	}
	if nextStatus == models.EngagementStatusCompleted || engagement.Status == models.EngagementStatusCompleted {
		recordQuietly(ctx, e.activity, e.logger, ActivityEntry{
			Actor:      SystemActor,
			Action:     action,
			EntityType: "engagement",
			EntityID:   engagementID,
			Metadata:   map[string]interface{}{"items": total, "completed_items": completed},
		})
	}

	return next, nil
}

func (e *engagementEvaluator) decide(ctx context.Context, engagement models.Engagement, total, completed int64) (models.EngagementState, error) {
	current := engagement.State()

	switch engagement.Status {
	case models.EngagementStatusCancelled, models.EngagementStatusRejected:
		return current, nil
	}

	if total == 0 {
		if engagement.Status == models.EngagementStatusCompleted {
			return models.StateActive{}, nil
		}
		return current, nil
	}

	paid, err := e.isPaid(ctx, engagement)
	if err != nil {
		return nil, err
	}
	if !paid {
		return current, nil
	}

	if completed == total {
		if done, ok := current.(models.StateCompleted); ok {
			return done, nil
		}
		return models.StateCompleted{CompletedAt: e.zone.Now()}, nil
	}

	return models.StateActive{}, nil
}

func (e *engagementEvaluator) isPaid(ctx context.Context, engagement models.Engagement) (bool, error) {
	switch engagement.Status {
	case models.EngagementStatusActive, models.EngagementStatusCompleted:
		return true, nil
	}
	if e.payments == nil {
		return false, nil
	}

	paid, err := e.payments.SuccessfulEngagementIDs(ctx, []uint{engagement.ID})
	if err != nil {
		return false, err
	}
	return paid[engagement.ID], nil
}
