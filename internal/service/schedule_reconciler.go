package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/mentora-api/internal/civiltime"
	"github.com/noah-isme/mentora-api/internal/models"
	"github.com/noah-isme/mentora-api/internal/observability"
	"github.com/noah-isme/mentora-api/internal/repository"
)

// DefaultMeetingDuration is the fixed length of every meeting.
const DefaultMeetingDuration = time.Hour

// ScheduleReconciler recomputes item states of one engagement from the clock.
type ScheduleReconciler interface {
	Reconcile(ctx context.Context, engagementID uint) ([]models.ScheduleItem, error)
}

type scheduleReconciler struct {
	engagements repository.EngagementRepository
	items       repository.ScheduleItemRepository
	zone        *civiltime.Zone
	duration    time.Duration
	logger      zerolog.Logger
}

// NewScheduleReconciler constructs the reconciler. A non-positive duration
// falls back to DefaultMeetingDuration.
func NewScheduleReconciler(engagements repository.EngagementRepository, items repository.ScheduleItemRepository, zone *civiltime.Zone, duration time.Duration, logger zerolog.Logger) ScheduleReconciler {
	if duration <= 0 {
		duration = DefaultMeetingDuration
	}
	return &scheduleReconciler{
		engagements: engagements,
		items:       items,
		zone:        zone,
		duration:    duration,
		logger:      logger.With().Str("component", "schedule_reconciler").Logger(),
	}
}

// Reconcile updates every non-completed item and returns the full ordered
// item list. A failure on one item is logged and left for the next run.
func (r *scheduleReconciler) Reconcile(ctx context.Context, engagementID uint) ([]models.ScheduleItem, error) {
	if _, err := r.engagements.GetByID(ctx, engagementID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEngagementNotFound
		}
		return nil, err
	}

	items, err := r.items.ListByEngagement(ctx, engagementID)
	if err != nil {
		return nil, err
	}

	now := r.zone.Now()
	removed := make(map[int]struct{})
	for i := range items {
		item := &items[i]
		if item.IsCompleted() {
			continue
		}

		next, err := NextItemStatus(r.zone, *item, now, r.duration)
		if err != nil {
			r.logger.Error().Err(err).Uint("schedule_item_id", item.ID).Msg("schedule item has invalid civil time")
			continue
		}
		if next == item.Status {
			continue
		}

		var completedAt *time.Time
		cause := models.CompletionCause("")
		if next == models.ScheduleItemStatusCompleted {
			at := now.UTC()
			completedAt = &at
			cause = models.CompletionCauseElapsed
		}

		changed, err := r.items.UpdateStatus(ctx, item.ID, next, cause, completedAt)
		if err != nil {
			r.logger.Error().Err(err).
				Uint("engagement_id", engagementID).
				Uint("schedule_item_id", item.ID).
				Msg("failed to update schedule item status")
			continue
		}
		if !changed {
			// Completed or removed concurrently; report what is stored.
			fresh, err := r.items.FindByID(ctx, item.ID)
			switch {
			case err == nil:
				*item = fresh
			case errors.Is(err, gorm.ErrRecordNotFound):
				removed[i] = struct{}{}
			default:
				r.logger.Error().Err(err).
					Uint("engagement_id", engagementID).
					Uint("schedule_item_id", item.ID).
					Msg("failed to reload schedule item")
			}
			continue
		}

		item.Status = next
		if completedAt != nil {
			item.CompletedAt = completedAt
			item.CompletionCause = cause
		}
		observability.ScheduleTransitions().WithLabelValues(string(next), string(cause)).Inc()
	}

	if len(removed) == 0 {
		return items, nil
	}
	kept := make([]models.ScheduleItem, 0, len(items)-len(removed))
	for i, item := range items {
		if _, gone := removed[i]; !gone {
			kept = append(kept, item)
		}
	}
	return kept, nil
}

// NextItemStatus is the pure per-item rule: completed once the meeting window
// has elapsed, upcoming on its civil day, locked otherwise. Completed items
// never change.
func NextItemStatus(zone *civiltime.Zone, item models.ScheduleItem, now time.Time, duration time.Duration) (models.ScheduleItemStatus, error) {
	if item.IsCompleted() {
		return models.ScheduleItemStatusCompleted, nil
	}

	start, err := zone.InstantFromCivil(item.ScheduledDate, item.ScheduledTime)
	if err != nil {
		return item.Status, err
	}

	today := zone.DateOf(now)
	switch {
	case !now.Before(start.Add(duration)):
		return models.ScheduleItemStatusCompleted, nil
	case item.ScheduledDate == today:
		return models.ScheduleItemStatusUpcoming, nil
	default:
		// Future days, and the past-day-but-not-ended skew case, stay locked.
		return models.ScheduleItemStatusLocked, nil
	}
}
