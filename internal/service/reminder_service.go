package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/mentora-api/internal/civiltime"
	"github.com/noah-isme/mentora-api/internal/models"
	"github.com/noah-isme/mentora-api/internal/observability"
	"github.com/noah-isme/mentora-api/internal/repository"
)

// DefaultReminderLeadTime is how long before a meeting the reminder goes out.
const DefaultReminderLeadTime = time.Hour

// ReminderService sends the one-shot "starting soon" reminder of active engagements.
type ReminderService interface {
	SendDue(ctx context.Context) (int, error)
}

type reminderService struct {
	engagements repository.EngagementRepository
	items       repository.ScheduleItemRepository
	notifier    NotificationService
	zone        *civiltime.Zone
	leadTime    time.Duration
	logger      zerolog.Logger
}

// NewReminderService constructs the reminder dispatcher.
func NewReminderService(engagements repository.EngagementRepository, items repository.ScheduleItemRepository, notifier NotificationService, zone *civiltime.Zone, leadTime time.Duration, logger zerolog.Logger) ReminderService {
	if leadTime <= 0 {
		leadTime = DefaultReminderLeadTime
	}
	return &reminderService{
		engagements: engagements,
		items:       items,
		notifier:    notifier,
		zone:        zone,
		leadTime:    leadTime,
		logger:      logger.With().Str("component", "reminder_service").Logger(),
	}
}

// SendDue notifies both participants of every active engagement whose next
// pending meeting starts within the lead time. Failures on one engagement
// are logged and do not stop the others.
func (s *reminderService) SendDue(ctx context.Context) (int, error) {
	engagements, err := s.engagements.ListByStatus(ctx, models.EngagementStatusActive)
	if err != nil {
		return 0, err
	}

	now := s.zone.Now()
	sent := 0
	for _, engagement := range engagements {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if engagement.ReminderSent {
			continue
		}

		start, ok, err := s.nextStart(ctx, engagement.ID)
		if err != nil {
			s.logger.Warn().Err(err).Uint("engagement_id", engagement.ID).Msg("failed to resolve next meeting")
			continue
		}
		if !ok || now.Before(start.Add(-s.leadTime)) || !now.Before(start) {
			continue
		}

		claimed, err := s.engagements.ClaimReminder(ctx, engagement.ID)
		if err != nil {
			s.logger.Warn().Err(err).Uint("engagement_id", engagement.ID).Msg("failed to claim reminder")
			continue
		}
		if !claimed {
			continue
		}

		message := fmt.Sprintf("Your %s session starts at %s.", engagement.Skill, start.In(s.zone.Location()).Format(civiltime.TimeLayout))
		for _, userID := range []uint{engagement.StudentID, engagement.MentorID} {
			if _, err := s.notifier.Notify(ctx, Notification{
				UserID:       userID,
				EngagementID: engagement.ID,
				Type:         models.NotificationTypeStartingSoon,
				Message:      message,
			}); err != nil {
				s.logger.Warn().Err(err).Uint("engagement_id", engagement.ID).Uint("user_id", userID).Msg("failed to send reminder")
			}
		}

		observability.RemindersSent().Inc()
		sent++
	}

	if sent > 0 {
		s.logger.Info().Int("sent", sent).Msg("reminders dispatched")
	}
	return sent, nil
}

func (s *reminderService) nextStart(ctx context.Context, engagementID uint) (time.Time, bool, error) {
	pending, err := s.items.ListPending(ctx, engagementID)
	if err != nil {
		return time.Time{}, false, err
	}
	if len(pending) == 0 {
		return time.Time{}, false, nil
	}

	start, err := s.zone.InstantFromCivil(pending[0].ScheduledDate, pending[0].ScheduledTime)
	if err != nil {
		return time.Time{}, false, err
	}
	return start, true, nil
}
