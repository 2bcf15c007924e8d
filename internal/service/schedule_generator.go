package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/mentora-api/internal/civiltime"
	"github.com/noah-isme/mentora-api/internal/models"
	"github.com/noah-isme/mentora-api/internal/observability"
	"github.com/noah-isme/mentora-api/internal/repository"
)

// maxScheduleDays bounds the calendar walk; a 52 week plan needs far fewer.
const maxScheduleDays = 2 * 366

// SchedulePlan describes the shape of an engagement's meeting series.
type SchedulePlan struct {
	WeeksTotal      int
	SessionsPerWeek int
	Topics          []models.CurriculumTopic
}

// ScheduleGenerator creates the meeting series of a paid engagement.
type ScheduleGenerator interface {
	Generate(ctx context.Context, engagementID uint, plan SchedulePlan, start time.Time) ([]models.ScheduleItem, error)
	GenerateForEngagement(ctx context.Context, engagement models.Engagement) ([]models.ScheduleItem, error)
}

type scheduleGenerator struct {
	items      repository.ScheduleItemRepository
	curriculum repository.CurriculumRepository
	activity   ActivityRecorder
	zone       *civiltime.Zone
	logger     zerolog.Logger
	tracer     trace.Tracer
}

// NewScheduleGenerator constructs the generator.
func NewScheduleGenerator(items repository.ScheduleItemRepository, curriculum repository.CurriculumRepository, activity ActivityRecorder, zone *civiltime.Zone, logger zerolog.Logger) ScheduleGenerator {
	return &scheduleGenerator{
		items:      items,
		curriculum: curriculum,
		activity:   activity,
		zone:       zone,
		logger:     logger.With().Str("component", "schedule_generator").Logger(),
		tracer:     otel.Tracer("github.com/noah-isme/mentora-api/internal/service/schedule_generator"),
	}
}

// GenerateForEngagement looks up the skill's curriculum and generates the schedule.
// A missing curriculum degrades to placeholder titles.
func (g *scheduleGenerator) GenerateForEngagement(ctx context.Context, engagement models.Engagement) ([]models.ScheduleItem, error) {
	plan := SchedulePlan{
		WeeksTotal:      engagement.WeeksTotal,
		SessionsPerWeek: engagement.SessionsPerWeek,
	}

	if g.curriculum != nil {
		curriculum, err := g.curriculum.GetBySkill(ctx, engagement.Skill)
		switch {
		case err == nil:
			plan.Topics = curriculum.Topics
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return nil, err
		}
	}

	return g.Generate(ctx, engagement.ID, plan, engagement.StartInstant)
}

func (g *scheduleGenerator) Generate(ctx context.Context, engagementID uint, plan SchedulePlan, start time.Time) ([]models.ScheduleItem, error) {
	ctx, span := g.tracer.Start(ctx, "schedule.generate", trace.WithAttributes(
		attribute.Int64("engagement.id", int64(engagementID)),
		attribute.Int("schedule.weeks", plan.WeeksTotal),
		attribute.Int("schedule.sessions_per_week", plan.SessionsPerWeek),
	))
	defer span.End()

	total, _, err := g.items.CountByEngagement(ctx, engagementID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if total > 0 {
		return nil, ErrScheduleAlreadyGenerated
	}

	if len(plan.Topics) == 0 {
		g.logger.Warn().Err(ErrMissingPlan).Uint("engagement_id", engagementID).Msg("generating schedule with placeholder titles")
	}

	items, err := BuildSchedule(g.zone, engagementID, plan, start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build_schedule_failed")
		return nil, err
	}

	if err := g.items.CreateBatch(ctx, items); err != nil {
		if repository.IsUniqueViolation(err) {
			g.logger.Debug().Uint("engagement_id", engagementID).Msg("schedule generated concurrently")
			return nil, ErrScheduleAlreadyGenerated
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist_schedule_failed")
		return nil, err
	}

	backdated := 0
	for _, item := range items {
		if item.IsCompleted() {
			backdated++
		}
	}
	if backdated > 0 {
		observability.ScheduleTransitions().WithLabelValues(string(models.ScheduleItemStatusCompleted), string(models.CompletionCauseBackdated)).Add(float64(backdated))
	}

	g.logger.Info().
		Uint("engagement_id", engagementID).
		Int("items", len(items)).
		Int("backdated", backdated).
		Msg("schedule generated")

	recordQuietly(ctx, g.activity, g.logger, ActivityEntry{
		Actor:      SystemActor,
		Action:     ActionScheduleGenerated,
		EntityType: "engagement",
		EntityID:   engagementID,
		Metadata:   map[string]interface{}{"items": len(items), "backdated": backdated},
	})

	return items, nil
}

// BuildSchedule walks business days from the start's civil date and lays out
// sessionsPerWeek meetings per plan week at the start's time of day. Items
// whose start has already passed are created completed.
func BuildSchedule(zone *civiltime.Zone, engagementID uint, plan SchedulePlan, start time.Time) ([]models.ScheduleItem, error) {
	if plan.WeeksTotal <= 0 || plan.SessionsPerWeek <= 0 {
		return nil, fmt.Errorf("%w: weeks and sessions per week must be positive", civiltime.ErrInvalidTimeInput)
	}
	if start.IsZero() {
		return nil, fmt.Errorf("%w: start instant is required", civiltime.ErrInvalidTimeInput)
	}

	now := zone.Now()
	date := zone.DateOf(start)
	clock := zone.ClockOf(start)
	titles := newTopicIndex(plan.Topics)

	items := make([]models.ScheduleItem, 0, plan.WeeksTotal*plan.SessionsPerWeek)
	week, session := 1, 0

	for day := 0; week <= plan.WeeksTotal; day++ {
		if day > maxScheduleDays {
			return nil, fmt.Errorf("schedule exceeded %d calendar days", maxScheduleDays)
		}

		weekend, err := civiltime.IsWeekend(date)
		if err != nil {
			return nil, err
		}

		if !weekend {
			session++
			instant, err := zone.InstantFromCivil(date, clock)
			if err != nil {
				return nil, err
			}

			item := models.ScheduleItem{
				EngagementID:  engagementID,
				WeekNumber:    week,
				SessionNumber: session,
				Title:         titles.title(week, session, len(items)+1),
				ScheduledDate: date,
				ScheduledTime: clock,
				Status:        models.ScheduleItemStatusLocked,
			}
			if !instant.After(now) {
				completedAt := now.UTC()
				item.Status = models.ScheduleItemStatusCompleted
				item.CompletionCause = models.CompletionCauseBackdated
				item.CompletedAt = &completedAt
			}
			items = append(items, item)

			if session == plan.SessionsPerWeek {
				week++
				session = 0
			}
		}

		if date, err = civiltime.AddDays(date, 1); err != nil {
			return nil, err
		}
	}

	return items, nil
}

type topicKey struct {
	week    int
	session int
}

type topicIndex struct {
	bySlot  map[topicKey]string
	ordered []string
}

func newTopicIndex(topics []models.CurriculumTopic) topicIndex {
	index := topicIndex{bySlot: make(map[topicKey]string, len(topics))}
	for _, topic := range topics {
		title := strings.TrimSpace(topic.Title)
		if title == "" {
			continue
		}
		index.ordered = append(index.ordered, title)
		if topic.Week > 0 && topic.Session > 0 {
			index.bySlot[topicKey{week: topic.Week, session: topic.Session}] = title
		}
	}
	return index
}

// title prefers the exact (week, session) topic, then the n-th topic in plan
// order, then a "Session N" placeholder.
func (t topicIndex) title(week, session, n int) string {
	if title, ok := t.bySlot[topicKey{week: week, session: session}]; ok {
		return title
	}
	if n-1 < len(t.ordered) {
		return t.ordered[n-1]
	}
	return fmt.Sprintf("Session %d", n)
}
