package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/mentora-api/internal/civiltime"
	"github.com/noah-isme/mentora-api/internal/dto"
	"github.com/noah-isme/mentora-api/internal/models"
	"github.com/noah-isme/mentora-api/internal/observability"
	"github.com/noah-isme/mentora-api/internal/repository"
)

// CourseStatusService recomputes and serves the derived status of a
// (student, mentor, skill) course.
type CourseStatusService interface {
	Recalculate(ctx context.Context, key models.CourseKey) (models.CourseEnrollment, error)
	RecalculateForEngagement(ctx context.Context, engagementID uint) (models.CourseEnrollment, error)
	RecalculateForPayment(ctx context.Context, paymentID uint) (models.CourseEnrollment, error)
	RecalculateForScheduleItem(ctx context.Context, itemID uint) (models.CourseEnrollment, error)
	RecalculateAll(ctx context.Context) (dto.CourseRecalculationResult, error)
	Get(ctx context.Context, key models.CourseKey) (models.CourseEnrollment, error)
}

type courseStatusService struct {
	engagements repository.EngagementRepository
	items       repository.ScheduleItemRepository
	payments    repository.PaymentRepository
	enrollments repository.CourseEnrollmentRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	zone        *civiltime.Zone
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewCourseStatusService constructs the aggregator. The redis client is optional.
func NewCourseStatusService(engagements repository.EngagementRepository, items repository.ScheduleItemRepository, payments repository.PaymentRepository, enrollments repository.CourseEnrollmentRepository, cache *redis.Client, ttl time.Duration, zone *civiltime.Zone, logger zerolog.Logger) CourseStatusService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &courseStatusService{
		engagements: engagements,
		items:       items,
		payments:    payments,
		enrollments: enrollments,
		cache:       cache,
		cacheTTL:    ttl,
		zone:        zone,
		logger:      logger.With().Str("component", "course_status_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/mentora-api/internal/service/course_status"),
	}
}

// Recalculate recomputes and stores the triple's status. A triple with no
// engagements and no stored row is ErrCourseNotFound; one with a stored row
// but no engagements left is rewritten as PaymentPending.
func (s *courseStatusService) Recalculate(ctx context.Context, key models.CourseKey) (models.CourseEnrollment, error) {
	ctx, span := s.tracer.Start(ctx, "course_status.recalculate", trace.WithAttributes(
		attribute.Int64("course.student_id", int64(key.StudentID)),
		attribute.Int64("course.mentor_id", int64(key.MentorID)),
		attribute.String("course.skill", key.Skill),
	))
	defer span.End()

	engagements, err := s.engagements.ListByCourse(ctx, key)
	if err != nil {
		span.RecordError(err)
		return models.CourseEnrollment{}, err
	}

	if len(engagements) == 0 {
		if _, err := s.enrollments.Get(ctx, key); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.CourseEnrollment{}, ErrCourseNotFound
			}
			return models.CourseEnrollment{}, err
		}
	}

	status, err := s.computeStatus(ctx, engagements)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "compute_course_status_failed")
		return models.CourseEnrollment{}, err
	}

	now := s.zone.Now().UTC()
	enrollment := models.CourseEnrollment{
		StudentID:      key.StudentID,
		MentorID:       key.MentorID,
		Skill:          key.Skill,
		Status:         status,
		RecalculatedAt: now,
		UpdatedAt:      now,
	}
	if err := s.enrollments.Upsert(ctx, &enrollment); err != nil {
		span.RecordError(err)
		return models.CourseEnrollment{}, err
	}

	span.SetAttributes(attribute.String("course.status", string(status)))
	observability.CourseRecalculations().WithLabelValues(string(status)).Inc()
	s.storeCache(ctx, enrollment)

	return enrollment, nil
}

// computeStatus applies the aggregation rule over the triple's engagements.
// Only engagements with a successful payment contribute schedule items.
func (s *courseStatusService) computeStatus(ctx context.Context, engagements []models.Engagement) (models.CourseStatus, error) {
	live := make([]models.Engagement, 0, len(engagements))
	ids := make([]uint, 0, len(engagements))
	for _, engagement := range engagements {
		if engagement.IsLive() {
			live = append(live, engagement)
			ids = append(ids, engagement.ID)
		}
	}
	if len(live) == 0 {
		return models.CourseStatusPaymentPending, nil
	}

	paid, err := s.payments.SuccessfulEngagementIDs(ctx, ids)
	if err != nil {
		return "", err
	}

	paidIDs := make([]uint, 0, len(paid))
	allPaidCompleted := true
	for _, engagement := range live {
		if !paid[engagement.ID] {
			continue
		}
		paidIDs = append(paidIDs, engagement.ID)
		if engagement.Status != models.EngagementStatusCompleted {
			allPaidCompleted = false
		}
	}
	if len(paidIDs) == 0 {
		return models.CourseStatusPaymentPending, nil
	}

	items, err := s.items.ListByEngagements(ctx, paidIDs)
	if err != nil {
		return "", err
	}

	if len(items) == 0 {
		if allPaidCompleted {
			return models.CourseStatusCompleted, nil
		}
		return models.CourseStatusOngoing, nil
	}

	for _, item := range items {
		if !item.IsCompleted() {
			return models.CourseStatusOngoing, nil
		}
	}
	return models.CourseStatusCompleted, nil
}

func (s *courseStatusService) RecalculateForEngagement(ctx context.Context, engagementID uint) (models.CourseEnrollment, error) {
	engagement, err := s.engagements.GetByID(ctx, engagementID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.CourseEnrollment{}, ErrEngagementNotFound
		}
		return models.CourseEnrollment{}, err
	}
	return s.Recalculate(ctx, engagement.Triple())
}

func (s *courseStatusService) RecalculateForPayment(ctx context.Context, paymentID uint) (models.CourseEnrollment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.CourseEnrollment{}, ErrPaymentNotFound
		}
		return models.CourseEnrollment{}, err
	}
	return s.RecalculateForEngagement(ctx, payment.EngagementID)
}

func (s *courseStatusService) RecalculateForScheduleItem(ctx context.Context, itemID uint) (models.CourseEnrollment, error) {
	item, err := s.items.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.CourseEnrollment{}, ErrScheduleItemNotFound
		}
		return models.CourseEnrollment{}, err
	}
	return s.RecalculateForEngagement(ctx, item.EngagementID)
}

// RecalculateAll sweeps every known triple; per-triple failures are counted and logged.
func (s *courseStatusService) RecalculateAll(ctx context.Context) (dto.CourseRecalculationResult, error) {
	keys, err := s.engagements.ListCourseKeys(ctx)
	if err != nil {
		return dto.CourseRecalculationResult{}, err
	}

	result := dto.CourseRecalculationResult{}
	for _, key := range keys {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if _, err := s.Recalculate(ctx, key); err != nil {
			result.Failed++
			s.logger.Error().Err(err).
				Uint("student_id", key.StudentID).
				Uint("mentor_id", key.MentorID).
				Str("skill", key.Skill).
				Msg("course status recalculation failed")
			continue
		}
		result.Processed++
	}
	return result, nil
}

// Get serves the cached status, falling back to the stored row and finally
// to a fresh recalculation.
func (s *courseStatusService) Get(ctx context.Context, key models.CourseKey) (models.CourseEnrollment, error) {
	if cached, ok := s.loadCache(ctx, key); ok {
		return cached, nil
	}

	enrollment, err := s.enrollments.Get(ctx, key)
	if err == nil {
		s.storeCache(ctx, enrollment)
		return enrollment, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.CourseEnrollment{}, err
	}

	return s.Recalculate(ctx, key)
}

func courseCacheKey(key models.CourseKey) string {
	return fmt.Sprintf("course:status:%d:%d:%s", key.StudentID, key.MentorID, key.Skill)
}

func (s *courseStatusService) loadCache(ctx context.Context, key models.CourseKey) (models.CourseEnrollment, bool) {
	if s.cache == nil {
		return models.CourseEnrollment{}, false
	}

	cached, err := s.cache.Get(ctx, courseCacheKey(key)).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read course status cache")
		}
		return models.CourseEnrollment{}, false
	}

	var enrollment models.CourseEnrollment
	if err := json.Unmarshal([]byte(cached), &enrollment); err != nil {
		return models.CourseEnrollment{}, false
	}
	s.logger.Debug().Str("key", courseCacheKey(key)).Msg("course status cache hit")
	return enrollment, true
}

func (s *courseStatusService) storeCache(ctx context.Context, enrollment models.CourseEnrollment) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(enrollment)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, courseCacheKey(enrollment.Key()), payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store course status cache")
	}
}
