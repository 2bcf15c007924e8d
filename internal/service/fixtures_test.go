package service_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/mentora-api/internal/civiltime"
	"github.com/noah-isme/mentora-api/internal/database"
	"github.com/noah-isme/mentora-api/internal/models"
	"github.com/noah-isme/mentora-api/internal/repository"
	"github.com/noah-isme/mentora-api/internal/service"
)

// testClock is a settable clock shared by the zone and the test body.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func ist(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return loc
}

// at builds an instant from a civil date and clock in IST.
func at(t *testing.T, date, clock string) time.Time {
	t.Helper()
	zone, err := civiltime.NewZone("Asia/Kolkata", nil)
	require.NoError(t, err)
	instant, err := zone.InstantFromCivil(date, clock)
	require.NoError(t, err)
	return instant
}

type env struct {
	db          *gorm.DB
	clock       *testClock
	zone        *civiltime.Zone
	logger      zerolog.Logger
	validate    *validator.Validate
	engagements repository.EngagementRepository
	items       repository.ScheduleItemRepository
	payments    repository.PaymentRepository
	enrollments repository.CourseEnrollmentRepository
	curriculum  repository.CurriculumRepository
	activityLog repository.ActivityLogRepository
	activity    service.ActivityService
}

func newEnv(t *testing.T, now time.Time) *env {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	clock := &testClock{now: now}
	zone := civiltime.NewZoneAt(ist(t), clock.Now)
	logger := zerolog.Nop()
	activityLog := repository.NewActivityLogRepository(db)

	return &env{
		db:          db,
		clock:       clock,
		zone:        zone,
		logger:      logger,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		engagements: repository.NewEngagementRepository(db),
		items:       repository.NewScheduleItemRepository(db),
		payments:    repository.NewPaymentRepository(db),
		enrollments: repository.NewCourseEnrollmentRepository(db),
		curriculum:  repository.NewCurriculumRepository(db),
		activityLog: activityLog,
		activity:    service.NewActivityService(activityLog, logger),
	}
}

func (e *env) generator() service.ScheduleGenerator {
	return service.NewScheduleGenerator(e.items, e.curriculum, e.activity, e.zone, e.logger)
}

func (e *env) reconciler() service.ScheduleReconciler {
	return service.NewScheduleReconciler(e.engagements, e.items, e.zone, time.Hour, e.logger)
}

func (e *env) evaluator() service.EngagementStatusEvaluator {
	return service.NewEngagementStatusEvaluator(e.engagements, e.items, e.payments, e.activity, e.zone, e.logger)
}

func (e *env) courses() service.CourseStatusService {
	return service.NewCourseStatusService(e.engagements, e.items, e.payments, e.enrollments, nil, time.Minute, e.zone, e.logger)
}

func (e *env) engagementService() service.EngagementService {
	return service.NewEngagementService(service.EngagementServiceDeps{
		Engagements: e.engagements,
		Items:       e.items,
		Reconciler:  e.reconciler(),
		Evaluator:   e.evaluator(),
		Courses:     e.courses(),
		Visibility:  service.NewVisibilityFilter(e.zone, time.Hour),
		Activity:    e.activity,
		Validator:   e.validate,
		Zone:        e.zone,
	}, e.logger)
}

func (e *env) paymentService() service.PaymentService {
	return service.NewPaymentService(service.PaymentServiceDeps{
		Payments:    e.payments,
		Engagements: e.engagements,
		Gateway:     service.NewAlwaysSucceedGateway(e.logger),
		Generator:   e.generator(),
		Evaluator:   e.evaluator(),
		Courses:     e.courses(),
		Activity:    e.activity,
		Validator:   e.validate,
		Zone:        e.zone,
	}, e.logger)
}

// seedEngagement stores an engagement starting at the given IST civil date and clock.
func (e *env) seedEngagement(t *testing.T, studentID, mentorID uint, skill string, weeks, perWeek int, date, clock string, state models.EngagementState) models.Engagement {
	t.Helper()
	start := at(t, date, clock)
	engagement := models.Engagement{
		StudentID:       studentID,
		MentorID:        mentorID,
		Skill:           skill,
		WeeksTotal:      weeks,
		SessionsPerWeek: perWeek,
		StartInstant:    start.UTC(),
		StartDate:       date,
	}
	engagement.Apply(state)
	require.NoError(t, e.db.Create(&engagement).Error)
	return engagement
}

func (e *env) seedItems(t *testing.T, engagementID uint, items ...models.ScheduleItem) []models.ScheduleItem {
	t.Helper()
	for i := range items {
		items[i].EngagementID = engagementID
		if items[i].Title == "" {
			items[i].Title = fmt.Sprintf("Session %d", i+1)
		}
		if items[i].WeekNumber == 0 {
			items[i].WeekNumber = 1
		}
		if items[i].SessionNumber == 0 {
			items[i].SessionNumber = i + 1
		}
		if items[i].Status == models.ScheduleItemStatusCompleted && items[i].CompletedAt == nil {
			completedAt := e.clock.Now().UTC()
			items[i].CompletedAt = &completedAt
			items[i].CompletionCause = models.CompletionCauseElapsed
		}
	}
	require.NoError(t, e.items.CreateBatch(t.Context(), items))

	stored, err := e.items.ListByEngagement(t.Context(), engagementID)
	require.NoError(t, err)
	return stored
}

func (e *env) seedPayment(t *testing.T, engagementID uint, status string) models.Payment {
	t.Helper()
	payment := models.Payment{
		EngagementID: engagementID,
		Reference:    fmt.Sprintf("PAY-TEST-%d", engagementID),
		Status:       status,
	}
	if status == models.PaymentStatusSuccess {
		paidAt := e.clock.Now().UTC()
		payment.PaidAt = &paidAt
	}
	require.NoError(t, e.payments.Create(t.Context(), &payment))
	return payment
}

func item(date, clock string, status models.ScheduleItemStatus) models.ScheduleItem {
	return models.ScheduleItem{ScheduledDate: date, ScheduledTime: clock, Status: status}
}
