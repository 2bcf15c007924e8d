package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentora-api/internal/models"
	"github.com/noah-isme/mentora-api/internal/service"
)

func TestCourseStatusPaidCompletedWinsOverUnpaidPending(t *testing.T) {
	e := newEnv(t, at(t, "2026-10-16", "12:00"))
	ctx := context.Background()

	paid := e.seedEngagement(t, 1, 2, "go", 1, 2, "2026-10-12", "09:00", models.StateCompleted{CompletedAt: e.clock.Now()})
	e.seedPayment(t, paid.ID, models.PaymentStatusSuccess)
	e.seedItems(t, paid.ID,
		item("2026-10-12", "09:00", models.ScheduleItemStatusCompleted),
		item("2026-10-13", "09:00", models.ScheduleItemStatusCompleted),
	)

	unpaid := e.seedEngagement(t, 1, 2, "go", 1, 2, "2026-10-19", "09:00", models.StateAwaitingPayment{})
	e.seedPayment(t, unpaid.ID, models.PaymentStatusPending)
	e.seedItems(t, unpaid.ID,
		item("2026-10-19", "09:00", models.ScheduleItemStatusLocked),
		item("2026-10-20", "09:00", models.ScheduleItemStatusLocked),
	)

	enrollment, err := e.courses().Recalculate(ctx, paid.Triple())
	require.NoError(t, err)
	require.Equal(t, models.CourseStatusCompleted, enrollment.Status)
}

func TestCourseStatusOngoingWhilePaidItemsRemain(t *testing.T) {
	e := newEnv(t, at(t, "2026-10-16", "12:00"))
	ctx := context.Background()

	engagement := e.seedEngagement(t, 1, 2, "go", 1, 2, "2026-10-16", "09:00", models.StateActive{})
	e.seedPayment(t, engagement.ID, models.PaymentStatusSuccess)
	e.seedItems(t, engagement.ID,
		item("2026-10-16", "09:00", models.ScheduleItemStatusCompleted),
		item("2026-10-19", "09:00", models.ScheduleItemStatusLocked),
	)

	enrollment, err := e.courses().RecalculateForEngagement(ctx, engagement.ID)
	require.NoError(t, err)
	require.Equal(t, models.CourseStatusOngoing, enrollment.Status)

	stored, err := e.enrollments.Get(ctx, engagement.Triple())
	require.NoError(t, err)
	require.Equal(t, models.CourseStatusOngoing, stored.Status)
}

func TestCourseStatusPaymentPendingIgnoresUnpaidItems(t *testing.T) {
	e := newEnv(t, at(t, "2026-10-16", "12:00"))
	ctx := context.Background()

	engagement := e.seedEngagement(t, 1, 2, "go", 1, 1, "2026-10-12", "09:00", models.StateAwaitingPayment{})
	e.seedPayment(t, engagement.ID, models.PaymentStatusPending)
	e.seedItems(t, engagement.ID, item("2026-10-12", "09:00", models.ScheduleItemStatusCompleted))

	e.seedEngagement(t, 1, 2, "go", 1, 1, "2026-10-12", "09:00", models.StateRejected{})

	enrollment, err := e.courses().Recalculate(ctx, engagement.Triple())
	require.NoError(t, err)
	require.Equal(t, models.CourseStatusPaymentPending, enrollment.Status)
}

func TestCourseStatusUnknownTriple(t *testing.T) {
	e := newEnv(t, time.Now())

	_, err := e.courses().Recalculate(context.Background(), models.CourseKey{StudentID: 1, MentorID: 2, Skill: "go"})
	require.ErrorIs(t, err, service.ErrCourseNotFound)
}

func TestCourseStatusStoredTripleWithoutEngagementsIsPaymentPending(t *testing.T) {
	e := newEnv(t, time.Now())
	ctx := context.Background()
	key := models.CourseKey{StudentID: 1, MentorID: 2, Skill: "go"}

	require.NoError(t, e.enrollments.Upsert(ctx, &models.CourseEnrollment{
		StudentID:      1,
		MentorID:       2,
		Skill:          "go",
		Status:         models.CourseStatusCompleted,
		RecalculatedAt: time.Now().UTC(),
	}))

	enrollment, err := e.courses().Recalculate(ctx, key)
	require.NoError(t, err)
	require.Equal(t, models.CourseStatusPaymentPending, enrollment.Status)
}

func TestCourseStatusRecalculateAllCountsTriples(t *testing.T) {
	e := newEnv(t, at(t, "2026-10-16", "12:00"))
	ctx := context.Background()

	e.seedEngagement(t, 1, 2, "go", 1, 1, "2026-10-19", "09:00", models.StateRequested{})
	e.seedEngagement(t, 1, 3, "rust", 1, 1, "2026-10-19", "09:00", models.StateApproved{})

	result, err := e.courses().RecalculateAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, result.Processed)
	require.Equal(t, 0, result.Failed)
}

func TestCourseStatusGetUsesRedisCache(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	e := newEnv(t, at(t, "2026-10-16", "12:00"))
	ctx := context.Background()

	engagement := e.seedEngagement(t, 1, 2, "go", 1, 1, "2026-10-19", "09:00", models.StateRequested{})
	courses := service.NewCourseStatusService(e.engagements, e.items, e.payments, e.enrollments, client, time.Minute, e.zone, e.logger)

	first, err := courses.Get(ctx, engagement.Triple())
	require.NoError(t, err)
	require.Equal(t, models.CourseStatusPaymentPending, first.Status)
	require.True(t, server.Exists("course:status:1:2:go"))

	// The cached value is served even after the stored row disappears.
	require.NoError(t, e.db.Where("1 = 1").Delete(&models.CourseEnrollment{}).Error)
	cached, err := courses.Get(ctx, engagement.Triple())
	require.NoError(t, err)
	require.Equal(t, models.CourseStatusPaymentPending, cached.Status)

	server.FastForward(2 * time.Minute)
	require.False(t, server.Exists("course:status:1:2:go"))
}
