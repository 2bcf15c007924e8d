package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentora-api/internal/civiltime"
	"github.com/noah-isme/mentora-api/internal/dto"
	"github.com/noah-isme/mentora-api/internal/handler"
	"github.com/noah-isme/mentora-api/internal/middleware"
	"github.com/noah-isme/mentora-api/internal/service"
)

type stubEngagementService struct {
	err        error
	engagement dto.EngagementResponse
	items      []dto.ScheduleItemResponse
	meetings   []dto.DashboardMeeting
	lastActor  service.ActivityActor
	lastCreate dto.EngagementCreateRequest
}

func (s *stubEngagementService) Request(_ context.Context, actor service.ActivityActor, payload dto.EngagementCreateRequest) (dto.EngagementResponse, error) {
	s.lastActor = actor
	s.lastCreate = payload
	return s.engagement, s.err
}

func (s *stubEngagementService) Get(_ context.Context, actor service.ActivityActor, _ uint) (dto.EngagementResponse, error) {
	s.lastActor = actor
	return s.engagement, s.err
}

func (s *stubEngagementService) Approve(_ context.Context, actor service.ActivityActor, _ uint) (dto.EngagementResponse, error) {
	s.lastActor = actor
	return s.engagement, s.err
}

func (s *stubEngagementService) Reject(_ context.Context, actor service.ActivityActor, _ uint, _ dto.EngagementRejectRequest) (dto.EngagementResponse, error) {
	s.lastActor = actor
	return s.engagement, s.err
}

func (s *stubEngagementService) Cancel(_ context.Context, actor service.ActivityActor, _ uint) (dto.EngagementResponse, error) {
	s.lastActor = actor
	return s.engagement, s.err
}

func (s *stubEngagementService) ListSchedule(_ context.Context, actor service.ActivityActor, _ uint) ([]dto.ScheduleItemResponse, error) {
	s.lastActor = actor
	return s.items, s.err
}

func (s *stubEngagementService) NextMeeting(_ context.Context, actor service.ActivityActor, _ uint) (dto.ScheduleItemResponse, error) {
	s.lastActor = actor
	if len(s.items) == 0 {
		return dto.ScheduleItemResponse{}, service.ErrScheduleItemNotFound
	}
	return s.items[0], s.err
}

func (s *stubEngagementService) Evaluate(_ context.Context, id uint) (dto.EngagementStatusResponse, error) {
	return dto.EngagementStatusResponse{EngagementID: id, Status: s.engagement.Status}, s.err
}

func (s *stubEngagementService) MarkScheduleItemComplete(_ context.Context, actor service.ActivityActor, _, _ uint) (dto.ScheduleItemResponse, error) {
	s.lastActor = actor
	if len(s.items) == 0 {
		return dto.ScheduleItemResponse{}, s.err
	}
	return s.items[0], s.err
}

func (s *stubEngagementService) Dashboard(_ context.Context, actor service.ActivityActor) ([]dto.DashboardMeeting, error) {
	s.lastActor = actor
	return s.meetings, s.err
}

// newEngagementApp mounts the handler behind a fake authenticator.
func newEngagementApp(svc service.EngagementService, userID uint, role string) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if userID > 0 {
			c.Locals("user_id", userID)
		}
		if role != "" {
			c.Locals("user_role", role)
		}
		return c.Next()
	})

	h := handler.NewEngagementHandler(svc, zerolog.Nop())
	h.Register(app.Group("/api/v1/engagements"))
	h.RegisterDashboard(app.Group("/api/v1/dashboard"))
	return app
}

func sampleEngagement() dto.EngagementResponse {
	start := time.Date(2026, time.October, 19, 13, 0, 0, 0, time.UTC)
	return dto.EngagementResponse{
		ID:              7,
		StudentID:       1,
		MentorID:        2,
		Skill:           "go",
		WeeksTotal:      2,
		SessionsPerWeek: 3,
		StartInstant:    start,
		StartDate:       "2026-10-19",
		Status:          "requested",
		CreatedAt:       start.Add(-72 * time.Hour),
		UpdatedAt:       start.Add(-72 * time.Hour),
	}
}

func sampleItem() dto.ScheduleItemResponse {
	return dto.ScheduleItemResponse{
		ID:            11,
		EngagementID:  7,
		WeekNumber:    1,
		SessionNumber: 1,
		Title:         "Intro",
		ScheduledDate: "2026-10-19",
		ScheduledTime: "18:30",
		Status:        "upcoming",
	}
}

func TestCreateEngagementUsesCallerAsStudent(t *testing.T) {
	svc := &stubEngagementService{engagement: sampleEngagement()}
	app := newEngagementApp(svc, 1, "student")

	body := `{"mentor_id":2,"skill":"go","weeks_total":2,"sessions_per_week":3,"start_date":"2026-10-19","start_time":"18:30"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/engagements", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.Equal(t, uint(1), svc.lastActor.ID)
	require.Equal(t, "student", svc.lastActor.Role)
	require.Equal(t, uint(2), svc.lastCreate.MentorID)
	require.Equal(t, "18:30", svc.lastCreate.StartTime)
}

func TestCreateEngagementRequiresStudentRole(t *testing.T) {
	app := newEngagementApp(&stubEngagementService{}, 2, "mentor")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/engagements", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestEngagementErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "not found", err: service.ErrEngagementNotFound, status: http.StatusNotFound},
		{name: "forbidden", err: service.ErrForbidden, status: http.StatusForbidden},
		{name: "invalid transition", err: fmt.Errorf("%w: cannot approve", service.ErrInvalidTransition), status: http.StatusConflict},
		{name: "bad time", err: civiltime.ErrInvalidTimeInput, status: http.StatusBadRequest},
		{name: "unexpected", err: fmt.Errorf("database offline"), status: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newEngagementApp(&stubEngagementService{err: tc.err}, 2, "mentor")

			req := httptest.NewRequest(http.MethodPost, "/api/v1/engagements/7/approve", nil)
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestEngagementRejectsInvalidIdentifier(t *testing.T) {
	app := newEngagementApp(&stubEngagementService{}, 1, "student")

	for _, path := range []string{"/api/v1/engagements/abc", "/api/v1/engagements/0/schedule"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}
}

func TestCompleteItemIsMentorOnly(t *testing.T) {
	svc := &stubEngagementService{items: []dto.ScheduleItemResponse{sampleItem()}}

	resp, err := newEngagementApp(svc, 1, "student").Test(httptest.NewRequest(http.MethodPost, "/api/v1/engagements/7/schedule/11/complete", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = newEngagementApp(svc, 2, "mentor").Test(httptest.NewRequest(http.MethodPost, "/api/v1/engagements/7/schedule/11/complete", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, uint(2), svc.lastActor.ID)
}

func TestCompleteItemIsRateLimitedPerMentor(t *testing.T) {
	svc := &stubEngagementService{items: []dto.ScheduleItemResponse{sampleItem()}}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		middleware.SetActor(c, service.ActivityActor{ID: uint(c.QueryInt("mentor")), Role: service.RoleMentor})
		return c.Next()
	})
	handler.NewEngagementHandler(svc, zerolog.Nop()).
		WithCompletionLimiter(middleware.RateLimit("schedule_complete", 1, time.Minute)).
		Register(app.Group("/api/v1/engagements"))

	complete := func(mentor int) int {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/engagements/7/schedule/11/complete?mentor=%d", mentor), nil))
		require.NoError(t, err)
		return resp.StatusCode
	}

	require.Equal(t, http.StatusOK, complete(2))
	require.Equal(t, http.StatusTooManyRequests, complete(2))
	require.Equal(t, http.StatusOK, complete(3))
}

func TestNextMeetingNotFound(t *testing.T) {
	app := newEngagementApp(&stubEngagementService{}, 1, "student")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/engagements/7/next", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDashboardRequiresUser(t *testing.T) {
	app := newEngagementApp(&stubEngagementService{}, 0, "")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestScheduleListPayload(t *testing.T) {
	svc := &stubEngagementService{items: []dto.ScheduleItemResponse{sampleItem()}}
	app := newEngagementApp(svc, 1, "student")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/engagements/7/schedule", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload struct {
		Success bool                       `json:"success"`
		Data    []dto.ScheduleItemResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.True(t, payload.Success)
	require.Len(t, payload.Data, 1)
	require.Equal(t, "Intro", payload.Data[0].Title)
}
