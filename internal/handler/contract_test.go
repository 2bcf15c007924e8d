package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentora-api/internal/dto"
	"github.com/noah-isme/mentora-api/internal/handler"
	"github.com/noah-isme/mentora-api/internal/models"
	"github.com/noah-isme/mentora-api/internal/service"
)

type stubCourseService struct {
	enrollment models.CourseEnrollment
	err        error
	gotKey     models.CourseKey
}

func (s *stubCourseService) Recalculate(_ context.Context, key models.CourseKey) (models.CourseEnrollment, error) {
	s.gotKey = key
	return s.enrollment, s.err
}

func (s *stubCourseService) RecalculateForEngagement(context.Context, uint) (models.CourseEnrollment, error) {
	return s.enrollment, s.err
}

func (s *stubCourseService) RecalculateForPayment(context.Context, uint) (models.CourseEnrollment, error) {
	return s.enrollment, s.err
}

func (s *stubCourseService) RecalculateForScheduleItem(context.Context, uint) (models.CourseEnrollment, error) {
	return s.enrollment, s.err
}

func (s *stubCourseService) RecalculateAll(context.Context) (dto.CourseRecalculationResult, error) {
	return dto.CourseRecalculationResult{Processed: 1}, s.err
}

func (s *stubCourseService) Get(_ context.Context, key models.CourseKey) (models.CourseEnrollment, error) {
	s.gotKey = key
	return s.enrollment, s.err
}

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	schemaPath, err := filepath.Abs(filepath.Join("testdata", name))
	require.NoError(t, err)

	schema, err := jsonschema.NewCompiler().Compile("file://" + schemaPath)
	require.NoError(t, err)
	return schema
}

func decodeBody(t *testing.T, resp *http.Response) interface{} {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload
}

func TestDashboardContract(t *testing.T) {
	schema := compileSchema(t, "dashboard.schema.json")

	approved := sampleEngagement()
	approved.Status = "approved"
	active := sampleEngagement()
	active.ID = 8
	active.Status = "active"
	item := sampleItem()
	item.EngagementID = 8

	svc := &stubEngagementService{meetings: []dto.DashboardMeeting{
		{Engagement: approved, StartsAt: approved.StartInstant},
		{Engagement: active, Item: &item, StartsAt: approved.StartInstant, InProgress: true},
	}}
	app := newEngagementApp(svc, 1, "student")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, schema.Validate(decodeBody(t, resp)))
}

func TestCourseStatusContract(t *testing.T) {
	schema := compileSchema(t, "course_status.schema.json")

	svc := &stubCourseService{enrollment: models.CourseEnrollment{
		StudentID:      1,
		MentorID:       2,
		Skill:          "go",
		Status:         models.CourseStatusOngoing,
		RecalculatedAt: time.Date(2026, time.October, 16, 6, 0, 0, 0, time.UTC),
	}}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(1))
		c.Locals("user_role", "student")
		return c.Next()
	})
	handler.NewCourseHandler(svc, validator.New(), zerolog.Nop()).Register(app.Group("/api/v1/courses"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/courses/status?student_id=1&mentor_id=2&skill=go", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, schema.Validate(decodeBody(t, resp)))
	require.Equal(t, models.CourseKey{StudentID: 1, MentorID: 2, Skill: "go"}, svc.gotKey)
}

func TestCourseStatusScopedToCaller(t *testing.T) {
	svc := &stubCourseService{}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(5))
		c.Locals("user_role", "student")
		return c.Next()
	})
	handler.NewCourseHandler(svc, validator.New(), zerolog.Nop()).Register(app.Group("/api/v1/courses"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/courses/status?student_id=1&mentor_id=2&skill=go", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/courses/status?student_id=1", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/courses/recalculate", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCourseStatusUnknownTripleIsNotFound(t *testing.T) {
	svc := &stubCourseService{err: service.ErrCourseNotFound}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(9))
		c.Locals("user_role", "admin")
		return c.Next()
	})
	handler.NewCourseHandler(svc, validator.New(), zerolog.Nop()).Register(app.Group("/api/v1/courses"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/courses/status?student_id=1&mentor_id=2&skill=go", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
