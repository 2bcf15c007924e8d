package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentora-api/internal/dto"
	"github.com/noah-isme/mentora-api/internal/handler"
	"github.com/noah-isme/mentora-api/internal/service"
)

type stubActivityService struct {
	lastReq dto.ActivityListRequest
}

func (s *stubActivityService) Record(context.Context, service.ActivityEntry) error { return nil }

func (s *stubActivityService) List(_ context.Context, req dto.ActivityListRequest) (dto.ActivityListResponse, error) {
	s.lastReq = req
	return dto.ActivityListResponse{Items: []dto.ActivityResponse{}, Pagination: dto.PaginationMeta{Page: req.Page, PageSize: req.PageSize}}, nil
}

func TestActivityListParsesEngagementTimelineFilters(t *testing.T) {
	svc := &stubActivityService{}
	app := fiber.New()
	handler.NewActivityHandler(svc, zerolog.Nop()).Register(app.Group("/admin/activity"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet,
		"/admin/activity?engagement_id=7&actor_role=mentor&since=2026-10-16T00:00:00Z&until=2026-10-17T00:00:00%2B05:30&page_size=500", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Equal(t, uint(7), svc.lastReq.EngagementID)
	require.Equal(t, "mentor", svc.lastReq.ActorRole)
	require.True(t, svc.lastReq.Since.Equal(time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC)))
	require.True(t, svc.lastReq.Until.Equal(time.Date(2026, time.October, 16, 18, 30, 0, 0, time.UTC)))
	require.Equal(t, 200, svc.lastReq.PageSize)
	require.Equal(t, 1, svc.lastReq.Page)

	for _, query := range []string{"engagement_id=x", "since=yesterday", "until=2026-10-17"} {
		resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/admin/activity?"+query, nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, query)
	}
}
