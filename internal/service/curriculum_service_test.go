package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mentora-api/internal/dto"
	"github.com/noah-isme/mentora-api/internal/service"
)

func TestCurriculumUpsertSanitizesAndOrders(t *testing.T) {
	e := newEnv(t, time.Now())
	svc := service.NewCurriculumService(e.curriculum, e.validate, e.logger)
	ctx := context.Background()

	_, err := svc.Get(ctx, "go")
	require.ErrorIs(t, err, service.ErrCurriculumNotFound)
	require.ErrorIs(t, err, service.ErrNotFound)

	plan, err := svc.Upsert(ctx, " go ", dto.CurriculumPlanRequest{Topics: []dto.CurriculumTopicRequest{
		{Week: 2, Session: 1, Title: "Generics"},
		{Week: 1, Session: 1, Title: "<i>Intro</i>"},
		{Week: 1, Session: 2, Title: "<script>alert(1)</script>"},
	}})
	require.NoError(t, err)
	require.Equal(t, "go", plan.Skill)
	require.Len(t, plan.Topics, 2)
	require.Equal(t, "Intro", plan.Topics[0].Title)
	require.Equal(t, "Generics", plan.Topics[1].Title)

	stored, err := svc.Get(ctx, "GO")
	require.NoError(t, err)
	require.Len(t, stored.Topics, 2)
}

func TestCurriculumUpsertValidatesTopics(t *testing.T) {
	e := newEnv(t, time.Now())
	svc := service.NewCurriculumService(e.curriculum, e.validate, e.logger)

	_, err := svc.Upsert(context.Background(), "go", dto.CurriculumPlanRequest{Topics: []dto.CurriculumTopicRequest{{Week: 0, Session: 1, Title: "x"}}})
	var validationErrors validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrors)

	_, err = svc.Upsert(context.Background(), "  ", dto.CurriculumPlanRequest{})
	require.Error(t, err)
}
