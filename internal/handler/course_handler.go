package handler

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mentora-api/internal/dto"
	"github.com/noah-isme/mentora-api/internal/middleware"
	"github.com/noah-isme/mentora-api/internal/models"
	"github.com/noah-isme/mentora-api/internal/service"
	"github.com/noah-isme/mentora-api/internal/utils"
)

// CourseHandler serves derived course statuses.
type CourseHandler struct {
	service   service.CourseStatusService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewCourseHandler constructs the handler.
func NewCourseHandler(service service.CourseStatusService, validate *validator.Validate, logger zerolog.Logger) *CourseHandler {
	return &CourseHandler{
		service:   service,
		validator: validate,
		logger:    logger.With().Str("component", "course_handler").Logger(),
	}
}

// Register attaches course routes under /courses.
func (h *CourseHandler) Register(router fiber.Router) {
	router.Get("/status", h.status)
	router.Post("/recalculate", middleware.RequireRole(service.RoleAdmin), h.recalculate)
}

func (h *CourseHandler) status(c *fiber.Ctx) error {
	var query dto.CourseStatusRequest
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query")
	}
	query.Skill = strings.TrimSpace(query.Skill)
	if err := h.validator.Struct(query); err != nil {
		return respondError(c, h.logger, err)
	}

	actor := activityActorFromContext(c)
	switch actor.Role {
	case service.RoleStudent:
		if actor.ID != query.StudentID {
			return respondError(c, h.logger, service.ErrForbidden)
		}
	case service.RoleMentor:
		if actor.ID != query.MentorID {
			return respondError(c, h.logger, service.ErrForbidden)
		}
	}

	enrollment, err := h.service.Get(requestContext(c), models.CourseKey{
		StudentID: query.StudentID,
		MentorID:  query.MentorID,
		Skill:     query.Skill,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "course status retrieved", dto.NewCourseStatusResponse(enrollment))
}

func (h *CourseHandler) recalculate(c *fiber.Ctx) error {
	result, err := h.service.RecalculateAll(requestContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "course statuses recalculated", result)
}
