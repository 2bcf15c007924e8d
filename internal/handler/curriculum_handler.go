package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mentora-api/internal/dto"
	"github.com/noah-isme/mentora-api/internal/middleware"
	"github.com/noah-isme/mentora-api/internal/service"
	"github.com/noah-isme/mentora-api/internal/utils"
)

// CurriculumHandler manages per-skill curriculum plans.
type CurriculumHandler struct {
	service service.CurriculumService
	logger  zerolog.Logger
}

// NewCurriculumHandler constructs the handler.
func NewCurriculumHandler(service service.CurriculumService, logger zerolog.Logger) *CurriculumHandler {
	return &CurriculumHandler{
		service: service,
		logger:  logger.With().Str("component", "curriculum_handler").Logger(),
	}
}

// Register attaches curriculum routes under /curriculum.
func (h *CurriculumHandler) Register(router fiber.Router) {
	router.Get("/:skill", h.get)
	router.Put("/:skill", middleware.RequireRole(service.RoleAdmin, service.RoleMentor), h.upsert)
}

func (h *CurriculumHandler) get(c *fiber.Ctx) error {
	plan, err := h.service.Get(requestContext(c), c.Params("skill"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "curriculum retrieved", plan)
}

func (h *CurriculumHandler) upsert(c *fiber.Ctx) error {
	var payload dto.CurriculumPlanRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	plan, err := h.service.Upsert(requestContext(c), c.Params("skill"), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "curriculum stored", plan)
}
