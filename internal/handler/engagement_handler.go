package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mentora-api/internal/dto"
	"github.com/noah-isme/mentora-api/internal/middleware"
	"github.com/noah-isme/mentora-api/internal/service"
	"github.com/noah-isme/mentora-api/internal/utils"
)

// EngagementHandler exposes the engagement lifecycle and schedule views.
type EngagementHandler struct {
	service          service.EngagementService
	logger           zerolog.Logger
	completionGuards []fiber.Handler
}

// NewEngagementHandler constructs the handler.
func NewEngagementHandler(service service.EngagementService, logger zerolog.Logger) *EngagementHandler {
	return &EngagementHandler{
		service: service,
		logger:  logger.With().Str("component", "engagement_handler").Logger(),
	}
}

// WithCompletionLimiter guards the mentor completion route with limiter.
func (h *EngagementHandler) WithCompletionLimiter(limiter fiber.Handler) *EngagementHandler {
	if limiter != nil {
		h.completionGuards = append(h.completionGuards, limiter)
	}
	return h
}

// Register attaches engagement routes under /engagements.
func (h *EngagementHandler) Register(router fiber.Router) {
	router.Post("", middleware.RequireRole(service.RoleStudent), h.create)
	router.Get("/:id", h.get)
	router.Post("/:id/approve", middleware.RequireRole(service.RoleMentor), h.approve)
	router.Post("/:id/reject", middleware.RequireRole(service.RoleMentor), h.reject)
	router.Post("/:id/cancel", h.cancel)
	router.Get("/:id/schedule", h.schedule)
	router.Get("/:id/next", h.next)
	router.Post("/:id/evaluate", h.evaluate)
	complete := append([]fiber.Handler{middleware.RequireRole(service.RoleMentor)}, h.completionGuards...)
	router.Post("/:id/schedule/:itemId/complete", append(complete, h.completeItem)...)
}

// RegisterDashboard attaches the dashboard route.
func (h *EngagementHandler) RegisterDashboard(router fiber.Router) {
	router.Get("", middleware.WithAuth(h.dashboard, middleware.AuthOptions{}))
}

func (h *EngagementHandler) create(c *fiber.Ctx) error {
	var payload dto.EngagementCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	engagement, err := h.service.Request(requestContext(c), activityActorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "engagement requested", engagement)
}

func (h *EngagementHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	engagement, err := h.service.Get(requestContext(c), activityActorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "engagement retrieved", engagement)
}

func (h *EngagementHandler) approve(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	engagement, err := h.service.Approve(requestContext(c), activityActorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "engagement approved", engagement)
}

func (h *EngagementHandler) reject(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.EngagementRejectRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}

	engagement, err := h.service.Reject(requestContext(c), activityActorFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "engagement rejected", engagement)
}

func (h *EngagementHandler) cancel(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	engagement, err := h.service.Cancel(requestContext(c), activityActorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "engagement cancelled", engagement)
}

func (h *EngagementHandler) schedule(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	items, err := h.service.ListSchedule(requestContext(c), activityActorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "schedule retrieved", items)
}

func (h *EngagementHandler) next(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	item, err := h.service.NextMeeting(requestContext(c), activityActorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "next meeting retrieved", item)
}

func (h *EngagementHandler) evaluate(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	status, err := h.service.Evaluate(requestContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "engagement evaluated", status)
}

func (h *EngagementHandler) completeItem(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	itemID, err := parseUintParam(c, "itemId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	item, err := h.service.MarkScheduleItemComplete(requestContext(c), activityActorFromContext(c), id, itemID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "meeting completed", item)
}

func (h *EngagementHandler) dashboard(c *fiber.Ctx) error {
	meetings, err := h.service.Dashboard(requestContext(c), activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "dashboard retrieved", meetings)
}
