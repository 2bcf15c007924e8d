package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/mentora-api/internal/dto"
	"github.com/noah-isme/mentora-api/internal/service"
	"github.com/noah-isme/mentora-api/internal/utils"
)

// PaymentHandler exposes the mock payment flow.
type PaymentHandler struct {
	service       service.PaymentService
	defaultAmount int64
	logger        zerolog.Logger
	confirmGuards []fiber.Handler
}

// NewPaymentHandler constructs the handler. defaultAmount applies when the body omits an amount.
func NewPaymentHandler(service service.PaymentService, defaultAmount int64, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service:       service,
		defaultAmount: defaultAmount,
		logger:        logger.With().Str("component", "payment_handler").Logger(),
	}
}

// WithConfirmLimiter guards the confirmation route with limiter.
func (h *PaymentHandler) WithConfirmLimiter(limiter fiber.Handler) *PaymentHandler {
	if limiter != nil {
		h.confirmGuards = append(h.confirmGuards, limiter)
	}
	return h
}

// Register attaches payment routes to the API root.
func (h *PaymentHandler) Register(router fiber.Router) {
	router.Post("/engagements/:id/payments", h.initiate)
	router.Post("/payments/:id/confirm", append(append([]fiber.Handler{}, h.confirmGuards...), h.confirm)...)
}

func (h *PaymentHandler) initiate(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	payload := dto.PaymentCreateRequest{AmountMinor: h.defaultAmount}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}

	payment, err := h.service.Initiate(requestContext(c), activityActorFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "payment initiated", payment)
}

func (h *PaymentHandler) confirm(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	payment, err := h.service.Confirm(requestContext(c), activityActorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "payment confirmed", payment)
}
