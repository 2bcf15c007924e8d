package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/mentora-api/internal/civiltime"
	"github.com/noah-isme/mentora-api/internal/dto"
	"github.com/noah-isme/mentora-api/internal/models"
	"github.com/noah-isme/mentora-api/internal/observability"
	"github.com/noah-isme/mentora-api/internal/repository"
)

// PaymentGateway charges a pending payment.
type PaymentGateway interface {
	Charge(ctx context.Context, payment models.Payment) error
}

// AlwaysSucceedGateway is the mock gateway: every charge succeeds.
type AlwaysSucceedGateway struct {
	logger zerolog.Logger
}

// NewAlwaysSucceedGateway constructs the mock gateway.
func NewAlwaysSucceedGateway(logger zerolog.Logger) *AlwaysSucceedGateway {
	return &AlwaysSucceedGateway{logger: logger.With().Str("component", "payment_gateway").Logger()}
}

// Charge logs the payment and reports success.
func (g *AlwaysSucceedGateway) Charge(ctx context.Context, payment models.Payment) error {
	g.logger.Info().Str("reference", payment.Reference).Int64("amount_minor", payment.AmountMinor).Msg("mock charge accepted")
	return nil
}

// PaymentService drives the payment step of the engagement lifecycle.
type PaymentService interface {
	Initiate(ctx context.Context, actor ActivityActor, engagementID uint, payload dto.PaymentCreateRequest) (dto.PaymentResponse, error)
	Confirm(ctx context.Context, actor ActivityActor, paymentID uint) (dto.PaymentResponse, error)
}

type paymentService struct {
	payments    repository.PaymentRepository
	engagements repository.EngagementRepository
	gateway     PaymentGateway
	generator   ScheduleGenerator
	evaluator   EngagementStatusEvaluator
	courses     CourseStatusService
	activity    ActivityRecorder
	validator   *validator.Validate
	zone        *civiltime.Zone
	logger      zerolog.Logger
}

// PaymentServiceDeps groups the collaborators of the payment service.
type PaymentServiceDeps struct {
	Payments    repository.PaymentRepository
	Engagements repository.EngagementRepository
	Gateway     PaymentGateway
	Generator   ScheduleGenerator
	Evaluator   EngagementStatusEvaluator
	Courses     CourseStatusService
	Activity    ActivityRecorder
	Validator   *validator.Validate
	Zone        *civiltime.Zone
}

// NewPaymentService constructs the payment service.
func NewPaymentService(deps PaymentServiceDeps, logger zerolog.Logger) PaymentService {
	return &paymentService{
		payments:    deps.Payments,
		engagements: deps.Engagements,
		gateway:     deps.Gateway,
		generator:   deps.Generator,
		evaluator:   deps.Evaluator,
		courses:     deps.Courses,
		activity:    deps.Activity,
		validator:   deps.Validator,
		zone:        deps.Zone,
		logger:      logger.With().Str("component", "payment_service").Logger(),
	}
}

// Initiate creates the pending payment of an approved engagement. Calling it
// again returns the existing payment.
func (s *paymentService) Initiate(ctx context.Context, actor ActivityActor, engagementID uint, payload dto.PaymentCreateRequest) (dto.PaymentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.PaymentResponse{}, err
	}

	engagement, err := s.engagements.GetByID(ctx, engagementID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PaymentResponse{}, ErrEngagementNotFound
		}
		return dto.PaymentResponse{}, err
	}
	if !isParticipant(actor, engagement) || actor.Is(RoleMentor) {
		return dto.PaymentResponse{}, ErrForbidden
	}

	existing, err := s.payments.GetByEngagement(ctx, engagementID)
	switch {
	case err == nil:
		return dto.NewPaymentResponse(existing), nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return dto.PaymentResponse{}, err
	}

	switch engagement.Status {
	case models.EngagementStatusApproved:
		applied, err := s.engagements.CompareAndSetState(ctx, engagementID, []models.EngagementStatus{models.EngagementStatusApproved}, models.StateAwaitingPayment{})
		if err != nil {
			return dto.PaymentResponse{}, err
		}
		if !applied {
			return dto.PaymentResponse{}, invalidTransition("engagement", engagement.Status, "pay for")
		}
		observability.EngagementTransitions().WithLabelValues(string(models.EngagementStatusAwaitingPayment)).Inc()
	case models.EngagementStatusAwaitingPayment:
		// A previous attempt moved the engagement but never stored the payment.
	default:
		return dto.PaymentResponse{}, invalidTransition("engagement", engagement.Status, "pay for")
	}

	payment := models.Payment{
		EngagementID: engagementID,
		Reference:    "PAY-" + strings.ToUpper(uuid.NewString()),
		AmountMinor:  payload.AmountMinor,
		Status:       models.PaymentStatusPending,
	}
	if err := s.payments.Create(ctx, &payment); err != nil {
		return dto.PaymentResponse{}, err
	}

	observability.Payments().WithLabelValues(models.PaymentStatusPending).Inc()
	s.logger.Info().Uint("engagement_id", engagementID).Str("reference", payment.Reference).Msg("payment initiated")

	return dto.NewPaymentResponse(payment), nil
}

// Confirm charges the payment, activates the engagement and generates its
// schedule. Repeated confirmations converge on the same state.
func (s *paymentService) Confirm(ctx context.Context, actor ActivityActor, paymentID uint) (dto.PaymentResponse, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PaymentResponse{}, ErrPaymentNotFound
		}
		return dto.PaymentResponse{}, err
	}

	engagement, err := s.engagements.GetByID(ctx, payment.EngagementID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.PaymentResponse{}, ErrEngagementNotFound
		}
		return dto.PaymentResponse{}, err
	}
	if !isParticipant(actor, engagement) {
		return dto.PaymentResponse{}, ErrForbidden
	}

	if !payment.IsSuccessful() {
		if err := s.gateway.Charge(ctx, payment); err != nil {
			return dto.PaymentResponse{}, err
		}
		changed, err := s.payments.MarkSuccess(ctx, paymentID, s.zone.Now())
		if err != nil {
			return dto.PaymentResponse{}, err
		}
		if changed {
			observability.Payments().WithLabelValues(models.PaymentStatusSuccess).Inc()
			recordQuietly(ctx, s.activity, s.logger, ActivityEntry{
				Actor:        actor,
				Action:       ActionPaymentSucceeded,
				EntityType:   "payment",
				EntityID:     paymentID,
				EngagementID: engagement.ID,
				Metadata:     map[string]interface{}{"reference": payment.Reference},
			})
		}
	}

	switch engagement.Status {
	case models.EngagementStatusActive, models.EngagementStatusCompleted:
	default:
		from := []models.EngagementStatus{models.EngagementStatusAwaitingPayment, models.EngagementStatusApproved}
		applied, err := s.engagements.CompareAndSetState(ctx, engagement.ID, from, models.StateActive{})
		if err != nil {
			return dto.PaymentResponse{}, err
		}
		if !applied {
			return dto.PaymentResponse{}, invalidTransition("engagement", engagement.Status, "activate")
		}
		engagement.Apply(models.StateActive{})
		observability.EngagementTransitions().WithLabelValues(string(models.EngagementStatusActive)).Inc()
		s.logger.Info().Uint("engagement_id", engagement.ID).Msg("engagement activated")
	}

	if _, err := s.generator.GenerateForEngagement(ctx, engagement); err != nil && !errors.Is(err, ErrScheduleAlreadyGenerated) {
		return dto.PaymentResponse{}, err
	}

	if _, err := s.evaluator.Evaluate(ctx, engagement.ID); err != nil {
		s.logger.Error().Err(err).Uint("engagement_id", engagement.ID).Msg("engagement evaluation after payment failed")
	}
	if s.courses != nil {
		if _, err := s.courses.RecalculateForPayment(ctx, paymentID); err != nil {
			s.logger.Error().Err(err).Uint("payment_id", paymentID).Msg("course status recalculation failed")
		}
	}

	updated, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return dto.PaymentResponse{}, err
	}
	return dto.NewPaymentResponse(updated), nil
}
