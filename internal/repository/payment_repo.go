package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/mentora-api/internal/models"
)

// PaymentRepository handles persistence for engagement payments.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id uint) (models.Payment, error)
	GetByEngagement(ctx context.Context, engagementID uint) (models.Payment, error)
	MarkSuccess(ctx context.Context, id uint, paidAt time.Time) (bool, error)
	SuccessfulEngagementIDs(ctx context.Context, engagementIDs []uint) (map[uint]bool, error)
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository constructs a repository backed by GORM.
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepository) GetByID(ctx context.Context, id uint) (models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, id).Error; err != nil {
		return models.Payment{}, err
	}
	return payment, nil
}

func (r *paymentRepository) GetByEngagement(ctx context.Context, engagementID uint) (models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("engagement_id = ?", engagementID).First(&payment).Error; err != nil {
		return models.Payment{}, err
	}
	return payment, nil
}

// MarkSuccess confirms a pending payment and reports whether this call changed it.
func (r *paymentRepository) MarkSuccess(ctx context.Context, id uint, paidAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status <> ?", id, models.PaymentStatusSuccess).
		Updates(map[string]interface{}{"status": models.PaymentStatusSuccess, "paid_at": paidAt.UTC()})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *paymentRepository) SuccessfulEngagementIDs(ctx context.Context, engagementIDs []uint) (map[uint]bool, error) {
	paid := make(map[uint]bool, len(engagementIDs))
	if len(engagementIDs) == 0 {
		return paid, nil
	}

	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("engagement_id IN ? AND status = ?", engagementIDs, models.PaymentStatusSuccess).
		Pluck("engagement_id", &ids).Error; err != nil {
		return nil, err
	}

	for _, id := range ids {
		paid[id] = true
	}
	return paid, nil
}
