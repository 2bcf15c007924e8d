package models

import "time"

const (
	// PaymentStatusPending marks a payment created but not yet confirmed.
	PaymentStatusPending = "pending"
	// PaymentStatusSuccess is the only status that unlocks schedule generation.
	PaymentStatusSuccess = "success"
)

// Payment is the single payment record of an engagement.
type Payment struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	EngagementID uint       `gorm:"not null;uniqueIndex" json:"engagement_id"`
	Reference    string     `gorm:"size:64;uniqueIndex;not null" json:"reference"`
	AmountMinor  int64      `gorm:"not null;default:0" json:"amount_minor"`
	Status       string     `gorm:"size:32;not null;index" json:"status"`
	PaidAt       *time.Time `json:"paid_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsSuccessful reports whether the payment has been confirmed.
func (p Payment) IsSuccessful() bool {
	return p.Status == PaymentStatusSuccess
}
