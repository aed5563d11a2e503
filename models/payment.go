package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PaymentStatusPending   = "pending"
	PaymentStatusSucceeded = "succeeded"
	PaymentStatusFailed    = "failed"
)

type Payment struct {
	PaymentID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID            string    `gorm:"type:varchar(64);index"`
	UserID             string    `gorm:"type:varchar(64);index"`
	Email              string    `gorm:"type:varchar(255)"`
	Amount             int64     `gorm:"not null"` // minor currency units
	Currency           string    `gorm:"type:varchar(10);not null"`
	Status             string    `gorm:"type:varchar(20);not null"`
	StripePaymentID    string    `gorm:"uniqueIndex"`
	StripeEventPayload *string   `gorm:"type:jsonb"`
	SucceededAt        *time.Time
	FailedAt           *time.Time
	CreatedAt          time.Time      `gorm:"autoCreateTime"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime"`
	DeletedAt          gorm.DeletedAt `gorm:"index"`
}

// Terminal reports whether the payment has reached a final status. Webhook
// redeliveries must never overwrite a terminal status.
func (p *Payment) Terminal() bool {
	return p.Status == PaymentStatusSucceeded || p.Status == PaymentStatusFailed
}

// PaymentIntentRequest is the body of the issuance function. Amount is in the
// currency's minor unit (pence for GBP), never a float.
type PaymentIntentRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Email    string `json:"email,omitempty"`
	OrderID  string `json:"orderId,omitempty"`
	UserID   string `json:"userId,omitempty"`
}

// PaymentIntentHandle is the only thing the browser ever sees of the provider
// object. The client secret is opaque and passed verbatim to the hosted
// payment form.
type PaymentIntentHandle struct {
	ClientSecret string `json:"clientSecret"`
}
