package repository

import (
	"context"

	"github.com/tomjwalt/subterrain1/models"

	"gorm.io/gorm"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByStripeID(ctx context.Context, stripePaymentID string) (*models.Payment, error)
	UpdateStatus(ctx context.Context, payment *models.Payment, updates map[string]interface{}) error
}

type gormPaymentRepo struct {
	db *gorm.DB
}

func NewGormPaymentRepo(db *gorm.DB) PaymentRepository {
	return &gormPaymentRepo{db: db}
}

func (r *gormPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *gormPaymentRepo) FindByStripeID(ctx context.Context, stripePaymentID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).
		Where("stripe_payment_id = ?", stripePaymentID).
		First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *gormPaymentRepo) UpdateStatus(ctx context.Context, payment *models.Payment, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(payment).Updates(updates).Error
}
