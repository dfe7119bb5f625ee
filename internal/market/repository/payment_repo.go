package repository

import (
	"context"

	"github.com/bitfantasy/buildmart/internal/market/entity"
	"gorm.io/gorm"
)

// PaymentRepository 支付记录仓库
type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *entity.OrderPayment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) GetByInvcNum(ctx context.Context, invcNum string) (*entity.OrderPayment, error) {
	var p entity.OrderPayment
	err := r.db.WithContext(ctx).Where("invc_num = ?", invcNum).First(&p).Error
	return &p, err
}

func (r *PaymentRepository) Update(ctx context.Context, p *entity.OrderPayment) error {
	return r.db.WithContext(ctx).Save(p).Error
}
