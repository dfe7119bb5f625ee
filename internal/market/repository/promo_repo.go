package repository

import (
	"context"

	"github.com/bitfantasy/buildmart/internal/market/entity"
	"gorm.io/gorm"
)

// PromoRepository 促销仓库
type PromoRepository struct {
	db *gorm.DB
}

func NewPromoRepository(db *gorm.DB) *PromoRepository {
	return &PromoRepository{db: db}
}

func (r *PromoRepository) Create(ctx context.Context, p *entity.Promo) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PromoRepository) GetByCode(ctx context.Context, promoCode string) (*entity.Promo, error) {
	var p entity.Promo
	err := r.db.WithContext(ctx).Where("promo_code = ? AND deleted_at IS NULL", promoCode).First(&p).Error
	return &p, err
}

func (r *PromoRepository) GetByItemCode(ctx context.Context, itemCode string) (*entity.Promo, error) {
	var p entity.Promo
	err := r.db.WithContext(ctx).Where("item_code = ? AND deleted_at IS NULL", itemCode).
		Order("created_at DESC").First(&p).Error
	return &p, err
}

func (r *PromoRepository) Update(ctx context.Context, p *entity.Promo) error {
	return r.db.WithContext(ctx).Save(p).Error
}

type PromoListParams struct {
	ItemCode string
	Page     int
	Size     int
}

func (r *PromoRepository) List(ctx context.Context, params PromoListParams) ([]entity.Promo, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Promo{}).Where("deleted_at IS NULL")
	if params.ItemCode != "" {
		query = query.Where("item_code = ?", params.ItemCode)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var promos []entity.Promo
	err := query.Order("created_at DESC").Offset((params.Page - 1) * params.Size).Limit(params.Size).Find(&promos).Error
	return promos, total, err
}
