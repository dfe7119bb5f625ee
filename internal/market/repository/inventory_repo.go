package repository

import (
	"context"

	"github.com/bitfantasy/buildmart/internal/market/entity"
	"gorm.io/gorm"
)

// InventoryRepository 商品/价格/运费表仓库
type InventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// --- InventoryItem ---

func (r *InventoryRepository) Create(ctx context.Context, item *entity.InventoryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *InventoryRepository) GetByID(ctx context.Context, id string) (*entity.InventoryItem, error) {
	var item entity.InventoryItem
	err := r.db.WithContext(ctx).Preload("Price").Preload("Shipping").
		Where("id = ? AND deleted_at IS NULL", id).First(&item).Error
	return &item, err
}

func (r *InventoryRepository) GetByItemCode(ctx context.Context, itemCode string) (*entity.InventoryItem, error) {
	var item entity.InventoryItem
	err := r.db.WithContext(ctx).Preload("Price").Preload("Shipping").
		Where("item_code = ? AND deleted_at IS NULL", itemCode).First(&item).Error
	return &item, err
}

func (r *InventoryRepository) Update(ctx context.Context, item *entity.InventoryItem) error {
	return r.db.WithContext(ctx).Omit("Price", "Shipping").Save(item).Error
}

// Deactivate 软删除：置 active=false
func (r *InventoryRepository) Deactivate(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&entity.InventoryItem{}).
		Where("id = ?", id).Update("active", false).Error
}

type ItemListParams struct {
	VendorID    string
	Category    string
	Subcategory string
	Keyword     string
	ActiveOnly  bool
	Page        int
	Size        int
}

func (r *InventoryRepository) List(ctx context.Context, params ItemListParams) ([]entity.InventoryItem, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.InventoryItem{}).Where("deleted_at IS NULL")
	if params.VendorID != "" {
		query = query.Where("vendor_id = ?", params.VendorID)
	}
	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}
	if params.Subcategory != "" {
		query = query.Where("subcategory = ?", params.Subcategory)
	}
	if params.ActiveOnly {
		query = query.Where("active = true")
	}
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("description ILIKE ? OR item_code ILIKE ?", kw, kw)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var items []entity.InventoryItem
	err := query.Preload("Price").Order("created_at DESC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).Find(&items).Error
	return items, total, err
}

// --- Price ---

func (r *InventoryRepository) GetPrice(ctx context.Context, itemCode string) (*entity.Price, error) {
	var p entity.Price
	err := r.db.WithContext(ctx).Where("item_code = ?", itemCode).First(&p).Error
	return &p, err
}

// SavePrice 价格一对一 upsert
func (r *InventoryRepository) SavePrice(ctx context.Context, p *entity.Price) error {
	var existing entity.Price
	err := r.db.WithContext(ctx).Where("item_code = ?", p.ItemCode).First(&existing).Error
	if err == nil {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
		return r.db.WithContext(ctx).Save(p).Error
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}
	return r.db.WithContext(ctx).Create(p).Error
}

// --- ShippingPriceTable ---

func (r *InventoryRepository) GetShippingTable(ctx context.Context, itemCode string) (*entity.ShippingPriceTable, error) {
	var t entity.ShippingPriceTable
	err := r.db.WithContext(ctx).Where("item_code = ?", itemCode).First(&t).Error
	return &t, err
}

func (r *InventoryRepository) SaveShippingTable(ctx context.Context, t *entity.ShippingPriceTable) error {
	var existing entity.ShippingPriceTable
	err := r.db.WithContext(ctx).Where("item_code = ?", t.ItemCode).First(&existing).Error
	if err == nil {
		t.ID = existing.ID
		t.CreatedAt = existing.CreatedAt
		return r.db.WithContext(ctx).Save(t).Error
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}
	return r.db.WithContext(ctx).Create(t).Error
}
