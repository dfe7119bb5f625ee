package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/buildmart/internal/market/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderRepository 订单仓库
type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, o *entity.Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *OrderRepository) GetByLeadID(ctx context.Context, leadID string) (*entity.Order, error) {
	var o entity.Order
	err := r.db.WithContext(ctx).Preload("Items").
		Where("lead_id = ? AND deleted_at IS NULL", leadID).First(&o).Error
	return &o, err
}

func (r *OrderRepository) GetByInvcNum(ctx context.Context, invcNum string) (*entity.Order, error) {
	var o entity.Order
	err := r.db.WithContext(ctx).Preload("Items").
		Where("invc_num = ? AND deleted_at IS NULL", invcNum).First(&o).Error
	return &o, err
}

// FindCart 查找客户在指定供应商下未提交的购物车订单
func (r *OrderRepository) FindCart(ctx context.Context, customerID, vendorID string) (*entity.Order, error) {
	var o entity.Order
	err := r.db.WithContext(ctx).Preload("Items").
		Where("customer_id = ? AND vendor_id = ? AND status = ? AND active = true AND order_date IS NULL AND deleted_at IS NULL",
			customerID, vendorID, entity.OrderStatusPending).
		Order("created_at DESC").First(&o).Error
	return &o, err
}

// Update 更新订单头，不触碰行项
func (r *OrderRepository) Update(ctx context.Context, o *entity.Order) error {
	return r.db.WithContext(ctx).Omit("Items").Save(o).Error
}

// UpdateWithItems 整体覆写订单与行项。先删后建，保证行项与内存一致
func (r *OrderRepository) UpdateWithItems(ctx context.Context, o *entity.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveOrderWithItems(tx, o)
	})
}

// PlaceWithPromo 覆写订单与行项并累加促销使用次数，同一事务内完成：
// 订单落库失败时促销计数不写入
func (r *OrderRepository) PlaceWithPromo(ctx context.Context, o *entity.Order, promoCode string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveOrderWithItems(tx, o); err != nil {
			return err
		}
		if promoCode == "" {
			return nil
		}
		return tx.Model(&entity.Promo{}).Where("promo_code = ?", promoCode).
			UpdateColumn("used_count", gorm.Expr("used_count + 1")).Error
	})
}

func saveOrderWithItems(tx *gorm.DB, o *entity.Order) error {
	if err := tx.Where("order_id = ?", o.ID).Delete(&entity.OrderItem{}).Error; err != nil {
		return err
	}
	for i := range o.Items {
		if o.Items[i].ID == "" {
			o.Items[i].ID = uuid.New().String()[:32]
		}
		o.Items[i].OrderID = o.ID
	}
	if len(o.Items) > 0 {
		if err := tx.Create(&o.Items).Error; err != nil {
			return err
		}
	}
	return tx.Omit("Items").Save(o).Error
}

// UpdateStatusWithEvent 写入新状态并追加历史事件，同一事务内完成：
// 要么状态和事件都落库，要么都不落
func (r *OrderRepository) UpdateStatusWithEvent(ctx context.Context, o *entity.Order, status, actorID, remarks string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entity.Order{}).Where("id = ?", o.ID).
			Update("status", status).Error; err != nil {
			return err
		}
		event := &entity.OrderStatusEvent{
			ID:       uuid.New().String()[:32],
			LeadID:   o.LeadID,
			InvcNum:  o.InvcNum,
			VendorID: o.VendorID,
			Status:   status,
			ActorID:  actorID,
			Remarks:  remarks,
		}
		if err := tx.Create(event).Error; err != nil {
			return err
		}
		o.Status = status
		return nil
	})
}

// AppendEvent 追加状态事件（订单创建等不改状态的记录点）
func (r *OrderRepository) AppendEvent(ctx context.Context, e *entity.OrderStatusEvent) error {
	if e.ID == "" {
		e.ID = uuid.New().String()[:32]
	}
	return r.db.WithContext(ctx).Create(e).Error
}

// History 查询订单状态历史，时间倒序
func (r *OrderRepository) History(ctx context.Context, leadID string) ([]entity.OrderStatusEvent, error) {
	var events []entity.OrderStatusEvent
	err := r.db.WithContext(ctx).Where("lead_id = ?", leadID).
		Order("created_at DESC").Find(&events).Error
	return events, err
}

type OrderListParams struct {
	CustomerID string
	VendorID   string
	Status     string
	PlacedOnly bool
	ActiveOnly bool
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	Size       int
}

func (r *OrderRepository) List(ctx context.Context, params OrderListParams) ([]entity.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Order{}).Where("deleted_at IS NULL")
	if params.CustomerID != "" {
		query = query.Where("customer_id = ?", params.CustomerID)
	}
	if params.VendorID != "" {
		query = query.Where("vendor_id = ?", params.VendorID)
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.PlacedOnly {
		query = query.Where("order_date IS NOT NULL")
	}
	if params.ActiveOnly {
		query = query.Where("active = true")
	}
	if params.DateFrom != nil {
		query = query.Where("order_date >= ?", *params.DateFrom)
	}
	if params.DateTo != nil {
		query = query.Where("order_date <= ?", *params.DateTo)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var orders []entity.Order
	err := query.Preload("Items").Order("created_at DESC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).Find(&orders).Error
	return orders, total, err
}

// StatusCount 状态统计行
type StatusCount struct {
	Status string  `json:"status"`
	Count  int64   `json:"count"`
	Amount float64 `json:"amount"`
}

// Stats 按状态汇总订单数与金额。vendorID 为空则全量统计
func (r *OrderRepository) Stats(ctx context.Context, vendorID string) ([]StatusCount, error) {
	query := r.db.WithContext(ctx).Model(&entity.Order{}).
		Select("status, COUNT(*) as count, COALESCE(SUM(total_amount), 0) as amount").
		Where("deleted_at IS NULL AND active = true AND order_date IS NOT NULL")
	if vendorID != "" {
		query = query.Where("vendor_id = ?", vendorID)
	}
	var rows []StatusCount
	err := query.Group("status").Scan(&rows).Error
	return rows, err
}

// --- OrderDelivery ---

func (r *OrderRepository) GetDelivery(ctx context.Context, leadID string) (*entity.OrderDelivery, error) {
	var d entity.OrderDelivery
	err := r.db.WithContext(ctx).Where("lead_id = ?", leadID).First(&d).Error
	return &d, err
}

// SaveDelivery 配送记录 upsert，首次写入时懒创建
func (r *OrderRepository) SaveDelivery(ctx context.Context, d *entity.OrderDelivery) error {
	if d.ID == "" {
		d.ID = uuid.New().String()[:32]
		return r.db.WithContext(ctx).Create(d).Error
	}
	return r.db.WithContext(ctx).Save(d).Error
}
