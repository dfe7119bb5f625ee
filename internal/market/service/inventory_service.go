package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/bitfantasy/buildmart/internal/market/entity"
	"github.com/bitfantasy/buildmart/internal/market/repository"
	"github.com/bitfantasy/buildmart/internal/shared/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrForbidden 角色或归属不匹配
var ErrForbidden = errors.New("无权操作该资源")

// InventoryService 商品服务
type InventoryService struct {
	repo      *repository.InventoryRepository
	promoRepo *repository.PromoRepository
	storage   *storage.Client
}

func NewInventoryService(repo *repository.InventoryRepository, promoRepo *repository.PromoRepository, st *storage.Client) *InventoryService {
	return &InventoryService{repo: repo, promoRepo: promoRepo, storage: st}
}

// --- 商品 ---

type CreateItemRequest struct {
	VendorID    string `json:"vendor_id"` // vendor角色忽略此字段，取自身ID
	Description string `json:"description" binding:"required"`
	Category    string `json:"category" binding:"required"`
	Subcategory string `json:"subcategory"`
	Unit        string `json:"unit"`
}

func (s *InventoryService) CreateItem(ctx context.Context, req CreateItemRequest, actorID, actorRole string) (*entity.InventoryItem, error) {
	if !entity.ValidCategory(req.Category, req.Subcategory) {
		return nil, fmt.Errorf("无效的商品类目: %s/%s", req.Category, req.Subcategory)
	}

	vendorID := req.VendorID
	if actorRole == entity.RoleVendor {
		vendorID = actorID
	}
	if vendorID == "" {
		return nil, fmt.Errorf("商品必须归属一个供应商")
	}

	unit := req.Unit
	if unit == "" {
		unit = "bag"
	}

	item := &entity.InventoryItem{
		ID:          uuid.New().String()[:32],
		ItemCode:    fmt.Sprintf("ITM-%s%04d", time.Now().Format("20060102"), time.Now().UnixNano()%10000),
		VendorID:    vendorID,
		Description: req.Description,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		Unit:        unit,
		Active:      true,
		CreatedBy:   actorID,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("创建商品失败: %w", err)
	}
	return item, nil
}

func (s *InventoryService) GetItem(ctx context.Context, id string) (*entity.InventoryItem, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *InventoryService) ListItems(ctx context.Context, params repository.ItemListParams) ([]entity.InventoryItem, int64, error) {
	return s.repo.List(ctx, params)
}

type UpdateItemRequest struct {
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Subcategory *string `json:"subcategory"`
	Unit        *string `json:"unit"`
	Active      *bool   `json:"active"`
}

func (s *InventoryService) UpdateItem(ctx context.Context, id string, req UpdateItemRequest, actorID, actorRole string) (*entity.InventoryItem, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorRole == entity.RoleVendor && item.VendorID != actorID {
		return nil, ErrForbidden
	}

	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.Category != nil {
		sub := item.Subcategory
		if req.Subcategory != nil {
			sub = *req.Subcategory
		}
		if !entity.ValidCategory(*req.Category, sub) {
			return nil, fmt.Errorf("无效的商品类目: %s/%s", *req.Category, sub)
		}
		item.Category = *req.Category
		item.Subcategory = sub
	} else if req.Subcategory != nil {
		if !entity.ValidCategory(item.Category, *req.Subcategory) {
			return nil, fmt.Errorf("无效的商品类目: %s/%s", item.Category, *req.Subcategory)
		}
		item.Subcategory = *req.Subcategory
	}
	if req.Unit != nil {
		item.Unit = *req.Unit
	}
	if req.Active != nil {
		item.Active = *req.Active
	}

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("更新商品失败: %w", err)
	}
	return item, nil
}

// DeleteItem 软删除：置 active=false
func (s *InventoryService) DeleteItem(ctx context.Context, id string, actorID, actorRole string) error {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if actorRole == entity.RoleVendor && item.VendorID != actorID {
		return ErrForbidden
	}
	return s.repo.Deactivate(ctx, id)
}

// UploadItemImage 上传商品图片到对象存储并回写URL
func (s *InventoryService) UploadItemImage(ctx context.Context, id string, filename string, reader io.Reader, size int64, contentType string, actorID, actorRole string) (*entity.InventoryItem, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("对象存储未配置")
	}
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actorRole == entity.RoleVendor && item.VendorID != actorID {
		return nil, ErrForbidden
	}

	objectName := fmt.Sprintf("items/%s/%s%s", item.ItemCode, uuid.New().String()[:8], filepath.Ext(filename))
	if err := s.storage.Upload(ctx, objectName, reader, size, contentType); err != nil {
		return nil, fmt.Errorf("上传图片失败: %w", err)
	}

	url, err := s.storage.PresignedURL(ctx, objectName, 7*24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("生成图片链接失败: %w", err)
	}
	item.ImageURL = url
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("更新商品失败: %w", err)
	}
	return item, nil
}

// --- 价格 ---

type SetPriceRequest struct {
	ItemCode  string  `json:"item_code" binding:"required"`
	UnitPrice float64 `json:"unit_price" binding:"required,gt=0"`
	Margin    float64 `json:"margin"`
	MarginPct float64 `json:"margin_pct"`
	CGST      float64 `json:"cgst"`
	SGST      float64 `json:"sgst"`
	IGST      float64 `json:"igst"`
	FlatTax   float64 `json:"flat_tax"`
}

// SetPrice 写入价格，含税总价在每次写入时重算
func (s *InventoryService) SetPrice(ctx context.Context, req SetPriceRequest, actorID, actorRole string) (*entity.Price, error) {
	item, err := s.repo.GetByItemCode(ctx, req.ItemCode)
	if err != nil {
		return nil, fmt.Errorf("商品不存在: %w", err)
	}
	if actorRole == entity.RoleVendor && item.VendorID != actorID {
		return nil, ErrForbidden
	}

	price := &entity.Price{
		ID:        uuid.New().String()[:32],
		ItemCode:  req.ItemCode,
		UnitPrice: req.UnitPrice,
		Margin:    req.Margin,
		MarginPct: req.MarginPct,
		CGST:      req.CGST,
		SGST:      req.SGST,
		IGST:      req.IGST,
		FlatTax:   req.FlatTax,
	}
	price.TotalPrice = TaxInclusivePrice(price.UnitPrice, price.TaxPercent())

	if err := s.repo.SavePrice(ctx, price); err != nil {
		return nil, fmt.Errorf("保存价格失败: %w", err)
	}
	return price, nil
}

func (s *InventoryService) GetPrice(ctx context.Context, itemCode string) (*entity.Price, error) {
	return s.repo.GetPrice(ctx, itemCode)
}

// --- 运费表 ---

type SetShippingRequest struct {
	ItemCode string  `json:"item_code" binding:"required"`
	Band1Fee float64 `json:"band1_fee" binding:"required,gte=0"`
	Band2Fee float64 `json:"band2_fee" binding:"required,gte=0"`
	Band3Fee float64 `json:"band3_fee" binding:"required,gte=0"`
	Band4Fee float64 `json:"band4_fee" binding:"required,gte=0"`
	Band5Fee float64 `json:"band5_fee" binding:"required,gte=0"`
}

func (s *InventoryService) SetShippingTable(ctx context.Context, req SetShippingRequest, actorID, actorRole string) (*entity.ShippingPriceTable, error) {
	item, err := s.repo.GetByItemCode(ctx, req.ItemCode)
	if err != nil {
		return nil, fmt.Errorf("商品不存在: %w", err)
	}
	if actorRole == entity.RoleVendor && item.VendorID != actorID {
		return nil, ErrForbidden
	}

	table := &entity.ShippingPriceTable{
		ID:       uuid.New().String()[:32],
		ItemCode: req.ItemCode,
		Band1Fee: req.Band1Fee,
		Band2Fee: req.Band2Fee,
		Band3Fee: req.Band3Fee,
		Band4Fee: req.Band4Fee,
		Band5Fee: req.Band5Fee,
		Active:   true,
	}
	if err := s.repo.SaveShippingTable(ctx, table); err != nil {
		return nil, fmt.Errorf("保存运费表失败: %w", err)
	}
	return table, nil
}

// CalculateShipping 按商品与订单金额计算运费
func (s *InventoryService) CalculateShipping(ctx context.Context, itemCode string, orderValue float64) (float64, error) {
	table, err := s.repo.GetShippingTable(ctx, itemCode)
	if err == gorm.ErrRecordNotFound {
		return 0, ErrShippingTableNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("查询运费表失败: %w", err)
	}
	return ShippingFee(table, orderValue)
}

// --- 促销 ---

type CreatePromoRequest struct {
	ItemCode          string    `json:"item_code" binding:"required"`
	Discount          float64   `json:"discount" binding:"required,gt=0"`
	DiscountType      string    `json:"discount_type" binding:"required"`
	StartDate         time.Time `json:"start_date" binding:"required"`
	EndDate           time.Time `json:"end_date" binding:"required"`
	MinOrderValue     float64   `json:"min_order_value"`
	MaxDiscountAmount float64   `json:"max_discount_amount"`
	UsageLimit        int       `json:"usage_limit"`
}

func (s *InventoryService) CreatePromo(ctx context.Context, req CreatePromoRequest, actorID, actorRole string) (*entity.Promo, error) {
	item, err := s.repo.GetByItemCode(ctx, req.ItemCode)
	if err != nil {
		return nil, fmt.Errorf("商品不存在: %w", err)
	}
	if actorRole == entity.RoleVendor && item.VendorID != actorID {
		return nil, ErrForbidden
	}

	switch req.DiscountType {
	case entity.DiscountTypePercentage:
		if req.Discount > 100 {
			return nil, fmt.Errorf("百分比折扣不能超过100: %.2f", req.Discount)
		}
	case entity.DiscountTypeFixed:
	default:
		return nil, fmt.Errorf("无效的折扣类型: %s", req.DiscountType)
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, fmt.Errorf("促销结束时间不能早于开始时间")
	}

	promo := &entity.Promo{
		ID:                uuid.New().String()[:32],
		PromoCode:         fmt.Sprintf("PRM-%s%04d", time.Now().Format("20060102"), time.Now().UnixNano()%10000),
		ItemCode:          req.ItemCode,
		Discount:          req.Discount,
		DiscountType:      req.DiscountType,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		MinOrderValue:     req.MinOrderValue,
		MaxDiscountAmount: req.MaxDiscountAmount,
		UsageLimit:        req.UsageLimit,
		Active:            true,
		CreatedBy:         actorID,
	}
	if err := s.promoRepo.Create(ctx, promo); err != nil {
		return nil, fmt.Errorf("创建促销失败: %w", err)
	}
	return promo, nil
}

// PromoQuote 促销试算结果
type PromoQuote struct {
	PromoCode  string  `json:"promo_code"`
	State      string  `json:"state"`
	OrderValue float64 `json:"order_value"`
	Discount   float64 `json:"discount"`
	FinalValue float64 `json:"final_value"`
}

// CalculatePromo 促销试算，不计使用次数
func (s *InventoryService) CalculatePromo(ctx context.Context, promoCode string, orderValue float64) (*PromoQuote, error) {
	promo, err := s.promoRepo.GetByCode(ctx, promoCode)
	if err != nil {
		return nil, fmt.Errorf("促销不存在: %w", err)
	}
	now := time.Now()
	discount := PromoDiscount(promo, orderValue, now)
	return &PromoQuote{
		PromoCode:  promo.PromoCode,
		State:      promo.State(now),
		OrderValue: orderValue,
		Discount:   discount,
		FinalValue: orderValue - discount,
	}, nil
}
