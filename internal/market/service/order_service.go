package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/buildmart/internal/market/entity"
	"github.com/bitfantasy/buildmart/internal/market/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderService 订单服务：购物车、状态机、配送记录
type OrderService struct {
	repo      *repository.OrderRepository
	invRepo   *repository.InventoryRepository
	promoRepo *repository.PromoRepository
}

func NewOrderService(repo *repository.OrderRepository, invRepo *repository.InventoryRepository, promoRepo *repository.PromoRepository) *OrderService {
	return &OrderService{repo: repo, invRepo: invRepo, promoRepo: promoRepo}
}

func defaultRemark(from, to string) string {
	return fmt.Sprintf("状态由 %s 变更为 %s", from, to)
}

// --- 购物车 ---

type AddToCartRequest struct {
	ItemCode string  `json:"item_code" binding:"required"`
	Qty      float64 `json:"qty" binding:"required,gt=0"`
}

// AddToCart 加购。同一客户同一供应商共用一个购物车订单；商品属于其他供应商时
// 新开订单，绝不合并。单价在加购时快照，后续调价不回溯已有行项
func (s *OrderService) AddToCart(ctx context.Context, customerID string, req AddToCartRequest) (*entity.Order, error) {
	item, err := s.invRepo.GetByItemCode(ctx, req.ItemCode)
	if err != nil {
		return nil, fmt.Errorf("商品不存在: %w", err)
	}
	if !item.Active {
		return nil, fmt.Errorf("商品已下架: %s", req.ItemCode)
	}

	price, err := s.invRepo.GetPrice(ctx, req.ItemCode)
	if err != nil {
		return nil, fmt.Errorf("商品未定价: %w", err)
	}

	order, err := s.repo.FindCart(ctx, customerID, item.VendorID)
	if err == gorm.ErrRecordNotFound {
		order, err = s.createCart(ctx, customerID, item.VendorID)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("查询购物车失败: %w", err)
	}

	order.AddItem(item.ItemCode, item.Description, req.Qty, price.TotalPrice)
	if err := s.repo.UpdateWithItems(ctx, order); err != nil {
		return nil, fmt.Errorf("更新购物车失败: %w", err)
	}
	return order, nil
}

func (s *OrderService) createCart(ctx context.Context, customerID, vendorID string) (*entity.Order, error) {
	now := time.Now()
	order := &entity.Order{
		ID:         uuid.New().String()[:32],
		LeadID:     fmt.Sprintf("LD-%s%04d", now.Format("20060102"), now.UnixNano()%10000),
		InvcNum:    fmt.Sprintf("INV-%s%04d", now.Format("20060102"), now.UnixNano()%10000),
		CustomerID: customerID,
		VendorID:   vendorID,
		Status:     entity.OrderStatusPending,
		Active:     true,
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("创建订单失败: %w", err)
	}
	event := &entity.OrderStatusEvent{
		LeadID:   order.LeadID,
		InvcNum:  order.InvcNum,
		VendorID: order.VendorID,
		Status:   entity.OrderStatusPending,
		ActorID:  customerID,
		Remarks:  "订单创建",
	}
	if err := s.repo.AppendEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("写入状态历史失败: %w", err)
	}
	return order, nil
}

// RemoveItem 移除行项。删空后订单停用（软删除），不保留空的有效订单
func (s *OrderService) RemoveItem(ctx context.Context, leadID, customerID, itemCode string) (*entity.Order, error) {
	order, err := s.getOwnOrder(ctx, leadID, customerID)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.OrderStatusPending {
		return nil, entity.NewStatusTransitionError(order.Status, nil)
	}

	if !order.RemoveItem(itemCode) {
		return nil, fmt.Errorf("订单中没有该商品: %s", itemCode)
	}
	if len(order.Items) == 0 {
		order.Active = false
	}
	if err := s.repo.UpdateWithItems(ctx, order); err != nil {
		return nil, fmt.Errorf("更新订单失败: %w", err)
	}
	return order, nil
}

type UpdateDeliveryInfoRequest struct {
	DeliveryAddress *string    `json:"delivery_address"`
	Pincode         *string    `json:"pincode"`
	ReceiverPhone   *string    `json:"receiver_phone"`
	ExpectedDate    *time.Time `json:"expected_date"`
}

// UpdateDeliveryInfo 部分更新收货信息，仅 pending 状态允许
func (s *OrderService) UpdateDeliveryInfo(ctx context.Context, leadID, customerID string, req UpdateDeliveryInfoRequest) (*entity.Order, error) {
	order, err := s.getOwnOrder(ctx, leadID, customerID)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.OrderStatusPending {
		return nil, fmt.Errorf("订单当前状态 %s 不允许修改收货信息", order.Status)
	}

	if req.DeliveryAddress != nil {
		order.DeliveryAddress = *req.DeliveryAddress
	}
	if req.Pincode != nil {
		order.Pincode = *req.Pincode
	}
	if req.ReceiverPhone != nil {
		order.ReceiverPhone = *req.ReceiverPhone
	}
	if req.ExpectedDate != nil {
		order.ExpectedDate = req.ExpectedDate
	}

	if err := s.repo.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("更新订单失败: %w", err)
	}
	return order, nil
}

type PlaceOrderRequest struct {
	DeliveryAddress string     `json:"delivery_address" binding:"required"`
	Pincode         string     `json:"pincode" binding:"required"`
	ReceiverPhone   string     `json:"receiver_phone"`
	ExpectedDate    *time.Time `json:"expected_date"`
	PromoCode       string     `json:"promo_code"`
}

// Place 提交订单。空订单拒绝；促销折扣在提交时按订单金额计算并锁定
func (s *OrderService) Place(ctx context.Context, leadID, customerID string, req PlaceOrderRequest) (*entity.Order, error) {
	order, err := s.getOwnOrder(ctx, leadID, customerID)
	if err != nil {
		return nil, err
	}
	if order.Placed() {
		return nil, fmt.Errorf("订单已提交: %s", leadID)
	}
	if len(order.Items) == 0 {
		return nil, fmt.Errorf("空订单不能提交")
	}

	order.DeliveryAddress = req.DeliveryAddress
	order.Pincode = req.Pincode
	order.ReceiverPhone = req.ReceiverPhone
	order.ExpectedDate = req.ExpectedDate

	if req.PromoCode != "" {
		if err := s.applyPromo(ctx, order, req.PromoCode); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	order.OrderDate = &now
	order.Recalc()
	if err := s.repo.PlaceWithPromo(ctx, order, order.PromoCode); err != nil {
		return nil, fmt.Errorf("提交订单失败: %w", err)
	}

	event := &entity.OrderStatusEvent{
		LeadID:   order.LeadID,
		InvcNum:  order.InvcNum,
		VendorID: order.VendorID,
		Status:   entity.OrderStatusPending,
		ActorID:  customerID,
		Remarks:  "订单提交",
	}
	if err := s.repo.AppendEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("写入状态历史失败: %w", err)
	}
	return order, nil
}

// applyPromo 校验促销归属与有效性，计算并锁定折扣金额。
// 使用次数在订单落库的同一事务里累加
func (s *OrderService) applyPromo(ctx context.Context, order *entity.Order, promoCode string) error {
	promo, err := s.promoRepo.GetByCode(ctx, promoCode)
	if err != nil {
		return fmt.Errorf("促销不存在: %w", err)
	}

	owned := false
	for _, item := range order.Items {
		if item.ItemCode == promo.ItemCode {
			owned = true
			break
		}
	}
	if !owned {
		return fmt.Errorf("促销 %s 不适用于该订单", promoCode)
	}

	var orderValue float64
	for _, item := range order.Items {
		orderValue += item.TotalCost
	}

	now := time.Now()
	discount := PromoDiscount(promo, orderValue, now)
	if discount <= 0 {
		return fmt.Errorf("促销当前不可用: %s", promo.State(now))
	}

	order.PromoCode = promo.PromoCode
	order.PromoDiscount = discount
	return nil
}

// --- 查询 ---

func (s *OrderService) getOwnOrder(ctx context.Context, leadID, customerID string) (*entity.Order, error) {
	order, err := s.repo.GetByLeadID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, ErrForbidden
	}
	if !order.Active {
		return nil, fmt.Errorf("订单已停用: %s", leadID)
	}
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, leadID string) (*entity.Order, error) {
	return s.repo.GetByLeadID(ctx, leadID)
}

func (s *OrderService) GetCustomerOrder(ctx context.Context, leadID, customerID string) (*entity.Order, error) {
	order, err := s.repo.GetByLeadID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, ErrForbidden
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, params repository.OrderListParams) ([]entity.Order, int64, error) {
	return s.repo.List(ctx, params)
}

func (s *OrderService) Stats(ctx context.Context, vendorID string) ([]repository.StatusCount, error) {
	return s.repo.Stats(ctx, vendorID)
}

func (s *OrderService) History(ctx context.Context, leadID string) ([]entity.OrderStatusEvent, error) {
	return s.repo.History(ctx, leadID)
}

// --- 状态机 ---

// CancelByCustomer 客户取消自己的订单，仅 pending/vendor_accepted 可取消
func (s *OrderService) CancelByCustomer(ctx context.Context, leadID, customerID, remarks string) (*entity.Order, error) {
	order, err := s.getOwnOrder(ctx, leadID, customerID)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.OrderStatusPending && order.Status != entity.OrderStatusVendorAccepted {
		return nil, entity.NewStatusTransitionError(order.Status, nil)
	}
	if remarks == "" {
		remarks = "客户取消订单"
	}
	if err := s.repo.UpdateStatusWithEvent(ctx, order, entity.OrderStatusCancelled, customerID, remarks); err != nil {
		return nil, fmt.Errorf("取消订单失败: %w", err)
	}
	return order, nil
}

func (s *OrderService) getVendorOrder(ctx context.Context, leadID, vendorID string) (*entity.Order, error) {
	order, err := s.repo.GetByLeadID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if order.VendorID != vendorID {
		return nil, ErrForbidden
	}
	if !order.Active || !order.Placed() {
		return nil, fmt.Errorf("订单不可操作: %s", leadID)
	}
	return order, nil
}

// VendorAccept 供应商接单：pending -> vendor_accepted
func (s *OrderService) VendorAccept(ctx context.Context, leadID, vendorID, remarks string) (*entity.Order, error) {
	order, err := s.getVendorOrder(ctx, leadID, vendorID)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.OrderStatusPending {
		return nil, entity.NewStatusTransitionError(order.Status, entity.NextOrderStatuses(order.Status))
	}
	if remarks == "" {
		remarks = "供应商接单"
	}
	if err := s.repo.UpdateStatusWithEvent(ctx, order, entity.OrderStatusVendorAccepted, vendorID, remarks); err != nil {
		return nil, fmt.Errorf("接单失败: %w", err)
	}
	return order, nil
}

// VendorReject 供应商拒单：pending -> cancelled
func (s *OrderService) VendorReject(ctx context.Context, leadID, vendorID, remarks string) (*entity.Order, error) {
	order, err := s.getVendorOrder(ctx, leadID, vendorID)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.OrderStatusPending {
		return nil, entity.NewStatusTransitionError(order.Status, entity.NextOrderStatuses(order.Status))
	}
	if remarks == "" {
		remarks = "供应商拒单"
	}
	if err := s.repo.UpdateStatusWithEvent(ctx, order, entity.OrderStatusCancelled, vendorID, remarks); err != nil {
		return nil, fmt.Errorf("拒单失败: %w", err)
	}
	return order, nil
}

// deliveryPhase 发货段状态（truck_loading 及之后）
func deliveryPhase(status string) bool {
	return entity.OrderStatusRank(status) >= entity.OrderStatusRank(entity.OrderStatusTruckLoading)
}

// VendorAdvanceStatus 供应商推进发货状态。仅 order_confirmed 之后允许，
// 且只能沿主线递增，不允许回退
func (s *OrderService) VendorAdvanceStatus(ctx context.Context, leadID, vendorID, target, remarks string) (*entity.Order, error) {
	order, err := s.getVendorOrder(ctx, leadID, vendorID)
	if err != nil {
		return nil, err
	}

	currentRank := entity.OrderStatusRank(order.Status)
	if currentRank < entity.OrderStatusRank(entity.OrderStatusConfirmed) {
		return nil, entity.NewStatusTransitionError(order.Status, entity.NextOrderStatuses(order.Status))
	}
	if !deliveryPhase(target) || entity.OrderStatusRank(target) <= currentRank {
		return nil, entity.NewStatusTransitionError(order.Status, entity.NextOrderStatuses(order.Status))
	}

	if remarks == "" {
		remarks = defaultRemark(order.Status, target)
	}
	if err := s.repo.UpdateStatusWithEvent(ctx, order, target, vendorID, remarks); err != nil {
		return nil, fmt.Errorf("状态流转失败: %w", err)
	}

	// 到达 delivered 时同步配送记录。两条记录分开写，失败如实上报
	if target == entity.OrderStatusDelivered {
		if err := s.markDeliveryDelivered(ctx, order.LeadID, remarks); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// --- 配送记录 ---

type TrackingInfoRequest struct {
	TrackingNumber string `json:"tracking_number" binding:"required"`
	Courier        string `json:"courier" binding:"required"`
	TrackingURL    string `json:"tracking_url"`
}

// AddTrackingInfo 写入物流单号，配送状态强制置为 in_transit，并同步推进订单状态
func (s *OrderService) AddTrackingInfo(ctx context.Context, leadID, vendorID string, req TrackingInfoRequest) (*entity.OrderDelivery, error) {
	order, err := s.getVendorOrder(ctx, leadID, vendorID)
	if err != nil {
		return nil, err
	}

	delivery, err := s.repo.GetDelivery(ctx, leadID)
	if err == gorm.ErrRecordNotFound {
		delivery = &entity.OrderDelivery{LeadID: leadID, DeliveryExpectedAt: order.ExpectedDate}
	} else if err != nil {
		return nil, fmt.Errorf("查询配送记录失败: %w", err)
	}

	delivery.TrackingNumber = req.TrackingNumber
	delivery.Courier = req.Courier
	delivery.TrackingURL = req.TrackingURL
	delivery.DeliveryStatus = entity.DeliveryStatusInTransit
	if err := s.repo.SaveDelivery(ctx, delivery); err != nil {
		return nil, fmt.Errorf("保存配送记录失败: %w", err)
	}

	// 订单状态同步推进到 in_transit。订单状态写失败时如实上报，
	// 即使配送记录已落库
	currentRank := entity.OrderStatusRank(order.Status)
	if currentRank >= entity.OrderStatusRank(entity.OrderStatusConfirmed) &&
		currentRank < entity.OrderStatusRank(entity.OrderStatusInTransit) {
		if err := s.repo.UpdateStatusWithEvent(ctx, order, entity.OrderStatusInTransit, vendorID,
			fmt.Sprintf("物流单号 %s (%s)", req.TrackingNumber, req.Courier)); err != nil {
			return nil, fmt.Errorf("配送记录已保存，但订单状态同步失败: %w", err)
		}
	}
	return delivery, nil
}

type UpdateDeliveryStatusRequest struct {
	DeliveryStatus string `json:"delivery_status" binding:"required"`
	Notes          string `json:"notes"`
}

// UpdateDeliveryStatus 更新配送状态，delivered 时记录实际送达时间并同步订单状态
func (s *OrderService) UpdateDeliveryStatus(ctx context.Context, leadID, vendorID string, req UpdateDeliveryStatusRequest) (*entity.OrderDelivery, error) {
	order, err := s.getVendorOrder(ctx, leadID, vendorID)
	if err != nil {
		return nil, err
	}

	switch req.DeliveryStatus {
	case entity.DeliveryStatusPending, entity.DeliveryStatusInTransit,
		entity.DeliveryStatusDelivered, entity.DeliveryStatusFailed:
	default:
		return nil, fmt.Errorf("无效的配送状态: %s", req.DeliveryStatus)
	}

	delivery, err := s.repo.GetDelivery(ctx, leadID)
	if err == gorm.ErrRecordNotFound {
		delivery = &entity.OrderDelivery{LeadID: leadID, DeliveryExpectedAt: order.ExpectedDate}
	} else if err != nil {
		return nil, fmt.Errorf("查询配送记录失败: %w", err)
	}

	delivery.DeliveryStatus = req.DeliveryStatus
	delivery.Notes = req.Notes
	if req.DeliveryStatus == entity.DeliveryStatusDelivered && delivery.DeliveryActualAt == nil {
		now := time.Now()
		delivery.DeliveryActualAt = &now
	}
	if err := s.repo.SaveDelivery(ctx, delivery); err != nil {
		return nil, fmt.Errorf("保存配送记录失败: %w", err)
	}

	if req.DeliveryStatus == entity.DeliveryStatusDelivered &&
		order.Status != entity.OrderStatusDelivered {
		if entity.OrderStatusRank(order.Status) < entity.OrderStatusRank(entity.OrderStatusConfirmed) {
			return nil, fmt.Errorf("配送记录已保存，但订单当前状态 %s 不允许标记送达", order.Status)
		}
		if err := s.repo.UpdateStatusWithEvent(ctx, order, entity.OrderStatusDelivered, vendorID, "订单送达"); err != nil {
			return nil, fmt.Errorf("配送记录已保存，但订单状态同步失败: %w", err)
		}
	}
	return delivery, nil
}

func (s *OrderService) GetDelivery(ctx context.Context, leadID string) (*entity.OrderDelivery, error) {
	return s.repo.GetDelivery(ctx, leadID)
}

// markDeliveryDelivered 订单侧标记送达后同步配送记录（存在才更新）
func (s *OrderService) markDeliveryDelivered(ctx context.Context, leadID, notes string) error {
	delivery, err := s.repo.GetDelivery(ctx, leadID)
	if err == gorm.ErrRecordNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("订单状态已更新，但查询配送记录失败: %w", err)
	}
	delivery.DeliveryStatus = entity.DeliveryStatusDelivered
	if notes != "" {
		delivery.Notes = notes
	}
	if delivery.DeliveryActualAt == nil {
		now := time.Now()
		delivery.DeliveryActualAt = &now
	}
	if err := s.repo.SaveDelivery(ctx, delivery); err != nil {
		return fmt.Errorf("订单状态已更新，但配送记录同步失败: %w", err)
	}
	return nil
}

// --- 管理操作 ---

// ConfirmPayment 人工确认收款：vendor_accepted -> payment_done
func (s *OrderService) ConfirmPayment(ctx context.Context, leadID, actorID, remarks string) (*entity.Order, error) {
	order, err := s.repo.GetByLeadID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.OrderStatusVendorAccepted {
		return nil, entity.NewStatusTransitionError(order.Status, entity.NextOrderStatuses(order.Status))
	}
	if remarks == "" {
		remarks = "人工确认收款"
	}
	if err := s.repo.UpdateStatusWithEvent(ctx, order, entity.OrderStatusPaymentDone, actorID, remarks); err != nil {
		return nil, fmt.Errorf("确认收款失败: %w", err)
	}
	return order, nil
}

// ConfirmOrder 确认订单：payment_done -> order_confirmed
func (s *OrderService) ConfirmOrder(ctx context.Context, leadID, actorID, remarks string) (*entity.Order, error) {
	order, err := s.repo.GetByLeadID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.OrderStatusPaymentDone {
		return nil, entity.NewStatusTransitionError(order.Status, entity.NextOrderStatuses(order.Status))
	}
	if remarks == "" {
		remarks = "订单确认"
	}
	if err := s.repo.UpdateStatusWithEvent(ctx, order, entity.OrderStatusConfirmed, actorID, remarks); err != nil {
		return nil, fmt.Errorf("确认订单失败: %w", err)
	}
	return order, nil
}

// ForceSetStatus 管理员强制设置状态，绕过常规边检查。delivered 为终态不可改
func (s *OrderService) ForceSetStatus(ctx context.Context, leadID, target, actorID, remarks string) (*entity.Order, error) {
	if !entity.ValidOrderStatus(target) {
		return nil, fmt.Errorf("无效的订单状态: %s", target)
	}
	order, err := s.repo.GetByLeadID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if order.Status == entity.OrderStatusDelivered {
		return nil, entity.NewStatusTransitionError(order.Status, nil)
	}
	if remarks == "" {
		remarks = fmt.Sprintf("管理员强制设置状态为 %s", target)
	}
	if err := s.repo.UpdateStatusWithEvent(ctx, order, target, actorID, remarks); err != nil {
		return nil, fmt.Errorf("设置状态失败: %w", err)
	}
	return order, nil
}

// CancelByAdmin 管理员取消订单，delivered 除外
func (s *OrderService) CancelByAdmin(ctx context.Context, leadID, actorID, remarks string) (*entity.Order, error) {
	order, err := s.repo.GetByLeadID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if entity.OrderStatusTerminal(order.Status) {
		return nil, entity.NewStatusTransitionError(order.Status, nil)
	}
	if remarks == "" {
		remarks = "管理员取消订单"
	}
	if err := s.repo.UpdateStatusWithEvent(ctx, order, entity.OrderStatusCancelled, actorID, remarks); err != nil {
		return nil, fmt.Errorf("取消订单失败: %w", err)
	}
	return order, nil
}
