package entity

import (
	"time"
)

// Order 订单聚合。LeadID 为稳定订单号，InvcNum 创建时生成且不可变。
// 单个订单只属于一个供应商；OrderDate 为空表示购物车尚未提交。
type Order struct {
	ID            string     `json:"id" gorm:"primaryKey;size:32"`
	LeadID        string     `json:"lead_id" gorm:"size:32;not null;uniqueIndex"`
	InvcNum       string     `json:"invc_num" gorm:"size:32;not null;uniqueIndex"`
	CustomerID    string     `json:"customer_id" gorm:"size:32;not null;index"`
	VendorID      string     `json:"vendor_id" gorm:"size:32;not null;index"`
	Status        string     `json:"status" gorm:"size:20;not null;default:pending"`
	TotalQty      float64    `json:"total_qty" gorm:"type:decimal(12,2);default:0"`
	TotalAmount   float64    `json:"total_amount" gorm:"type:decimal(12,2);default:0"`
	PromoCode     string     `json:"promo_code" gorm:"size:32"`
	PromoDiscount float64    `json:"promo_discount" gorm:"type:decimal(12,2);default:0"`

	// 收货信息
	DeliveryAddress string     `json:"delivery_address" gorm:"size:500"`
	Pincode         string     `json:"pincode" gorm:"size:10"`
	ReceiverPhone   string     `json:"receiver_phone" gorm:"size:20"`
	ExpectedDate    *time.Time `json:"expected_date"`

	OrderDate *time.Time `json:"order_date"` // 提交时间，nil=购物车
	Active    bool       `json:"active" gorm:"not null;default:true"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at" gorm:"index"`

	Items []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string {
	return "mkt_orders"
}

// OrderItem 订单行项，由订单独占，无独立生命周期
type OrderItem struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	OrderID     string    `json:"order_id" gorm:"size:32;not null;index"`
	ItemCode    string    `json:"item_code" gorm:"size:32;not null"`
	Description string    `json:"description" gorm:"size:500"`
	Qty         float64   `json:"qty" gorm:"type:decimal(12,2);not null"`
	UnitPrice   float64   `json:"unit_price" gorm:"type:decimal(12,2);not null"` // 加购时快照，后续调价不回溯
	TotalCost   float64   `json:"total_cost" gorm:"type:decimal(12,2);not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (OrderItem) TableName() string {
	return "mkt_order_items"
}

// Recalc 按行项重算聚合字段。totalAmount = max(0, Σ totalCost - promoDiscount)
func (o *Order) Recalc() {
	var qty, amount float64
	for _, item := range o.Items {
		qty += item.Qty
		amount += item.TotalCost
	}
	o.TotalQty = qty
	amount -= o.PromoDiscount
	if amount < 0 {
		amount = 0
	}
	o.TotalAmount = amount
}

// AddItem 加入行项。itemCode 已存在则累加数量并按原单价快照重算行金额，不重新取价
func (o *Order) AddItem(itemCode, description string, qty, unitPrice float64) {
	for i := range o.Items {
		if o.Items[i].ItemCode == itemCode {
			o.Items[i].Qty += qty
			o.Items[i].TotalCost = o.Items[i].Qty * o.Items[i].UnitPrice
			o.Recalc()
			return
		}
	}
	o.Items = append(o.Items, OrderItem{
		OrderID:     o.ID,
		ItemCode:    itemCode,
		Description: description,
		Qty:         qty,
		UnitPrice:   unitPrice,
		TotalCost:   qty * unitPrice,
	})
	o.Recalc()
}

// RemoveItem 移除行项，返回是否有删除。删空后订单应被停用而不是留空
func (o *Order) RemoveItem(itemCode string) bool {
	kept := o.Items[:0]
	removed := false
	for _, item := range o.Items {
		if item.ItemCode == itemCode {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	o.Items = kept
	if removed {
		o.Recalc()
	}
	return removed
}

// Placed 订单是否已提交
func (o *Order) Placed() bool {
	return o.OrderDate != nil
}

// OrderStatusEvent 订单状态历史，只追加不修改。最近一条的状态即订单当前状态
type OrderStatusEvent struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	LeadID    string    `json:"lead_id" gorm:"size:32;not null;index"`
	InvcNum   string    `json:"invc_num" gorm:"size:32;not null;index"`
	VendorID  string    `json:"vendor_id" gorm:"size:32;not null;index"`
	Status    string    `json:"status" gorm:"size:20;not null"`
	ActorID   string    `json:"actor_id" gorm:"size:32;not null"`
	Remarks   string    `json:"remarks" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}

func (OrderStatusEvent) TableName() string {
	return "mkt_order_status_events"
}

// 配送状态，与订单状态各自独立维护
const (
	DeliveryStatusPending   = "pending"
	DeliveryStatusInTransit = "in_transit"
	DeliveryStatusDelivered = "delivered"
	DeliveryStatusFailed    = "failed"
)

// OrderDelivery 配送记录，每单一条，首次配送写入时懒创建
type OrderDelivery struct {
	ID                 string     `json:"id" gorm:"primaryKey;size:32"`
	LeadID             string     `json:"lead_id" gorm:"size:32;not null;uniqueIndex"`
	Courier            string     `json:"courier" gorm:"size:64"`
	TrackingNumber     string     `json:"tracking_number" gorm:"size:64"`
	TrackingURL        string     `json:"tracking_url" gorm:"size:512"`
	DeliveryStatus     string     `json:"delivery_status" gorm:"size:20;not null;default:pending"`
	Notes              string     `json:"notes" gorm:"type:text"`
	DeliveryExpectedAt *time.Time `json:"delivery_expected_at"`
	DeliveryActualAt   *time.Time `json:"delivery_actual_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (OrderDelivery) TableName() string {
	return "mkt_order_deliveries"
}

// 支付状态
const (
	PaymentStatusProcessing = "processing"
	PaymentStatusCompleted  = "completed"
	PaymentStatusFailed     = "failed"
)

// OrderPayment 支付记录，按发票号一对一
type OrderPayment struct {
	ID             string     `json:"id" gorm:"primaryKey;size:32"`
	InvcNum        string     `json:"invc_num" gorm:"size:32;not null;uniqueIndex"`
	LeadID         string     `json:"lead_id" gorm:"size:32;not null;index"`
	Amount         float64    `json:"amount" gorm:"type:decimal(12,2);not null"`
	Method         string     `json:"method" gorm:"size:20;not null;default:simulated"`
	Status         string     `json:"status" gorm:"size:16;not null;default:processing"`
	TransactionRef string     `json:"transaction_ref" gorm:"size:64"`
	CompletedAt    *time.Time `json:"completed_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (OrderPayment) TableName() string {
	return "mkt_order_payments"
}
