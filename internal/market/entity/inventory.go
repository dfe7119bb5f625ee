package entity

import (
	"time"
)

// 商品类目（固定枚举）
const (
	CategoryCement        = "cement"
	CategoryIron          = "iron"
	CategoryConcreteMixer = "concrete_mixer"
)

// categorySubcategories 类目与子类目对照表
var categorySubcategories = map[string][]string{
	CategoryCement:        {"opc_43", "opc_53", "ppc", "white_cement"},
	CategoryIron:          {"tmt_bar", "angle", "channel", "sheet"},
	CategoryConcreteMixer: {"half_bag", "one_bag", "self_loading"},
}

// ValidCategory 判断类目/子类目是否有效
func ValidCategory(category, subcategory string) bool {
	subs, ok := categorySubcategories[category]
	if !ok {
		return false
	}
	if subcategory == "" {
		return true
	}
	for _, s := range subs {
		if s == subcategory {
			return true
		}
	}
	return false
}

// Categories 返回类目对照表（只读副本）
func Categories() map[string][]string {
	out := make(map[string][]string, len(categorySubcategories))
	for k, v := range categorySubcategories {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// InventoryItem 商品（供应商目录条目）
type InventoryItem struct {
	ID          string     `json:"id" gorm:"primaryKey;size:32"`
	ItemCode    string     `json:"item_code" gorm:"size:32;not null;uniqueIndex"`
	VendorID    string     `json:"vendor_id" gorm:"size:32;not null;index"`
	Description string     `json:"description" gorm:"size:500;not null"`
	Category    string     `json:"category" gorm:"size:32;not null"`
	Subcategory string     `json:"subcategory" gorm:"size:32"`
	Unit        string     `json:"unit" gorm:"size:20;not null;default:bag"` // bag/ton/piece
	ImageURL    string     `json:"image_url" gorm:"size:512"`
	Active      bool       `json:"active" gorm:"not null;default:true"`
	CreatedBy   string     `json:"created_by" gorm:"size:32;not null"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at" gorm:"index"`

	Price    *Price              `json:"price,omitempty" gorm:"foreignKey:ItemCode;references:ItemCode"`
	Shipping *ShippingPriceTable `json:"shipping,omitempty" gorm:"foreignKey:ItemCode;references:ItemCode"`
}

func (InventoryItem) TableName() string {
	return "mkt_inventory_items"
}

// Price 商品价格，与商品一对一
type Price struct {
	ID         string    `json:"id" gorm:"primaryKey;size:32"`
	ItemCode   string    `json:"item_code" gorm:"size:32;not null;uniqueIndex"`
	UnitPrice  float64   `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	Margin     float64   `json:"margin" gorm:"type:decimal(12,2);default:0"`
	MarginPct  float64   `json:"margin_pct" gorm:"type:decimal(5,2);default:0"`
	CGST       float64   `json:"cgst" gorm:"type:decimal(5,2);default:0"`
	SGST       float64   `json:"sgst" gorm:"type:decimal(5,2);default:0"`
	IGST       float64   `json:"igst" gorm:"type:decimal(5,2);default:0"`
	FlatTax    float64   `json:"flat_tax" gorm:"type:decimal(5,2);default:0"`
	TotalPrice float64   `json:"total_price" gorm:"type:decimal(12,2);not null"` // 写入时由税率重算
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Price) TableName() string {
	return "mkt_prices"
}

// TaxPercent 汇总税率
func (p *Price) TaxPercent() float64 {
	return p.CGST + p.SGST + p.IGST + p.FlatTax
}

// ShippingPriceTable 运费表，与商品一对一。五个固定订单金额区间各对应一个固定运费
type ShippingPriceTable struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	ItemCode  string    `json:"item_code" gorm:"size:32;not null;uniqueIndex"`
	Band1Fee  float64   `json:"band1_fee" gorm:"type:decimal(10,2);not null"` // 0 - 50k
	Band2Fee  float64   `json:"band2_fee" gorm:"type:decimal(10,2);not null"` // 50k - 100k
	Band3Fee  float64   `json:"band3_fee" gorm:"type:decimal(10,2);not null"` // 100k - 150k
	Band4Fee  float64   `json:"band4_fee" gorm:"type:decimal(10,2);not null"` // 150k - 200k
	Band5Fee  float64   `json:"band5_fee" gorm:"type:decimal(10,2);not null"` // > 200k
	Active    bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ShippingPriceTable) TableName() string {
	return "mkt_shipping_price_tables"
}

// 运费区间上界，最后一档无上界
var shippingBandUpperBounds = [4]float64{50000, 100000, 150000, 200000}

// FeeFor 按订单金额选档，上界闭区间
func (t *ShippingPriceTable) FeeFor(orderValue float64) float64 {
	fees := [5]float64{t.Band1Fee, t.Band2Fee, t.Band3Fee, t.Band4Fee, t.Band5Fee}
	for i, ub := range shippingBandUpperBounds {
		if orderValue <= ub {
			return fees[i]
		}
	}
	return fees[4]
}
