package entity

import (
	"time"
)

// 折扣类型
const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

// 促销派生状态，按当前时间与使用量计算，不落库
const (
	PromoStateInactive  = "inactive"
	PromoStateUpcoming  = "upcoming"
	PromoStateExpired   = "expired"
	PromoStateExhausted = "exhausted"
	PromoStateActive    = "active"
)

// Promo 促销活动，归属单个商品
type Promo struct {
	ID                string     `json:"id" gorm:"primaryKey;size:32"`
	PromoCode         string     `json:"promo_code" gorm:"size:32;not null;uniqueIndex"`
	ItemCode          string     `json:"item_code" gorm:"size:32;not null;index"`
	Discount          float64    `json:"discount" gorm:"type:decimal(12,2);not null"` // percentage: 0-100, fixed: 金额
	DiscountType      string     `json:"discount_type" gorm:"size:16;not null;default:percentage"`
	StartDate         time.Time  `json:"start_date" gorm:"not null"`
	EndDate           time.Time  `json:"end_date" gorm:"not null"`
	MinOrderValue     float64    `json:"min_order_value" gorm:"type:decimal(12,2);default:0"`
	MaxDiscountAmount float64    `json:"max_discount_amount" gorm:"type:decimal(12,2);default:0"` // 0 表示不封顶
	UsageLimit        int        `json:"usage_limit" gorm:"default:0"`                             // 0 表示不限次
	UsedCount         int        `json:"used_count" gorm:"default:0"`
	Active            bool       `json:"active" gorm:"not null;default:true"`
	CreatedBy         string     `json:"created_by" gorm:"size:32;not null"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	DeletedAt         *time.Time `json:"deleted_at" gorm:"index"`
}

func (Promo) TableName() string {
	return "mkt_promos"
}

// State 计算促销派生状态。[StartDate, EndDate] 为闭区间
func (p *Promo) State(now time.Time) string {
	if !p.Active {
		return PromoStateInactive
	}
	if now.Before(p.StartDate) {
		return PromoStateUpcoming
	}
	if now.After(p.EndDate) {
		return PromoStateExpired
	}
	if p.UsageLimit > 0 && p.UsedCount >= p.UsageLimit {
		return PromoStateExhausted
	}
	return PromoStateActive
}
