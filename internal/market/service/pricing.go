package service

import (
	"errors"
	"time"

	"github.com/bitfantasy/buildmart/internal/market/entity"
)

// ErrShippingTableNotFound 商品没有可用运费表
var ErrShippingTableNotFound = errors.New("该商品没有有效的运费表")

// ItemTotal 行项金额 = 数量 × 单价
func ItemTotal(unitPrice, qty float64) float64 {
	return qty * unitPrice
}

// TaxInclusivePrice 含税单价 = 单价 + 单价 × 税率 / 100
func TaxInclusivePrice(unitPrice, taxPercent float64) float64 {
	return unitPrice + unitPrice*taxPercent/100
}

// ShippingFee 按订单金额查运费，区间上界为闭区间，最后一档无上界
func ShippingFee(table *entity.ShippingPriceTable, orderValue float64) (float64, error) {
	if table == nil || !table.Active {
		return 0, ErrShippingTableNotFound
	}
	return table.FeeFor(orderValue), nil
}

// PromoDiscount 计算促销折扣。促销无效（停用、不在有效期、用尽、未达起订金额）返回0；
// 百分比取订单金额的百分比，固定额直接取值；结果受 maxDiscountAmount 封顶，
// 且永远不超过订单金额本身
func PromoDiscount(promo *entity.Promo, orderValue float64, now time.Time) float64 {
	if promo == nil || promo.State(now) != entity.PromoStateActive {
		return 0
	}
	if orderValue < promo.MinOrderValue {
		return 0
	}

	var discount float64
	switch promo.DiscountType {
	case entity.DiscountTypePercentage:
		discount = orderValue * promo.Discount / 100
	case entity.DiscountTypeFixed:
		discount = promo.Discount
	default:
		return 0
	}

	if promo.MaxDiscountAmount > 0 && discount > promo.MaxDiscountAmount {
		discount = promo.MaxDiscountAmount
	}
	if discount > orderValue {
		discount = orderValue
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}
