package entity

import "gorm.io/gorm"

// AutoMigrate 自动迁移所有表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// 用户
		&User{},

		// 商品与定价
		&InventoryItem{},
		&Price{},
		&ShippingPriceTable{},
		&Promo{},

		// 订单
		&Order{},
		&OrderItem{},
		&OrderStatusEvent{},
		&OrderDelivery{},
		&OrderPayment{},
	)
}
