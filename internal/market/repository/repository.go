package repository

import "gorm.io/gorm"

// Repositories 仓库集合
type Repositories struct {
	User      *UserRepository
	Inventory *InventoryRepository
	Promo     *PromoRepository
	Order     *OrderRepository
	Payment   *PaymentRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:      NewUserRepository(db),
		Inventory: NewInventoryRepository(db),
		Promo:     NewPromoRepository(db),
		Order:     NewOrderRepository(db),
		Payment:   NewPaymentRepository(db),
	}
}
