package service

import (
	"github.com/bitfantasy/buildmart/internal/config"
	"github.com/bitfantasy/buildmart/internal/market/repository"
	"github.com/bitfantasy/buildmart/internal/shared/sms"
	"github.com/bitfantasy/buildmart/internal/shared/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Services 聚合所有业务服务
type Services struct {
	Auth      *AuthService
	Inventory *InventoryService
	Order     *OrderService
	Payment   *PaymentService
}

func NewServices(repos *repository.Repositories, rdb *redis.Client, sender sms.Sender, st *storage.Client, cfg *config.Config, logger *zap.Logger) *Services {
	return &Services{
		Auth:      NewAuthService(repos.User, rdb, sender, cfg),
		Inventory: NewInventoryService(repos.Inventory, repos.Promo, st),
		Order:     NewOrderService(repos.Order, repos.Inventory, repos.Promo),
		Payment:   NewPaymentService(repos.Payment, repos.Order, cfg.Payment.CompletionDelay, logger),
	}
}
