package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/buildmart/internal/market/entity"
	"github.com/bitfantasy/buildmart/internal/market/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PaymentScheduler 延迟触发支付完成回调。生产实现走消息队列死信延迟投递
type PaymentScheduler interface {
	Schedule(invcNum string, delay time.Duration) error
}

// PaymentService 模拟支付：发起后延迟异步完成，成功则级联推进订单状态
type PaymentService struct {
	repo      *repository.PaymentRepository
	orderRepo *repository.OrderRepository
	scheduler PaymentScheduler
	delay     time.Duration
	logger    *zap.Logger
}

func NewPaymentService(repo *repository.PaymentRepository, orderRepo *repository.OrderRepository, delay time.Duration, logger *zap.Logger) *PaymentService {
	return &PaymentService{repo: repo, orderRepo: orderRepo, delay: delay, logger: logger}
}

// SetScheduler 注入延迟调度器。消费者依赖本服务，调度器在消息队列就绪后回填
func (s *PaymentService) SetScheduler(scheduler PaymentScheduler) {
	s.scheduler = scheduler
}

type InitiatePaymentRequest struct {
	LeadID string `json:"lead_id" binding:"required"`
	Method string `json:"method"`
}

// Initiate 发起支付。仅 vendor_accepted 状态的订单可支付；
// 处理中的支付重复发起时返回已有记录并补投完成消息
func (s *PaymentService) Initiate(ctx context.Context, customerID string, req InitiatePaymentRequest) (*entity.OrderPayment, error) {
	order, err := s.orderRepo.GetByLeadID(ctx, req.LeadID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, ErrForbidden
	}
	if order.Status != entity.OrderStatusVendorAccepted {
		return nil, entity.NewStatusTransitionError(order.Status, entity.NextOrderStatuses(order.Status))
	}

	existing, err := s.repo.GetByInvcNum(ctx, order.InvcNum)
	if err == nil {
		if existing.Status == entity.PaymentStatusCompleted {
			return existing, nil
		}
		if existing.Status == entity.PaymentStatusProcessing {
			// 上次的完成消息可能没投出去，补投一次。Complete 终态幂等，重复消息无害
			if err := s.schedule(existing.InvcNum); err != nil {
				return nil, err
			}
			return existing, nil
		}
		// 上次失败，重置后重新走一遍
		existing.Status = entity.PaymentStatusProcessing
		existing.Amount = order.TotalAmount
		existing.TransactionRef = uuid.New().String()[:32]
		existing.CompletedAt = nil
		if req.Method != "" {
			existing.Method = req.Method
		}
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("更新支付记录失败: %w", err)
		}
		if err := s.schedule(existing.InvcNum); err != nil {
			return nil, err
		}
		return existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("查询支付记录失败: %w", err)
	}

	method := req.Method
	if method == "" {
		method = "simulated"
	}
	payment := &entity.OrderPayment{
		ID:             uuid.New().String()[:32],
		InvcNum:        order.InvcNum,
		LeadID:         order.LeadID,
		Amount:         order.TotalAmount,
		Method:         method,
		Status:         entity.PaymentStatusProcessing,
		TransactionRef: uuid.New().String()[:32],
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("创建支付记录失败: %w", err)
	}
	if err := s.schedule(payment.InvcNum); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *PaymentService) schedule(invcNum string) error {
	if s.scheduler == nil {
		return fmt.Errorf("支付调度器未就绪")
	}
	if err := s.scheduler.Schedule(invcNum, s.delay); err != nil {
		return fmt.Errorf("投递支付完成消息失败: %w", err)
	}
	return nil
}

// Complete 支付完成回调。终态幂等；成功时级联推进订单
// vendor_accepted -> payment_done -> order_confirmed，两步各自落一条历史。
// 订单缺失或状态已被其他人改走时只记日志，不算错误
func (s *PaymentService) Complete(ctx context.Context, invcNum string, success bool) error {
	payment, err := s.repo.GetByInvcNum(ctx, invcNum)
	if err == gorm.ErrRecordNotFound {
		s.logger.Warn("payment completion for unknown invoice", zap.String("invc_num", invcNum))
		return nil
	}
	if err != nil {
		return fmt.Errorf("查询支付记录失败: %w", err)
	}
	if payment.Status != entity.PaymentStatusProcessing {
		return nil
	}

	now := time.Now()
	payment.CompletedAt = &now
	if success {
		payment.Status = entity.PaymentStatusCompleted
	} else {
		payment.Status = entity.PaymentStatusFailed
	}
	if err := s.repo.Update(ctx, payment); err != nil {
		return fmt.Errorf("更新支付记录失败: %w", err)
	}
	if !success {
		return nil
	}

	order, err := s.orderRepo.GetByInvcNum(ctx, invcNum)
	if err == gorm.ErrRecordNotFound {
		s.logger.Warn("paid invoice has no matching order", zap.String("invc_num", invcNum))
		return nil
	}
	if err != nil {
		return fmt.Errorf("查询订单失败: %w", err)
	}
	if order.Status != entity.OrderStatusVendorAccepted {
		s.logger.Warn("order moved before payment completed, skip cascade",
			zap.String("lead_id", order.LeadID), zap.String("status", order.Status))
		return nil
	}

	if err := s.orderRepo.UpdateStatusWithEvent(ctx, order, entity.OrderStatusPaymentDone,
		"system", fmt.Sprintf("支付完成，交易号 %s", payment.TransactionRef)); err != nil {
		return fmt.Errorf("订单状态推进失败: %w", err)
	}
	if err := s.orderRepo.UpdateStatusWithEvent(ctx, order, entity.OrderStatusConfirmed,
		"system", "支付完成后自动确认"); err != nil {
		return fmt.Errorf("订单状态推进失败: %w", err)
	}
	return nil
}

// GetStatus 查询支付状态，供客户轮询
func (s *PaymentService) GetStatus(ctx context.Context, invcNum, customerID string) (*entity.OrderPayment, error) {
	payment, err := s.repo.GetByInvcNum(ctx, invcNum)
	if err != nil {
		return nil, err
	}
	order, err := s.orderRepo.GetByInvcNum(ctx, invcNum)
	if err != nil {
		return nil, err
	}
	if customerID != "" && order.CustomerID != customerID {
		return nil, ErrForbidden
	}
	return payment, nil
}
