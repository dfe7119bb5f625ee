package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bitfantasy/buildmart/internal/market/service"
	"github.com/bitfantasy/buildmart/internal/shared/mq"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// PaymentTask 延迟队列消息体
type PaymentTask struct {
	InvcNum string `json:"invc_num"`
	Succeed bool   `json:"succeed"`
}

// Scheduler 把支付完成任务投递到延迟队列，TTL 到期后由消费者处理
type Scheduler struct {
	mq *mq.RabbitMQ
}

func NewScheduler(rmq *mq.RabbitMQ) *Scheduler {
	return &Scheduler{mq: rmq}
}

func (s *Scheduler) Schedule(invcNum string, delay time.Duration) error {
	body, err := json.Marshal(PaymentTask{InvcNum: invcNum, Succeed: true})
	if err != nil {
		return err
	}
	return s.mq.PublishDelayed(body, delay)
}

// PaymentConsumer 消费支付完成队列，驱动支付终态与订单级联推进
type PaymentConsumer struct {
	mq      *mq.RabbitMQ
	payment *service.PaymentService
	logger  *zap.Logger
}

func NewPaymentConsumer(rmq *mq.RabbitMQ, payment *service.PaymentService, logger *zap.Logger) *PaymentConsumer {
	return &PaymentConsumer{mq: rmq, payment: payment, logger: logger}
}

// Start 启动消费协程，ctx 取消后退出
func (c *PaymentConsumer) Start(ctx context.Context) error {
	deliveries, err := c.mq.Consume(mq.PaymentCompleteQueue, "payment-consumer")
	if err != nil {
		return err
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("payment consumer panic", zap.Any("recover", r))
			}
		}()
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("payment consumer stopped")
				return
			case d, ok := <-deliveries:
				if !ok {
					c.logger.Warn("payment delivery channel closed")
					return
				}
				c.handleDelivery(ctx, d)
			}
		}
	}()
	return nil
}

// handleDelivery 处理单条消息。失败只重投一次：再次失败的消息丢弃，
// 客户重新发起支付时会补投完成消息
func (c *PaymentConsumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	var task PaymentTask
	if err := json.Unmarshal(d.Body, &task); err != nil {
		c.logger.Error("invalid payment task", zap.Error(err), zap.ByteString("body", d.Body))
		d.Nack(false, false) // 消息体坏了，重投也没用
		return
	}

	if err := c.payment.Complete(ctx, task.InvcNum, task.Succeed); err != nil {
		if d.Redelivered {
			c.logger.Error("payment completion failed after retry, dropping",
				zap.String("invc_num", task.InvcNum), zap.Error(err))
			d.Nack(false, false)
			return
		}
		c.logger.Error("payment completion failed, requeue once",
			zap.String("invc_num", task.InvcNum), zap.Error(err))
		d.Nack(false, true)
		return
	}

	c.logger.Info("payment completed", zap.String("invc_num", task.InvcNum))
	d.Ack(false)
}
