package mq

import (
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// 支付延迟队列：消息按 TTL 过期后经死信交换机进入完成队列，由消费者处理
const (
	PaymentDelayQueue       = "payment_delay_queue"
	PaymentCompleteQueue    = "payment_complete_queue"
	PaymentCompleteExchange = "payment_complete_exchange"
)

type RabbitMQ struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &RabbitMQ{Conn: conn, Channel: ch}, nil
}

// SetupQueues 声明支付完成交换机、完成队列和延迟队列
func (r *RabbitMQ) SetupQueues() error {
	// 完成交换机与队列
	if err := r.Channel.ExchangeDeclare(
		PaymentCompleteExchange,
		"direct",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return err
	}

	if _, err := r.Channel.QueueDeclare(
		PaymentCompleteQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-queue-type": "classic",
		},
	); err != nil {
		return err
	}

	if err := r.Channel.QueueBind(
		PaymentCompleteQueue,
		"",
		PaymentCompleteExchange,
		false,
		nil,
	); err != nil {
		return err
	}

	// 延迟队列：不挂消费者，消息过期后死信到完成交换机
	if _, err := r.Channel.QueueDeclare(
		PaymentDelayQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-dead-letter-exchange": PaymentCompleteExchange,
		},
	); err != nil {
		return err
	}

	return nil
}

// PublishDelayed 投递延迟消息，delay 为每条消息的 TTL
func (r *RabbitMQ) PublishDelayed(body []byte, delay time.Duration) error {
	msg := amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		ContentType:  "application/json",
		Body:         body,
		Expiration:   strconv.FormatInt(delay.Milliseconds(), 10),
	}

	return r.Channel.Publish(
		"", // default exchange
		PaymentDelayQueue,
		false, // mandatory
		false, // immediate
		msg,
	)
}

// Consume 订阅完成队列，手动 ack
func (r *RabbitMQ) Consume(queue, consumerTag string) (<-chan amqp.Delivery, error) {
	return r.Channel.Consume(
		queue,
		consumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
}

func (r *RabbitMQ) Close() {
	if r.Channel != nil {
		r.Channel.Close()
	}
	if r.Conn != nil {
		r.Conn.Close()
	}
}
