package rabbitmq

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"orderflow/config"
)

type RabbitMQ struct {
	Conn    *amqp.Connection
	Channel *amqp.Channel
	Cfg     *config.Config
}

func NewRabbitMQ(cfg *config.Config) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &RabbitMQ{
		Conn:    conn,
		Channel: ch,
		Cfg:     cfg,
	}, nil
}

// SetupTopology declares the order exchange, the audit queue bound to it and
// the dead-letter queue malformed messages are routed to.
func (r *RabbitMQ) SetupTopology() error {
	if err := r.Channel.ExchangeDeclare(
		r.Cfg.DeadLetterQueue+"_exchange",
		"direct",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return err
	}

	_, err := r.Channel.QueueDeclare(
		r.Cfg.DeadLetterQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return err
	}

	// The DLX is a direct exchange, so the binding key must exactly match
	// the routing key rejected deliveries are republished with.
	if err := r.Channel.QueueBind(
		r.Cfg.DeadLetterQueue,
		r.Cfg.DeadLetterQueue,
		r.Cfg.DeadLetterQueue+"_exchange",
		false,
		nil,
	); err != nil {
		return err
	}

	// Fanout so additional consumers can bind their own queues later.
	if err := r.Channel.ExchangeDeclare(
		r.Cfg.OrderExchange,
		"fanout",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return err
	}

	_, err = r.Channel.QueueDeclare(
		r.Cfg.AuditQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		auditQueueArgs(r.Cfg),
	)
	if err != nil {
		return err
	}

	return r.Channel.QueueBind(
		r.Cfg.AuditQueue,
		"",
		r.Cfg.OrderExchange,
		false,
		nil,
	)
}

// auditQueueArgs routes rejected deliveries to the dead-letter exchange.
// The routing key here and the DLQ binding key in SetupTopology are the same
// value; a drift between them makes dead letters unroutable.
func auditQueueArgs(cfg *config.Config) amqp.Table {
	return amqp.Table{
		"x-dead-letter-exchange":    cfg.DeadLetterQueue + "_exchange",
		"x-dead-letter-routing-key": cfg.DeadLetterQueue,
	}
}

// Publish sends a persistent JSON payload to the order exchange.
func (r *RabbitMQ) Publish(ctx context.Context, payload []byte) error {
	msg := amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		ContentType:  "application/json",
		Body:         payload,
	}

	return r.Channel.PublishWithContext(
		ctx,
		r.Cfg.OrderExchange,
		"",
		false, // mandatory
		false, // immediate
		msg,
	)
}

// Consume returns a manually-acked delivery channel for the given queue.
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
