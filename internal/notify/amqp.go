package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const DefaultExchange = "notifications_fanout"

// Publisher is the subset of *amqp.Channel the sink needs.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSink forwards every event to a fanout exchange for other services.
type AMQPSink struct {
	pub      Publisher
	exchange string
	log      *zap.Logger
}

func NewAMQPSink(pub Publisher, exchange string, log *zap.Logger) *AMQPSink {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AMQPSink{pub: pub, exchange: exchange, log: log}
}

func (s *AMQPSink) Name() string { return "amqp" }

func (s *AMQPSink) Send(ctx context.Context, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", env.Type, err)
	}
	err = s.pub.PublishWithContext(ctx, s.exchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    env.At,
		Type:         env.Type,
		MessageId:    fmt.Sprintf("%s-%d", env.Type, env.Sequence),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s to %s: %w", env.Type, s.exchange, err)
	}
	s.log.Debug("event published", zap.String("exchange", s.exchange), zap.String("event", env.Type), zap.Int("size", len(body)))
	return nil
}

// DialAMQP connects to RabbitMQ and declares the durable fanout exchange. It retries a
// few times with a growing wait before giving up.
func DialAMQP(url, exchange string, log *zap.Logger) (*amqp.Connection, *amqp.Channel, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	const attempts = 5
	var err error
	for i := 0; i < attempts; i++ {
		var conn *amqp.Connection
		conn, err = amqp.Dial(url)
		if err == nil {
			var ch *amqp.Channel
			ch, err = conn.Channel()
			if err == nil {
				err = ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil)
				if err == nil {
					return conn, ch, nil
				}
				_ = ch.Close()
			}
			_ = conn.Close()
		}
		if i < attempts-1 {
			wait := time.Duration(i+1) * 2 * time.Second
			log.Warn("rabbitmq connection failed, retrying", zap.Duration("wait", wait), zap.Error(err))
			time.Sleep(wait)
		}
	}
	return nil, nil, fmt.Errorf("connect to rabbitmq after %d attempts: %w", attempts, err)
}
