package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/uma-arai/reservasabores/internal/common/utils"
	"github.com/uma-arai/reservasabores/internal/model"
)

// DefaultExchange は予約イベントを発行するtopic exchangeです
const DefaultExchange = "reservation_topic"

// Publisher は予約イベントを外部に通知します
type Publisher interface {
	Publish(ctx context.Context, event model.ReservationEvent) error
	Close() error
}

// NoopPublisher はメッセージブローカーが設定されていない場合のPublisherです
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, model.ReservationEvent) error { return nil }
func (NoopPublisher) Close() error                                        { return nil }

// channel は*amqp.Channelのうち発行に使うメソッドです
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitPublisher はRabbitMQのtopic exchangeにイベントを発行します
type RabbitPublisher struct {
	exchange string
	conn     *amqp.Connection
	ch       channel
	mu       sync.Mutex
	closed   bool
}

// NewRabbitPublisher はRabbitMQに接続し、exchangeを宣言します
// 接続に失敗した場合は間隔を広げながらmaxRetries回まで再試行します
func NewRabbitPublisher(ctx context.Context, url, exchange string, maxRetries int) (*RabbitPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if maxRetries < 1 {
		maxRetries = 1
	}

	retryDelay := 1 * time.Second
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		conn, err := amqp.Dial(url)
		if err == nil {
			ch, err := conn.Channel()
			if err != nil {
				_ = conn.Close()
				return nil, fmt.Errorf("failed to open channel: %w", err)
			}
			p, err := newRabbitPublisher(ch, exchange)
			if err != nil {
				_ = conn.Close()
				return nil, err
			}
			p.conn = conn
			log.Printf("Connected to RabbitMQ (attempt %d/%d), exchange=%s", attempt, maxRetries, exchange)
			return p, nil
		}

		lastErr = err
		log.Printf("RabbitMQ connection attempt %d/%d failed: %v", attempt, maxRetries, err)
		if attempt == maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
			retryDelay = time.Duration(float64(retryDelay) * 1.5)
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}
		}
	}

	return nil, fmt.Errorf("failed to connect to rabbitmq after %d attempts: %w", maxRetries, lastErr)
}

func newRabbitPublisher(ch channel, exchange string) (*RabbitPublisher, error) {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return &RabbitPublisher{exchange: exchange, ch: ch}, nil
}

// Publish はイベントをJSONとして永続メッセージで発行します
func (p *RabbitPublisher) Publish(ctx context.Context, event model.ReservationEvent) (err error) {
	ctx, done := utils.StartSubsegment(ctx, "RabbitPublisher.Publish")
	defer func() { done(err) }()

	msg, err := newPublishing(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("publisher is closed")
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err = p.ch.PublishWithContext(publishCtx, p.exchange, event.RoutingKey(), false, false, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.RoutingKey(), err)
	}
	return nil
}

func newPublishing(event model.ReservationEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.CreatedAt,
		MessageId:    event.ReservationID + ":" + string(event.Type),
	}, nil
}

// Close はチャネルと接続を閉じます
func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	var err error
	if p.ch != nil {
		err = p.ch.Close()
	}
	if p.conn != nil {
		if cErr := p.conn.Close(); cErr != nil && err == nil {
			err = cErr
		}
	}
	return err
}
