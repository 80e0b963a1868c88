package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const dialTimeout = 10 * time.Second

// Publisher publishes JSON messages to a topic exchange.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
	Close()
}

type Producer struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	logger  *slog.Logger
	mu      sync.Mutex
}

// NoopProducer stands in when no broker is configured.
type NoopProducer struct {
	Logger *slog.Logger
}

func (p *NoopProducer) Publish(_ context.Context, exchange, routingKey string, _ interface{}) error {
	if p.Logger != nil {
		p.Logger.Debug("broker disabled, publish skipped", "exchange", exchange, "routing_key", routingKey)
	}
	return nil
}

func (p *NoopProducer) Close() {}

// SanitizeURL strips quotes and stray prefixes that deployment platforms add
// around connection strings and checks the scheme.
func SanitizeURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	if idx := strings.Index(strings.ToLower(clean), "amqp"); idx > 0 {
		clean = clean[idx:]
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("broker url scheme must be amqp:// or amqps://")
	}
	return clean, nil
}

func NewProducer(amqpURL string, logger *slog.Logger) (*Producer, error) {
	cleanURL, err := SanitizeURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(dialTimeout)})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &Producer{conn: conn, channel: ch, logger: logger}, nil
}

// Publish declares the durable topic exchange and publishes body as JSON.
// A failed publish reopens the channel and retries once.
func (p *Producer) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.publish(ctx, exchange, routingKey, payload)
	if err == nil {
		return nil
	}

	p.logger.Warn("publish failed, reopening channel",
		"exchange", exchange,
		"routing_key", routingKey,
		"error", err)

	ch, chErr := p.conn.Channel()
	if chErr != nil {
		return chErr
	}
	p.channel = ch
	return p.publish(ctx, exchange, routingKey, payload)
}

func (p *Producer) publish(ctx context.Context, exchange, routingKey string, payload []byte) error {
	if err := p.channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	return p.channel.PublishWithContext(ctx, exchange, routingKey, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Body:         payload,
	})
}

func (p *Producer) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
