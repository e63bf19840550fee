package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/notekeep/apiserver/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

// rabbitMQBackend publishes to a queue named after the channel through the
// default exchange. amqp channels are not safe for concurrent publishing,
// hence the mutex.
type rabbitMQBackend struct {
	mu              sync.Mutex
	conn            *amqp.Connection
	channel         *amqp.Channel
	queueDurable    bool
	queueAutoDelete bool
	declared        map[string]bool
}

func newRabbitMQBackend(cfg config.RabbitMQConfig) (*rabbitMQBackend, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if cfg.PrefetchCount > 0 {
		if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, err
		}
	}

	return &rabbitMQBackend{
		conn:            conn,
		channel:         ch,
		queueDurable:    cfg.QueueDurable,
		queueAutoDelete: cfg.QueueAutoDelete,
		declared:        make(map[string]bool),
	}, nil
}

func (r *rabbitMQBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("rabbitmq channel is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.declareQueue(channel); err != nil {
		return "", err
	}

	messageID := uuid.NewString()
	err := r.channel.PublishWithContext(ctx, "", channel, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: deliveryMode(r.queueDurable),
		MessageId:    messageID,
		Headers:      attributesToHeaders(attrs),
		Body:         data,
	})
	if err != nil {
		return "", err
	}
	return messageID, nil
}

func (r *rabbitMQBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("rabbitmq channel is required")
	}

	r.mu.Lock()
	err := r.declareQueue(channel)
	consumerTag := "notes-" + uuid.NewString()
	var deliveries <-chan amqp.Delivery
	if err == nil {
		deliveries, err = r.channel.Consume(channel, consumerTag, false, false, false, false, nil)
	}
	r.mu.Unlock()
	if err != nil {
		return err
	}
	defer func() {
		_ = r.channel.Cancel(consumerTag, false)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			msg := Message{
				ID:         delivery.MessageId,
				Data:       delivery.Body,
				Attributes: headersToAttributes(delivery.Headers),
			}
			if err := handler(ctx, msg); err != nil {
				_ = delivery.Nack(false, true)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

func (r *rabbitMQBackend) Close() error {
	_ = r.channel.Close()
	return r.conn.Close()
}

// declareQueue must be called with r.mu held.
func (r *rabbitMQBackend) declareQueue(name string) error {
	if r.declared[name] {
		return nil
	}
	if _, err := r.channel.QueueDeclare(name, r.queueDurable, r.queueAutoDelete, false, false, nil); err != nil {
		return err
	}
	r.declared[name] = true
	return nil
}

func deliveryMode(durable bool) uint8 {
	if durable {
		return amqp.Persistent
	}
	return amqp.Transient
}

func attributesToHeaders(attrs map[string]string) amqp.Table {
	if len(attrs) == 0 {
		return nil
	}
	headers := make(amqp.Table, len(attrs))
	for k, v := range attrs {
		headers[k] = v
	}
	return headers
}

func headersToAttributes(headers amqp.Table) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(headers))
	for k, v := range headers {
		switch typed := v.(type) {
		case string:
			attrs[k] = typed
		case []byte:
			attrs[k] = string(typed)
		default:
			attrs[k] = fmt.Sprint(v)
		}
	}
	return attrs
}
