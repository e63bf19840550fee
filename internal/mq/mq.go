package mq

import (
	"context"
	"fmt"

	"github.com/notekeep/apiserver/config"
)

// Message is a broker-agnostic delivery.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. A non-nil error requeues it.
type Handler func(ctx context.Context, msg Message) error

// Backend is a message broker able to publish to and consume from named channels.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// MQ wraps a Backend.
type MQ struct {
	backend Backend
}

func New(backend Backend) *MQ {
	return &MQ{backend: backend}
}

// Open connects to the broker selected by cfg. It returns nil, nil when
// events are disabled.
func Open(ctx context.Context, cfg config.MQConfig) (*MQ, error) {
	var (
		backend Backend
		err     error
	)
	switch cfg.Backend {
	case "", config.MQNone:
		return nil, nil
	case config.MQRabbitMQ:
		backend, err = newRabbitMQBackend(cfg.RabbitMQ)
	case config.MQPubSub:
		backend, err = newPubSubBackend(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("%s mq: %w", cfg.Backend, err)
	}
	return New(backend), nil
}

func (m *MQ) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	return m.backend.Publish(ctx, channel, data, attrs)
}

// Subscribe blocks, feeding deliveries on channel to handler until ctx is done.
func (m *MQ) Subscribe(ctx context.Context, channel string, handler Handler) error {
	return m.backend.Subscribe(ctx, channel, handler)
}

func (m *MQ) Close() error {
	if m == nil {
		return nil
	}
	return m.backend.Close()
}
