package services

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/notekeep/apiserver/types"
	"github.com/sirupsen/logrus"
)

// Publisher sends raw messages to a named channel. *mq.MQ satisfies it.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// Events publishes domain events. Publishing is best effort: a failure is
// logged and never fails the operation that caused it. A nil *Events is a no-op.
type Events struct {
	publisher Publisher
	channel   string
	logger    logrus.FieldLogger
}

func NewEvents(publisher Publisher, channel string, logger logrus.FieldLogger) *Events {
	if publisher == nil {
		return nil
	}
	return &Events{publisher: publisher, channel: channel, logger: logger}
}

func (e *Events) Emit(ctx context.Context, kind string, userID, resourceID int64, payload any) {
	if e == nil {
		return
	}

	event := types.Event{
		Kind:       kind,
		UserID:     userID,
		ResourceID: resourceID,
		OccurredAt: time.Now().UTC(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			e.logger.WithError(err).WithField("kind", kind).Warn("failed to encode event payload")
			return
		}
		event.Payload = raw
	}

	data, err := json.Marshal(event)
	if err != nil {
		e.logger.WithError(err).WithField("kind", kind).Warn("failed to encode event")
		return
	}

	attrs := map[string]string{
		"kind":    kind,
		"user_id": strconv.FormatInt(userID, 10),
	}
	if _, err := e.publisher.Publish(ctx, e.channel, data, attrs); err != nil {
		e.logger.WithError(err).WithFields(logrus.Fields{
			"kind":    kind,
			"channel": e.channel,
		}).Warn("failed to publish event")
	}
}
