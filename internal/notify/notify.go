package notify

import (
	"context"
	"errors"
	"time"

	"github.com/timmy/catalogsync/internal/logger"
)

// Message is one event published on a topic.
type Message struct {
	Topic     string      `json:"topic"`
	Event     string      `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// NewMessage stamps a message with the current time in milliseconds.
func NewMessage(topic, event string, data interface{}) Message {
	return Message{
		Topic:     topic,
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Notifier publishes messages to observers. Delivery is best-effort.
type Notifier interface {
	Publish(ctx context.Context, msg Message) error
}

// Multi fans a message out to every notifier. A failing sink does not stop the
// others; their errors are joined.
type Multi []Notifier

func (m Multi) Publish(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Publish(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes each message to the context logger at debug level.
type LogNotifier struct{}

func (LogNotifier) Publish(ctx context.Context, msg Message) error {
	logger.With(logger.Fields{
		"topic": msg.Topic,
		"event": msg.Event,
	}).Debug(ctx, "Published %s", msg.Event)
	return nil
}
