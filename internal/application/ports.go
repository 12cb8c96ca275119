package application

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rentx-marketplace/service-rental/internal/platform/kafka"
)

const eventSource = "service-rental"

// Transactor runs fn as one unit of work. Repositories called with the ctx
// passed to fn take part in it.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher publishes CloudEvents to a topic.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, ce kafka.CloudEvent) error
}

// ReconciliationGuard keeps concurrent confirmations of one provider payment
// apart. It may expire; recorded payments are checked as well.
type ReconciliationGuard interface {
	// Acquire reports whether the caller is the first to claim key.
	Acquire(ctx context.Context, key string) (bool, error)
	// Release drops the claim so the payment can be retried.
	Release(ctx context.Context, key string) error
}

// publishEvent wraps data in a CloudEvent and publishes it. Failures are
// logged only: the write that triggered the event has already committed.
func publishEvent(ctx context.Context, publisher EventPublisher, logger *zap.Logger, topic, eventType string, subject uuid.UUID, data any) {
	cloudEvent, err := kafka.NewCloudEvent(eventSource, eventType, data)
	if err != nil {
		logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}
	cloudEvent.Subject = subject.String()

	if err := publisher.PublishEvent(ctx, topic, cloudEvent); err != nil {
		logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("event_type", eventType),
			zap.String("subject", cloudEvent.Subject),
			zap.Error(err),
		)
	}
}
