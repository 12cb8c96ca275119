package events

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	bookingDomain "github.com/rentx-marketplace/service-rental/internal/domain/booking"
	"github.com/rentx-marketplace/service-rental/internal/platform/kafka"
)

// BookingEventHandler reacts to one booking lifecycle event.
type BookingEventHandler interface {
	HandleBookingEvent(ctx context.Context, eventType string, evt bookingDomain.LifecycleEvent) error
}

// BookingEventConsumer listens to booking events and dispatches notifications
// after the originating transaction has committed.
type BookingEventConsumer struct {
	consumer *kafka.Consumer
	handler  BookingEventHandler
	logger   *zap.Logger
}

// NewBookingEventConsumer creates a new BookingEventConsumer.
func NewBookingEventConsumer(
	brokers []string,
	groupID string,
	handler BookingEventHandler,
	logger *zap.Logger,
) *BookingEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, bookingDomain.TopicBookingEvents, logger)
	return &BookingEventConsumer{
		consumer: consumer,
		handler:  handler,
		logger:   logger,
	}
}

// Start begins consuming booking events. This blocks until the context is cancelled.
func (c *BookingEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *BookingEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *BookingEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from booking topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case bookingDomain.EventBookingCreated,
		bookingDomain.EventBookingConfirmed,
		bookingDomain.EventBookingStatusChanged,
		bookingDomain.EventBookingCancelled:
		return c.handleLifecycleEvent(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled booking event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *BookingEventConsumer) handleLifecycleEvent(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt bookingDomain.LifecycleEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse booking lifecycle event data",
			zap.String("type", cloudEvent.Type),
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}

	c.logger.Debug("processing booking event",
		zap.String("type", cloudEvent.Type),
		zap.String("booking_id", evt.BookingID.String()),
	)

	if err := c.handler.HandleBookingEvent(ctx, cloudEvent.Type, evt); err != nil {
		c.logger.Error("failed to handle booking event",
			zap.String("type", cloudEvent.Type),
			zap.String("booking_id", evt.BookingID.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}
