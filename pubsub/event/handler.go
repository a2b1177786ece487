package event

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"

	"trips/entity"
	"trips/pubsub/bus"
)

type NotificationService interface {
	Notify(ctx context.Context, userID, message string, severity entity.Severity) error
}

type CommandBus interface {
	Send(ctx context.Context, command any) error
}

type Handler struct {
	notifications NotificationService
	commandBus    CommandBus
}

func NewHandler(notifications NotificationService, commandBus CommandBus) Handler {
	if notifications == nil {
		panic("missing notifications")
	}
	if commandBus == nil {
		panic("missing commandBus")
	}

	return Handler{notifications: notifications, commandBus: commandBus}
}

func (h Handler) Handlers() []cqrs.EventHandler {
	return []cqrs.EventHandler{
		h.NotifyBookingCreatedHandler(),
		h.NotifyBookingConfirmedHandler(),
		h.NotifyPaymentFailedHandler(),
		h.NotifyBookingCancelledHandler(),
		h.RequestRefundHandler(),
	}
}

func NewProcessorConfig(rdb *redis.Client, watermillLogger watermill.LoggerAdapter) cqrs.EventProcessorConfig {
	return cqrs.EventProcessorConfig{
		SubscriberConstructor: func(params cqrs.EventProcessorSubscriberConstructorParams) (message.Subscriber, error) {
			return redisstream.NewSubscriber(redisstream.SubscriberConfig{
				Client:        rdb,
				ConsumerGroup: "svc-trips." + params.HandlerName,
			}, watermillLogger)
		},
		GenerateSubscribeTopic: func(params cqrs.EventProcessorGenerateSubscribeTopicParams) (string, error) {
			return bus.EventTopic(params.EventName), nil
		},
		Marshaler: bus.Marshaler,
		Logger:    watermillLogger,
	}
}

func (h Handler) notify(ctx context.Context, userID, message string, severity entity.Severity) error {
	if err := h.notifications.Notify(ctx, userID, message, severity); err != nil {
		return fmt.Errorf("could not notify user %s: %w", userID, err)
	}
	return nil
}
