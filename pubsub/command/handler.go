package command

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"

	"trips/entity"
	"trips/pubsub/bus"
)

type PaymentService interface {
	Refund(ctx context.Context, request entity.RefundRequest) error
}

type EventBus interface {
	Publish(ctx context.Context, event any) error
}

type Handler struct {
	eventBus       EventBus
	paymentService PaymentService
}

func NewHandler(eventBus EventBus, paymentService PaymentService) Handler {
	if eventBus == nil {
		panic("missing eventBus")
	}
	if paymentService == nil {
		panic("missing paymentService")
	}

	return Handler{eventBus: eventBus, paymentService: paymentService}
}

func (h Handler) Handlers() []cqrs.CommandHandler {
	return []cqrs.CommandHandler{
		h.RefundPaymentHandler(),
	}
}

func NewProcessorConfig(rdb *redis.Client, watermillLogger watermill.LoggerAdapter) cqrs.CommandProcessorConfig {
	return cqrs.CommandProcessorConfig{
		SubscriberConstructor: func(params cqrs.CommandProcessorSubscriberConstructorParams) (message.Subscriber, error) {
			return redisstream.NewSubscriber(redisstream.SubscriberConfig{
				Client:        rdb,
				ConsumerGroup: "svc-trips.commands." + params.HandlerName,
			}, watermillLogger)
		},
		GenerateSubscribeTopic: func(params cqrs.CommandProcessorGenerateSubscribeTopicParams) (string, error) {
			return bus.CommandTopic(params.CommandName), nil
		},
		Marshaler: bus.Marshaler,
		Logger:    watermillLogger,
	}
}
