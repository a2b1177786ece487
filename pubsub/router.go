package pubsub

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"

	"trips/entity"
	"trips/pubsub/bus"
	"trips/pubsub/command"
	"trips/pubsub/event"
	"trips/pubsub/outbox"
)

type DataLake interface {
	StoreEvent(ctx context.Context, dataLakeEvent entity.DataLakeEvent) error
}

func NewWatermillRouter(
	postgresSubscriber message.Subscriber,
	redisPublisher message.Publisher,
	redisSubscriber message.Subscriber,
	eventProcessorConfig cqrs.EventProcessorConfig,
	eventHandler event.Handler,
	commandProcessorConfig cqrs.CommandProcessorConfig,
	commandHandler command.Handler,
	dataLake DataLake,
	watermillLogger watermill.LoggerAdapter,
) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, watermillLogger)
	if err != nil {
		return nil, fmt.Errorf("could not create router: %w", err)
	}

	if err := useMiddlewares(router, redisPublisher, watermillLogger); err != nil {
		return nil, err
	}

	outbox.AddForwarderHandler(postgresSubscriber, redisPublisher, router, watermillLogger)

	eventProcessor, err := cqrs.NewEventProcessorWithConfig(router, eventProcessorConfig)
	if err != nil {
		return nil, fmt.Errorf("could not create event processor: %w", err)
	}

	if err := eventProcessor.AddHandlers(eventHandler.Handlers()...); err != nil {
		return nil, fmt.Errorf("could not add handlers to event processor: %w", err)
	}

	commandProcessor, err := cqrs.NewCommandProcessorWithConfig(router, commandProcessorConfig)
	if err != nil {
		return nil, fmt.Errorf("could not create command processor: %w", err)
	}

	if err := commandProcessor.AddHandlers(commandHandler.Handlers()...); err != nil {
		return nil, fmt.Errorf("could not add handlers to command processor: %w", err)
	}

	router.AddNoPublisherHandler(
		"events_splitter",
		bus.EventsTopic,
		redisSubscriber,
		func(msg *message.Message) error {
			eventName := eventProcessorConfig.Marshaler.NameFromMessage(msg)
			if eventName == "" {
				return fmt.Errorf("could not get event name from message")
			}

			return redisPublisher.Publish(bus.EventTopic(eventName), msg)
		},
	)

	router.AddNoPublisherHandler(
		"store_to_data_lake",
		bus.EventsTopic,
		redisSubscriber,
		func(msg *message.Message) error {
			dataLakeEvent, err := ToDataLakeEvent(eventProcessorConfig.Marshaler, msg)
			if err != nil {
				return err
			}

			return dataLake.StoreEvent(msg.Context(), dataLakeEvent)
		},
	)

	return router, nil
}

// ToDataLakeEvent keeps the payload as is, only the header is decoded.
func ToDataLakeEvent(marshaler cqrs.CommandEventMarshaler, msg *message.Message) (entity.DataLakeEvent, error) {
	eventName := marshaler.NameFromMessage(msg)
	if eventName == "" {
		return entity.DataLakeEvent{}, fmt.Errorf("could not get event name from message %s", msg.UUID)
	}

	type Event struct {
		Header entity.EventHeader `json:"header"`
	}

	var e Event
	if err := marshaler.Unmarshal(msg, &e); err != nil {
		return entity.DataLakeEvent{}, fmt.Errorf("could not unmarshal event: %w", err)
	}
	if e.Header.ID == "" {
		return entity.DataLakeEvent{}, fmt.Errorf("event %s from message %s has no id", eventName, msg.UUID)
	}

	return entity.DataLakeEvent{
		ID:          e.Header.ID,
		PublishedAt: e.Header.PublishedAt,
		Name:        eventName,
		Payload:     msg.Payload,
	}, nil
}
