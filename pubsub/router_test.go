package pubsub_test

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trips/entity"
	"trips/pubsub"
	"trips/pubsub/bus"
)

func TestToDataLakeEvent(t *testing.T) {
	event := entity.BookingCancelled{
		Header:    entity.NewEventHeader(),
		BookingID: "b1",
		UserID:    "u1",
	}

	msg, err := bus.Marshaler.Marshal(event)
	require.NoError(t, err)

	dataLakeEvent, err := pubsub.ToDataLakeEvent(bus.Marshaler, msg)
	require.NoError(t, err)

	assert.Equal(t, event.Header.ID, dataLakeEvent.ID)
	assert.Equal(t, "BookingCancelled", dataLakeEvent.Name)
	assert.True(t, event.Header.PublishedAt.Equal(dataLakeEvent.PublishedAt))
	assert.JSONEq(t, string(msg.Payload), string(dataLakeEvent.Payload))
}

func TestToDataLakeEvent_without_name(t *testing.T) {
	msg := message.NewMessage(watermill.NewUUID(), []byte(`{"header":{"id":"1"}}`))

	_, err := pubsub.ToDataLakeEvent(bus.Marshaler, msg)
	assert.Error(t, err)
}

func TestEventTopics(t *testing.T) {
	assert.Equal(t, "events.BookingCreated", bus.EventTopic("BookingCreated"))
	assert.Equal(t, "commands.RefundPayment", bus.CommandTopic("RefundPayment"))
}
