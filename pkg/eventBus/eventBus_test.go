package eventBus

import (
	"context"
	"testing"

	"github.com/Layr-Labs/ve-rewards/pkg/eventBus/eventBusTypes"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func Test_EventBus(t *testing.T) {
	eb := NewEventBus(zap.NewNop())

	consumer := &eventBusTypes.Consumer{
		Id:      "test",
		Context: context.Background(),
		Channel: make(chan *eventBusTypes.Event, 1),
	}
	eb.Subscribe(consumer)

	t.Run("Should deliver a published event", func(t *testing.T) {
		eb.Publish(&eventBusTypes.Event{Name: eventBusTypes.Event_EscrowUpdated, Data: "lock"})

		e := <-consumer.Channel
		assert.Equal(t, eventBusTypes.Event_EscrowUpdated, e.Name)
		assert.Equal(t, "lock", e.Data)
	})
	t.Run("Should not block when the consumer channel is full", func(t *testing.T) {
		eb.Publish(&eventBusTypes.Event{Name: eventBusTypes.Event_EscrowUpdated, Data: 1})
		eb.Publish(&eventBusTypes.Event{Name: eventBusTypes.Event_EscrowUpdated, Data: 2})

		e := <-consumer.Channel
		assert.Equal(t, 1, e.Data)
		assert.Equal(t, 0, len(consumer.Channel))
	})
	t.Run("Should hold batched events until flushed", func(t *testing.T) {
		batch := NewBatch(eb)
		batch.Add(&eventBusTypes.Event{Name: eventBusTypes.Event_DistributorUpdated, Data: "claim"})
		assert.Equal(t, 0, len(consumer.Channel))
		assert.Equal(t, 1, batch.Len())

		batch.Flush()
		e := <-consumer.Channel
		assert.Equal(t, eventBusTypes.Event_DistributorUpdated, e.Name)
		assert.Equal(t, 0, batch.Len())
	})
	t.Run("Should drop discarded events", func(t *testing.T) {
		batch := NewBatch(eb)
		batch.Add(&eventBusTypes.Event{Name: eventBusTypes.Event_DistributorUpdated, Data: "claim"})
		batch.Discard()
		batch.Flush()
		assert.Equal(t, 0, len(consumer.Channel))
	})

	t.Run("Should drop consumers whose context is done", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		gone := &eventBusTypes.Consumer{Id: "gone", Context: ctx, Channel: make(chan *eventBusTypes.Event, 1)}
		eb.Subscribe(gone)
		assert.Equal(t, 2, eb.consumers.Len())

		cancel()
		eb.Publish(&eventBusTypes.Event{Name: eventBusTypes.Event_EscrowUpdated, Data: 3})
		assert.Equal(t, 0, len(gone.Channel))
		assert.Equal(t, 1, eb.consumers.Len())

		<-consumer.Channel
	})

	eb.Unsubscribe(consumer)
	assert.Equal(t, 0, eb.consumers.Len())
}

func Test_ConsumerListOrder(t *testing.T) {
	cl := eventBusTypes.NewConsumerList()
	a := &eventBusTypes.Consumer{Id: "a"}
	b := &eventBusTypes.Consumer{Id: "b"}
	cl.Add(a)
	cl.Add(b)
	cl.Add(&eventBusTypes.Consumer{Id: "a", Channel: make(chan *eventBusTypes.Event)})

	all := cl.GetAll()
	assert.Equal(t, 2, len(all))
	assert.Equal(t, eventBusTypes.ConsumerId("a"), all[0].Id)
	assert.NotNil(t, all[0].Channel)
	assert.Equal(t, eventBusTypes.ConsumerId("b"), all[1].Id)
}
