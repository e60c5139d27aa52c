// Package eventBus fans committed escrow and distributor events out to in-process subscribers.
package eventBus

import (
	"github.com/Layr-Labs/ve-rewards/pkg/eventBus/eventBusTypes"
	"go.uber.org/zap"
)

type EventBus struct {
	consumers *eventBusTypes.ConsumerList
	logger    *zap.Logger
}

func NewEventBus(l *zap.Logger) *EventBus {
	return &EventBus{
		consumers: eventBusTypes.NewConsumerList(),
		logger:    l,
	}
}

func (eb *EventBus) Subscribe(consumer *eventBusTypes.Consumer) {
	eb.consumers.Add(consumer)
	eb.logger.Sugar().Debugw("Subscribed consumer", zap.String("consumerId", string(consumer.Id)))
}

func (eb *EventBus) Unsubscribe(consumer *eventBusTypes.Consumer) {
	eb.consumers.Remove(consumer)
	eb.logger.Sugar().Infow("Unsubscribed consumer", zap.String("consumerId", string(consumer.Id)))
}

// Publish never blocks: a consumer with a full or nil channel misses the event, and a
// consumer whose context is done is dropped from the bus.
func (eb *EventBus) Publish(event *eventBusTypes.Event) {
	for _, consumer := range eb.consumers.GetAll() {
		if consumer.Done() {
			eb.Unsubscribe(consumer)
			continue
		}
		if consumer.Channel == nil {
			continue
		}
		select {
		case consumer.Channel <- event:
		default:
			eb.logger.Sugar().Debugw("Dropped event for busy consumer",
				zap.String("consumerId", string(consumer.Id)),
				zap.String("eventName", event.Name.String()),
			)
		}
	}
}

// Batch holds events produced inside a database transaction until that transaction commits.
// Nested calls that share a transaction share the batch of the outermost call.
type Batch struct {
	bus    eventBusTypes.IEventBus
	events []*eventBusTypes.Event
}

func NewBatch(bus eventBusTypes.IEventBus) *Batch {
	return &Batch{bus: bus, events: make([]*eventBusTypes.Event, 0)}
}

func (b *Batch) Add(event *eventBusTypes.Event) {
	b.events = append(b.events, event)
}

// Flush publishes every held event in the order it was added and empties the batch.
func (b *Batch) Flush() {
	events := b.events
	b.events = make([]*eventBusTypes.Event, 0)
	if b.bus == nil {
		return
	}
	for _, e := range events {
		b.bus.Publish(e)
	}
}

// Discard drops held events, used when the transaction rolled back.
func (b *Batch) Discard() {
	b.events = make([]*eventBusTypes.Event, 0)
}

func (b *Batch) Len() int {
	return len(b.events)
}
