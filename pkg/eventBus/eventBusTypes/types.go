// Package eventBusTypes holds the event and consumer types shared by publishers and subscribers.
package eventBusTypes

import (
	"context"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type EventName string

func (en *EventName) String() string {
	return string(*en)
}

var (
	// Event_EscrowUpdated carries the *lockEscrow.EscrowEvent of a committed escrow call.
	Event_EscrowUpdated EventName = "escrow_updated"
	// Event_DistributorUpdated carries the *rewardDistributor.DistributorEvent of a committed distributor call.
	Event_DistributorUpdated EventName = "distributor_updated"
)

type Event struct {
	Name EventName
	Data any
}

type ConsumerId string

// Consumer receives events on Channel until Context is done.
type Consumer struct {
	Id      ConsumerId
	Context context.Context
	Channel chan *Event
}

// Done reports whether the consumer's context has been cancelled.
func (c *Consumer) Done() bool {
	if c.Context == nil {
		return false
	}
	return c.Context.Err() != nil
}

// ConsumerList keeps consumers in subscription order. Subscribing an id twice replaces the
// earlier consumer in place.
type ConsumerList struct {
	mu        sync.Mutex
	consumers *orderedmap.OrderedMap[ConsumerId, *Consumer]
}

func NewConsumerList() *ConsumerList {
	return &ConsumerList{
		consumers: orderedmap.New[ConsumerId, *Consumer](),
	}
}

func (cl *ConsumerList) Add(consumer *Consumer) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.consumers.Set(consumer.Id, consumer)
}

func (cl *ConsumerList) Remove(consumer *Consumer) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.consumers.Delete(consumer.Id)
}

// GetAll snapshots the consumers so publishing does not hold the lock.
func (cl *ConsumerList) GetAll() []*Consumer {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	out := make([]*Consumer, 0, cl.consumers.Len())
	for pair := cl.consumers.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

func (cl *ConsumerList) Len() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.consumers.Len()
}

type IEventBus interface {
	Subscribe(consumer *Consumer)
	Unsubscribe(consumer *Consumer)
	Publish(event *Event)
}
