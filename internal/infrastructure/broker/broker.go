package broker

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gdugdh24/matchcore/internal/domain"
)

// Handler receives every delivery published on any node.
type Handler func(d domain.Delivery)

// Broker fans deliveries out across server nodes. Each node subscribes once and
// hands deliveries to its local hub.
type Broker interface {
	Publish(ctx context.Context, d domain.Delivery) error
	// Subscribe blocks, invoking h for each delivery, until ctx is done. ready,
	// when non-nil, is called once the subscription receives deliveries.
	Subscribe(ctx context.Context, h Handler, ready func()) error
	Close() error
}

func signal(ready func()) {
	if ready != nil {
		ready()
	}
}

func encode(d domain.Delivery) ([]byte, error) {
	return json.Marshal(d)
}

func decode(data []byte) (domain.Delivery, error) {
	var d domain.Delivery
	err := json.Unmarshal(data, &d)
	return d, err
}

// Local delivers in process. Used for single-node deployments and tests.
type Local struct {
	mu       sync.RWMutex
	handlers map[int]Handler
	next     int
}

func NewLocal() *Local {
	return &Local{handlers: make(map[int]Handler)}
}

func (b *Local) Publish(_ context.Context, d domain.Delivery) error {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(d)
	}
	return nil
}

func (b *Local) Subscribe(ctx context.Context, h Handler, ready func()) error {
	b.mu.Lock()
	id := b.next
	b.next++
	b.handlers[id] = h
	b.mu.Unlock()
	signal(ready)

	<-ctx.Done()

	b.mu.Lock()
	delete(b.handlers, id)
	b.mu.Unlock()
	return nil
}

func (b *Local) Close() error { return nil }
