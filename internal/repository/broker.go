package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/AsfandAhmad/Study-ChatBot/internal/domain"
)

const subscriberBuffer = 64

// Filter selects the change events a subscriber receives. An empty ThreadID
// matches every thread of the owner.
type Filter struct {
	OwnerID  string
	ThreadID string
}

// Match reports whether ev passes the filter.
func (f Filter) Match(ev domain.ChangeEvent) bool {
	if ev.OwnerID != f.OwnerID {
		return false
	}
	return f.ThreadID == "" || ev.ThreadID == f.ThreadID
}

// Broker fans change events out to subscribers. Delivery is best effort.
type Broker interface {
	Publish(ctx context.Context, ev domain.ChangeEvent) error
	// Subscribe returns a channel of matching events and a cancel func that
	// closes it. The subscription also ends when ctx is done.
	Subscribe(ctx context.Context, f Filter) (<-chan domain.ChangeEvent, func(), error)
	Close() error
}

type subscriber struct {
	id     string
	filter Filter
	ch     chan domain.ChangeEvent
}

// MemoryBroker is an in-process Broker. A subscriber whose buffer is full
// misses the event; publishers never block.
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[string]*subscriber
	closed bool
	onDrop func()
}

// NewMemoryBroker creates a broker. onDrop, if set, is called for every
// event dropped on a slow subscriber.
func NewMemoryBroker(onDrop func()) *MemoryBroker {
	return &MemoryBroker{
		subs:   make(map[string]*subscriber),
		onDrop: onDrop,
	}
}

// Publish delivers ev to every matching subscriber.
func (b *MemoryBroker) Publish(_ context.Context, ev domain.ChangeEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if !s.filter.Match(ev) {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			if b.onDrop != nil {
				b.onDrop()
			}
		}
	}
	return nil
}

// Subscribe registers a subscriber.
func (b *MemoryBroker) Subscribe(ctx context.Context, f Filter) (<-chan domain.ChangeEvent, func(), error) {
	s := &subscriber{
		id:     uuid.NewString(),
		filter: f,
		ch:     make(chan domain.ChangeEvent, subscriberBuffer),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(s.ch)
		return s.ch, func() {}, nil
	}
	b.subs[s.id] = s
	b.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			b.unregister(s.id)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return s.ch, cancel, nil
}

func (b *MemoryBroker) unregister(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(s.ch)
	}
}

// SubscriberCount returns the number of active subscriptions.
func (b *MemoryBroker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close ends every subscription.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, s := range b.subs {
		delete(b.subs, id)
		close(s.ch)
	}
	return nil
}
