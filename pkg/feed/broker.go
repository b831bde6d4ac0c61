package feed

import (
	"context"
	"sync"
)

// EventType names a feed mutation.
type EventType string

const (
	EventMemeCreated   EventType = "meme.created"
	EventMemeDeleted   EventType = "meme.deleted"
	EventUpvoteAdded   EventType = "upvote.added"
	EventUpvoteRemoved EventType = "upvote.removed"
)

// Event announces a feed mutation. At is in Unix milliseconds.
type Event struct {
	Type    EventType `json:"type"`
	MemeID  string    `json:"memeId"`
	ActorID string    `json:"actorId,omitempty"`
	At      int64     `json:"at"`
}

// Broker fans feed events out to subscribers.
type Broker interface {
	// Publish delivers e to current subscribers. Slow subscribers may miss
	// events; the feed itself is the source of truth.
	Publish(ctx context.Context, e Event) error

	// Subscribe returns a channel of events and a function that ends the
	// subscription and closes the channel. The subscription also ends when
	// ctx is done.
	Subscribe(ctx context.Context) (<-chan Event, func(), error)

	// Close ends all subscriptions.
	Close() error
}

// subscriberBuffer is the per-subscriber queue length.
const subscriberBuffer = 16

// MemoryBroker is an in-process Broker.
type MemoryBroker struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	next   int
	closed bool
}

// NewMemoryBroker creates a broker with no subscribers.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[int]chan Event)}
}

func (b *MemoryBroker) Publish(ctx context.Context, e Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context) (<-chan Event, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch, func() {}, nil
	}
	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() { b.remove(id) })
	}
	stop := context.AfterFunc(ctx, cancel)
	return ch, func() {
		stop()
		cancel()
	}, nil
}

func (b *MemoryBroker) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	b.closed = true
	return nil
}

// Subscribers returns the number of active subscriptions.
func (b *MemoryBroker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

var _ Broker = (*MemoryBroker)(nil)
