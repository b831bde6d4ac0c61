// Package redisbroker distributes feed events over Redis pub/sub so that
// every server instance can notify its connected viewers.
package redisbroker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/memeforge/pkg/feed"
)

// DefaultChannel is the pub/sub channel events are sent on.
const DefaultChannel = "memeforge:feed"

const subscriberBuffer = 16

// Broker implements feed.Broker on Redis pub/sub.
type Broker struct {
	client  redis.UniversalClient
	channel string
	logger  *log.Logger

	mu   sync.Mutex
	subs map[*redis.PubSub]struct{}
}

// New creates a broker on an existing client. The client is not closed by
// the broker.
func New(client redis.UniversalClient, channel string, logger *log.Logger) *Broker {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Broker{
		client:  client,
		channel: channel,
		logger:  logger,
		subs:    make(map[*redis.PubSub]struct{}),
	}
}

func (b *Broker) Publish(ctx context.Context, e feed.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func (b *Broker) Subscribe(ctx context.Context) (<-chan feed.Event, func(), error) {
	ps := b.client.Subscribe(ctx, b.channel)
	// Wait for the subscription confirmation so no event published after
	// Subscribe returns is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribe: %w", err)
	}

	b.mu.Lock()
	b.subs[ps] = struct{}{}
	b.mu.Unlock()

	out := make(chan feed.Event, subscriberBuffer)
	go func() {
		defer close(out)
		for msg := range ps.Channel() {
			var e feed.Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				b.logger.Warn("dropping malformed event", "error", err)
				continue
			}
			select {
			case out <- e:
			default:
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ps)
			b.mu.Unlock()
			_ = ps.Close()
		})
	}
	stop := context.AfterFunc(ctx, cancel)
	return out, func() {
		stop()
		cancel()
	}, nil
}

// Close ends all subscriptions made through this broker.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ps := range b.subs {
		_ = ps.Close()
		delete(b.subs, ps)
	}
	return nil
}

var _ feed.Broker = (*Broker)(nil)
