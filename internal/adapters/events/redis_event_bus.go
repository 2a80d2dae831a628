package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/entities"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/providers"
	redisclient "github.com/zatekoja/Restaurantbookingdesign/backend/internal/infrastructure/clients/redis"
)

// redisChannelPrefix namespaces booking channels on a shared Redis
const redisChannelPrefix = "booking-events:"

// RedisEventBus carries booking events over Redis pub/sub so that every
// instance sees what any other instance publishes. A single pattern
// subscription per process feeds a LocalEventBus, which serves the subscribers.
type RedisEventBus struct {
	client *redisclient.Client
	local  *LocalEventBus

	mu     sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
	closed bool
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) *RedisEventBus {
	return &RedisEventBus{
		client: client,
		local:  NewLocalEventBus(),
	}
}

var _ providers.EventBus = (*RedisEventBus)(nil)

// Publish sends the event to every instance, this one included
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.Notification) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.client.Client().Publish(ctx, redisChannelPrefix+channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", channel, err)
	}
	return nil
}

// Subscribe returns a subscription that stays attached until ctx is done
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.Notification, error) {
	if err := b.listen(ctx); err != nil {
		return nil, err
	}
	return b.local.Subscribe(ctx, channel)
}

// listen opens the pattern subscription on first use. It returns once Redis has
// confirmed it, so events published after Subscribe returns are not missed.
func (b *RedisEventBus) listen(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.pubsub != nil {
		return nil
	}

	pubsub := b.client.Client().PSubscribe(context.Background(), redisChannelPrefix+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("failed to subscribe to booking events: %w", err)
	}

	b.pubsub = pubsub
	b.done = make(chan struct{})
	go b.receive(pubsub, b.done)
	log.Debug().Str("pattern", redisChannelPrefix+"*").Msg("Listening for booking events")
	return nil
}

func (b *RedisEventBus) receive(pubsub *redis.PubSub, done chan struct{}) {
	defer close(done)
	for msg := range pubsub.Channel() {
		b.dispatch(msg)
	}
}

// dispatch hands one Redis message to the local subscribers of its channel
func (b *RedisEventBus) dispatch(msg *redis.Message) {
	channel, ok := strings.CutPrefix(msg.Channel, redisChannelPrefix)
	if !ok {
		return
	}

	var event entities.Notification
	if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("Dropping malformed booking event")
		return
	}
	_ = b.local.Publish(context.Background(), channel, &event)
}

// Unsubscribe ends every local subscription to channel
func (b *RedisEventBus) Unsubscribe(ctx context.Context, channel string) error {
	return b.local.Unsubscribe(ctx, channel)
}

// Close stops listening and ends all subscriptions; it is safe to call twice
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	pubsub, done := b.pubsub, b.done
	b.pubsub = nil
	b.mu.Unlock()

	var err error
	if pubsub != nil {
		err = pubsub.Close()
		<-done
	}
	return errors.Join(err, b.local.Close())
}
