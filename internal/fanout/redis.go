package fanout

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-realtime-auctions/internal/redisx"
)

// RedisBroker uses Pub/Sub channels bid_events:<lot>.
type RedisBroker struct {
	rdb *redis.Client
}

func NewRedisBroker(rdb *redis.Client) *RedisBroker {
	return &RedisBroker{rdb: rdb}
}

func (b *RedisBroker) Publish(ctx context.Context, lotID string, frame []byte) error {
	return b.rdb.Publish(ctx, fmt.Sprintf(redisx.ChannelBidEvents, lotID), frame).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, deliver func(string, []byte)) error {
	ps := b.rdb.PSubscribe(ctx, redisx.ChannelBidEventsPattern)
	defer ps.Close()

	// wait for the subscription confirmation so early publishes are not lost
	if _, err := ps.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("redis psubscribe: %w", err)
	}
	log.Printf("fanout: subscribed to redis %s", redisx.ChannelBidEventsPattern)

	prefix := strings.TrimSuffix(redisx.ChannelBidEventsPattern, "*")
	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			lotID := strings.TrimPrefix(msg.Channel, prefix)
			if lotID == "" || lotID == msg.Channel {
				continue
			}
			deliver(lotID, []byte(msg.Payload))
		}
	}
}
