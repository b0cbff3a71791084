package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-realtime-auctions/internal/fanout"
	kafkax "github.com/ariefcatur/go-realtime-auctions/internal/kafka"
	"github.com/ariefcatur/go-realtime-auctions/internal/orders"
	"github.com/ariefcatur/go-realtime-auctions/internal/redisx"
)

type LotNotifier interface {
	PublishLotSettled(ctx context.Context, ev fanout.LotSettled) error
}

// Service turns AuctionSettled events into lot-settled frames for watchers.
type Service struct {
	Redis       redis.Cmdable // optional; dedup is skipped without it
	Notifier    LotNotifier
	ServiceName string
}

// HandleAuctionSettled is installed as the consumer handler for auction.settled.
func (s *Service) HandleAuctionSettled(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// poison message; committing it is the only way past it
		log.Printf("notify: drop undecodable message at offset %d: %v", m.Offset, err)
		return nil
	}
	if env.EventType != orders.EventAuctionSettled {
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	if s.Redis != nil {
		first, err := redisx.MarkOnce(ctx, s.Redis, dkey, redisx.TTLDedup)
		if err != nil {
			return err
		}
		if !first {
			return nil
		}
	}

	p, err := kafkax.UnwrapPayload[orders.AuctionSettledPayload](env.Payload)
	if err != nil {
		log.Printf("notify: drop event %s: %v", env.EventID, err)
		return nil
	}

	for _, l := range p.Lots {
		ev := fanout.LotSettled{LotID: l.LotID, AuctionID: p.AuctionID, Sold: l.Sold, BuyerID: l.BuyerID, Amount: l.Amount}
		if err := s.Notifier.PublishLotSettled(ctx, ev); err != nil {
			if s.Redis != nil {
				_ = s.Redis.Del(ctx, dkey).Err()
			}
			return fmt.Errorf("notify lot %s: %w", l.LotID, err)
		}
	}
	return nil
}
