package fanout

import (
	"context"
	"encoding/json"

	"github.com/ariefcatur/go-realtime-auctions/internal/auction"
)

// Notifier turns domain events into frames on the broker.
type Notifier struct {
	Broker Broker
}

func (n *Notifier) PublishBid(ctx context.Context, b auction.Bid) error {
	return n.publish(ctx, b.LotID, BidUpdated{
		Type:      TypeBidUpdated,
		LotID:     b.LotID,
		Amount:    b.Amount,
		BidderID:  b.BidderID,
		BidID:     b.ID,
		CreatedAt: b.CreatedAt,
	})
}

func (n *Notifier) PublishLotSettled(ctx context.Context, ev LotSettled) error {
	ev.Type = TypeLotSettled
	return n.publish(ctx, ev.LotID, ev)
}

func (n *Notifier) publish(ctx context.Context, lotID string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return n.Broker.Publish(ctx, lotID, b)
}

var _ auction.Publisher = (*Notifier)(nil)
