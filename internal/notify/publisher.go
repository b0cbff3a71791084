package notify

import (
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-realtime-auctions/internal/auction"
	kafkax "github.com/ariefcatur/go-realtime-auctions/internal/kafka"
	"github.com/ariefcatur/go-realtime-auctions/internal/orders"
)

// Sink is satisfied by *kafka.Producer.
type Sink interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// SettlementPublisher emits events for a committed settlement: one
// AuctionSettled per auction and one OrderCreated per order.
type SettlementPublisher struct {
	Settled     Sink
	Orders      Sink
	ServiceName string
}

func (p *SettlementPublisher) Publish(s auction.Settlement) {
	now := time.Now().UTC()
	for _, a := range s.Auctions {
		payload := orders.AuctionSettledPayload{AuctionID: a.AuctionID, Lots: make([]orders.SettledLot, 0, len(a.Lots))}
		for _, l := range a.Lots {
			sl := orders.SettledLot{LotID: l.LotID, Sold: l.Sold()}
			if l.Sold() {
				amount := l.Amount
				sl.OrderID, sl.BuyerID, sl.Amount = l.OrderID, l.BuyerID, &amount
				p.publish(p.Orders, orders.EventOrderCreated, l.OrderID, a.AuctionID, now, orders.OrderCreatedPayload{
					OrderID:   l.OrderID,
					AuctionID: a.AuctionID,
					ArtworkID: l.LotID,
					BuyerID:   l.BuyerID,
					SellerID:  l.SellerID,
					SaleType:  orders.SaleAuction,
					Amount:    l.Amount,
				})
			}
			payload.Lots = append(payload.Lots, sl)
		}
		p.publish(p.Settled, orders.EventAuctionSettled, a.AuctionID, a.AuctionID, now, payload)
	}
}

func (p *SettlementPublisher) publish(sink Sink, eventType, key, correlationID string, at time.Time, payload any) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    at,
		Producer:      p.ServiceName,
		CorrelationID: correlationID,
		Payload:       kafkax.MustMarshal(payload),
	}
	sink.Publish(orders.PartitionKey(key), kafkax.MustMarshal(ev), kafkax.EventHeaders(eventType, ev.EventVersion)...)
}
