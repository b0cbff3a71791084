package orders

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventAuctionSettled = "AuctionSettled"
	EventOrderCreated   = "OrderCreated"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // auction_id
	Payload       json.RawMessage `json:"payload"`
}

type SettledLot struct {
	LotID   string           `json:"lot_id"`
	Sold    bool             `json:"sold"`
	OrderID string           `json:"order_id,omitempty"`
	BuyerID string           `json:"buyer_id,omitempty"`
	Amount  *decimal.Decimal `json:"amount,omitempty"`
}

type AuctionSettledPayload struct {
	AuctionID string       `json:"auction_id"`
	Lots      []SettledLot `json:"lots"`
}

type OrderCreatedPayload struct {
	OrderID   string          `json:"order_id"`
	AuctionID string          `json:"auction_id,omitempty"`
	ArtworkID string          `json:"artwork_id"`
	BuyerID   string          `json:"buyer_id"`
	SellerID  string          `json:"seller_id"`
	SaleType  SaleType        `json:"sale_type"`
	Amount    decimal.Decimal `json:"amount"`
}
