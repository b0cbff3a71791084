package fanout

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TypeBidUpdated = "bid-updated"
	TypeLotSettled = "lot-settled"

	typeConnected = "connected"
	typeJoined    = "joined"
	typeLeft      = "left"
	typeError     = "error"
)

type BidUpdated struct {
	Type      string          `json:"type"`
	LotID     string          `json:"lotId"`
	Amount    decimal.Decimal `json:"amount"`
	BidderID  string          `json:"bidderId"`
	BidID     string          `json:"bidId"`
	CreatedAt time.Time       `json:"createdAt"`
}

// LotSettled tells watchers the auction closed for this lot. Amount and
// BuyerID are empty when the lot went unsold.
type LotSettled struct {
	Type      string           `json:"type"`
	LotID     string           `json:"lotId"`
	AuctionID string           `json:"auctionId"`
	Sold      bool             `json:"sold"`
	BuyerID   string           `json:"buyerId,omitempty"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
}

// clientFrame is what a connected client may send.
type clientFrame struct {
	Action string `json:"action"`
	LotID  string `json:"lotId"`
}

type serverFrame struct {
	Type          string `json:"type"`
	LotID         string `json:"lotId,omitempty"`
	ClientID      string `json:"clientId,omitempty"`
	Authenticated *bool  `json:"authenticated,omitempty"`
	Message       string `json:"message,omitempty"`
}
