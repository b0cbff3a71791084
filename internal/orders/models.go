package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Shipping is captured after settlement by the fulfillment flow.
type Shipping struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
}

type Order struct {
	ID            string
	BuyerID       string
	SellerID      string
	ArtworkID     string
	SaleType      SaleType
	AuctionID     string // empty for direct sales
	Amount        decimal.Decimal
	Shipping      *Shipping
	PaymentMethod string
	PaymentStatus PaymentStatus
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewAuctionOrder builds the settlement record for a won lot.
func NewAuctionOrder(id, auctionID, artworkID, sellerID, buyerID string, amount decimal.Decimal, now time.Time) Order {
	return Order{
		ID:            id,
		BuyerID:       buyerID,
		SellerID:      sellerID,
		ArtworkID:     artworkID,
		SaleType:      SaleAuction,
		AuctionID:     auctionID,
		Amount:        amount,
		PaymentMethod: PaymentCashOnDelivery,
		PaymentStatus: PaymentPending,
		Status:        StatusAwaitingDetails,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
