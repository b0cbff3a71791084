package auction

import (
	"time"

	"github.com/shopspring/decimal"
)

type SalePath string

const (
	SaleDirect  SalePath = "direct"
	SaleAuction SalePath = "auction"
)

type LotStatus string

const (
	LotPending  LotStatus = "pending"
	LotVerified LotStatus = "verified"
	LotSold     LotStatus = "sold"
	LotRejected LotStatus = "rejected"
)

type Auction struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	LotIDs      []string  `json:"lotIds"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	Status      Status    `json:"status"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Lot is the auction-relevant subset of an artwork. OpeningBid is the running
// price pointer: it starts at the deposit's opening value and follows accepted bids.
type Lot struct {
	ID            string
	ArtistID      string
	Title         string
	ImageURL      string
	SalePath      SalePath
	Status        LotStatus
	AuctionID     string
	OpeningBid    decimal.Decimal
	ReservePrice  *decimal.Decimal
	HighestBidder string
}

// Biddable reports whether the lot is in a state that accepts bids.
func (l Lot) Biddable() bool {
	return l.Status == LotVerified && l.SalePath == SaleAuction
}

type Bid struct {
	ID        string          `json:"bidId"`
	LotID     string          `json:"lotId"`
	BidderID  string          `json:"bidderId"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"createdAt"`
}

type ArtistSummary struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type LotSummary struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	ImageURL      string           `json:"imageUrl,omitempty"`
	Status        LotStatus        `json:"status"`
	CurrentPrice  decimal.Decimal  `json:"currentPrice"`
	MinimumBid    decimal.Decimal  `json:"minimumBid"`
	ReservePrice  *decimal.Decimal `json:"reservePrice,omitempty"`
	HighestBidder string           `json:"highestBidder,omitempty"`
	Artist        ArtistSummary    `json:"artist"`
}

type AuctionView struct {
	Auction
	Lots []LotSummary `json:"lots"`
}

// Settlement summarizes one committed settlement sweep.
type Settlement struct {
	Auctions []SettledAuction
}

type SettledAuction struct {
	AuctionID string
	Lots      []SettledLot
}

// SettledLot describes the outcome for one lot; OrderID is empty when the lot
// had no bids and was detached.
type SettledLot struct {
	LotID    string
	SellerID string
	OrderID  string
	BuyerID  string
	Amount   decimal.Decimal
}

func (s SettledLot) Sold() bool { return s.OrderID != "" }

func (s Settlement) Orders() int {
	n := 0
	for _, a := range s.Auctions {
		for _, l := range a.Lots {
			if l.Sold() {
				n++
			}
		}
	}
	return n
}

type Role string

const (
	RoleCollector Role = "collector"
	RoleArtist    Role = "artist"
	RoleAdmin     Role = "admin"
)

// Principal is the authenticated caller as resolved by the identity collaborator.
type Principal struct {
	UserID string
	Role   Role
}

func (p Principal) CanBid() bool            { return p.UserID != "" && p.Role == RoleCollector }
func (p Principal) CanManageAuctions() bool { return p.UserID != "" && p.Role == RoleAdmin }
