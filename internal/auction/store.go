package auction

import (
	"context"
	"time"

	"github.com/ariefcatur/go-realtime-auctions/internal/orders"
)

// Store is the durable state behind the service. Repo is the Postgres
// implementation; auctiontest.Store is an in-memory one.
type Store interface {
	// WithinTx runs fn in one transaction, committing when fn returns nil.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// ActivateDue moves every scheduled auction with start_date <= now to live
	// in a single statement and reports how many rows changed.
	ActivateDue(ctx context.Context, now time.Time) (int64, error)

	ListOpenAuctions(ctx context.Context) ([]AuctionView, error)
	GetAuction(ctx context.Context, id string) (AuctionView, error)
	ListBids(ctx context.Context, lotID string, limit int) ([]Bid, error)
}

type Tx interface {
	GetLot(ctx context.Context, id string) (Lot, error)
	// AdvancePrice sets the lot's price pointer and leader to the bid only if
	// they still equal prev and the lot is biddable. Otherwise ErrStaleLot.
	AdvancePrice(ctx context.Context, prev Lot, bid Bid) error
	InsertBid(ctx context.Context, bid Bid) error

	CountEligibleLots(ctx context.Context, ids []string) (int, error)
	InsertAuction(ctx context.Context, a Auction) error
	LinkLots(ctx context.Context, auctionID string, ids []string) (int64, error)

	LockDueAuctions(ctx context.Context, now time.Time) ([]Auction, error)
	LockAuctionLots(ctx context.Context, auctionID string) ([]Lot, error)
	// WinningBid returns the highest bid for the lot, earliest first on ties.
	WinningBid(ctx context.Context, lotID string) (Bid, bool, error)
	DetachLot(ctx context.Context, lotID string) error
	MarkSold(ctx context.Context, lotID, buyerID string) error
	InsertOrder(ctx context.Context, o orders.Order) error
	CompleteAuction(ctx context.Context, auctionID string) error
}

// Publisher pushes accepted bids to the real-time channel.
type Publisher interface {
	PublishBid(ctx context.Context, b Bid) error
}
