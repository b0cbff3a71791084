package auction_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-realtime-auctions/internal/auction"
	"github.com/ariefcatur/go-realtime-auctions/internal/auction/auctiontest"
)

var clock = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

var (
	alice  = auction.Principal{UserID: "alice", Role: auction.RoleCollector}
	bob    = auction.Principal{UserID: "bob", Role: auction.RoleCollector}
	artist = auction.Principal{UserID: "artist-1", Role: auction.RoleArtist}
	admin  = auction.Principal{UserID: "admin-1", Role: auction.RoleAdmin}
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func amt(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

type recordingPublisher struct {
	mu   sync.Mutex
	bids []auction.Bid
	err  error
}

func (p *recordingPublisher) PublishBid(ctx context.Context, b auction.Bid) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bids = append(p.bids, b)
	return p.err
}

func (p *recordingPublisher) published() []auction.Bid {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]auction.Bid(nil), p.bids...)
}

func newFixture(t *testing.T) (*auction.Service, *auctiontest.Store, *recordingPublisher) {
	t.Helper()
	store := auctiontest.NewStore()
	pub := &recordingPublisher{}
	svc := auction.NewService(store, pub)
	svc.Now = func() time.Time { return clock }
	n := 0
	svc.NewID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return svc, store, pub
}

func liveLot(id, price string) auction.Lot {
	return auction.Lot{
		ID:         id,
		ArtistID:   "artist-1",
		Title:      "Lot " + id,
		SalePath:   auction.SaleAuction,
		Status:     auction.LotVerified,
		OpeningBid: d(price),
	}
}

var errNope = errors.New("nope")
