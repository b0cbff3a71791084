package auction_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-realtime-auctions/internal/auction"
	"github.com/ariefcatur/go-realtime-auctions/internal/auction/auctiontest"
	"github.com/ariefcatur/go-realtime-auctions/internal/orders"
)

func scheduled(id string, start, end time.Time, lots ...string) auction.Auction {
	return auction.Auction{
		ID:        id,
		Title:     "Auction " + id,
		LotIDs:    lots,
		StartDate: start,
		EndDate:   end,
		Status:    auction.StatusScheduled,
	}
}

func TestActivateDue(t *testing.T) {
	svc, store, _ := newFixture(t)
	store.AddAuction(scheduled("due", clock.Add(-time.Minute), clock.Add(time.Hour)))
	store.AddAuction(scheduled("exact", clock, clock.Add(time.Hour)))
	store.AddAuction(scheduled("later", clock.Add(time.Second), clock.Add(time.Hour)))
	ctx := context.Background()

	n, err := svc.ActivateDue(ctx, clock)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	for id, want := range map[string]auction.Status{
		"due":   auction.StatusLive,
		"exact": auction.StatusLive,
		"later": auction.StatusScheduled,
	} {
		a, _ := store.Auction(id)
		assert.Equal(t, want, a.Status, id)
	}

	n, err = svc.ActivateDue(ctx, clock)
	require.NoError(t, err)
	assert.Zero(t, n, "second tick is a no-op")
}

func seedLiveAuction(store *auctiontest.Store, id string, end time.Time, lots ...string) {
	a := scheduled(id, end.Add(-24*time.Hour), end, lots...)
	a.Status = auction.StatusLive
	store.AddAuction(a)
	for _, lotID := range lots {
		l := liveLot(lotID, "100")
		l.AuctionID = id
		store.AddLot(l)
	}
}

func TestSettleDue_TwoLots(t *testing.T) {
	svc, store, _ := newFixture(t)
	seedLiveAuction(store, "auc-1", clock.Add(-time.Minute), "lot-a", "lot-b")
	ctx := context.Background()

	_, err := svc.PlaceBid(ctx, alice, auction.PlaceBidRequest{LotID: "lot-a", Amount: amt("500")})
	require.NoError(t, err)
	_, err = svc.PlaceBid(ctx, bob, auction.PlaceBidRequest{LotID: "lot-a", Amount: amt("700")})
	require.NoError(t, err)

	res, err := svc.SettleDue(ctx, clock)
	require.NoError(t, err)
	require.Len(t, res.Auctions, 1)
	assert.Equal(t, 1, res.Orders())

	a, _ := store.Auction("auc-1")
	assert.Equal(t, auction.StatusCompleted, a.Status)

	lotA, _ := store.Lot("lot-a")
	assert.Equal(t, auction.LotSold, lotA.Status)
	assert.Equal(t, "bob", lotA.HighestBidder)

	lotB, _ := store.Lot("lot-b")
	assert.Equal(t, auction.LotVerified, lotB.Status)
	assert.Empty(t, lotB.AuctionID)
	assert.Empty(t, lotB.HighestBidder)

	got := store.Orders()
	require.Len(t, got, 1)
	o := got[0]
	assert.Equal(t, "bob", o.BuyerID)
	assert.Equal(t, "artist-1", o.SellerID)
	assert.Equal(t, "lot-a", o.ArtworkID)
	assert.Equal(t, "auc-1", o.AuctionID)
	assert.True(t, o.Amount.Equal(d("700")))
	assert.Equal(t, orders.SaleAuction, o.SaleType)
	assert.Nil(t, o.Shipping)
	assert.Equal(t, orders.PaymentCashOnDelivery, o.PaymentMethod)
	assert.Equal(t, orders.PaymentPending, o.PaymentStatus)
	assert.Equal(t, orders.StatusAwaitingDetails, o.Status)

	var sold, detached int
	for _, l := range res.Auctions[0].Lots {
		if l.Sold() {
			sold++
			assert.Equal(t, o.ID, l.OrderID)
		} else {
			detached++
		}
	}
	assert.Equal(t, 1, sold)
	assert.Equal(t, 1, detached)
}

func TestSettleDue_TieGoesToEarliestBid(t *testing.T) {
	svc, store, _ := newFixture(t)
	seedLiveAuction(store, "auc-1", clock.Add(-time.Minute), "lot-a")
	store.AddBid(auction.Bid{ID: "b3", LotID: "lot-a", BidderID: "carol", Amount: d("900"), CreatedAt: clock.Add(-3 * time.Minute)})
	store.AddBid(auction.Bid{ID: "b1", LotID: "lot-a", BidderID: "dave", Amount: d("900"), CreatedAt: clock.Add(-5 * time.Minute)})
	store.AddBid(auction.Bid{ID: "b2", LotID: "lot-a", BidderID: "erin", Amount: d("400"), CreatedAt: clock.Add(-9 * time.Minute)})

	_, err := svc.SettleDue(context.Background(), clock)
	require.NoError(t, err)

	got := store.Orders()
	require.Len(t, got, 1)
	assert.Equal(t, "dave", got[0].BuyerID)
}

func TestSettleDue_OnlyEndedLiveAuctions(t *testing.T) {
	svc, store, _ := newFixture(t)
	seedLiveAuction(store, "ended", clock, "lot-a")
	seedLiveAuction(store, "running", clock.Add(time.Minute), "lot-b")
	store.AddAuction(scheduled("future", clock.Add(-time.Hour), clock.Add(-time.Minute)))

	res, err := svc.SettleDue(context.Background(), clock)
	require.NoError(t, err)
	require.Len(t, res.Auctions, 1)
	assert.Equal(t, "ended", res.Auctions[0].AuctionID)

	running, _ := store.Auction("running")
	assert.Equal(t, auction.StatusLive, running.Status)
	future, _ := store.Auction("future")
	assert.Equal(t, auction.StatusScheduled, future.Status, "settlement never skips activation")
}

func TestSettleDue_FailureRollsBackWholeSweep(t *testing.T) {
	svc, store, _ := newFixture(t)
	seedLiveAuction(store, "auc-1", clock.Add(-time.Minute), "lot-a", "lot-b")
	seedLiveAuction(store, "auc-2", clock.Add(-time.Minute), "lot-c")
	store.AddBid(auction.Bid{ID: "b1", LotID: "lot-a", BidderID: "alice", Amount: d("500"), CreatedAt: clock.Add(-time.Hour)})
	store.AddBid(auction.Bid{ID: "b2", LotID: "lot-c", BidderID: "bob", Amount: d("800"), CreatedAt: clock.Add(-time.Hour)})
	store.FailOn = "CompleteAuction"

	_, err := svc.SettleDue(context.Background(), clock)
	require.ErrorIs(t, err, auctiontest.ErrInjected)

	assert.Empty(t, store.Orders())
	for _, id := range []string{"auc-1", "auc-2"} {
		a, _ := store.Auction(id)
		assert.Equal(t, auction.StatusLive, a.Status, id)
	}
	for _, id := range []string{"lot-a", "lot-b", "lot-c"} {
		l, _ := store.Lot(id)
		assert.Equal(t, auction.LotVerified, l.Status, id)
		assert.NotEmpty(t, l.AuctionID, id)
	}

	store.FailOn = ""
	res, err := svc.SettleDue(context.Background(), clock)
	require.NoError(t, err)
	assert.Len(t, res.Auctions, 2)
	assert.Len(t, store.Orders(), 2)

	res, err = svc.SettleDue(context.Background(), clock)
	require.NoError(t, err)
	assert.Empty(t, res.Auctions, "completed auctions are never settled twice")
	assert.Len(t, store.Orders(), 2)
}

func TestSettleDue_ModeratedLotIsDetachedNotSold(t *testing.T) {
	svc, store, _ := newFixture(t)
	seedLiveAuction(store, "auc-1", clock.Add(-time.Minute), "lot-a", "lot-b")
	seedLiveAuction(store, "auc-2", clock.Add(-time.Minute), "lot-c")
	store.AddBid(auction.Bid{ID: "b1", LotID: "lot-a", BidderID: "alice", Amount: d("500"), CreatedAt: clock.Add(-time.Hour)})
	store.AddBid(auction.Bid{ID: "b2", LotID: "lot-b", BidderID: "bob", Amount: d("600"), CreatedAt: clock.Add(-time.Hour)})
	store.AddBid(auction.Bid{ID: "b3", LotID: "lot-c", BidderID: "bob", Amount: d("800"), CreatedAt: clock.Add(-time.Hour)})

	rejected, _ := store.Lot("lot-a")
	rejected.Status = auction.LotRejected
	rejected.HighestBidder = "alice"
	store.AddLot(rejected)

	res, err := svc.SettleDue(context.Background(), clock)
	require.NoError(t, err)
	assert.Len(t, res.Auctions, 2)
	assert.Equal(t, 2, res.Orders())

	lotA, _ := store.Lot("lot-a")
	assert.Equal(t, auction.LotRejected, lotA.Status)
	assert.Empty(t, lotA.AuctionID)
	assert.Empty(t, lotA.HighestBidder)

	for _, o := range store.Orders() {
		assert.NotEqual(t, "lot-a", o.ArtworkID)
	}
	for _, id := range []string{"auc-1", "auc-2"} {
		a, _ := store.Auction(id)
		assert.Equal(t, auction.StatusCompleted, a.Status, id)
	}
}

func TestSettleDue_NothingDue(t *testing.T) {
	svc, _, _ := newFixture(t)
	res, err := svc.SettleDue(context.Background(), clock)
	require.NoError(t, err)
	assert.Empty(t, res.Auctions)
	assert.Zero(t, res.Orders())
}

func TestSettledLotCannotBeBidOn(t *testing.T) {
	svc, store, _ := newFixture(t)
	seedLiveAuction(store, "auc-1", clock.Add(-time.Minute), "lot-a")
	ctx := context.Background()
	_, err := svc.PlaceBid(ctx, alice, auction.PlaceBidRequest{LotID: "lot-a", Amount: amt("500")})
	require.NoError(t, err)
	_, err = svc.SettleDue(ctx, clock)
	require.NoError(t, err)

	_, err = svc.PlaceBid(ctx, bob, auction.PlaceBidRequest{LotID: "lot-a", Amount: amt("5000")})
	assert.ErrorIs(t, err, auction.ErrInvalidState)
}
