// Package auctiontest provides an in-memory auction.Store for tests.
package auctiontest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-realtime-auctions/internal/auction"
	"github.com/ariefcatur/go-realtime-auctions/internal/orders"
)

var ErrInjected = errors.New("auctiontest: injected failure")

// Store serializes transactions behind one mutex and restores a snapshot when
// the transaction function fails.
type Store struct {
	mu sync.Mutex
	state

	// FailOn makes the named Tx method (e.g. "InsertOrder") return ErrInjected.
	FailOn string
	// Interfere runs inside AdvancePrice before the compare-and-set and may
	// change the stored lot, standing in for a concurrent writer.
	Interfere func(lot *auction.Lot)
}

type state struct {
	lots     map[string]auction.Lot
	auctions map[string]auction.Auction
	bids     []auction.Bid
	orders   []orders.Order
	artists  map[string]string
}

func NewStore() *Store {
	return &Store{state: state{
		lots:     map[string]auction.Lot{},
		auctions: map[string]auction.Auction{},
		artists:  map[string]string{},
	}}
}

func (s state) clone() state {
	c := state{
		lots:     make(map[string]auction.Lot, len(s.lots)),
		auctions: make(map[string]auction.Auction, len(s.auctions)),
		bids:     append([]auction.Bid(nil), s.bids...),
		orders:   append([]orders.Order(nil), s.orders...),
		artists:  s.artists,
	}
	for k, v := range s.lots {
		c.lots[k] = v
	}
	for k, v := range s.auctions {
		c.auctions[k] = v
	}
	return c
}

func (s *Store) AddLot(l auction.Lot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lots[l.ID] = l
}

func (s *Store) AddAuction(a auction.Auction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auctions[a.ID] = a
}

func (s *Store) AddBid(b auction.Bid) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bids = append(s.bids, b)
}

func (s *Store) SetArtistName(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artists[id] = name
}

func (s *Store) Lot(id string) (auction.Lot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lots[id]
	return l, ok
}

func (s *Store) Auction(id string) (auction.Auction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.auctions[id]
	return a, ok
}

func (s *Store) AuctionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.auctions)
}

// Bids returns the lot's bids in insertion order.
func (s *Store) Bids(lotID string) []auction.Bid {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []auction.Bid
	for _, b := range s.bids {
		if b.LotID == lotID {
			out = append(out, b)
		}
	}
	return out
}

func (s *Store) Orders() []orders.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]orders.Order(nil), s.orders...)
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx auction.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := s.state.clone()
	tx := &memTx{s: s}
	if err := fn(ctx, tx); err != nil {
		s.state = snapshot
		// writes by the simulated concurrent writer were never part of this tx
		for _, l := range tx.outside {
			s.lots[l.ID] = l
		}
		return err
	}
	return nil
}

func (s *Store) ActivateDue(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, a := range s.auctions {
		if a.Status == auction.StatusScheduled && !a.StartDate.After(now) {
			a.Status = auction.StatusLive
			a.UpdatedAt = now
			s.auctions[id] = a
			n++
		}
	}
	return n, nil
}

func (s *Store) ListOpenAuctions(ctx context.Context) ([]auction.AuctionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []auction.AuctionView{}
	for _, a := range s.auctions {
		if a.Status.Open() {
			out = append(out, s.view(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartDate.Before(out[j].StartDate)
	})
	return out, nil
}

func (s *Store) GetAuction(ctx context.Context, id string) (auction.AuctionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.auctions[id]
	if !ok {
		return auction.AuctionView{}, fmt.Errorf("auction %s: %w", id, auction.ErrNotFound)
	}
	return s.view(a), nil
}

func (s *Store) view(a auction.Auction) auction.AuctionView {
	v := auction.AuctionView{Auction: a, Lots: []auction.LotSummary{}}
	for _, id := range a.LotIDs {
		l, ok := s.lots[id]
		if !ok {
			continue
		}
		v.Lots = append(v.Lots, auction.LotSummary{
			ID:            l.ID,
			Title:         l.Title,
			ImageURL:      l.ImageURL,
			Status:        l.Status,
			CurrentPrice:  l.OpeningBid,
			ReservePrice:  l.ReservePrice,
			HighestBidder: l.HighestBidder,
			Artist:        auction.ArtistSummary{ID: l.ArtistID, Name: s.artists[l.ArtistID]},
		})
	}
	return v
}

func (s *Store) ListBids(ctx context.Context, lotID string, limit int) ([]auction.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lots[lotID]; !ok {
		return nil, fmt.Errorf("lot %s: %w", lotID, auction.ErrNotFound)
	}
	out := []auction.Bid{}
	for _, b := range s.bids {
		if b.LotID == lotID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// memTx operates on the store's state while WithinTx holds the lock.
type memTx struct {
	s       *Store
	outside []auction.Lot
}

func (t *memTx) fail(op string) error {
	if t.s.FailOn == op {
		return fmt.Errorf("%s: %w", op, ErrInjected)
	}
	return nil
}

func (t *memTx) GetLot(ctx context.Context, id string) (auction.Lot, error) {
	if err := t.fail("GetLot"); err != nil {
		return auction.Lot{}, err
	}
	l, ok := t.s.lots[id]
	if !ok {
		return auction.Lot{}, fmt.Errorf("lot %s: %w", id, auction.ErrNotFound)
	}
	return l, nil
}

func (t *memTx) AdvancePrice(ctx context.Context, prev auction.Lot, bid auction.Bid) error {
	if err := t.fail("AdvancePrice"); err != nil {
		return err
	}
	cur, ok := t.s.lots[prev.ID]
	if !ok {
		return auction.ErrStaleLot
	}
	if t.s.Interfere != nil {
		t.s.Interfere(&cur)
		t.s.lots[cur.ID] = cur
		t.outside = append(t.outside, cur)
	}
	if !cur.Biddable() || !cur.OpeningBid.Equal(prev.OpeningBid) ||
		cur.HighestBidder != prev.HighestBidder || !bid.Amount.GreaterThan(cur.OpeningBid) {
		return auction.ErrStaleLot
	}
	cur.OpeningBid = bid.Amount
	cur.HighestBidder = bid.BidderID
	t.s.lots[cur.ID] = cur
	return nil
}

func (t *memTx) InsertBid(ctx context.Context, bid auction.Bid) error {
	if err := t.fail("InsertBid"); err != nil {
		return err
	}
	if _, ok := t.s.lots[bid.LotID]; !ok {
		return fmt.Errorf("insert bid: unknown lot %s", bid.LotID)
	}
	t.s.bids = append(t.s.bids, bid)
	return nil
}

func (t *memTx) CountEligibleLots(ctx context.Context, ids []string) (int, error) {
	if err := t.fail("CountEligibleLots"); err != nil {
		return 0, err
	}
	n := 0
	for _, id := range ids {
		if l, ok := t.s.lots[id]; ok && l.Biddable() && l.AuctionID == "" {
			n++
		}
	}
	return n, nil
}

func (t *memTx) InsertAuction(ctx context.Context, a auction.Auction) error {
	if err := t.fail("InsertAuction"); err != nil {
		return err
	}
	if _, ok := t.s.auctions[a.ID]; ok {
		return fmt.Errorf("insert auction: duplicate id %s", a.ID)
	}
	t.s.auctions[a.ID] = a
	return nil
}

func (t *memTx) LinkLots(ctx context.Context, auctionID string, ids []string) (int64, error) {
	if err := t.fail("LinkLots"); err != nil {
		return 0, err
	}
	var n int64
	for _, id := range ids {
		l, ok := t.s.lots[id]
		if !ok || !l.Biddable() || l.AuctionID != "" {
			continue
		}
		l.AuctionID = auctionID
		t.s.lots[id] = l
		n++
	}
	return n, nil
}

func (t *memTx) LockDueAuctions(ctx context.Context, now time.Time) ([]auction.Auction, error) {
	if err := t.fail("LockDueAuctions"); err != nil {
		return nil, err
	}
	var out []auction.Auction
	for _, a := range t.s.auctions {
		if a.Status == auction.StatusLive && !a.EndDate.After(now) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) LockAuctionLots(ctx context.Context, auctionID string) ([]auction.Lot, error) {
	if err := t.fail("LockAuctionLots"); err != nil {
		return nil, err
	}
	var out []auction.Lot
	for _, l := range t.s.lots {
		if l.AuctionID == auctionID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) WinningBid(ctx context.Context, lotID string) (auction.Bid, bool, error) {
	if err := t.fail("WinningBid"); err != nil {
		return auction.Bid{}, false, err
	}
	var (
		best  auction.Bid
		found bool
	)
	for _, b := range t.s.bids {
		if b.LotID != lotID {
			continue
		}
		if !found || beats(b, best) {
			best, found = b, true
		}
	}
	return best, found, nil
}

// beats orders bids by amount desc, then placement time asc, then id asc.
func beats(a, b auction.Bid) bool {
	if c := a.Amount.Cmp(b.Amount); c != 0 {
		return c > 0
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func (t *memTx) DetachLot(ctx context.Context, lotID string) error {
	if err := t.fail("DetachLot"); err != nil {
		return err
	}
	l := t.s.lots[lotID]
	l.AuctionID = ""
	l.HighestBidder = ""
	t.s.lots[lotID] = l
	return nil
}

func (t *memTx) MarkSold(ctx context.Context, lotID, buyerID string) error {
	if err := t.fail("MarkSold"); err != nil {
		return err
	}
	l, ok := t.s.lots[lotID]
	if !ok || l.Status != auction.LotVerified {
		return fmt.Errorf("mark lot %s sold: %w", lotID, auction.ErrInvalidState)
	}
	l.Status = auction.LotSold
	l.HighestBidder = buyerID
	t.s.lots[lotID] = l
	return nil
}

func (t *memTx) InsertOrder(ctx context.Context, o orders.Order) error {
	if err := t.fail("InsertOrder"); err != nil {
		return err
	}
	for _, existing := range t.s.orders {
		if existing.ArtworkID == o.ArtworkID && existing.AuctionID == o.AuctionID {
			return fmt.Errorf("insert order: lot %s already settled for auction %s", o.ArtworkID, o.AuctionID)
		}
	}
	t.s.orders = append(t.s.orders, o)
	return nil
}

func (t *memTx) CompleteAuction(ctx context.Context, auctionID string) error {
	if err := t.fail("CompleteAuction"); err != nil {
		return err
	}
	a, ok := t.s.auctions[auctionID]
	if !ok || !auction.CanTransition(a.Status, auction.StatusCompleted) {
		return fmt.Errorf("complete auction %s: %w", auctionID, auction.ErrInvalidState)
	}
	a.Status = auction.StatusCompleted
	t.s.auctions[auctionID] = a
	return nil
}

var (
	_ auction.Store = (*Store)(nil)
	_ auction.Tx    = (*memTx)(nil)
)
