package auction

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-realtime-auctions/internal/obs"
)

// maxBidAttempts bounds re-validation after a lost compare-and-set.
const maxBidAttempts = 3

var maxAmount = decimal.New(1, 12)

type PlaceBidRequest struct {
	LotID  string           `json:"lotId"`
	Amount *decimal.Decimal `json:"amount"`
}

// PlaceBid validates a bid against the lot's current price and records it.
// The price pointer only moves through a compare-and-set against the values
// the validation read, so a bid validated on a stale price is re-checked
// instead of being recorded.
func (s *Service) PlaceBid(ctx context.Context, p Principal, req PlaceBidRequest) (Bid, error) {
	bid, err := s.placeBid(ctx, p, req)
	obs.BidsTotal.WithLabelValues(bidResult(err)).Inc()
	if err != nil {
		return Bid{}, err
	}

	if s.Publisher != nil {
		if perr := s.Publisher.PublishBid(ctx, bid); perr != nil {
			log.Printf("auction: publish bid %s on lot %s: %v", bid.ID, bid.LotID, perr)
		}
	}
	return bid, nil
}

func (s *Service) placeBid(ctx context.Context, p Principal, req PlaceBidRequest) (Bid, error) {
	if !p.CanBid() {
		return Bid{}, fmt.Errorf("%w: only collectors can bid", ErrForbidden)
	}
	lotID := strings.TrimSpace(req.LotID)
	if lotID == "" || req.Amount == nil {
		return Bid{}, badRequest("lotId and amount are required")
	}
	amount := *req.Amount
	if amount.Sign() <= 0 {
		return Bid{}, badRequest("amount must be positive")
	}
	if !amount.Equal(amount.Round(2)) || amount.GreaterThanOrEqual(maxAmount) {
		return Bid{}, badRequest("amount is out of range")
	}

	var err error
	for attempt := 1; attempt <= maxBidAttempts; attempt++ {
		var bid Bid
		bid, err = s.tryBid(ctx, p.UserID, lotID, amount)
		if !errors.Is(err, ErrStaleLot) {
			return bid, err
		}
		obs.BidRetries.Inc()
	}
	return Bid{}, fmt.Errorf("place bid on lot %s: %w", lotID, err)
}

func (s *Service) tryBid(ctx context.Context, bidderID, lotID string, amount decimal.Decimal) (Bid, error) {
	var bid Bid
	err := s.Store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		lot, err := tx.GetLot(ctx, lotID)
		if err != nil {
			return err
		}
		if !lot.Biddable() {
			return fmt.Errorf("%w: lot %s is %s on the %s path", ErrInvalidState, lot.ID, lot.Status, lot.SalePath)
		}
		if lot.HighestBidder == bidderID {
			return ErrOwnBid
		}
		if !Outbids(amount, lot.OpeningBid) {
			return &BidRejection{Reason: ErrBidTooLow, CurrentPrice: lot.OpeningBid, MinimumBid: MinimumBid(lot.OpeningBid)}
		}

		now := s.Now()
		bid = Bid{ID: s.BidID(now), LotID: lot.ID, BidderID: bidderID, Amount: amount, CreatedAt: now}
		if err := tx.AdvancePrice(ctx, lot, bid); err != nil {
			return err
		}
		return tx.InsertBid(ctx, bid)
	})
	return bid, err
}

func bidResult(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, ErrOwnBid):
		return "own_bid"
	case errors.Is(err, ErrBidTooLow):
		return "too_low"
	default:
		return string(Kind(err))
	}
}
