package auction

import (
	"context"
	"fmt"
	"time"

	"github.com/ariefcatur/go-realtime-auctions/internal/obs"
	"github.com/ariefcatur/go-realtime-auctions/internal/orders"
)

// ActivateDue promotes scheduled auctions whose start has arrived.
// Re-running it is a no-op for auctions that are already live.
func (s *Service) ActivateDue(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.Store.ActivateDue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("activate due auctions: %w", err)
	}
	obs.AuctionsActivated.Add(float64(n))
	return n, nil
}

// SettleDue closes every live auction whose end has passed, in one transaction.
// A lot with bids becomes sold with an order for its highest bidder; a lot
// without bids is detached so it can be listed again. A lot that left the
// verified state while linked (moderation) is detached unsold.
func (s *Service) SettleDue(ctx context.Context, now time.Time) (Settlement, error) {
	var out Settlement
	err := s.Store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		out = Settlement{}
		due, err := tx.LockDueAuctions(ctx, now)
		if err != nil {
			return fmt.Errorf("lock due auctions: %w", err)
		}
		for _, a := range due {
			settled, err := s.settleAuction(ctx, tx, a, now)
			if err != nil {
				return fmt.Errorf("settle auction %s: %w", a.ID, err)
			}
			out.Auctions = append(out.Auctions, settled)
		}
		return nil
	})
	if err != nil {
		return Settlement{}, err
	}
	obs.AuctionsSettled.Add(float64(len(out.Auctions)))
	obs.OrdersCreated.Add(float64(out.Orders()))
	return out, nil
}

func (s *Service) settleAuction(ctx context.Context, tx Tx, a Auction, now time.Time) (SettledAuction, error) {
	settled := SettledAuction{AuctionID: a.ID}
	lots, err := tx.LockAuctionLots(ctx, a.ID)
	if err != nil {
		return settled, err
	}
	for _, lot := range lots {
		if lot.Status != LotVerified {
			if err := tx.DetachLot(ctx, lot.ID); err != nil {
				return settled, err
			}
			settled.Lots = append(settled.Lots, SettledLot{LotID: lot.ID, SellerID: lot.ArtistID})
			continue
		}
		win, ok, err := tx.WinningBid(ctx, lot.ID)
		if err != nil {
			return settled, err
		}
		if !ok {
			if err := tx.DetachLot(ctx, lot.ID); err != nil {
				return settled, err
			}
			settled.Lots = append(settled.Lots, SettledLot{LotID: lot.ID, SellerID: lot.ArtistID})
			continue
		}

		o := orders.NewAuctionOrder(s.NewID(), a.ID, lot.ID, lot.ArtistID, win.BidderID, win.Amount, now)
		if err := tx.InsertOrder(ctx, o); err != nil {
			return settled, err
		}
		if err := tx.MarkSold(ctx, lot.ID, win.BidderID); err != nil {
			return settled, err
		}
		settled.Lots = append(settled.Lots, SettledLot{
			LotID:    lot.ID,
			SellerID: lot.ArtistID,
			OrderID:  o.ID,
			BuyerID:  win.BidderID,
			Amount:   win.Amount,
		})
	}
	if err := tx.CompleteAuction(ctx, a.ID); err != nil {
		return settled, err
	}
	return settled, nil
}
