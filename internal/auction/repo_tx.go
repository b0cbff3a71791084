package auction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-realtime-auctions/internal/orders"
)

type repoTx struct{ tx pgx.Tx }

const lotColumns = `id, artist_id, title, image_url, sale_path, status, COALESCE(auction_id, ''),
	opening_bid, reserve_price, COALESCE(highest_bidder, '')`

func scanLot(row pgx.Row) (Lot, error) {
	var (
		l       Lot
		reserve decimal.NullDecimal
	)
	err := row.Scan(&l.ID, &l.ArtistID, &l.Title, &l.ImageURL, &l.SalePath, &l.Status, &l.AuctionID,
		&l.OpeningBid, &reserve, &l.HighestBidder)
	if reserve.Valid {
		l.ReservePrice = &reserve.Decimal
	}
	return l, err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (t *repoTx) GetLot(ctx context.Context, id string) (Lot, error) {
	l, err := scanLot(t.tx.QueryRow(ctx, `SELECT `+lotColumns+` FROM artworks WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lot{}, fmt.Errorf("lot %s: %w", id, ErrNotFound)
	}
	return l, err
}

// AdvancePrice touches only the price pointer and leader. The WHERE clause is
// re-evaluated against the latest row version once a concurrent writer commits.
func (t *repoTx) AdvancePrice(ctx context.Context, prev Lot, bid Bid) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE artworks SET opening_bid = $2, highest_bidder = $3, updated_at = $4
		WHERE id = $1
		  AND opening_bid = $5
		  AND highest_bidder IS NOT DISTINCT FROM $6
		  AND status = 'verified' AND sale_path = 'auction'
		  AND opening_bid < $2`,
		prev.ID, bid.Amount, bid.BidderID, bid.CreatedAt, prev.OpeningBid, nullable(prev.HighestBidder))
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrStaleLot
	}
	return nil
}

func (t *repoTx) InsertBid(ctx context.Context, b Bid) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO bids(id, artwork_id, bidder_id, amount, created_at)
		VALUES ($1,$2,$3,$4,$5)`, b.ID, b.LotID, b.BidderID, b.Amount, b.CreatedAt)
	return err
}

func (t *repoTx) CountEligibleLots(ctx context.Context, ids []string) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM artworks
		WHERE id = ANY($1) AND status = 'verified' AND sale_path = 'auction' AND auction_id IS NULL`,
		ids).Scan(&n)
	return n, err
}

func (t *repoTx) InsertAuction(ctx context.Context, a Auction) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO auctions(`+auctionColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.Title, a.Description, a.LotIDs, a.StartDate, a.EndDate, a.Status, a.CreatedBy, a.CreatedAt, a.UpdatedAt)
	return err
}

func (t *repoTx) LinkLots(ctx context.Context, auctionID string, ids []string) (int64, error) {
	ct, err := t.tx.Exec(ctx, `
		UPDATE artworks SET auction_id = $1, updated_at = now()
		WHERE id = ANY($2) AND status = 'verified' AND sale_path = 'auction' AND auction_id IS NULL`,
		auctionID, ids)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

// LockDueAuctions skips rows another sweeper already holds.
func (t *repoTx) LockDueAuctions(ctx context.Context, now time.Time) ([]Auction, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+auctionColumns+` FROM auctions
		WHERE status = 'live' AND end_date <= $1
		ORDER BY id
		FOR UPDATE SKIP LOCKED`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// LockAuctionLots locks the lots before their bids are read, so a bid racing
// the sweep either commits first or fails the verified guard afterwards.
func (t *repoTx) LockAuctionLots(ctx context.Context, auctionID string) ([]Lot, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+lotColumns+` FROM artworks
		WHERE auction_id = $1
		ORDER BY id
		FOR UPDATE`, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Lot
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (t *repoTx) WinningBid(ctx context.Context, lotID string) (Bid, bool, error) {
	var b Bid
	err := t.tx.QueryRow(ctx, `
		SELECT id, artwork_id, bidder_id, amount, created_at
		FROM bids WHERE artwork_id = $1
		ORDER BY amount DESC, created_at ASC, id ASC
		LIMIT 1`, lotID).Scan(&b.ID, &b.LotID, &b.BidderID, &b.Amount, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Bid{}, false, nil
	}
	if err != nil {
		return Bid{}, false, err
	}
	return b, true, nil
}

func (t *repoTx) DetachLot(ctx context.Context, lotID string) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE artworks SET auction_id = NULL, highest_bidder = NULL, updated_at = now()
		WHERE id = $1`, lotID)
	return err
}

func (t *repoTx) MarkSold(ctx context.Context, lotID, buyerID string) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE artworks SET status = 'sold', highest_bidder = $2, updated_at = now()
		WHERE id = $1 AND status = 'verified'`, lotID, buyerID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("mark lot %s sold: %w", lotID, ErrInvalidState)
	}
	return nil
}

func (t *repoTx) InsertOrder(ctx context.Context, o orders.Order) error {
	var shipping []byte
	if o.Shipping != nil {
		b, err := json.Marshal(o.Shipping)
		if err != nil {
			return err
		}
		shipping = b
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders(id, buyer_id, seller_id, artwork_id, sale_type, auction_id, amount, shipping,
		                   payment_method, payment_status, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		o.ID, o.BuyerID, o.SellerID, o.ArtworkID, o.SaleType, nullable(o.AuctionID), o.Amount, shipping,
		o.PaymentMethod, o.PaymentStatus, o.Status, o.CreatedAt, o.UpdatedAt)
	return err
}

func (t *repoTx) CompleteAuction(ctx context.Context, auctionID string) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE auctions SET status = 'completed', updated_at = now()
		WHERE id = $1 AND status = 'live'`, auctionID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("complete auction %s: %w", auctionID, ErrInvalidState)
	}
	return nil
}

var _ Tx = (*repoTx)(nil)
