package auction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repo is the Postgres Store.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &repoTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *Repo) ActivateDue(ctx context.Context, now time.Time) (int64, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE auctions SET status = 'live', updated_at = $1
		WHERE status = 'scheduled' AND start_date <= $1`, now)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

const auctionColumns = `id, title, description, lot_ids, start_date, end_date, status, created_by, created_at, updated_at`

func scanAuction(row pgx.Row) (Auction, error) {
	var a Auction
	err := row.Scan(&a.ID, &a.Title, &a.Description, &a.LotIDs, &a.StartDate, &a.EndDate,
		&a.Status, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *Repo) ListOpenAuctions(ctx context.Context) ([]AuctionView, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+auctionColumns+` FROM auctions
		WHERE status IN ('scheduled', 'live')
		ORDER BY start_date, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auctions []Auction
	var lotIDs []string
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, a)
		lotIDs = append(lotIDs, a.LotIDs...)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	summaries, err := r.lotSummaries(ctx, lotIDs)
	if err != nil {
		return nil, err
	}
	out := make([]AuctionView, 0, len(auctions))
	for _, a := range auctions {
		out = append(out, assembleView(a, summaries))
	}
	return out, nil
}

func (r *Repo) GetAuction(ctx context.Context, id string) (AuctionView, error) {
	a, err := scanAuction(r.DB.QueryRow(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return AuctionView{}, fmt.Errorf("auction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return AuctionView{}, err
	}
	summaries, err := r.lotSummaries(ctx, a.LotIDs)
	if err != nil {
		return AuctionView{}, err
	}
	return assembleView(a, summaries), nil
}

func assembleView(a Auction, summaries map[string]LotSummary) AuctionView {
	v := AuctionView{Auction: a, Lots: make([]LotSummary, 0, len(a.LotIDs))}
	for _, id := range a.LotIDs {
		if s, ok := summaries[id]; ok {
			v.Lots = append(v.Lots, s)
		}
	}
	return v
}

func (r *Repo) lotSummaries(ctx context.Context, ids []string) (map[string]LotSummary, error) {
	out := make(map[string]LotSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.DB.Query(ctx, `
		SELECT w.id, w.title, w.image_url, w.status, w.opening_bid, w.reserve_price,
		       COALESCE(w.highest_bidder, ''), w.artist_id, COALESCE(u.name, '')
		FROM artworks w
		LEFT JOIN users u ON u.id = w.artist_id
		WHERE w.id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			s       LotSummary
			reserve decimal.NullDecimal
		)
		if err := rows.Scan(&s.ID, &s.Title, &s.ImageURL, &s.Status, &s.CurrentPrice, &reserve,
			&s.HighestBidder, &s.Artist.ID, &s.Artist.Name); err != nil {
			return nil, err
		}
		if reserve.Valid {
			s.ReservePrice = &reserve.Decimal
		}
		out[s.ID] = s
	}
	return out, rows.Err()
}

func (r *Repo) ListBids(ctx context.Context, lotID string, limit int) ([]Bid, error) {
	var exists bool
	if err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM artworks WHERE id = $1)`, lotID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("lot %s: %w", lotID, ErrNotFound)
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, artwork_id, bidder_id, amount, created_at
		FROM bids WHERE artwork_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, lotID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Bid{}
	for rows.Next() {
		var b Bid
		if err := rows.Scan(&b.ID, &b.LotID, &b.BidderID, &b.Amount, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

var _ Store = (*Repo)(nil)
