package auction

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type CreateAuctionRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	LotIDs      []string  `json:"lotIds"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
}

// CreateAuction creates a scheduled auction and links every requested lot to it.
// Either the whole lot set is eligible and linked, or nothing is written.
func (s *Service) CreateAuction(ctx context.Context, p Principal, req CreateAuctionRequest) (Auction, error) {
	if !p.CanManageAuctions() {
		return Auction{}, fmt.Errorf("%w: only admins can create auctions", ErrForbidden)
	}
	title := strings.TrimSpace(req.Title)
	desc := strings.TrimSpace(req.Description)
	if title == "" || desc == "" || req.StartDate.IsZero() || req.EndDate.IsZero() {
		return Auction{}, badRequest("title, description, startDate and endDate are required")
	}
	lotIDs := dedupe(req.LotIDs)
	if len(lotIDs) == 0 {
		return Auction{}, badRequest("lotIds must not be empty")
	}
	if !req.EndDate.After(req.StartDate) {
		return Auction{}, badRequest("endDate must be after startDate")
	}

	now := s.Now()
	a := Auction{
		ID:          s.NewID(),
		Title:       title,
		Description: desc,
		LotIDs:      lotIDs,
		StartDate:   req.StartDate.UTC(),
		EndDate:     req.EndDate.UTC(),
		Status:      StatusScheduled,
		CreatedBy:   p.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.Store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		eligible, err := tx.CountEligibleLots(ctx, lotIDs)
		if err != nil {
			return err
		}
		if eligible != len(lotIDs) {
			return &EligibilityError{Requested: len(lotIDs), Eligible: eligible}
		}
		if err := tx.InsertAuction(ctx, a); err != nil {
			return err
		}
		linked, err := tx.LinkLots(ctx, a.ID, lotIDs)
		if err != nil {
			return err
		}
		// a concurrent orchestration may have claimed a lot since the count
		if linked != int64(len(lotIDs)) {
			return &EligibilityError{Requested: len(lotIDs), Eligible: int(linked)}
		}
		return nil
	})
	if err != nil {
		return Auction{}, err
	}
	return a, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, id := range in {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
