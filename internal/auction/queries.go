package auction

import (
	"context"
	"strings"
)

const (
	defaultBidPage = 50
	maxBidPage     = 200
)

// ListAuctions returns scheduled and live auctions with their lots.
func (s *Service) ListAuctions(ctx context.Context) ([]AuctionView, error) {
	views, err := s.Store.ListOpenAuctions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range views {
		withMinimums(&views[i])
	}
	return views, nil
}

func (s *Service) GetAuction(ctx context.Context, id string) (AuctionView, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return AuctionView{}, badRequest("auction id is required")
	}
	v, err := s.Store.GetAuction(ctx, id)
	if err != nil {
		return AuctionView{}, err
	}
	withMinimums(&v)
	return v, nil
}

// ListBids returns a lot's bid history, newest first.
func (s *Service) ListBids(ctx context.Context, lotID string, limit int) ([]Bid, error) {
	lotID = strings.TrimSpace(lotID)
	if lotID == "" {
		return nil, badRequest("lot id is required")
	}
	if limit <= 0 {
		limit = defaultBidPage
	}
	if limit > maxBidPage {
		limit = maxBidPage
	}
	return s.Store.ListBids(ctx, lotID, limit)
}

func withMinimums(v *AuctionView) {
	for i := range v.Lots {
		v.Lots[i].MinimumBid = MinimumBid(v.Lots[i].CurrentPrice)
	}
}
