package auction

import (
	"time"

	"github.com/ariefcatur/go-realtime-auctions/internal/ids"
)

type Service struct {
	Store     Store
	Publisher Publisher // optional

	Now   func() time.Time
	BidID func(time.Time) string
	NewID func() string
}

func NewService(store Store, pub Publisher) *Service {
	return &Service{
		Store:     store,
		Publisher: pub,
		Now:       func() time.Time { return time.Now().UTC() },
		BidID:     ids.Sortable,
		NewID:     ids.New,
	}
}
