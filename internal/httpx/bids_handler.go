package httpx

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-realtime-auctions/internal/auction"
	"github.com/ariefcatur/go-realtime-auctions/internal/authn"
)

type BidsHandler struct {
	Service *auction.Service
	Limiter *RateLimiter
}

type PlaceBidResp struct {
	BidID     string          `json:"bidId"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"createdAt"`
}

func (h *BidsHandler) Register(r chi.Router) {
	r.With(RequirePrincipal, h.Limiter.Middleware).Post("/bids", h.placeBid)
	r.With(RequirePrincipal).Get("/lots/{id}/bids", h.listBids)
}

func (h *BidsHandler) placeBid(w http.ResponseWriter, r *http.Request) {
	var req auction.PlaceBidRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, _ := authn.PrincipalFrom(r.Context())

	bid, err := h.Service.PlaceBid(r.Context(), p, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, PlaceBidResp{BidID: bid.ID, Amount: bid.Amount, CreatedAt: bid.CreatedAt})
}

func (h *BidsHandler) listBids(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, r, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	bids, err := h.Service.ListBids(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if bids == nil {
		bids = []auction.Bid{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bids": bids})
}
