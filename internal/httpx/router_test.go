package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-realtime-auctions/internal/auction"
	"github.com/ariefcatur/go-realtime-auctions/internal/auction/auctiontest"
	"github.com/ariefcatur/go-realtime-auctions/internal/authn"
)

var (
	collector = auction.Principal{UserID: "alice", Role: auction.RoleCollector}
	rival     = auction.Principal{UserID: "bob", Role: auction.RoleCollector}
	artist    = auction.Principal{UserID: "artist-1", Role: auction.RoleArtist}
	admin     = auction.Principal{UserID: "admin-1", Role: auction.RoleAdmin}
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type testServer struct {
	t        *testing.T
	router   http.Handler
	store    *auctiontest.Store
	verifier *authn.Verifier
}

func newTestServer(t *testing.T, mutate func(*Deps)) *testServer {
	t.Helper()
	store := auctiontest.NewStore()
	svc := auction.NewService(store, nil)
	n := 0
	svc.NewID = func() string {
		n++
		return fmt.Sprintf("auc-%d", n)
	}
	v := authn.NewVerifier("test-secret")
	deps := Deps{Auctions: svc, Verifier: v, DB: fakePinger{}}
	if mutate != nil {
		mutate(&deps)
	}
	return &testServer{t: t, router: NewRouter(deps), store: store, verifier: v}
}

func (s *testServer) token(p auction.Principal) string {
	s.t.Helper()
	tok, err := s.verifier.Issue(p, time.Hour)
	require.NoError(s.t, err)
	return tok
}

func (s *testServer) do(method, path, body string, p *auction.Principal) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if p != nil {
		req.Header.Set("Authorization", "Bearer "+s.token(*p))
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func biddableLot(id, price string) auction.Lot {
	return auction.Lot{
		ID:         id,
		ArtistID:   "artist-1",
		Title:      "Lot " + id,
		SalePath:   auction.SaleAuction,
		Status:     auction.LotVerified,
		OpeningBid: decimal.RequireFromString(price),
	}
}

func TestHealthAndReadiness(t *testing.T) {
	s := newTestServer(t, nil)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/readyz", "", nil).Code)

	down := newTestServer(t, func(d *Deps) { d.DB = fakePinger{err: errors.New("connection refused")} })
	rec := down.do(http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "database unavailable", decodeBody(t, rec)["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPlaceBidAuthentication(t *testing.T) {
	s := newTestServer(t, nil)
	s.store.AddLot(biddableLot("lot-1", "1000"))
	body := `{"lotId":"lot-1","amount":1101}`

	rec := s.do(http.MethodPost, "/api/v1/bids", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bids", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	bad := httptest.NewRecorder()
	s.router.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusUnauthorized, bad.Code)

	rec = s.do(http.MethodPost, "/api/v1/bids", body, &artist)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPlaceBidAcceptedAndRejected(t *testing.T) {
	s := newTestServer(t, nil)
	s.store.AddLot(biddableLot("lot-1", "1000"))

	rec := s.do(http.MethodPost, "/api/v1/bids", `{"lotId":"lot-1","amount":1100}`, &collector)
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "1100", body["minimumBid"])
	assert.Equal(t, "1000", body["currentPrice"])

	rec = s.do(http.MethodPost, "/api/v1/bids", `{"lotId":"lot-1","amount":"1101"}`, &collector)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body = decodeBody(t, rec)
	assert.NotEmpty(t, body["bidId"])
	assert.Equal(t, "1101", body["amount"])
	assert.NotEmpty(t, body["createdAt"])

	lot, _ := s.store.Lot("lot-1")
	assert.Equal(t, "alice", lot.HighestBidder)

	rec = s.do(http.MethodPost, "/api/v1/bids", `{"lotId":"lot-1","amount":5000}`, &collector)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/bids", `{"lotId":"lot-1","amount":1211}`, &rival)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "1211", decodeBody(t, rec)["minimumBid"])
}

func TestPlaceBidBadInput(t *testing.T) {
	s := newTestServer(t, nil)
	s.store.AddLot(biddableLot("lot-1", "1000"))

	cases := map[string]struct {
		body string
		code int
	}{
		"invalid json":   {`{"lotId":`, http.StatusBadRequest},
		"missing amount": {`{"lotId":"lot-1"}`, http.StatusBadRequest},
		"negative":       {`{"lotId":"lot-1","amount":-5}`, http.StatusBadRequest},
		"unknown lot":    {`{"lotId":"lot-404","amount":5000}`, http.StatusNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/v1/bids", tc.body, &collector)
			assert.Equal(t, tc.code, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decodeBody(t, rec)["error"])
		})
	}
}

func TestPlaceBidRateLimited(t *testing.T) {
	s := newTestServer(t, func(d *Deps) { d.BidLimiter = NewRateLimiter(1, 1) })
	s.store.AddLot(biddableLot("lot-1", "1000"))

	first := s.do(http.MethodPost, "/api/v1/bids", `{"lotId":"lot-1","amount":1101}`, &collector)
	assert.Equal(t, http.StatusCreated, first.Code)

	second := s.do(http.MethodPost, "/api/v1/bids", `{"lotId":"lot-1","amount":2000}`, &collector)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))

	// buckets are per bidder
	other := s.do(http.MethodPost, "/api/v1/bids", `{"lotId":"lot-1","amount":2000}`, &rival)
	assert.Equal(t, http.StatusCreated, other.Code)
}

func TestListBids(t *testing.T) {
	s := newTestServer(t, nil)
	s.store.AddLot(biddableLot("lot-1", "1000"))
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/bids", `{"lotId":"lot-1","amount":1101}`, &collector).Code)
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/bids", `{"lotId":"lot-1","amount":1300}`, &rival).Code)

	rec := s.do(http.MethodGet, "/api/v1/lots/lot-1/bids", "", &collector)
	require.Equal(t, http.StatusOK, rec.Code)
	bids := decodeBody(t, rec)["bids"].([]any)
	assert.Len(t, bids, 2)

	rec = s.do(http.MethodGet, "/api/v1/lots/lot-1/bids?limit=1", "", &collector)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["bids"].([]any), 1)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/lots/lot-1/bids?limit=many", "", &collector).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/lots/lot-404/bids", "", &collector).Code)
}

func TestCreateAndReadAuctions(t *testing.T) {
	s := newTestServer(t, nil)
	s.store.AddLot(biddableLot("lot-1", "1000"))
	s.store.AddLot(biddableLot("lot-2", "500"))
	body := `{"title":"Spring","description":"Contemporary works","lotIds":["lot-1","lot-2","lot-1"],` +
		`"startDate":"2030-04-01T10:00:00Z","endDate":"2030-04-08T10:00:00Z"}`

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodPost, "/api/v1/admin/auctions", body, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/v1/admin/auctions", body, &collector).Code)

	rec := s.do(http.MethodPost, "/api/v1/admin/auctions", body, &admin)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody(t, rec)
	assert.Equal(t, "auc-1", created["id"])
	assert.Equal(t, "scheduled", created["status"])
	assert.Equal(t, []any{"lot-1", "lot-2"}, created["lotIds"])

	rec = s.do(http.MethodGet, "/api/v1/auctions", "", &collector)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["auctions"].([]any), 1)

	rec = s.do(http.MethodGet, "/api/v1/auctions/auc-1", "", &collector)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeBody(t, rec)
	lots := view["lots"].([]any)
	require.Len(t, lots, 2)
	first := lots[0].(map[string]any)
	assert.Equal(t, "1000", first["currentPrice"])
	assert.Equal(t, "1100", first["minimumBid"])

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/auctions/nope", "", &collector).Code)

	// both lots are now linked, so a second auction over them fails eligibility
	rec = s.do(http.MethodPost, "/api/v1/admin/auctions", body, &admin)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1, s.store.AuctionCount())
}

func TestReadRoutesRequireAuthentication(t *testing.T) {
	s := newTestServer(t, nil)
	s.store.AddLot(biddableLot("lot-1", "1000"))

	for _, path := range []string{"/api/v1/auctions", "/api/v1/auctions/auc-1", "/api/v1/lots/lot-1/bids"} {
		rec := s.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Equal(t, "authentication required", decodeBody(t, rec)["error"], path)
	}

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/auctions", "", &artist).Code)
}

func TestCreateAuctionValidation(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(http.MethodPost, "/api/v1/admin/auctions",
		`{"title":"x","description":"y","lotIds":[],"startDate":"2030-04-01T10:00:00Z","endDate":"2030-04-08T10:00:00Z"}`, &admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
