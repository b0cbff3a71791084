package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ariefcatur/go-realtime-auctions/internal/auction"
	"github.com/ariefcatur/go-realtime-auctions/internal/obs"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Auctions   *auction.Service
	Verifier   TokenVerifier
	BidLimiter *RateLimiter // nil disables limiting
	DB         Pinger       // nil skips the readiness probe
	WS         http.Handler // nil leaves /ws unmounted
}

func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(obs.Instrument)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.DB != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.DB.Ping(ctx); err != nil {
				writeError(w, r, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	// upgraded connections outlive any request timeout
	if d.WS != nil {
		r.Method(http.MethodGet, "/ws", d.WS)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(15 * time.Second))
		r.Use(Authenticate(d.Verifier))
		(&AuctionsHandler{Service: d.Auctions}).Register(r)
		(&BidsHandler{Service: d.Auctions, Limiter: d.BidLimiter}).Register(r)
	})
	return r
}
