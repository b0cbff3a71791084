package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-realtime-auctions/internal/auction"
	"github.com/ariefcatur/go-realtime-auctions/internal/authn"
)

type AuctionsHandler struct {
	Service *auction.Service
}

func (h *AuctionsHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(RequirePrincipal)
		r.Get("/auctions", h.listAuctions)
		r.Get("/auctions/{id}", h.getAuction)
		r.Post("/admin/auctions", h.createAuction)
	})
}

func (h *AuctionsHandler) listAuctions(w http.ResponseWriter, r *http.Request) {
	views, err := h.Service.ListAuctions(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if views == nil {
		views = []auction.AuctionView{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"auctions": views})
}

func (h *AuctionsHandler) getAuction(w http.ResponseWriter, r *http.Request) {
	v, err := h.Service.GetAuction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *AuctionsHandler) createAuction(w http.ResponseWriter, r *http.Request) {
	var req auction.CreateAuctionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, _ := authn.PrincipalFrom(r.Context())

	a, err := h.Service.CreateAuction(r.Context(), p, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}
