package httpx

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/ariefcatur/go-realtime-auctions/internal/auction"
	"github.com/ariefcatur/go-realtime-auctions/internal/authn"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{"error": msg}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		payload["requestId"] = rid
	}
	writeJSON(w, code, payload)
}

// writeServiceError maps the auction error taxonomy onto HTTP. Internal
// failures are logged and answered with a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch auction.Kind(err) {
	case auction.KindAuthorization:
		if _, ok := authn.PrincipalFrom(r.Context()); !ok {
			writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		writeError(w, r, http.StatusForbidden, err.Error())
	case auction.KindValidation:
		writeError(w, r, http.StatusBadRequest, err.Error())
	case auction.KindNotFound:
		writeError(w, r, http.StatusNotFound, err.Error())
	case auction.KindStateConflict:
		var rej *auction.BidRejection
		if errors.As(err, &rej) {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":        err.Error(),
				"currentPrice": rej.CurrentPrice,
				"minimumBid":   rej.MinimumBid,
			})
			return
		}
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		log.Printf("httpx: %s %s: %v", r.Method, r.URL.Path, err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}
