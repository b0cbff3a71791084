package fanout

import (
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ariefcatur/go-realtime-auctions/internal/auction"
	"github.com/ariefcatur/go-realtime-auctions/internal/authn"
	"github.com/ariefcatur/go-realtime-auctions/internal/obs"
)

type TokenVerifier interface {
	Verify(token string) (auction.Principal, error)
}

// Handler upgrades to WebSocket. Authentication is optimistic: a missing or
// invalid token still connects, as an anonymous watcher.
type Handler struct {
	Hub      *Hub
	Verifier TokenVerifier

	// CheckOrigin overrides the upgrader's same-origin check when set.
	CheckOrigin func(r *http.Request) bool
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.CheckOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("fanout: upgrade: %v", err)
		return
	}

	p := h.principal(r)
	c := newClient(uuid.NewString(), p, conn)
	obs.WSConnections.Inc()

	go c.writePump()
	authenticated := p.UserID != ""
	c.reply(serverFrame{Type: typeConnected, ClientID: c.ID, Authenticated: &authenticated})

	go func() {
		defer obs.WSConnections.Dec()
		c.readPump(h.Hub)
		h.Hub.Remove(c)
		close(c.send)
	}()
}

func (h *Handler) principal(r *http.Request) auction.Principal {
	if h.Verifier == nil {
		return auction.Principal{}
	}
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		token, _ = authn.BearerToken(r.Header.Get("Authorization"))
	}
	if token == "" {
		return auction.Principal{}
	}
	p, err := h.Verifier.Verify(token)
	if err != nil {
		return auction.Principal{}
	}
	return p
}
