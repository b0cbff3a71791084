package fanout

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-realtime-auctions/internal/auction"
	"github.com/ariefcatur/go-realtime-auctions/internal/authn"
)

type wsFixture struct {
	hub      *Hub
	verifier *authn.Verifier
	url      string
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	f := &wsFixture{hub: NewHub(), verifier: authn.NewVerifier("s3cret")}
	srv := httptest.NewServer(&Handler{Hub: f.hub, Verifier: f.verifier})
	t.Cleanup(srv.Close)
	f.url = "ws" + strings.TrimPrefix(srv.URL, "http")
	return f
}

func (f *wsFixture) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(f.url+query, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(msg, &m))
	return m
}

func TestHandlerOptimisticAuth(t *testing.T) {
	f := newWSFixture(t)

	anon := f.dial(t, "")
	hello := readFrame(t, anon)
	assert.Equal(t, "connected", hello["type"])
	assert.Equal(t, false, hello["authenticated"])

	bad := f.dial(t, "?token=garbage")
	assert.Equal(t, false, readFrame(t, bad)["authenticated"])

	tok, err := f.verifier.Issue(auction.Principal{UserID: "alice", Role: auction.RoleCollector}, time.Minute)
	require.NoError(t, err)
	good := f.dial(t, "?token="+tok)
	assert.Equal(t, true, readFrame(t, good)["authenticated"])
}

func TestHandlerJoinReceiveLeave(t *testing.T) {
	f := newWSFixture(t)
	watcher := f.dial(t, "")
	other := f.dial(t, "")
	readFrame(t, watcher)
	readFrame(t, other)

	require.NoError(t, watcher.WriteJSON(map[string]string{"action": "join", "lotId": "lot-1"}))
	assert.Equal(t, map[string]any{"type": "joined", "lotId": "lot-1"}, readFrame(t, watcher))
	require.NoError(t, other.WriteJSON(map[string]string{"action": "join", "lotId": "lot-2"}))
	readFrame(t, other)

	broker := NewLocal()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = Relay(ctx, broker, f.hub) }()
	require.Eventually(t, func() bool { return broker.subscribers() == 1 }, time.Second, 5*time.Millisecond)

	n := &Notifier{Broker: broker}
	require.NoError(t, n.PublishBid(ctx, auction.Bid{ID: "b1", LotID: "lot-1", BidderID: "bob", Amount: d("1101")}))

	ev := readFrame(t, watcher)
	assert.Equal(t, "bid-updated", ev["type"])
	assert.Equal(t, "lot-1", ev["lotId"])
	assert.Equal(t, "1101", ev["amount"])
	assert.Equal(t, "bob", ev["bidderId"])

	require.NoError(t, watcher.WriteJSON(map[string]string{"action": "leave", "lotId": "lot-1"}))
	assert.Equal(t, "left", readFrame(t, watcher)["type"])
	assert.Zero(t, f.hub.Members("lot-1"))

	// lot-2's watcher never saw lot-1's update
	require.NoError(t, n.PublishBid(ctx, auction.Bid{ID: "b2", LotID: "lot-2", BidderID: "carol", Amount: d("50")}))
	assert.Equal(t, "lot-2", readFrame(t, other)["lotId"])
}

func TestHandlerRejectsBadFrames(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, "")
	readFrame(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{")))
	assert.Equal(t, "error", readFrame(t, conn)["type"])

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "join"}))
	assert.Equal(t, "lotId is required", readFrame(t, conn)["message"])

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "bid", "lotId": "lot-1"}))
	assert.Equal(t, "unknown action", readFrame(t, conn)["message"])
}

func TestDisconnectLeavesAllGroups(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, "")
	readFrame(t, conn)
	require.NoError(t, conn.WriteJSON(map[string]string{"action": "join", "lotId": "lot-1"}))
	readFrame(t, conn)
	require.Equal(t, 1, f.hub.Members("lot-1"))

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return f.hub.Members("lot-1") == 0 }, 2*time.Second, 10*time.Millisecond)
}
