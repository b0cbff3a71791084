package fanout

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ariefcatur/go-realtime-auctions/internal/auction"
)

const (
	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	pingPeriod         = 54 * time.Second
	maxMessageSize     = 4096
	sendBuffer         = 64
	maxGroupsPerClient = 100
)

// Client is one WebSocket connection. Principal is empty for anonymous
// watchers; the channel is read-only for everyone.
type Client struct {
	ID        string
	Principal auction.Principal

	conn *websocket.Conn
	send chan []byte
}

func newClient(id string, p auction.Principal, conn *websocket.Conn) *Client {
	return &Client{ID: id, Principal: p, conn: conn, send: make(chan []byte, sendBuffer)}
}

// reply queues a control frame without blocking.
func (c *Client) reply(f serverFrame) {
	b, err := json.Marshal(f)
	if err != nil {
		return
	}
	select {
	case c.send <- b:
	default:
	}
}

func (c *Client) readPump(h *Hub) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("fanout: client %s read: %v", c.ID, err)
			}
			return
		}

		var f clientFrame
		if err := json.Unmarshal(msg, &f); err != nil {
			c.reply(serverFrame{Type: typeError, Message: "invalid frame"})
			continue
		}
		lotID := strings.TrimSpace(f.LotID)
		if lotID == "" {
			c.reply(serverFrame{Type: typeError, Message: "lotId is required"})
			continue
		}
		switch f.Action {
		case "join":
			if !h.Join(c, lotID) {
				c.reply(serverFrame{Type: typeError, LotID: lotID, Message: "too many groups"})
				continue
			}
			c.reply(serverFrame{Type: typeJoined, LotID: lotID})
		case "leave":
			h.Leave(c, lotID)
			c.reply(serverFrame{Type: typeLeft, LotID: lotID})
		default:
			c.reply(serverFrame{Type: typeError, Message: "unknown action"})
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
