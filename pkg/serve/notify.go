package serve

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"

	ws "github.com/coder/websocket"
	"github.com/google/uuid"
)

// notifyMessage is pushed to every connected /ws client on reload or on a
// failed rebuild, so the browser client can refresh or surface the error
// without polling.
type notifyMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// maxPendingNotifications is the outbound queue depth per client beyond
// which the client is disconnected rather than let a slow reader stall
// every other subscriber's broadcast.
const maxPendingNotifications = 64

// notifyClient owns one subscriber's outbound queue and write loop, so a
// slow or wedged client can be dropped without blocking broadcast() or any
// other client's delivery.
type notifyClient struct {
	conn    *ws.Conn
	outbox  chan []byte
	dropped atomic.Bool
}

func newNotifyClient(conn *ws.Conn) *notifyClient {
	return &notifyClient{conn: conn, outbox: make(chan []byte, maxPendingNotifications)}
}

// enqueue attempts a non-blocking send; when the outbox is already full it
// marks the client dropped instead of blocking the broadcaster.
func (c *notifyClient) enqueue(data []byte) {
	select {
	case c.outbox <- data:
	default:
		c.dropped.Store(true)
	}
}

// writeLoop drains the outbox until the client disconnects or is marked
// dropped for exceeding its pending-message budget.
func (c *notifyClient) writeLoop(ctx context.Context) {
	for {
		select {
		case data, ok := <-c.outbox:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, data); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
		if c.dropped.Load() {
			_ = c.conn.Close(ws.StatusPolicyViolation, "too many pending messages")
			return
		}
	}
}

// notifier fans a reload/error event out to every currently connected
// notification-channel client. Grounded on the teacher's Connection/
// ConnectionManager split, collapsed to the single broadcast-only shape
// this endpoint needs, with a bounded per-client outbox standing in for
// the teacher's sendMu-guarded synchronous Send.
type notifier struct {
	mu      sync.Mutex
	clients map[string]*notifyClient
}

func newNotifier() *notifier {
	return &notifier{clients: make(map[string]*notifyClient)}
}

func (n *notifier) add(conn *ws.Conn) (string, *notifyClient) {
	id := uuid.NewString()
	c := newNotifyClient(conn)
	n.mu.Lock()
	n.clients[id] = c
	n.mu.Unlock()
	return id, c
}

func (n *notifier) remove(id string) {
	n.mu.Lock()
	delete(n.clients, id)
	n.mu.Unlock()
}

func (n *notifier) broadcastReload() {
	n.broadcast(notifyMessage{Type: "reload"})
}

func (n *notifier) broadcastError(msg string) {
	n.broadcast(notifyMessage{Type: "error", Message: msg})
}

func (n *notifier) broadcast(m notifyMessage) {
	data, err := json.Marshal(m)
	if err != nil {
		return
	}

	n.mu.Lock()
	clients := make([]*notifyClient, 0, len(n.clients))
	for _, c := range n.clients {
		clients = append(clients, c)
	}
	n.mu.Unlock()

	for _, c := range clients {
		c.enqueue(data)
	}
}

// handleNotifyWs upgrades to a long-lived, server-push-only connection: no
// message is sent on connect, the client only ever receives reload/error
// events. The read loop exists solely to detect client-initiated close;
// writes are handed off to a dedicated writeLoop so one slow client never
// blocks a broadcast to the rest.
func (s *Server) handleNotifyWs(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	id, client := s.notify.add(conn)
	defer s.notify.remove(id)

	go client.writeLoop(ctx)

	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}
