// Package consolefeed wires the status-website seam of §6
// (`consoleEnabled`) to a websocket transport: it broadcasts
// WorkerStatus/NodeStatus changes published on a status.Feed to every
// connected client as JSON. The status website itself is out of scope
// (§1) — this package only implements the transport hook the config
// option names.
package consolefeed

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/vertexflow/sigcollect/pkg/concurrency"
	"github.com/vertexflow/sigcollect/pkg/graph"
	"github.com/vertexflow/sigcollect/pkg/status"
)

// frame is the JSON envelope written to every connected client, tagged
// by topic so a single websocket connection can carry both worker and
// node status without a second upgrade.
type frame struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

// Hub upgrades incoming connections and rebroadcasts status.Feed
// publications to all of them.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[*websocket.Conn]struct{}

	// writer serializes every outbound WriteMessage behind a single
	// worker: gorilla/websocket only supports one concurrent writer per
	// connection, and the two status.Subscribe relay goroutines
	// ("worker_status", "node_status") would otherwise both call
	// broadcast concurrently. Routing every write through one
	// bounded-queue worker also means a slow or stalled client backs up
	// against the queue instead of blocking whichever relay goroutine
	// happens to hit it first.
	writer concurrency.Executor
}

// NewHub builds a Hub that subscribes to feed's "worker_status" and
// "node_status" topics and pushes every update to every connected
// client. The relay goroutines it starts run for the life of the
// process; nothing stops them.
func NewHub(feed *status.Feed) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]struct{}),
		writer: concurrency.NewExecutor(context.Background(), concurrency.ExecutorConfig{
			Workers:   1,
			QueueSize: 256,
		}),
	}
	workerUpdates := status.Subscribe[graph.WorkerStatus](feed, "worker_status")
	nodeUpdates := status.Subscribe[graph.NodeStatus](feed, "node_status")
	go relay(h, "worker_status", workerUpdates)
	go relay(h, "node_status", nodeUpdates)
	return h
}

func relay[T any](h *Hub, topic string, updates <-chan T) {
	for u := range updates {
		h.broadcast(frame{Topic: topic, Payload: u})
	}
}

// ServeHTTP upgrades the request to a websocket connection and registers
// it as a broadcast target until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	go h.drainUntilClosed(conn)
}

// drainUntilClosed reads (and discards) from conn only so the
// underlying websocket keeps up with control frames; once the client
// goes away it deregisters itself.
func (h *Hub) drainUntilClosed(conn *websocket.Conn) {
	defer h.remove(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// broadcast queues one write task per connected client onto h.writer
// rather than writing inline; a full queue (a stalled client not
// draining fast enough) silently drops that client's update, the same
// best-effort delivery the direct WriteMessage call used to give by
// ignoring its error.
func (h *Hub) broadcast(f frame) {
	payload, err := json.Marshal(f)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.clients {
		conn := conn
		_ = h.writer.Submit(concurrency.TaskFunc(func(context.Context) error {
			_ = conn.WriteMessage(websocket.TextMessage, payload)
			return nil
		}))
	}
}

// ClientCount reports how many websocket clients are currently
// connected, mostly useful for tests and diagnostics.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
