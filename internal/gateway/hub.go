// Package gateway is the web surface: a WebSocket hub that streams issued
// signals and candle updates to dashboard clients, plus a small REST API
// over the stored history. The hub is fed in-process by the live engine;
// it never evaluates anything itself.
package gateway

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"signal-systemv1/config"
	"signal-systemv1/internal/markethours"
	"signal-systemv1/internal/model"
)

// Event types carried in WS envelopes.
const (
	EventSignal = "signal"
	EventCandle = "candle"
	EventStatus = "status"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The dashboard is served from arbitrary origins in development.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Hub fans events out to connected WebSocket clients and keeps a replay
// buffer so a reconnecting client can backfill what it missed.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	latest  map[string][]byte // event type → last envelope
	seq     int64
	replay  *ReplayBuffer
}

// NewHub creates an empty hub with a replay window of bufferSize envelopes.
func NewHub(bufferSize int) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		latest:  make(map[string][]byte),
		replay:  NewReplayBuffer(bufferSize),
	}
}

// BroadcastSignal delivers an issued signal to all subscribed clients.
func (h *Hub) BroadcastSignal(sig *model.Signal) {
	h.broadcast(EventSignal, sig.Symbol, sig.JSON())
}

// BroadcastCandle delivers a closed candle to subscribed clients.
func (h *Hub) BroadcastCandle(c model.Candle) {
	h.broadcast(EventCandle, c.Symbol, c.JSON())
}

// broadcast wraps data in an envelope, records it for replay, and fans it
// out. The envelope is hand-built: broadcasts sit on the hot path and the
// payload is already JSON.
func (h *Hub) broadcast(event, symbol string, data []byte) {
	h.mu.Lock()
	h.seq++
	seq := h.seq
	h.mu.Unlock()

	buf := make([]byte, 0, len(event)+len(symbol)+len(data)+96)
	buf = append(buf, `{"event":"`...)
	buf = append(buf, event...)
	buf = append(buf, `","symbol":"`...)
	buf = append(buf, symbol...)
	buf = append(buf, `","data":`...)
	buf = append(buf, data...)
	buf = append(buf, `,"ts":"`...)
	buf = time.Now().UTC().AppendFormat(buf, time.RFC3339Nano)
	buf = append(buf, `","seq":`...)
	buf = strconv.AppendInt(buf, seq, 10)
	buf = append(buf, '}')

	h.replay.Push(seq, buf)

	h.mu.Lock()
	h.latest[event+":"+symbol] = buf
	h.mu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		if !client.wants(event, symbol) {
			continue
		}
		select {
		case client.send <- buf:
		default: // slow client: drop rather than stall the hub
		}
	}
}

// HandleWS upgrades the connection and registers the client. A last_seq
// query parameter triggers replay of the envelopes the client missed.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("[gateway] ws upgrade failed", "error", err)
		return
	}

	client := &Client{
		conn:    conn,
		send:    make(chan []byte, 256),
		hub:     h,
		symbols: make(map[string]bool),
	}

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()
	slog.Info("[gateway] ws client connected", "total", count)

	if lastSeq, err := strconv.ParseInt(r.URL.Query().Get("last_seq"), 10, 64); err == nil {
		go client.replayFrom(lastSeq)
	} else {
		go client.sendLatest()
	}
	go client.writePump()
	go client.readPump()
}

// removeClient unregisters a client and closes its send channel.
func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// latestSnapshot copies the last envelope per event/symbol pair.
func (h *Hub) latestSnapshot() [][]byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([][]byte, 0, len(h.latest))
	for _, env := range h.latest {
		out = append(out, env)
	}
	return out
}

// StartStatusBroadcast pushes a periodic status envelope (client count,
// uptime, trading-window state) to all clients. Blocks until done closes.
func (h *Hub) StartStatusBroadcast(done <-chan struct{}, start time.Time, windows []config.Hours) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			status := []byte(`{"clients":` + strconv.Itoa(h.ClientCount()) +
				`,"uptime_s":` + strconv.FormatInt(int64(time.Since(start).Seconds()), 10) +
				`,"market":` + strconv.Quote(markethours.StatusString(time.Now(), windows)) + `}`)
			h.broadcast(EventStatus, "", status)
		}
	}
}
