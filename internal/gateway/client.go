package gateway

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client is a single WebSocket peer. An empty symbol set means "all
// symbols" (the dashboard's default view).
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	subMu   sync.RWMutex
	symbols map[string]bool
}

// subscribeMsg is the client's filter update:
// {"type":"SUBSCRIBE","symbols":["BTCUSDT"]}
type subscribeMsg struct {
	Type    string   `json:"type"`
	Symbols []string `json:"symbols"`
	Ping    int64    `json:"ping"`
}

// wants reports whether this client should receive an event. Status events
// always deliver; data events respect the symbol filter.
func (c *Client) wants(event, symbol string) bool {
	if event == EventStatus {
		return true
	}
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	if len(c.symbols) == 0 {
		return true
	}
	return c.symbols[symbol]
}

// sendLatest seeds a fresh client with the last envelope per event/symbol.
func (c *Client) sendLatest() {
	for _, env := range c.hub.latestSnapshot() {
		select {
		case c.send <- env:
		default:
		}
	}
}

// replayFrom backfills envelopes a reconnecting client missed.
func (c *Client) replayFrom(lastSeq int64) {
	entries := c.hub.replay.Since(lastSeq)
	for _, e := range entries {
		select {
		case c.send <- e.Data:
		default:
		}
	}
	slog.Debug("[gateway] replayed envelopes", "count", len(entries), "from_seq", lastSeq)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))

			// Coalesce queued envelopes into one frame, newline separated.
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(msg)
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.removeClient(c)
		c.conn.Close()
		slog.Info("[gateway] ws client disconnected")
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var m subscribeMsg
		if json.Unmarshal(msg, &m) != nil {
			continue
		}

		switch {
		case m.Type == "SUBSCRIBE":
			c.setSymbols(m.Symbols)
		case m.Type == "UNSUBSCRIBE":
			c.setSymbols(nil)
		case m.Ping > 0:
			pong, _ := json.Marshal(map[string]interface{}{
				"event":     "pong",
				"ping":      m.Ping,
				"server_ts": time.Now().UnixMilli(),
			})
			select {
			case c.send <- pong:
			default:
			}
		}
	}
}

func (c *Client) setSymbols(symbols []string) {
	c.subMu.Lock()
	c.symbols = make(map[string]bool, len(symbols))
	for _, s := range symbols {
		c.symbols[s] = true
	}
	c.subMu.Unlock()
	slog.Debug("[gateway] client filter updated", "symbols", symbols)
}
