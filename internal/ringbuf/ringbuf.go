// Package ringbuf provides a fixed-capacity sliding candle window. The live
// engine keeps one per symbol and timeframe: appends overwrite the oldest
// entry once full, and strategies read an oldest-first snapshot.
package ringbuf

import (
	"sync"

	"signal-systemv1/internal/model"
)

// Window is a circular buffer of candles. Safe for one writer and many
// concurrent snapshot readers. Capacity is rounded up to a power of two
// for bitwise index masking.
type Window struct {
	mu    sync.RWMutex
	buf   []model.Candle
	mask  uint64
	count uint64 // monotonically increasing append counter
}

// New creates a window. capacity is rounded up to the next power of two;
// the minimum is 2.
func New(capacity int) *Window {
	n := nextPow2(capacity)
	if n < 2 {
		n = 2
	}
	return &Window{
		buf:  make([]model.Candle, n),
		mask: uint64(n - 1),
	}
}

// Append adds a candle, evicting the oldest once the window is full. If the
// candle carries the same timestamp as the most recent entry it replaces it
// in place (streams re-emit the forming candle until it closes).
func (w *Window) Append(c model.Candle) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.count > 0 {
		last := &w.buf[(w.count-1)&w.mask]
		if last.TS.Equal(c.TS) && last.Symbol == c.Symbol {
			*last = c
			return
		}
	}
	w.buf[w.count&w.mask] = c
	w.count++
}

// Snapshot copies the window contents, oldest first.
func (w *Window) Snapshot() []model.Candle {
	w.mu.RLock()
	defer w.mu.RUnlock()

	n := w.lenLocked()
	out := make([]model.Candle, n)
	start := w.count - uint64(n)
	for i := 0; i < n; i++ {
		out[i] = w.buf[(start+uint64(i))&w.mask]
	}
	return out
}

// Last returns the most recent candle, or false on an empty window.
func (w *Window) Last() (model.Candle, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.count == 0 {
		return model.Candle{}, false
	}
	return w.buf[(w.count-1)&w.mask], true
}

// Len returns the number of candles currently held.
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lenLocked()
}

// Cap returns the window capacity.
func (w *Window) Cap() int {
	return len(w.buf)
}

func (w *Window) lenLocked() int {
	if w.count > uint64(len(w.buf)) {
		return len(w.buf)
	}
	return int(w.count)
}

// nextPow2 returns the smallest power of 2 >= n.
func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
