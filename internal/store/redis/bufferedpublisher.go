package redis

import (
	"context"
	"log/slog"
	"sync"

	"signal-systemv1/internal/model"
)

// BufferedPublisher wraps a Publisher with a circuit breaker. While the
// breaker is open, signals are held in a bounded local buffer and replayed
// once the connection recovers, so a Redis outage delays delivery instead
// of dropping it. Implements model.SignalPublisher.
type BufferedPublisher struct {
	pub *Publisher
	cb  *CircuitBreaker
	ctx context.Context

	mu     sync.Mutex
	buffer []model.Signal
	maxBuf int

	// OnBuffer and OnFlush feed metrics; either may be nil.
	OnBuffer func()
	OnFlush  func(count int)
}

// NewBufferedPublisher wires the publisher, breaker, and flush-on-recovery
// hook together. maxBuffer <= 0 defaults to 1000 signals.
func NewBufferedPublisher(ctx context.Context, pub *Publisher, cb *CircuitBreaker, maxBuffer int) *BufferedPublisher {
	if maxBuffer <= 0 {
		maxBuffer = 1000
	}
	bp := &BufferedPublisher{
		pub:    pub,
		cb:     cb,
		ctx:    ctx,
		buffer: make([]model.Signal, 0, 64),
		maxBuf: maxBuffer,
	}

	prev := cb.OnStateChange
	cb.OnStateChange = func(from, to State) {
		if prev != nil {
			prev(from, to)
		}
		if to == StateClosed {
			go bp.flush()
		}
	}
	return bp
}

// PublishSignal publishes through the breaker, buffering on an open circuit.
func (bp *BufferedPublisher) PublishSignal(ctx context.Context, sig model.Signal) error {
	err := bp.cb.Execute(func() error {
		return bp.pub.PublishSignal(ctx, sig)
	})
	if err == ErrCircuitOpen {
		bp.bufferSignal(sig)
		return nil // held, not lost
	}
	return err
}

func (bp *BufferedPublisher) bufferSignal(sig model.Signal) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if len(bp.buffer) >= bp.maxBuf {
		bp.buffer = bp.buffer[1:] // drop oldest
	}
	bp.buffer = append(bp.buffer, sig)

	if bp.OnBuffer != nil {
		bp.OnBuffer()
	}
}

// flush replays buffered signals through the recovered publisher.
func (bp *BufferedPublisher) flush() {
	bp.mu.Lock()
	if len(bp.buffer) == 0 {
		bp.mu.Unlock()
		return
	}
	held := bp.buffer
	bp.buffer = make([]model.Signal, 0, 64)
	bp.mu.Unlock()

	for _, sig := range held {
		if err := bp.pub.PublishSignal(bp.ctx, sig); err != nil {
			slog.Error("[buffered-publisher] replay failed", "id", sig.ID, "error", err)
		}
	}

	slog.Info("[buffered-publisher] flushed held signals", "count", len(held))
	if bp.OnFlush != nil {
		bp.OnFlush(len(held))
	}
}

// PendingCount returns the number of signals waiting for replay.
func (bp *BufferedPublisher) PendingCount() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return len(bp.buffer)
}

// Underlying returns the wrapped publisher for direct access.
func (bp *BufferedPublisher) Underlying() *Publisher {
	return bp.pub
}
