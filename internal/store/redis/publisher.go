// Package redis carries the engine's Redis surface: the signal publisher,
// the candle-stream consumer, and the circuit breaker that keeps a Redis
// outage from stalling evaluation.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"signal-systemv1/internal/model"
)

const (
	// signalStreamMaxLen keeps roughly a day of signals per symbol.
	signalStreamMaxLen = 2000
	defaultLatestTTL   = 30 * time.Minute
)

// Config configures the Redis connection.
type Config struct {
	Addr     string // e.g. "localhost:6379"
	Password string
	DB       int
}

// Publisher writes signals to Redis: XADD to the per-symbol stream, SET of
// the latest-signal key with a TTL, and PUBLISH for live subscribers, one
// pipelined roundtrip per signal. Implements model.SignalPublisher.
type Publisher struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (p *Publisher) Client() *goredis.Client { return p.client }

// NewPublisher connects and pings the server.
func NewPublisher(cfg Config) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	slog.Info("[redis] connected", "addr", cfg.Addr)
	return &Publisher{client: client}, nil
}

// PublishSignal delivers one enriched signal.
func (p *Publisher) PublishSignal(ctx context.Context, sig model.Signal) error {
	data := string(sig.JSON())
	streamKey := "signals:" + sig.Symbol
	latestKey := "signal:latest:" + sig.Symbol
	pubsubCh := "pub:signal:" + sig.Symbol

	pipe := p.client.Pipeline()
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: streamKey,
		MaxLen: signalStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": data},
	})
	pipe.Set(ctx, latestKey, data, defaultLatestTTL)
	pipe.Publish(ctx, pubsubCh, data)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis publish signal %s: %w", sig.ID, err)
	}
	return nil
}

// LatestSignal reads the most recent published signal for a symbol, or nil
// when none is stored (or the TTL expired).
func (p *Publisher) LatestSignal(ctx context.Context, symbol string) (*model.Signal, error) {
	data, err := p.client.Get(ctx, "signal:latest:"+symbol).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get latest signal: %w", err)
	}
	sig, err := model.SignalFromJSON(data)
	if err != nil {
		return nil, err
	}
	return sig, nil
}

// Close closes the Redis client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
