package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"signal-systemv1/internal/model"
)

// CandleStream names the Redis stream an upstream collector writes a
// symbol's candles to.
func CandleStream(timeframe, symbol string) string {
	return "candles:" + timeframe + ":" + symbol
}

// ConsumerConfig configures the candle-stream consumer.
type ConsumerConfig struct {
	Config
	Group    string // consumer group, e.g. "signalengine"
	Consumer string // unique consumer name, e.g. hostname
}

// Consumer reads closed candles from Redis Streams via consumer groups,
// giving the live engine at-least-once delivery across restarts.
type Consumer struct {
	client   *goredis.Client
	group    string
	consumer string
}

// NewConsumer connects and pings the server.
func NewConsumer(cfg ConsumerConfig) (*Consumer, error) {
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

	group := cfg.Group
	if group == "" {
		group = "signalengine"
	}
	consumer := cfg.Consumer
	if consumer == "" {
		consumer = "worker-1"
	}

	slog.Info("[redis-consumer] connected", "addr", cfg.Addr, "group", group, "consumer", consumer)
	return &Consumer{client: client, group: group, consumer: consumer}, nil
}

// EnsureGroup creates the consumer group on each stream if missing, starting
// at "$" so fresh groups see only new candles.
func (c *Consumer) EnsureGroup(ctx context.Context, streams []string) error {
	for _, stream := range streams {
		err := c.client.XGroupCreateMkStream(ctx, stream, c.group, "$").Err()
		if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
			return fmt.Errorf("xgroup create %s: %w", stream, err)
		}
	}
	return nil
}

// Consume blocks on XREADGROUP across the streams and sends parsed candles
// to out. Messages are ACKed after the send; malformed payloads are ACKed
// immediately so they cannot wedge the group. Returns on ctx cancellation.
func (c *Consumer) Consume(ctx context.Context, streams []string, out chan<- model.Candle) error {
	args := make([]string, len(streams)*2)
	for i, s := range streams {
		args[i] = s
		args[len(streams)+i] = ">"
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		results, err := c.client.XReadGroup(ctx, &goredis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.consumer,
			Streams:  args,
			Count:    100,
			Block:    2 * time.Second,
		}).Result()
		if err != nil {
			if err == goredis.Nil || ctx.Err() != nil {
				continue
			}
			slog.Error("[redis-consumer] xreadgroup", "error", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range results {
			for _, msg := range stream.Messages {
				candle, ok := decodeCandle(msg)
				if !ok {
					c.client.XAck(ctx, stream.Stream, c.group, msg.ID)
					continue
				}

				select {
				case out <- candle:
				case <-ctx.Done():
					return ctx.Err()
				}
				c.client.XAck(ctx, stream.Stream, c.group, msg.ID)
			}
		}
	}
}

// RecoverPending drains unACKed messages left by a previous run into out,
// preserving at-least-once delivery across a crash.
func (c *Consumer) RecoverPending(ctx context.Context, streams []string, out chan<- model.Candle) error {
	for _, stream := range streams {
		for {
			pending, err := c.client.XPendingExt(ctx, &goredis.XPendingExtArgs{
				Stream: stream,
				Group:  c.group,
				Start:  "-",
				End:    "+",
				Count:  100,
			}).Result()
			if err != nil || len(pending) == 0 {
				break
			}

			ids := make([]string, len(pending))
			for i, p := range pending {
				ids[i] = p.ID
			}

			claimed, err := c.client.XClaim(ctx, &goredis.XClaimArgs{
				Stream:   stream,
				Group:    c.group,
				Consumer: c.consumer,
				MinIdle:  0,
				Messages: ids,
			}).Result()
			if err != nil {
				slog.Error("[redis-consumer] xclaim", "stream", stream, "error", err)
				break
			}

			for _, msg := range claimed {
				candle, ok := decodeCandle(msg)
				if !ok {
					c.client.XAck(ctx, stream, c.group, msg.ID)
					continue
				}
				select {
				case out <- candle:
				case <-ctx.Done():
					return ctx.Err()
				}
				c.client.XAck(ctx, stream, c.group, msg.ID)
			}

			if len(claimed) < len(ids) {
				break
			}
		}
	}
	return nil
}

func decodeCandle(msg goredis.XMessage) (model.Candle, bool) {
	data, ok := msg.Values["data"].(string)
	if !ok {
		return model.Candle{}, false
	}
	var c model.Candle
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		slog.Warn("[redis-consumer] bad candle payload", "id", msg.ID, "error", err)
		return model.Candle{}, false
	}
	return c, true
}

// Close closes the Redis client.
func (c *Consumer) Close() error {
	return c.client.Close()
}
