// signalengine is the live service: it consumes closed candles from the
// Redis streams, evaluates strategies per symbol, risk-checks the winning
// proposal, and fans approved signals out to Redis, SQLite, WebSocket
// dashboard clients, and the configured alert channels.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"signal-systemv1/config"
	"signal-systemv1/internal/analytics"
	"signal-systemv1/internal/gateway"
	"signal-systemv1/internal/live"
	"signal-systemv1/internal/logger"
	"signal-systemv1/internal/metrics"
	"signal-systemv1/internal/model"
	"signal-systemv1/internal/notification"
	"signal-systemv1/internal/risk"
	"signal-systemv1/internal/store/redis"
	"signal-systemv1/internal/store/sqlite"
	"signal-systemv1/internal/strategy"
)

var processStart = time.Now()

func main() {
	cfg := config.Load()
	logger.Init("signalengine", logger.ParseLevel(getEnv("LOG_LEVEL", "info")))

	tcfg, err := config.LoadTrading(cfg.TradingConfigPath)
	if err != nil {
		slog.Error("[signalengine] trading config load failed", "path", cfg.TradingConfigPath, "error", err)
		os.Exit(1)
	}

	symbols := cfg.ParseSymbols()
	timeframe := getEnv("TIMEFRAME", model.TF5m)
	userID := getEnv("USER_ID", "default")
	slog.Info("[signalengine] starting",
		"symbols", symbols, "timeframe", timeframe,
		"strategies", tcfg.ActiveStrategies, "user", userID)

	met := metrics.NewMetrics()
	go metrics.Serve(cfg.MetricsAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persistence.
	writer, err := sqlite.NewWriter(cfg.SQLitePath)
	if err != nil {
		slog.Error("[signalengine] sqlite writer open failed", "path", cfg.SQLitePath, "error", err)
		os.Exit(1)
	}
	defer writer.Close()

	reader, err := sqlite.NewReader(cfg.SQLitePath)
	if err != nil {
		slog.Error("[signalengine] sqlite reader open failed", "path", cfg.SQLitePath, "error", err)
		os.Exit(1)
	}
	defer reader.Close()

	// Redis in and out.
	rcfg := redis.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}

	pub, err := redis.NewPublisher(rcfg)
	if err != nil {
		slog.Error("[signalengine] redis connection failed", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}
	defer pub.Close()
	slog.Info("[signalengine] redis connected", "addr", cfg.RedisAddr)

	cb := redis.NewCircuitBreaker(5, 30*time.Second)
	bufferedPub := redis.NewBufferedPublisher(ctx, pub, cb, 1000)

	consumer, err := redis.NewConsumer(redis.ConsumerConfig{
		Config:   rcfg,
		Group:    getEnv("CONSUMER_GROUP", "signalengine"),
		Consumer: getEnv("CONSUMER_NAME", "worker-1"),
	})
	if err != nil {
		slog.Error("[signalengine] consumer init failed", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	streams := make([]string, len(symbols))
	for i, sym := range symbols {
		streams[i] = redis.CandleStream(timeframe, sym)
	}
	if err := consumer.EnsureGroup(ctx, streams); err != nil {
		slog.Error("[signalengine] consumer group setup failed", "error", err)
		os.Exit(1)
	}

	// Evaluation core.
	strategies, err := strategy.Active(tcfg)
	if err != nil {
		slog.Error("[signalengine] strategy setup failed", "error", err)
		os.Exit(1)
	}
	coord := strategy.NewCoordinator(tcfg, strategies, met)

	balance := getEnvFloat("ACCOUNT_BALANCE", 1000)
	riskMgr := risk.NewManager(tcfg,
		risk.NewProfileCache(risk.StaticProfileProvider{Level: getEnv("RISK_LEVEL", risk.LevelBalanced)}),
		risk.StaticBalanceProvider{Balance: balance},
		risk.NewMemoryTradeBook(), met)

	// Dashboard hub and analytics, warmed from trade history.
	hub := gateway.NewHub(512)
	go hub.StartStatusBroadcast(ctx.Done(), processStart, tcfg.OptimalHours)

	tracker := analytics.NewTracker()
	if trades, err := reader.ReadTrades(ctx, userID); err != nil {
		slog.Warn("[signalengine] trade history replay failed", "error", err)
	} else {
		for _, tr := range trades {
			tracker.RecordTrade(userID, tr)
		}
		slog.Info("[signalengine] trade history replayed", "trades", len(trades))
	}

	notifier := buildNotifier(cfg)

	candleSink := make(chan model.Candle, 1024)
	go writer.RunCandles(ctx, timeframe, candleSink)

	engine := live.NewEngine(timeframe, userID, live.Deps{
		Coordinator: coord,
		Risk:        riskMgr,
		Publisher:   bufferedPub,
		Store:       writer,
		Hub:         hub,
		Notifier:    notifier,
		CandleSink:  candleSink,
		Metrics:     met,
	})

	candleCh := make(chan model.Candle, 512)
	go runConsumer(ctx, consumer, streams, candleCh)
	go engine.Run(ctx, candleCh)

	api := &gateway.API{
		Hub:       hub,
		Tracker:   tracker,
		Candles:   reader,
		Signals:   pub,
		Backtests: reader,
	}
	srv := &http.Server{Addr: cfg.GatewayAddr, Handler: api.Routes()}
	go func() {
		slog.Info("[signalengine] gateway serving", "addr", cfg.GatewayAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("[signalengine] gateway server failed", "error", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sigCh:
		slog.Info("[signalengine] shutting down", "signal", s.String())
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("[signalengine] gateway shutdown incomplete", "error", err)
	}
	if pending := bufferedPub.PendingCount(); pending > 0 {
		slog.Warn("[signalengine] unflushed signals at shutdown", "pending", pending)
	}
}

// runConsumer drives the stream consumer, reclaiming stale pending entries
// first and restarting the read loop on transient Redis errors.
func runConsumer(ctx context.Context, consumer *redis.Consumer, streams []string, out chan<- model.Candle) {
	if err := consumer.RecoverPending(ctx, streams, out); err != nil {
		slog.Warn("[signalengine] pending recovery failed", "error", err)
	}
	for ctx.Err() == nil {
		if err := consumer.Consume(ctx, streams, out); err != nil && ctx.Err() == nil {
			slog.Error("[signalengine] consume loop failed, retrying", "error", err)
			time.Sleep(2 * time.Second)
		}
	}
	close(out)
}

func buildNotifier(cfg *config.Config) notification.Notifier {
	var backends []notification.Notifier
	if cfg.WebhookURL != "" {
		backends = append(backends, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		backends = append(backends, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if len(backends) == 0 {
		return notification.NewLogNotifier()
	}
	slog.Info("[signalengine] alert channels configured", "count", len(backends))
	return notification.NewFanOut(backends...)
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
