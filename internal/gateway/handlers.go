package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"signal-systemv1/internal/analytics"
	"signal-systemv1/internal/backtest"
	"signal-systemv1/internal/model"
)

// LatestSignalSource serves the most recent published signal per symbol.
type LatestSignalSource interface {
	LatestSignal(ctx context.Context, symbol string) (*model.Signal, error)
}

// BacktestSource serves the most recent stored backtest result.
type BacktestSource interface {
	ReadLatestBacktest(ctx context.Context) (*backtest.Result, error)
}

// API is the REST surface over the engine's stored state. Any dependency
// may be nil; the matching endpoints then answer 503.
type API struct {
	Hub       *Hub
	Tracker   *analytics.Tracker
	Candles   model.CandleProvider
	Signals   LatestSignalSource
	Backtests BacktestSource
}

// Routes builds the HTTP mux: WS upgrade plus the read-only API.
func (a *API) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", a.Hub.HandleWS)
	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/signals/latest", a.handleLatestSignal)
	mux.HandleFunc("/api/performance", a.handlePerformance)
	mux.HandleFunc("/api/candles", a.handleCandles)
	mux.HandleFunc("/api/backtest/latest", a.handleLatestBacktest)
	return mux
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"clients": a.Hub.ClientCount(),
	})
}

// GET /api/signals/latest?symbol=BTCUSDT
func (a *API) handleLatestSignal(w http.ResponseWriter, r *http.Request) {
	if a.Signals == nil {
		httpError(w, http.StatusServiceUnavailable, "signal store not configured")
		return
	}
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		httpError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	sig, err := a.Signals.LatestSignal(r.Context(), symbol)
	if err != nil {
		slog.Error("[gateway] latest signal lookup", "symbol", symbol, "error", err)
		httpError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if sig == nil {
		httpError(w, http.StatusNotFound, "no recent signal for "+symbol)
		return
	}
	writeJSON(w, http.StatusOK, sig)
}

// GET /api/performance?user=u1&recent=20&days=30
func (a *API) handlePerformance(w http.ResponseWriter, r *http.Request) {
	if a.Tracker == nil {
		httpError(w, http.StatusServiceUnavailable, "analytics not configured")
		return
	}
	user := r.URL.Query().Get("user")
	if user == "" {
		httpError(w, http.StatusBadRequest, "user is required")
		return
	}
	recent := queryInt(r, "recent", 20)
	days := queryInt(r, "days", 30)

	writeJSON(w, http.StatusOK, a.Tracker.Report(user, recent, days))
}

// GET /api/candles?symbol=BTCUSDT&timeframe=15m&hours=24
func (a *API) handleCandles(w http.ResponseWriter, r *http.Request) {
	if a.Candles == nil {
		httpError(w, http.StatusServiceUnavailable, "candle store not configured")
		return
	}
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		httpError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	timeframe := r.URL.Query().Get("timeframe")
	if timeframe == "" {
		timeframe = model.TF15m
	}
	hours := queryInt(r, "hours", 24)

	end := time.Now().UTC()
	start := end.Add(-time.Duration(hours) * time.Hour)
	candles, err := a.Candles.GetCandles(r.Context(), symbol, timeframe, start, end)
	if err != nil {
		slog.Error("[gateway] candle lookup", "symbol", symbol, "error", err)
		httpError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":    symbol,
		"timeframe": timeframe,
		"candles":   candles,
	})
}

// GET /api/backtest/latest
func (a *API) handleLatestBacktest(w http.ResponseWriter, r *http.Request) {
	if a.Backtests == nil {
		httpError(w, http.StatusServiceUnavailable, "backtest store not configured")
		return
	}
	res, err := a.Backtests.ReadLatestBacktest(r.Context())
	if err != nil {
		slog.Error("[gateway] backtest lookup", "error", err)
		httpError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if res == nil {
		httpError(w, http.StatusNotFound, "no stored backtest")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func queryInt(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && v > 0 {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
