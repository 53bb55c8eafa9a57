package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"signal-systemv1/internal/backtest"
	"signal-systemv1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Reader provides read-only access to the candle history and stored
// backtest results. It satisfies model.CandleProvider, so a backtest can
// run straight off the database.
type Reader struct {
	db *sql.DB
}

// NewReader opens a read-only leaning connection (WAL allows concurrent
// reads while the writer commits).
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	slog.Info("[sqlite-reader] opened", "path", dbPath)
	return &Reader{db: db}, nil
}

// GetCandles returns candles for [start, end), oldest first. An empty
// slice is a valid result.
func (r *Reader) GetCandles(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]model.Candle, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT symbol, ts, open, high, low, close, volume
		FROM candles
		WHERE symbol = ? AND timeframe = ? AND ts >= ? AND ts < ?
		ORDER BY ts ASC
	`, symbol, timeframe, start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("sqlite query candles: %w", err)
	}
	defer rows.Close()

	var candles []model.Candle
	for rows.Next() {
		var c model.Candle
		var tsUnix int64
		if err := rows.Scan(&c.Symbol, &tsUnix, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan candle: %w", err)
		}
		c.TS = time.Unix(tsUnix, 0).UTC()
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// ReadTrades returns a user's completed trades, oldest first, for warming
// the analytics tracker on startup.
func (r *Reader) ReadTrades(ctx context.Context, userID string) ([]model.TradeRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, symbol, strategy, direction, entry_price, exit_price, amount,
		       pnl, pnl_percent, entry_ts, exit_ts, outcome
		FROM trades
		WHERE user_id = ?
		ORDER BY exit_ts ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite query trades: %w", err)
	}
	defer rows.Close()

	var trades []model.TradeRecord
	for rows.Next() {
		var tr model.TradeRecord
		var entryTS, exitTS int64
		if err := rows.Scan(&tr.ID, &tr.Symbol, &tr.Strategy, &tr.Direction, &tr.EntryPrice,
			&tr.ExitPrice, &tr.Amount, &tr.PnL, &tr.PnLPercent, &entryTS, &exitTS, &tr.Outcome); err != nil {
			return nil, fmt.Errorf("sqlite scan trade: %w", err)
		}
		tr.EntryTime = time.Unix(entryTS, 0).UTC()
		tr.ExitTime = time.Unix(exitTS, 0).UTC()
		tr.DurationMs = tr.ExitTime.Sub(tr.EntryTime).Milliseconds()
		trades = append(trades, tr)
	}
	return trades, rows.Err()
}

// ReadLatestBacktest loads the most recent stored backtest result, or nil
// when none exists.
func (r *Reader) ReadLatestBacktest(ctx context.Context) (*backtest.Result, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `
		SELECT data FROM backtest_results
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite read backtest: %w", err)
	}

	var res backtest.Result
	if err := json.Unmarshal([]byte(data), &res); err != nil {
		return nil, fmt.Errorf("unmarshal backtest result: %w", err)
	}
	return &res, nil
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
