// Package sqlite persists candle history, issued signals, completed
// trades, and backtest results in a single WAL-mode database file.
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

const (
	defaultBatchSize  = 100
	defaultFlushDelay = 200 * time.Millisecond
)

// Writer is the single-writer handle: one connection, batched transactions.
type Writer struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// NewWriter opens the database in WAL mode and ensures the schema.
func NewWriter(dbPath string) (*Writer, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	slog.Info("[sqlite] opened database", "path", dbPath)
	return &Writer{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS candles (
			symbol    TEXT    NOT NULL,
			timeframe TEXT    NOT NULL,
			ts        INTEGER NOT NULL,
			open      REAL    NOT NULL,
			high      REAL    NOT NULL,
			low       REAL    NOT NULL,
			close     REAL    NOT NULL,
			volume    REAL,
			PRIMARY KEY (symbol, timeframe, ts)
		);

		CREATE TABLE IF NOT EXISTS signals (
			id              TEXT    PRIMARY KEY,
			symbol          TEXT    NOT NULL,
			strategy        TEXT    NOT NULL,
			direction       TEXT    NOT NULL,
			confidence      REAL    NOT NULL,
			entry_price     REAL    NOT NULL,
			stop_loss       REAL,
			take_profit     REAL,
			volume_strength TEXT,
			issued_at       INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS trades (
			id          TEXT    PRIMARY KEY,
			user_id     TEXT    NOT NULL,
			symbol      TEXT    NOT NULL,
			strategy    TEXT    NOT NULL,
			direction   TEXT    NOT NULL,
			entry_price REAL    NOT NULL,
			exit_price  REAL    NOT NULL,
			amount      REAL    NOT NULL,
			pnl         REAL    NOT NULL,
			pnl_percent REAL    NOT NULL,
			entry_ts    INTEGER NOT NULL,
			exit_ts     INTEGER NOT NULL,
			outcome     TEXT    NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_trades_user ON trades (user_id, exit_ts);

		CREATE TABLE IF NOT EXISTS backtest_results (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			data       TEXT    NOT NULL,
			created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);
	`)
	return err
}

// RunCandles drains candleCh into batched transactions. Flushes every
// defaultBatchSize candles or defaultFlushDelay, whichever comes first.
// Blocks until ctx is cancelled or candleCh closes.
func (w *Writer) RunCandles(ctx context.Context, timeframe string, candleCh <-chan model.Candle) {
	batch := make([]model.Candle, 0, defaultBatchSize)
	timer := time.NewTimer(defaultFlushDelay)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		if err := w.insertCandleBatch(timeframe, batch); err != nil {
			slog.Error("[sqlite] candle batch insert", "error", err)
		} else {
			slog.Debug("[sqlite] committed candles", "count", len(batch), "elapsed", time.Since(start))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case candle, ok := <-candleCh:
			if !ok {
				flush()
				return
			}
			batch = append(batch, candle)
			if len(batch) >= defaultBatchSize {
				flush()
				timer.Reset(defaultFlushDelay)
			}

		case <-timer.C:
			flush()
			timer.Reset(defaultFlushDelay)
		}
	}
}

func (w *Writer) insertCandleBatch(timeframe string, candles []model.Candle) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO candles (symbol, timeframe, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.Exec(c.Symbol, timeframe, c.TS.Unix(), c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// LastCandleTS returns the newest stored candle timestamp for a symbol and
// timeframe, or 0 when none exist. Used to resume ingestion after restart.
func (w *Writer) LastCandleTS(symbol, timeframe string) (int64, error) {
	var ts sql.NullInt64
	err := w.db.QueryRow(
		`SELECT MAX(ts) FROM candles WHERE symbol = ? AND timeframe = ?`,
		symbol, timeframe,
	).Scan(&ts)
	if err != nil {
		return 0, err
	}
	if !ts.Valid {
		return 0, nil
	}
	return ts.Int64, nil
}

// SaveSignal records one issued signal.
func (w *Writer) SaveSignal(ctx context.Context, sig model.Signal) error {
	_, err := w.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO signals
			(id, symbol, strategy, direction, confidence, entry_price, stop_loss, take_profit, volume_strength, issued_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sig.ID, sig.Symbol, sig.Strategy, string(sig.Direction), sig.Confidence,
		sig.EntryPrice, sig.StopLoss, sig.TakeProfit, string(sig.VolumeStrength), sig.IssuedAt.Unix())
	if err != nil {
		return fmt.Errorf("sqlite insert signal: %w", err)
	}
	return nil
}

// TradeWriter binds the trades table to one user, satisfying
// model.TradeWriter for the live engine and the analytics warm-up path.
type TradeWriter struct {
	w      *Writer
	userID string
}

// Trades returns a per-user trade writer over the shared database handle.
func (w *Writer) Trades(userID string) *TradeWriter {
	return &TradeWriter{w: w, userID: userID}
}

// WriteTrades persists completed trades in one transaction.
func (t *TradeWriter) WriteTrades(ctx context.Context, trades []model.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}
	tx, err := t.w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO trades
			(id, user_id, symbol, strategy, direction, entry_price, exit_price, amount,
			 pnl, pnl_percent, entry_ts, exit_ts, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, tr := range trades {
		if _, err := stmt.Exec(tr.ID, t.userID, tr.Symbol, tr.Strategy, string(tr.Direction),
			tr.EntryPrice, tr.ExitPrice, tr.Amount, tr.PnL, tr.PnLPercent,
			tr.EntryTime.Unix(), tr.ExitTime.Unix(), string(tr.Outcome)); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SaveBacktest stores a completed backtest result as JSON, pruning all but
// the ten most recent.
func (w *Writer) SaveBacktest(ctx context.Context, res *backtest.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal backtest result: %w", err)
	}

	if _, err := w.db.ExecContext(ctx, `INSERT INTO backtest_results (data) VALUES (?)`, string(data)); err != nil {
		return fmt.Errorf("sqlite insert backtest: %w", err)
	}

	_, err = w.db.Exec(`DELETE FROM backtest_results WHERE id NOT IN
		(SELECT id FROM backtest_results ORDER BY created_at DESC, id DESC LIMIT 10)`)
	if err != nil {
		slog.Warn("[sqlite] prune backtest results", "error", err)
	}
	return nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
