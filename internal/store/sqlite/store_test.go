package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"signal-systemv1/internal/backtest"
	"signal-systemv1/internal/model"
)

var t0 = time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC)

func openStore(t *testing.T) (*Writer, *Reader) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "market.db")

	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	t.Cleanup(func() { w.Close() })

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return w, r
}

func testCandles(n int) []model.Candle {
	candles := make([]model.Candle, n)
	for i := range candles {
		p := 100 + float64(i)
		candles[i] = model.Candle{
			Symbol: "BTCUSDT",
			TS:     t0.Add(time.Duration(i) * 15 * time.Minute),
			Open:   p, High: p + 1, Low: p - 1, Close: p + 0.5,
			Volume: 1000,
		}
	}
	return candles
}

func TestCandleRoundTrip(t *testing.T) {
	w, r := openStore(t)
	candles := testCandles(10)
	if err := w.insertCandleBatch(model.TF15m, candles); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Half-open interval: the end candle is excluded.
	got, err := r.GetCandles(context.Background(), "BTCUSDT", model.TF15m,
		candles[2].TS, candles[7].TS)
	if err != nil {
		t.Fatalf("GetCandles: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d candles, want 5", len(got))
	}
	for i, c := range got {
		want := candles[2+i]
		if !c.TS.Equal(want.TS) || c.Close != want.Close {
			t.Errorf("candle %d: got %v/%v, want %v/%v", i, c.TS, c.Close, want.TS, want.Close)
		}
	}

	ts, err := w.LastCandleTS("BTCUSDT", model.TF15m)
	if err != nil {
		t.Fatalf("LastCandleTS: %v", err)
	}
	if ts != candles[9].TS.Unix() {
		t.Errorf("LastCandleTS = %d, want %d", ts, candles[9].TS.Unix())
	}
}

func TestCandleInsertIsIdempotent(t *testing.T) {
	w, r := openStore(t)
	candles := testCandles(5)
	for i := 0; i < 2; i++ {
		if err := w.insertCandleBatch(model.TF15m, candles); err != nil {
			t.Fatalf("insert pass %d: %v", i, err)
		}
	}

	got, err := r.GetCandles(context.Background(), "BTCUSDT", model.TF15m,
		t0, t0.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("GetCandles: %v", err)
	}
	if len(got) != 5 {
		t.Errorf("got %d candles after re-insert, want 5", len(got))
	}
}

func TestLastCandleTSEmpty(t *testing.T) {
	w, _ := openStore(t)
	ts, err := w.LastCandleTS("NOPE", model.TF15m)
	if err != nil {
		t.Fatalf("LastCandleTS: %v", err)
	}
	if ts != 0 {
		t.Errorf("empty table should report 0, got %d", ts)
	}
}

func TestTradeRoundTrip(t *testing.T) {
	w, r := openStore(t)
	ctx := context.Background()

	trades := []model.TradeRecord{
		{
			ID: "01A", Symbol: "BTCUSDT", Strategy: "breakout", Direction: model.Long,
			EntryPrice: 100, ExitPrice: 110, Amount: 1, PnL: 10, PnLPercent: 10,
			EntryTime: t0, ExitTime: t0.Add(time.Hour), Outcome: model.OutcomeWin,
		},
		{
			ID: "01B", Symbol: "ETHUSDT", Strategy: "pump_dump", Direction: model.Short,
			EntryPrice: 50, ExitPrice: 52, Amount: 2, PnL: -4, PnLPercent: -4,
			EntryTime: t0.Add(2 * time.Hour), ExitTime: t0.Add(3 * time.Hour), Outcome: model.OutcomeLoss,
		},
	}
	if err := w.Trades("u1").WriteTrades(ctx, trades); err != nil {
		t.Fatalf("WriteTrades: %v", err)
	}

	got, err := r.ReadTrades(ctx, "u1")
	if err != nil {
		t.Fatalf("ReadTrades: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d trades, want 2", len(got))
	}
	if got[0].ID != "01A" || got[1].ID != "01B" {
		t.Errorf("trades out of order: %s, %s", got[0].ID, got[1].ID)
	}
	if got[1].PnL != -4 || got[1].Direction != model.Short || got[1].Outcome != model.OutcomeLoss {
		t.Errorf("trade fields lost in round trip: %+v", got[1])
	}

	other, err := r.ReadTrades(ctx, "u2")
	if err != nil {
		t.Fatalf("ReadTrades u2: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("u2 should have no trades, got %d", len(other))
	}
}

func TestSaveSignal(t *testing.T) {
	w, _ := openStore(t)
	sig := model.Signal{
		SignalProposal: model.SignalProposal{
			Symbol: "BTCUSDT", Direction: model.Long, Confidence: 85,
			EntryPrice: 50000, StopLoss: 49000, TakeProfit: 52000,
			Strategy: "breakout",
		},
		ID:             "01SIG",
		VolumeStrength: model.VolumeStrong,
		IssuedAt:       t0,
	}
	if err := w.SaveSignal(context.Background(), sig); err != nil {
		t.Fatalf("SaveSignal: %v", err)
	}

	var count int
	if err := w.DB().QueryRow(`SELECT COUNT(*) FROM signals WHERE id = ?`, "01SIG").Scan(&count); err != nil {
		t.Fatalf("count signals: %v", err)
	}
	if count != 1 {
		t.Errorf("signal row count = %d, want 1", count)
	}
}

func TestBacktestResultsPruned(t *testing.T) {
	w, r := openStore(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		res := &backtest.Result{
			StartDate:      t0,
			EndDate:        t0.Add(24 * time.Hour),
			InitialBalance: 1000,
			TotalTrades:    i,
			FinalBalance:   1000 + float64(i),
		}
		if err := w.SaveBacktest(ctx, res); err != nil {
			t.Fatalf("SaveBacktest %d: %v", i, err)
		}
	}

	latest, err := r.ReadLatestBacktest(ctx)
	if err != nil {
		t.Fatalf("ReadLatestBacktest: %v", err)
	}
	if latest == nil || latest.TotalTrades != 11 {
		t.Fatalf("latest result should be the last saved, got %+v", latest)
	}

	var count int
	if err := w.DB().QueryRow(`SELECT COUNT(*) FROM backtest_results`).Scan(&count); err != nil {
		t.Fatalf("count results: %v", err)
	}
	if count != 10 {
		t.Errorf("stored results = %d, want 10 after pruning", count)
	}
}

func TestReadLatestBacktestEmpty(t *testing.T) {
	_, r := openStore(t)
	res, err := r.ReadLatestBacktest(context.Background())
	if err != nil {
		t.Fatalf("ReadLatestBacktest: %v", err)
	}
	if res != nil {
		t.Errorf("empty table should yield nil, got %+v", res)
	}
}

func TestRunCandlesFlushesOnClose(t *testing.T) {
	w, r := openStore(t)

	ch := make(chan model.Candle)
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.RunCandles(context.Background(), model.TF15m, ch)
	}()
	for _, c := range testCandles(7) {
		ch <- c
	}
	close(ch)
	<-done

	got, err := r.GetCandles(context.Background(), "BTCUSDT", model.TF15m,
		t0, t0.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("GetCandles: %v", err)
	}
	if len(got) != 7 {
		t.Errorf("got %d candles after close flush, want 7", len(got))
	}
}
