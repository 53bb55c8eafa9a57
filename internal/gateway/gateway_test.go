package gateway

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"signal-systemv1/internal/analytics"
	"signal-systemv1/internal/backtest"
	"signal-systemv1/internal/model"
)

func testSignal(symbol string) *model.Signal {
	return &model.Signal{
		SignalProposal: model.SignalProposal{
			Symbol:     symbol,
			Direction:  model.Long,
			Confidence: 85,
			EntryPrice: 50000,
			Strategy:   "breakout",
		},
		ID:       "01HTEST",
		IssuedAt: time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC),
	}
}

// addFakeClient registers a client without a real connection; broadcast
// only touches the send channel and the symbol filter.
func addFakeClient(h *Hub, symbols ...string) *Client {
	c := &Client{
		send:    make(chan []byte, 16),
		hub:     h,
		symbols: make(map[string]bool),
	}
	for _, s := range symbols {
		c.symbols[s] = true
	}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	return c
}

func TestBroadcastSignalFansOut(t *testing.T) {
	h := NewHub(16)
	all := addFakeClient(h)                  // no filter: receives everything
	btc := addFakeClient(h, "BTCUSDT")       // symbol filter matches
	eth := addFakeClient(h, "ETHUSDT")       // filter does not match

	h.BroadcastSignal(testSignal("BTCUSDT"))

	if len(all.send) != 1 || len(btc.send) != 1 {
		t.Fatalf("expected delivery to unfiltered and matching clients, got %d/%d", len(all.send), len(btc.send))
	}
	if len(eth.send) != 0 {
		t.Fatal("expected filtered client to be skipped")
	}

	env := <-btc.send
	var parsed struct {
		Event  string          `json:"event"`
		Symbol string          `json:"symbol"`
		Data   json.RawMessage `json:"data"`
		Seq    int64           `json:"seq"`
	}
	if err := json.Unmarshal(env, &parsed); err != nil {
		t.Fatalf("envelope is not valid JSON: %v\n%s", err, env)
	}
	if parsed.Event != EventSignal || parsed.Symbol != "BTCUSDT" || parsed.Seq != 1 {
		t.Fatalf("unexpected envelope fields: %+v", parsed)
	}

	var sig model.Signal
	if err := json.Unmarshal(parsed.Data, &sig); err != nil {
		t.Fatalf("payload is not a signal: %v", err)
	}
	if sig.Confidence != 85 {
		t.Fatalf("expected confidence 85, got %v", sig.Confidence)
	}
}

func TestStatusEventsBypassFilter(t *testing.T) {
	h := NewHub(16)
	eth := addFakeClient(h, "ETHUSDT")

	h.broadcast(EventStatus, "", []byte(`{"clients":1}`))
	if len(eth.send) != 1 {
		t.Fatal("status events must reach filtered clients")
	}
}

func TestReplayBufferSince(t *testing.T) {
	rb := NewReplayBuffer(4)
	for seq := int64(1); seq <= 6; seq++ {
		rb.Push(seq, []byte{byte(seq)})
	}

	if rb.Len() != 4 {
		t.Fatalf("expected len=4 after wraparound, got %d", rb.Len())
	}

	got := rb.Since(3)
	if len(got) != 3 {
		t.Fatalf("expected seqs 4..6, got %d entries", len(got))
	}
	for i, e := range got {
		if e.Seq != int64(4+i) {
			t.Fatalf("entry %d: expected seq %d, got %d", i, 4+i, e.Seq)
		}
	}

	if got := rb.Since(100); len(got) != 0 {
		t.Fatalf("expected nothing newer than 100, got %d", len(got))
	}
}

// stubSignalSource backs the REST handler tests.
type stubSignalSource struct{ sig *model.Signal }

func (s stubSignalSource) LatestSignal(context.Context, string) (*model.Signal, error) {
	return s.sig, nil
}

type stubBacktestSource struct{ res *backtest.Result }

func (s stubBacktestSource) ReadLatestBacktest(context.Context) (*backtest.Result, error) {
	return s.res, nil
}

func TestHandleLatestSignal(t *testing.T) {
	api := &API{Hub: NewHub(4), Signals: stubSignalSource{sig: testSignal("BTCUSDT")}}
	mux := api.Routes()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/signals/latest?symbol=BTCUSDT", nil))
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var sig model.Signal
	if err := json.Unmarshal(rec.Body.Bytes(), &sig); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if sig.Symbol != "BTCUSDT" {
		t.Fatalf("expected BTCUSDT, got %s", sig.Symbol)
	}

	// Missing symbol parameter.
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/signals/latest", nil))
	if rec.Code != 400 {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	// No stored signal.
	api.Signals = stubSignalSource{}
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/signals/latest?symbol=XRPUSDT", nil))
	if rec.Code != 404 {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandlePerformance(t *testing.T) {
	tracker := analytics.NewTracker()
	tr := model.TradeRecord{ID: "t1", Symbol: "BTCUSDT", Strategy: "breakout", PnL: 25,
		ExitTime: time.Now().UTC()}
	tr.ResolveOutcome()
	tracker.RecordTrade("u1", tr)

	api := &API{Hub: NewHub(4), Tracker: tracker}
	mux := api.Routes()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/performance?user=u1", nil))
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var rep analytics.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatalf("bad report body: %v", err)
	}
	if rep.Stats.TotalTrades != 1 || rep.Stats.TotalProfit != 25 {
		t.Fatalf("unexpected report stats: %+v", rep.Stats)
	}
}

func TestHandlersReport503WhenUnconfigured(t *testing.T) {
	api := &API{Hub: NewHub(4)}
	mux := api.Routes()

	for _, path := range []string{
		"/api/signals/latest?symbol=BTCUSDT",
		"/api/performance?user=u1",
		"/api/candles?symbol=BTCUSDT",
		"/api/backtest/latest",
	} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != 503 {
			t.Errorf("%s: expected 503, got %d", path, rec.Code)
		}
	}
}

func TestHandleLatestBacktest(t *testing.T) {
	res := &backtest.Result{TotalTrades: 7, FinalBalance: 1042.5}
	api := &API{Hub: NewHub(4), Backtests: stubBacktestSource{res: res}}
	mux := api.Routes()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/api/backtest/latest", nil))
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var got backtest.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if got.TotalTrades != 7 {
		t.Fatalf("expected 7 trades, got %d", got.TotalTrades)
	}
}
