package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"signal-systemv1/internal/model"
)

func TestWebhookPostsPayload(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sig := &model.Signal{
		SignalProposal: model.SignalProposal{Symbol: "BTCUSDT", Direction: model.Long},
	}
	n := NewWebhookNotifier(srv.URL)
	err := n.Send(context.Background(), Alert{
		Level:   AlertWarning,
		Title:   "title",
		Message: "message",
		Signal:  sig,
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.Level != string(AlertWarning) || got.Title != "title" || got.Message != "message" {
		t.Errorf("unexpected payload: %+v", got)
	}
	if got.Signal == nil || got.Signal.Symbol != "BTCUSDT" {
		t.Errorf("expected signal in payload, got %+v", got.Signal)
	}
	if got.TS == "" {
		t.Error("expected timestamp in payload")
	}
}

func TestWebhookOmitsNilSignal(t *testing.T) {
	var raw map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Errorf("decode body: %v", err)
		}
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	if err := n.Send(context.Background(), Alert{Level: AlertInfo, Title: "t"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, ok := raw["signal"]; ok {
		t.Error("expected signal key to be omitted for plain alerts")
	}
}

func TestWebhookRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	if err := n.Send(context.Background(), Alert{Level: AlertInfo, Title: "t"}); err == nil {
		t.Fatal("expected an error for a 502 response")
	}
}
