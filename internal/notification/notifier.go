// Package notification delivers signal alerts to external channels
// (Telegram, webhooks) and to the log in development.
package notification

import (
	"context"
	"fmt"
	"log/slog"

	"signal-systemv1/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert is a notification to be sent. Signal is set on trade-signal alerts
// so structured backends can include the full payload.
type Alert struct {
	Level   AlertLevel    `json:"level"`
	Title   string        `json:"title"`
	Message string        `json:"message"`
	Signal  *model.Signal `json:"signal,omitempty"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// SignalAlert formats an approved signal into an alert.
func SignalAlert(sig *model.Signal, positionUSD float64) Alert {
	return Alert{
		Level: AlertInfo,
		Title: fmt.Sprintf("%s %s signal (%s)", sig.Symbol, sig.Direction, sig.Strategy),
		Message: fmt.Sprintf(
			"confidence %.0f, entry %.4f, stop %.4f, target %.4f, size $%.2f, volume %s",
			sig.Confidence, sig.EntryPrice, sig.StopLoss, sig.TakeProfit, positionUSD, sig.VolumeStrength),
		Signal: sig,
	}
}

// LogNotifier logs alerts instead of delivering them (development default).
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	slog.Info("[notify] alert", "level", alert.Level, "title", alert.Title, "message", alert.Message)
	return nil
}

// FanOut sends every alert to each backend, logging per-backend failures
// instead of short-circuiting: one broken channel must not silence the rest.
type FanOut struct {
	backends []Notifier
}

// NewFanOut bundles notifiers into one.
func NewFanOut(backends ...Notifier) *FanOut {
	return &FanOut{backends: backends}
}

func (f *FanOut) Send(ctx context.Context, alert Alert) error {
	var lastErr error
	for _, n := range f.backends {
		if err := n.Send(ctx, alert); err != nil {
			slog.Error("[notify] backend failed", "error", err)
			lastErr = err
		}
	}
	return lastErr
}
