// Package markethours provides time-of-day gates for a 24/7 crypto market:
// the configurable "optimal trading hours" windows used by the signal
// coordinator and the low-liquidity blackout window used by the risk
// manager. All checks are in UTC; there is no holiday calendar.
package markethours

import (
	"fmt"
	"time"

	"signal-systemv1/config"
)

// InOptimalHours reports whether t falls inside any of the configured
// [Start, End) hour windows. Windows wrapping midnight (Start > End) are
// supported. An empty window list means "always optimal".
func InOptimalHours(t time.Time, windows []config.Hours) bool {
	if len(windows) == 0 {
		return true
	}
	h := t.UTC().Hour()
	for _, w := range windows {
		if inHourWindow(h, w.Start, w.End) {
			return true
		}
	}
	return false
}

// InBlackout reports whether t falls inside the low-liquidity blackout
// window [startHour, endHour) UTC. A zero-length window disables the check.
func InBlackout(t time.Time, startHour, endHour int) bool {
	if startHour == endHour {
		return false
	}
	return inHourWindow(t.UTC().Hour(), startHour, endHour)
}

// NextOptimal returns the start of the next optimal window at or after t,
// or t itself when already inside one.
func NextOptimal(t time.Time, windows []config.Hours) time.Time {
	if InOptimalHours(t, windows) {
		return t
	}
	u := t.UTC().Truncate(time.Hour)
	for i := 1; i <= 48; i++ {
		u = u.Add(time.Hour)
		if InOptimalHours(u, windows) {
			return u
		}
	}
	return t // unreachable with a sane config
}

// StatusString returns a human-readable trading-window status.
func StatusString(t time.Time, windows []config.Hours) string {
	if InOptimalHours(t, windows) {
		return "inside optimal trading hours"
	}
	next := NextOptimal(t, windows)
	return fmt.Sprintf("outside optimal hours, next window %s UTC", next.Format("15:04"))
}

func inHourWindow(h, start, end int) bool {
	if start <= end {
		return h >= start && h < end
	}
	// Window wraps midnight, e.g. 22–04.
	return h >= start || h < end
}
