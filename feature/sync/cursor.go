package sync

import "time"

// ResolveCursor computes the effective lookback cursor for a sync call.
//
// A present, parseable, non-future client timestamp wins; anything else
// degrades to now minus the default window rather than failing the
// request. The result is never in the future.
func ResolveCursor(raw string, now time.Time, window time.Duration) time.Time {
	if raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil && !t.After(now) {
			return t
		}
	}
	return now.Add(-window)
}
