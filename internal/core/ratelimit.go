package core

import "time"

// UsageRecord captures one client's premium usage in the current window.
type UsageRecord struct {
	Count       int       `json:"count"`
	WindowStart time.Time `json:"window_start"`
}

// Expired reports whether the record's window has fully elapsed at now.
// A record exactly window old is still live.
func (r UsageRecord) Expired(now time.Time, window time.Duration) bool {
	return now.Sub(r.WindowStart) > window
}
