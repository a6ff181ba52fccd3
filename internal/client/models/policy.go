package models

import "time"

// AutomationPolicy governs whether a request is considered stale.
// A zero ReloadInterval means a loaded request never becomes stale on its own.
type AutomationPolicy struct {
	AutoLoad       bool
	ReloadInterval time.Duration
}

// IsStale reports whether a refresh is due. loaded is nil when no fetch has
// completed yet.
func (p AutomationPolicy) IsStale(loaded *time.Time, now time.Time) bool {
	if loaded == nil {
		return true
	}
	if p.ReloadInterval <= 0 {
		return false
	}
	return now.Sub(*loaded) > p.ReloadInterval
}
