package models

import "time"

// LoadState tracks a collection fetch separately from its contents, so that
// "loading", "failed" and "empty" are never confused.
type LoadState struct {
	UpdatedAt time.Time
	Err       error
	Loading   bool
	Loaded    bool
}

// Label returns a short description for status lines.
func (s LoadState) Label() string {
	switch {
	case s.Loading:
		return "loading"
	case s.Err != nil:
		return "error"
	case s.Loaded:
		return "ready"
	default:
		return "idle"
	}
}
