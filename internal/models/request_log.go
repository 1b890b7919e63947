package models

import "time"

// RequestLog is one backend call recorded in the local database.
type RequestLog struct {
	Timestamp  time.Time
	Method     string
	Route      string
	Error      string
	UserID     string
	ID         int64
	StatusCode int
	DurationMs int
}

// RequestStats aggregates the request log.
type RequestStats struct {
	TotalRequests int
	ErrorCount    int
	UniqueRoutes  int
	AvgDurationMs float64
}
