package model

import "time"

// UnknownUser marks a request whose principal could not be determined.
const UnknownUser = "-"

// Principal is the acting user of one request.
type Principal struct {
	Username string `json:"username"`
}

// LogRecord is one completed HTTP request as written to the request log.
// Bodies are already redacted when a record is constructed.
type LogRecord struct {
	ID              string    `json:"request_id"`
	Timestamp       time.Time `json:"timestamp"`
	User            string    `json:"user"`
	Method          string    `json:"method"`
	Path            string    `json:"endpoint"`
	StatusCode      int       `json:"status_code"`
	DurationSeconds float64   `json:"duration_seconds"`
	Details         string    `json:"details"`
	RequestBody     any       `json:"request_body"`
	ResponseBody    any       `json:"response_body"`
}
