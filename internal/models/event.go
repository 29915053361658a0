package models

import "time"

// Event is handed to notifiers for every observable two-factor state change.
type Event struct {
	UserID    string
	Method    Method
	IPAddress string
	UserAgent string
	Reason    string
	At        time.Time
	// Count carries a batch size (regenerated codes, forgotten devices) when relevant.
	Count int
}
