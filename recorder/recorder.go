// Package recorder persists the outcome of update runs for operational
// history: one row per key per run, so a scheduled batch leaves an auditable
// trail of what was fetched, merged and skipped.
package recorder

import "time"

// UpdateEvent describes the outcome of updating one key.
type UpdateEvent struct {
	Run       time.Time // start of the batch run this event belongs to
	Key       string
	Mode      string
	RowsAdded int
	Changed   bool
	Err       string // empty on success
	Elapsed   time.Duration
}

// Recorder persists update events.
type Recorder interface {
	RecordUpdate(evt UpdateEvent) error
	Close() error
}
