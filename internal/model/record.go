// internal/model/record.go
package model

import (
	"time"
)

// RecordStatus represents the identification state of a scanned port
type RecordStatus string

const (
	StatusPending RecordStatus = "PENDING"
	StatusReading RecordStatus = "READING"
	StatusSuccess RecordStatus = "SUCCESS"
	StatusFailed  RecordStatus = "FAILED"
	StatusRemoved RecordStatus = "REMOVED"
)

// IsActive reports whether the port is currently attached as far as the
// engine knows (everything except REMOVED).
func (s RecordStatus) IsActive() bool {
	return s != StatusRemoved
}

// IsTerminal reports whether no further automatic transition occurs.
// FAILED is terminal only once the retry budget is exhausted; the registry
// tracks that via attempt counts, so here FAILED counts as terminal.
func (s RecordStatus) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusRemoved:
		return true
	default:
		return false
	}
}

// Valid reports whether the status is one of the known values.
func (s RecordStatus) Valid() bool {
	switch s {
	case StatusPending, StatusReading, StatusSuccess, StatusFailed, StatusRemoved:
		return true
	default:
		return false
	}
}

// Record is the identification history for one serial port identity.
// The registry is the sole writer; everyone else sees copies.
type Record struct {
	PortID       string       `json:"port_id" db:"port_id"`
	Status       RecordStatus `json:"status" db:"status"`
	MAC          string       `json:"mac,omitempty" db:"mac"`
	FirstSeen    time.Time    `json:"first_seen" db:"first_seen"`
	LastAttempt  *time.Time   `json:"last_attempt,omitempty" db:"last_attempt"`
	AttemptCount int          `json:"attempt_count" db:"attempt_count"`
	LastError    string       `json:"last_error,omitempty" db:"last_error"`
	UpdatedAt    time.Time    `json:"updated_at" db:"updated_at"`
}

// Clone returns a deep copy safe to hand outside the registry lock.
func (r *Record) Clone() *Record {
	c := *r
	if r.LastAttempt != nil {
		t := *r.LastAttempt
		c.LastAttempt = &t
	}
	return &c
}

// ExportRow is one line of the export surface consumed by external
// exporters. Field order matches the spreadsheet layout of the desktop tool
// this service replaced: time, port, mac, status.
type ExportRow struct {
	Timestamp time.Time `json:"timestamp"`
	PortID    string    `json:"port_id"`
	MAC       string    `json:"mac"`
	Status    string    `json:"status"`
}
