// internal/model/event.go
package model

import "time"

// EventType represents the kind of registry change event
type EventType string

const (
	EventRecordAdded   EventType = "record_added"
	EventStatusChanged EventType = "status_changed"
)

// Event is a registry change notification delivered to subscribers (the
// WebSocket layer and anything else that wants incremental updates).
type Event struct {
	Type      EventType    `json:"type"`
	PortID    string       `json:"port_id"`
	OldStatus RecordStatus `json:"old_status,omitempty"`
	Record    *Record      `json:"record"`
	Timestamp time.Time    `json:"timestamp"`
}
