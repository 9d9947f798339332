// Package event defines the canonical Drive change message and its publisher.
//
// A provider webhook payload is validated and normalized into a ChangeEvent,
// which is published to the change topic and later consumed by the processor.
// Delivery is at-least-once and unordered; consumers must be idempotent.
package event

import (
	"encoding/json"
	"time"
)

// Change types as delivered by the Drive webhook.
const (
	ChangeTypeUpdate = "file.update"
	ChangeTypeTrash  = "file.trash"
)

// ChangeEvent is the canonical description of a single file mutation,
// independent of the originating webhook shape. Immutable after creation.
type ChangeEvent struct {
	FileID     string `json:"file_id"`
	DriveID    string `json:"drive_id"`
	ChangeType string `json:"change_type"`
	Timestamp  string `json:"timestamp,omitempty"`
}

// WebhookPayload is the raw JSON body posted by the Drive change webhook.
type WebhookPayload struct {
	FileID  string `json:"fileId"`
	DriveID string `json:"driveId"`
	Type    string `json:"type"`
	Time    string `json:"time,omitempty"`
}

// Validate checks the three required webhook fields.
func (p *WebhookPayload) Validate() error {
	const op = "Validate"
	if p.FileID == "" {
		return NewValidationError(op, "fileId is required")
	}
	if p.DriveID == "" {
		return NewValidationError(op, "driveId is required")
	}
	if p.Type == "" {
		return NewValidationError(op, "type is required")
	}
	return nil
}

// ToChangeEvent converts a validated payload into the canonical message.
func (p *WebhookPayload) ToChangeEvent() ChangeEvent {
	return ChangeEvent{
		FileID:     p.FileID,
		DriveID:    p.DriveID,
		ChangeType: p.Type,
		Timestamp:  p.Time,
	}
}

// Marshal serializes the event for the wire.
func (e ChangeEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// UnmarshalChangeEvent decodes a bus-delivered message body.
func UnmarshalChangeEvent(data []byte) (ChangeEvent, error) {
	var e ChangeEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return ChangeEvent{}, NewValidationError("UnmarshalChangeEvent", err.Error())
	}
	if e.FileID == "" {
		return ChangeEvent{}, NewValidationError("UnmarshalChangeEvent", "file_id is required")
	}
	return e, nil
}

// ParsedTime returns the event timestamp, or the zero time when absent or
// unparseable. The processor treats a zero time as "no ordering information".
func (e ChangeEvent) ParsedTime() time.Time {
	if e.Timestamp == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, e.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}
