package event

import (
	"errors"
	"testing"
	"time"
)

func TestWebhookPayload_Validate(t *testing.T) {
	tests := []struct {
		name    string
		payload WebhookPayload
		wantErr bool
	}{
		{
			name:    "all fields present",
			payload: WebhookPayload{FileID: "f1", DriveID: "d1", Type: "file.update"},
		},
		{
			name:    "optional time present",
			payload: WebhookPayload{FileID: "f1", DriveID: "d1", Type: "file.update", Time: "2025-01-02T03:04:05Z"},
		},
		{
			name:    "missing fileId",
			payload: WebhookPayload{DriveID: "d1", Type: "file.update"},
			wantErr: true,
		},
		{
			name:    "missing driveId",
			payload: WebhookPayload{FileID: "f1", Type: "file.update"},
			wantErr: true,
		},
		{
			name:    "missing type",
			payload: WebhookPayload{FileID: "f1", DriveID: "d1"},
			wantErr: true,
		},
		{
			name:    "empty payload",
			payload: WebhookPayload{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Errorf("Validate() error does not match ErrValidation: %v", err)
			}
		})
	}
}

func TestWebhookPayload_ToChangeEvent(t *testing.T) {
	p := WebhookPayload{FileID: "f1", DriveID: "d1", Type: "file.update", Time: "2025-01-02T03:04:05Z"}
	e := p.ToChangeEvent()

	if e.FileID != "f1" || e.DriveID != "d1" || e.ChangeType != "file.update" || e.Timestamp != "2025-01-02T03:04:05Z" {
		t.Errorf("ToChangeEvent() = %+v", e)
	}
}

func TestChangeEvent_RoundTrip(t *testing.T) {
	e := ChangeEvent{FileID: "f1", DriveID: "d1", ChangeType: "file.update", Timestamp: "2025-01-02T03:04:05Z"}

	data, err := e.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	got, err := UnmarshalChangeEvent(data)
	if err != nil {
		t.Fatalf("UnmarshalChangeEvent() error = %v", err)
	}
	if got != e {
		t.Errorf("round trip = %+v, want %+v", got, e)
	}
}

func TestUnmarshalChangeEvent_Invalid(t *testing.T) {
	if _, err := UnmarshalChangeEvent([]byte("not json")); !errors.Is(err, ErrValidation) {
		t.Errorf("UnmarshalChangeEvent(garbage) error = %v, want ErrValidation", err)
	}
	if _, err := UnmarshalChangeEvent([]byte(`{"drive_id":"d1"}`)); !errors.Is(err, ErrValidation) {
		t.Errorf("UnmarshalChangeEvent(missing file_id) error = %v, want ErrValidation", err)
	}
}

func TestChangeEvent_ParsedTime(t *testing.T) {
	e := ChangeEvent{Timestamp: "2025-01-02T03:04:05Z"}
	want := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	if got := e.ParsedTime(); !got.Equal(want) {
		t.Errorf("ParsedTime() = %v, want %v", got, want)
	}

	if got := (ChangeEvent{}).ParsedTime(); !got.IsZero() {
		t.Errorf("ParsedTime() on empty timestamp = %v, want zero", got)
	}
	if got := (ChangeEvent{Timestamp: "yesterday"}).ParsedTime(); !got.IsZero() {
		t.Errorf("ParsedTime() on bad timestamp = %v, want zero", got)
	}
}
