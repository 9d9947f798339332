package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"driveocr/internal/event"
	"driveocr/internal/extract"
)

type fakeHandler struct {
	err    error
	events []event.ChangeEvent
}

func (f *fakeHandler) Process(_ context.Context, ev event.ChangeEvent) error {
	f.events = append(f.events, ev)
	return f.err
}

func TestHandleMessage_AcksOnSuccess(t *testing.T) {
	handler := &fakeHandler{}
	s := &Subscriber{handler: handler, log: zerolog.Nop()}

	var acked, nacked bool
	s.handleMessage(context.Background(),
		[]byte(`{"file_id":"f1","drive_id":"d1","change_type":"file.update"}`),
		func() { acked = true }, func() { nacked = true })

	if !acked || nacked {
		t.Errorf("acked=%v nacked=%v, want ack only", acked, nacked)
	}
	if len(handler.events) != 1 || handler.events[0].FileID != "f1" {
		t.Errorf("events = %+v, want the decoded event", handler.events)
	}
}

func TestHandleMessage_NacksOnProcessingFailure(t *testing.T) {
	handler := &fakeHandler{err: errors.New("warehouse down")}
	s := &Subscriber{handler: handler, log: zerolog.Nop()}

	var acked, nacked bool
	s.handleMessage(context.Background(),
		[]byte(`{"file_id":"f1","change_type":"file.update"}`),
		func() { acked = true }, func() { nacked = true })

	if acked || !nacked {
		t.Errorf("acked=%v nacked=%v, want nack for redelivery", acked, nacked)
	}
}

func TestHandleMessage_AbandonsExtractionFailure(t *testing.T) {
	// An oversized or corrupt document fails extraction on every delivery,
	// so the event must be acked rather than redelivered forever.
	extractErr := extract.NewExtractionError("ExtractText", extract.ErrContentTooLarge, "file size: 25000000 bytes")
	handler := &fakeHandler{err: wrapProcessError("Process", "f1", extractErr)}
	s := &Subscriber{handler: handler, log: zerolog.Nop()}

	var acked, nacked bool
	s.handleMessage(context.Background(),
		[]byte(`{"file_id":"f1","change_type":"file.update"}`),
		func() { acked = true }, func() { nacked = true })

	if !acked || nacked {
		t.Errorf("acked=%v nacked=%v, want extraction failure abandoned", acked, nacked)
	}
}

func TestHandleMessage_AcksPoisonMessage(t *testing.T) {
	handler := &fakeHandler{}
	s := &Subscriber{handler: handler, log: zerolog.Nop()}

	var acked, nacked bool
	s.handleMessage(context.Background(), []byte(`not json`),
		func() { acked = true }, func() { nacked = true })

	if !acked || nacked {
		t.Errorf("acked=%v nacked=%v, want poison message acked", acked, nacked)
	}
	if len(handler.events) != 0 {
		t.Errorf("events = %+v, want handler untouched", handler.events)
	}
}
