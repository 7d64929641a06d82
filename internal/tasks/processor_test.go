package tasks

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"timesheets/internal/notify"
)

type recordingDeliverer struct {
	messages []Message
	err      error
}

func (d *recordingDeliverer) Deliver(_ context.Context, msg Message) error {
	d.messages = append(d.messages, msg)
	return d.err
}

func streamEntry(t *testing.T, event notify.Event) redis.XMessage {
	t.Helper()
	body, err := event.Encode()
	if err != nil {
		t.Fatalf("encode event: %v", err)
	}
	return redis.XMessage{ID: "1-0", Values: map[string]interface{}{
		"type":                    string(event.Type),
		notify.StreamPayloadField: string(body),
	}}
}

func TestHandleStreamRendersEvents(t *testing.T) {
	tests := []struct {
		name    string
		event   notify.Event
		subject string
		body    string
	}{
		{
			name:    "rejection carries reason",
			event:   notify.Event{ID: "e1", Type: notify.EventRejected, Recipients: []string{"w1"}, WorkOrderID: "wo1", Reason: "missing lunch break"},
			subject: "Work order rejected",
			body:    "missing lunch break",
		},
		{
			name:    "digest counts orders",
			event:   notify.Event{ID: "e2", Type: notify.EventApprovalDigest, Recipients: []string{"s1", "a1"}, Count: 3},
			subject: "Work orders awaiting approval",
			body:    "3 work orders",
		},
		{
			name:    "submission names order",
			event:   notify.Event{ID: "e3", Type: notify.EventSubmitted, Recipients: []string{"s1"}, WorkOrderID: "wo9", WorkerID: "wk1"},
			subject: "Work order submitted for approval",
			body:    "wo9",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			deliverer := &recordingDeliverer{}
			processor := NewProcessor(zerolog.Nop(), deliverer)

			if err := processor.HandleStream(context.Background(), streamEntry(t, tc.event)); err != nil {
				t.Fatalf("HandleStream returned error: %v", err)
			}
			if len(deliverer.messages) != 1 {
				t.Fatalf("expected one delivery, got %d", len(deliverer.messages))
			}
			msg := deliverer.messages[0]
			if msg.Subject != tc.subject || !strings.Contains(msg.Body, tc.body) || msg.EventID != tc.event.ID {
				t.Fatalf("unexpected message: %+v", msg)
			}
			if len(msg.Recipients) != len(tc.event.Recipients) {
				t.Fatalf("expected recipients %v, got %v", tc.event.Recipients, msg.Recipients)
			}
		})
	}
}

func TestHandleStreamRejectsMalformedEntries(t *testing.T) {
	processor := NewProcessor(zerolog.Nop(), &recordingDeliverer{})

	err := processor.HandleStream(context.Background(), redis.XMessage{ID: "1-0", Values: map[string]interface{}{}})
	if !errors.Is(err, ErrMissingPayload) {
		t.Fatalf("expected ErrMissingPayload, got %v", err)
	}

	err = processor.HandleBody(context.Background(), []byte(`{"id":"x"}`))
	if err == nil {
		t.Fatal("expected an event without a type to fail")
	}
}

func TestHandleBodySkipsUnknownAndUnaddressedEvents(t *testing.T) {
	deliverer := &recordingDeliverer{}
	processor := NewProcessor(zerolog.Nop(), deliverer)

	if err := processor.HandleBody(context.Background(), []byte(`{"type":"work_order.archived","recipients":["a"]}`)); err != nil {
		t.Fatalf("expected unknown type to be dropped, got %v", err)
	}
	if err := processor.HandleBody(context.Background(), []byte(`{"type":"work_order.approved"}`)); err != nil {
		t.Fatalf("expected unaddressed event to be dropped, got %v", err)
	}
	if len(deliverer.messages) != 0 {
		t.Fatalf("expected no deliveries, got %d", len(deliverer.messages))
	}
}

func TestHandleBodyReportsDeliveryFailure(t *testing.T) {
	deliverer := &recordingDeliverer{err: errors.New("smtp down")}
	processor := NewProcessor(zerolog.Nop(), deliverer)

	err := processor.HandleBody(context.Background(), []byte(`{"type":"work_order.approved","recipients":["w1"]}`))
	if err == nil || !strings.Contains(err.Error(), "smtp down") {
		t.Fatalf("expected delivery error to surface, got %v", err)
	}
}
