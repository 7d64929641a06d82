// Package notify carries work order events from the API to the
// notification worker.
package notify

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	EventSubmitted      EventType = "work_order.submitted"
	EventApproved       EventType = "work_order.approved"
	EventRejected       EventType = "work_order.rejected"
	EventDraftReminder  EventType = "work_order.draft_reminder"
	EventApprovalDigest EventType = "work_order.approval_digest"
	EventPasswordReset  EventType = "identity.password_reset"
)

// Event is addressed to identities; rendering and delivery happen in the
// worker.
type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	Recipients  []string  `json:"recipients"`
	WorkOrderID string    `json:"workOrderId,omitempty"`
	WorkerID    string    `json:"workerId,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Count       int       `json:"count,omitempty"`
	Email       string    `json:"email,omitempty"`
	ResetToken  string    `json:"resetToken,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

func DecodeEvent(body []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if event.Type == "" {
		return Event{}, fmt.Errorf("decode event: missing type")
	}
	return event, nil
}
