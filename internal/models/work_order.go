package models

import (
	"fmt"
	"time"
)

type WorkOrderStatus string

const (
	WorkOrderStatusDraft     WorkOrderStatus = "DRAFT"
	WorkOrderStatusSubmitted WorkOrderStatus = "SUBMITTED"
	WorkOrderStatusApproved  WorkOrderStatus = "APPROVED"
	WorkOrderStatusRejected  WorkOrderStatus = "REJECTED"
)

func ParseWorkOrderStatus(value string) (WorkOrderStatus, error) {
	status := WorkOrderStatus(value)
	if !status.Valid() {
		return "", fmt.Errorf("unknown work order status %q", value)
	}
	return status, nil
}

func (s WorkOrderStatus) Valid() bool {
	switch s {
	case WorkOrderStatusDraft, WorkOrderStatusSubmitted, WorkOrderStatusApproved, WorkOrderStatusRejected:
		return true
	default:
		return false
	}
}

// WorkDateLayout is the wire and storage layout of WorkOrder.WorkDate.
const WorkDateLayout = "2006-01-02"

type WorkOrder struct {
	ID           string
	WorkerID     string
	SiteID       string
	WorkDate     time.Time
	StartTime    string
	EndTime      string
	TotalHours   float64
	Description  string
	Status       WorkOrderStatus
	ApproverID   *string
	RejectReason *string
	SubmittedAt  *time.Time
	DecidedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Expense struct {
	ID                 string
	WorkOrderID        string
	Category           string
	AmountCents        int64
	Description        string
	ReceiptKey         *string
	ReceiptContentType *string
	CreatedAt          time.Time
}

// StatusChange describes a guarded status move applied by the store only
// when the order is still in From.
type StatusChange struct {
	From         WorkOrderStatus
	To           WorkOrderStatus
	ApproverID   *string
	RejectReason *string
	At           time.Time
}

// Stamps returns the submitted and decided timestamps the change sets.
func (c StatusChange) Stamps() (submittedAt *time.Time, decidedAt *time.Time) {
	at := c.At
	switch c.To {
	case WorkOrderStatusSubmitted:
		return &at, nil
	case WorkOrderStatusApproved, WorkOrderStatusRejected:
		return nil, &at
	default:
		return nil, nil
	}
}
