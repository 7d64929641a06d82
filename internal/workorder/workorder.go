// Package workorder holds the timesheet lifecycle rules: derived hours,
// the status transition table, and who may drive each transition.
package workorder

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"timesheets/internal/models"
)

var (
	ErrInvalidTime       = errors.New("time must use HH:MM")
	ErrInvalidRange      = errors.New("end time must be after start time")
	ErrInvalidTransition = errors.New("invalid work order transition")
	ErrLocked            = errors.New("work order is approved and locked")
	ErrForbidden         = errors.New("operation not permitted for role")
)

type Operation string

const (
	OpUpdate        Operation = "update"
	OpSubmit        Operation = "submit"
	OpApprove       Operation = "approve"
	OpReject        Operation = "reject"
	OpAddExpense    Operation = "add_expense"
	OpRemoveExpense Operation = "remove_expense"
	OpAttachReceipt Operation = "attach_receipt"
)

// TransitionError reports an operation attempted from a status that does
// not allow it.
type TransitionError struct {
	Op     Operation
	Status models.WorkOrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s work order in status %s", e.Op, e.Status)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// ParseClock converts "HH:MM" into minutes after midnight.
func ParseClock(value string) (int, error) {
	hh, mm, ok := strings.Cut(value, ":")
	if !ok || !twoDigits(hh) || !twoDigits(mm) {
		return 0, ErrInvalidTime
	}
	hours, err := strconv.Atoi(hh)
	if err != nil || hours > 23 {
		return 0, ErrInvalidTime
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil || minutes > 59 {
		return 0, ErrInvalidTime
	}
	return hours*60 + minutes, nil
}

func twoDigits(value string) bool {
	return len(value) == 2 &&
		value[0] >= '0' && value[0] <= '9' &&
		value[1] >= '0' && value[1] <= '9'
}

// Duration returns (end - start) in hours without range checks. Updates
// recompute through this; only creation insists on a positive result.
func Duration(start string, end string) (float64, error) {
	startMinutes, err := ParseClock(start)
	if err != nil {
		return 0, fmt.Errorf("start: %w", err)
	}
	endMinutes, err := ParseClock(end)
	if err != nil {
		return 0, fmt.Errorf("end: %w", err)
	}
	return float64(endMinutes-startMinutes) / 60, nil
}

// ComputeHours is Duration with the creation rule applied.
func ComputeHours(start string, end string) (float64, error) {
	hours, err := Duration(start, end)
	if err != nil {
		return 0, err
	}
	if hours <= 0 {
		return 0, ErrInvalidRange
	}
	return hours, nil
}

// Transition returns the status an operation moves a work order into.
// Mutating operations that keep the status return it unchanged.
func Transition(op Operation, from models.WorkOrderStatus) (models.WorkOrderStatus, error) {
	if !from.Valid() {
		return "", fmt.Errorf("unknown work order status %q", from)
	}

	switch op {
	case OpUpdate, OpAddExpense, OpRemoveExpense, OpAttachReceipt:
		if err := EnsureMutable(from); err != nil {
			return "", err
		}
		return from, nil
	case OpSubmit:
		if from != models.WorkOrderStatusDraft {
			return "", &TransitionError{Op: op, Status: from}
		}
		return models.WorkOrderStatusSubmitted, nil
	case OpApprove:
		if from != models.WorkOrderStatusSubmitted {
			return "", &TransitionError{Op: op, Status: from}
		}
		return models.WorkOrderStatusApproved, nil
	case OpReject:
		if from != models.WorkOrderStatusSubmitted {
			return "", &TransitionError{Op: op, Status: from}
		}
		return models.WorkOrderStatusRejected, nil
	default:
		return "", fmt.Errorf("unknown work order operation %q", op)
	}
}

// EnsureMutable rejects any field or expense change on an approved order.
func EnsureMutable(status models.WorkOrderStatus) error {
	switch status {
	case models.WorkOrderStatusApproved:
		return ErrLocked
	case models.WorkOrderStatusDraft, models.WorkOrderStatusSubmitted, models.WorkOrderStatusRejected:
		return nil
	default:
		return fmt.Errorf("unknown work order status %q", status)
	}
}

// Authorize checks the actor's right to perform op on an order owned by
// workerID. It never looks at the order status.
func Authorize(op Operation, actor models.Identity, workerID string) error {
	switch op {
	case OpApprove, OpReject:
		if actor.Role.CanDecide() {
			return nil
		}
		return ErrForbidden
	case OpSubmit:
		if actor.Role == models.RoleAdmin || actor.OwnsWorker(workerID) {
			return nil
		}
		return ErrForbidden
	case OpUpdate, OpAddExpense, OpRemoveExpense, OpAttachReceipt:
		if actor.Role.CanDecide() || actor.OwnsWorker(workerID) {
			return nil
		}
		return ErrForbidden
	default:
		return fmt.Errorf("unknown work order operation %q", op)
	}
}

// CanView reports whether actor may read an order belonging to workerID.
func CanView(actor models.Identity, workerID string) bool {
	return actor.Role.CanDecide() || actor.OwnsWorker(workerID)
}

// CanCreateFor reports whether actor may open a new order for workerID.
func CanCreateFor(actor models.Identity, workerID string) bool {
	switch actor.Role {
	case models.RoleAdmin, models.RoleSupervisor:
		return true
	case models.RoleWorker:
		return actor.OwnsWorker(workerID)
	default:
		return false
	}
}
