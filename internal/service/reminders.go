package service

import (
	"context"
	"fmt"
	"time"

	"timesheets/internal/models"
	"timesheets/internal/notify"
)

// SendDraftReminders nudges workers whose orders have sat in DRAFT longer
// than age. Running it twice sends the reminders twice.
func (s *WorkOrderService) SendDraftReminders(ctx context.Context, age time.Duration) (int, error) {
	drafts, err := s.orders.ListStaleDrafts(ctx, s.now().Add(-age))
	if err != nil {
		return 0, fmt.Errorf("list stale drafts: %w", err)
	}

	sent := 0
	for _, order := range drafts {
		recipients := s.workerRecipients(ctx, order.WorkerID)
		if len(recipients) == 0 {
			continue
		}
		s.notifier.Dispatch(notify.Event{
			Type:        notify.EventDraftReminder,
			Recipients:  recipients,
			WorkOrderID: order.ID,
			WorkerID:    order.WorkerID,
		})
		sent++
	}
	return sent, nil
}

// SendApprovalDigest tells supervisors and admins how many orders are
// waiting for a decision. Nothing is sent when the queue is empty.
func (s *WorkOrderService) SendApprovalDigest(ctx context.Context) (int, error) {
	pending, err := s.orders.CountByStatus(ctx, models.WorkOrderStatusSubmitted)
	if err != nil {
		return 0, fmt.Errorf("count submitted: %w", err)
	}
	if pending == 0 {
		return 0, nil
	}

	deciders, err := s.identities.ListByRoles(ctx, models.RoleSupervisor, models.RoleAdmin)
	if err != nil {
		return 0, fmt.Errorf("list deciders: %w", err)
	}
	recipients := make([]string, 0, len(deciders))
	for _, identity := range deciders {
		recipients = append(recipients, identity.ID)
	}

	s.notifier.Dispatch(notify.Event{
		Type:       notify.EventApprovalDigest,
		Recipients: recipients,
		Count:      pending,
	})
	return pending, nil
}
