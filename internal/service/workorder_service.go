package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"timesheets/internal/ids"
	"timesheets/internal/models"
	"timesheets/internal/notify"
	"timesheets/internal/repository"
	"timesheets/internal/workorder"
)

const (
	maxDescriptionLength  = 2000
	maxRejectReasonLength = 1000
	maxCategoryLength     = 64
)

type WorkOrderService struct {
	orders         WorkOrderRepository
	expenses       ExpenseRepository
	identities     IdentityRepository
	directory      Directory
	receipts       ReceiptStore
	notifier       EventDispatcher
	maxReceiptSize int64
	now            func() time.Time
	log            zerolog.Logger
}

type WorkOrderDeps struct {
	Orders         WorkOrderRepository
	Expenses       ExpenseRepository
	Identities     IdentityRepository
	Directory      Directory
	Receipts       ReceiptStore
	Notifier       EventDispatcher
	MaxReceiptSize int64
}

func NewWorkOrderService(deps WorkOrderDeps, log zerolog.Logger) *WorkOrderService {
	return &WorkOrderService{
		orders:         deps.Orders,
		expenses:       deps.Expenses,
		identities:     deps.Identities,
		directory:      deps.Directory,
		receipts:       deps.Receipts,
		notifier:       deps.Notifier,
		maxReceiptSize: deps.MaxReceiptSize,
		now:            time.Now,
		log:            log,
	}
}

func (s *WorkOrderService) WithClock(now func() time.Time) *WorkOrderService {
	s.now = now
	return s
}

type CreateWorkOrderInput struct {
	WorkerID    string
	SiteID      string
	WorkDate    string
	StartTime   string
	EndTime     string
	Description string
}

// UpdateWorkOrderInput leaves nil fields untouched.
type UpdateWorkOrderInput struct {
	SiteID      *string
	WorkDate    *string
	StartTime   *string
	EndTime     *string
	Description *string
}

type ExpenseInput struct {
	Category    string
	Amount      string
	Description string
}

type WorkOrderDetail struct {
	Order    models.WorkOrder
	Expenses []models.Expense
}

func parseWorkDate(value string, problems *ValidationError) time.Time {
	date, err := time.Parse(models.WorkDateLayout, strings.TrimSpace(value))
	if err != nil {
		problems.Add("workDate", "must use YYYY-MM-DD")
	}
	return date
}

func checkDescription(value string, problems *ValidationError) {
	if utf8.RuneCountInString(value) > maxDescriptionLength {
		problems.Add("description", fmt.Sprintf("must be at most %d characters", maxDescriptionLength))
	}
}

// hoursProblem attributes a time error to the field that caused it.
func hoursProblem(start string, end string, err error, problems *ValidationError) {
	if _, startErr := workorder.ParseClock(start); startErr != nil {
		problems.Add("startTime", startErr.Error())
	}
	if _, endErr := workorder.ParseClock(end); endErr != nil {
		problems.Add("endTime", endErr.Error())
	}
	if errors.Is(err, workorder.ErrInvalidRange) {
		problems.Add("endTime", err.Error())
	}
	if problems.Err == nil {
		problems.Err = err
	}
}

func (s *WorkOrderService) Create(ctx context.Context, actorID string, input CreateWorkOrderInput) (models.WorkOrder, error) {
	actor, err := s.identities.GetByID(ctx, actorID)
	if err != nil {
		return models.WorkOrder{}, err
	}

	workerID := strings.TrimSpace(input.WorkerID)
	if workerID == "" && actor.WorkerID != nil {
		workerID = *actor.WorkerID
	}

	problems := &ValidationError{}
	if workerID == "" {
		problems.Add("workerId", "is required")
	}
	if strings.TrimSpace(input.SiteID) == "" {
		problems.Add("siteId", "is required")
	}
	workDate := parseWorkDate(input.WorkDate, problems)
	hours, err := workorder.ComputeHours(input.StartTime, input.EndTime)
	if err != nil {
		hoursProblem(input.StartTime, input.EndTime, err, problems)
	}
	checkDescription(input.Description, problems)
	if err := problems.OrNil(); err != nil {
		return models.WorkOrder{}, err
	}

	if !workorder.CanCreateFor(actor, workerID) {
		return models.WorkOrder{}, ErrForbidden
	}
	if err := s.ensureExists(ctx, s.directory.WorkerExists, workerID, ErrWorkerNotFound); err != nil {
		return models.WorkOrder{}, err
	}
	if err := s.ensureExists(ctx, s.directory.SiteExists, input.SiteID, ErrSiteNotFound); err != nil {
		return models.WorkOrder{}, err
	}

	now := s.now().UTC()
	order := models.WorkOrder{
		ID:          ids.New(),
		WorkerID:    workerID,
		SiteID:      input.SiteID,
		WorkDate:    workDate,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		TotalHours:  hours,
		Description: input.Description,
		Status:      models.WorkOrderStatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return models.WorkOrder{}, fmt.Errorf("create work order: %w", err)
	}

	s.log.Info().
		Str("work_order_id", order.ID).
		Str("worker_id", order.WorkerID).
		Float64("hours", order.TotalHours).
		Msg("work order created")
	return order, nil
}

func (s *WorkOrderService) ensureExists(ctx context.Context, exists func(context.Context, string) (bool, error), id string, missing error) error {
	ok, err := exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return missing
	}
	return nil
}

func (s *WorkOrderService) Get(ctx context.Context, actorID string, id string) (WorkOrderDetail, error) {
	actor, err := s.identities.GetByID(ctx, actorID)
	if err != nil {
		return WorkOrderDetail{}, err
	}
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return WorkOrderDetail{}, err
	}
	if !workorder.CanView(actor, order.WorkerID) {
		return WorkOrderDetail{}, ErrForbidden
	}

	expenses, err := s.expenses.ListByWorkOrder(ctx, order.ID)
	if err != nil {
		return WorkOrderDetail{}, err
	}
	return WorkOrderDetail{Order: order, Expenses: expenses}, nil
}

// load fetches the actor and the order and runs the authorization and
// status checks for op, in that order.
func (s *WorkOrderService) load(ctx context.Context, actorID string, id string, op workorder.Operation) (models.Identity, models.WorkOrder, error) {
	actor, err := s.identities.GetByID(ctx, actorID)
	if err != nil {
		return models.Identity{}, models.WorkOrder{}, err
	}
	if op == workorder.OpApprove || op == workorder.OpReject {
		if err := workorder.Authorize(op, actor, ""); err != nil {
			return models.Identity{}, models.WorkOrder{}, err
		}
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return models.Identity{}, models.WorkOrder{}, err
	}
	if err := workorder.Authorize(op, actor, order.WorkerID); err != nil {
		return models.Identity{}, models.WorkOrder{}, err
	}
	if _, err := workorder.Transition(op, order.Status); err != nil {
		return models.Identity{}, models.WorkOrder{}, err
	}
	return actor, order, nil
}

func (s *WorkOrderService) Update(ctx context.Context, actorID string, id string, input UpdateWorkOrderInput) (models.WorkOrder, error) {
	_, order, err := s.load(ctx, actorID, id, workorder.OpUpdate)
	if err != nil {
		return models.WorkOrder{}, err
	}

	problems := &ValidationError{}
	if input.SiteID != nil {
		if strings.TrimSpace(*input.SiteID) == "" {
			problems.Add("siteId", "is required")
		}
		order.SiteID = *input.SiteID
	}
	if input.WorkDate != nil {
		order.WorkDate = parseWorkDate(*input.WorkDate, problems)
	}
	if input.StartTime != nil {
		order.StartTime = *input.StartTime
	}
	if input.EndTime != nil {
		order.EndTime = *input.EndTime
	}
	if input.StartTime != nil || input.EndTime != nil {
		hours, err := workorder.Duration(order.StartTime, order.EndTime)
		if err != nil {
			hoursProblem(order.StartTime, order.EndTime, err, problems)
		}
		order.TotalHours = hours
	}
	if input.Description != nil {
		checkDescription(*input.Description, problems)
		order.Description = *input.Description
	}
	if err := problems.OrNil(); err != nil {
		return models.WorkOrder{}, err
	}

	if input.SiteID != nil {
		if err := s.ensureExists(ctx, s.directory.SiteExists, order.SiteID, ErrSiteNotFound); err != nil {
			return models.WorkOrder{}, err
		}
	}

	order.UpdatedAt = s.now().UTC()
	if err := s.orders.Update(ctx, order); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return models.WorkOrder{}, s.conflict(ctx, workorder.OpUpdate, id)
		}
		return models.WorkOrder{}, fmt.Errorf("update work order: %w", err)
	}
	return order, nil
}

// conflict re-reads a work order whose guarded write matched nothing and
// reports the status that blocked it.
func (s *WorkOrderService) conflict(ctx context.Context, op workorder.Operation, id string) error {
	current, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := workorder.Transition(op, current.Status); err != nil {
		return err
	}
	return &workorder.TransitionError{Op: op, Status: current.Status}
}

func (s *WorkOrderService) transition(ctx context.Context, actorID string, id string, op workorder.Operation, reason *string) (models.WorkOrder, error) {
	actor, order, err := s.load(ctx, actorID, id, op)
	if err != nil {
		return models.WorkOrder{}, err
	}
	next, err := workorder.Transition(op, order.Status)
	if err != nil {
		return models.WorkOrder{}, err
	}

	change := models.StatusChange{
		From:         order.Status,
		To:           next,
		RejectReason: reason,
		At:           s.now().UTC(),
	}
	if op == workorder.OpApprove || op == workorder.OpReject {
		change.ApproverID = &actor.ID
	}

	if err := s.orders.TransitionStatus(ctx, order.ID, change); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return models.WorkOrder{}, s.conflict(ctx, op, id)
		}
		return models.WorkOrder{}, fmt.Errorf("%s work order: %w", op, err)
	}

	order.Status = next
	order.UpdatedAt = change.At
	submittedAt, decidedAt := change.Stamps()
	if submittedAt != nil {
		order.SubmittedAt = submittedAt
	}
	if decidedAt != nil {
		order.DecidedAt = decidedAt
		order.ApproverID = change.ApproverID
		order.RejectReason = reason
	}

	s.log.Info().
		Str("work_order_id", order.ID).
		Str("actor_id", actor.ID).
		Str("status", string(order.Status)).
		Msg("work order transitioned")
	return order, nil
}

func (s *WorkOrderService) Submit(ctx context.Context, actorID string, id string) (models.WorkOrder, error) {
	order, err := s.transition(ctx, actorID, id, workorder.OpSubmit, nil)
	if err != nil {
		return models.WorkOrder{}, err
	}

	recipients := s.workerRecipients(ctx, order.WorkerID)
	deciders, err := s.identities.ListByRoles(ctx, models.RoleSupervisor, models.RoleAdmin)
	if err != nil {
		s.log.Warn().Err(err).Str("work_order_id", order.ID).Msg("resolve supervisors failed")
	}
	for _, identity := range deciders {
		recipients = appendUnique(recipients, identity.ID)
	}

	s.notifier.Dispatch(notify.Event{
		Type:        notify.EventSubmitted,
		Recipients:  recipients,
		WorkOrderID: order.ID,
		WorkerID:    order.WorkerID,
	})
	return order, nil
}

func (s *WorkOrderService) Approve(ctx context.Context, actorID string, id string) (models.WorkOrder, error) {
	order, err := s.transition(ctx, actorID, id, workorder.OpApprove, nil)
	if err != nil {
		return models.WorkOrder{}, err
	}
	s.notifier.Dispatch(notify.Event{
		Type:        notify.EventApproved,
		Recipients:  s.workerRecipients(ctx, order.WorkerID),
		WorkOrderID: order.ID,
		WorkerID:    order.WorkerID,
	})
	return order, nil
}

func (s *WorkOrderService) Reject(ctx context.Context, actorID string, id string, reason string) (models.WorkOrder, error) {
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) > maxRejectReasonLength {
		return models.WorkOrder{}, &ValidationError{Fields: map[string]string{
			"reason": fmt.Sprintf("must be at most %d characters", maxRejectReasonLength),
		}}
	}
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}

	order, err := s.transition(ctx, actorID, id, workorder.OpReject, reasonPtr)
	if err != nil {
		return models.WorkOrder{}, err
	}
	s.notifier.Dispatch(notify.Event{
		Type:        notify.EventRejected,
		Recipients:  s.workerRecipients(ctx, order.WorkerID),
		WorkOrderID: order.ID,
		WorkerID:    order.WorkerID,
		Reason:      reason,
	})
	return order, nil
}

// workerRecipients resolves the identity linked to a worker record. Lookup
// failures only cost a notification.
func (s *WorkOrderService) workerRecipients(ctx context.Context, workerID string) []string {
	identity, err := s.identities.FindByWorkerID(ctx, workerID)
	if err != nil {
		if !errors.Is(err, ErrIdentityNotFound) {
			s.log.Warn().Err(err).Str("worker_id", workerID).Msg("resolve worker identity failed")
		}
		return nil
	}
	return []string{identity.ID}
}

func appendUnique(values []string, value string) []string {
	for _, existing := range values {
		if existing == value {
			return values
		}
	}
	return append(values, value)
}

func (s *WorkOrderService) AddExpense(ctx context.Context, actorID string, id string, input ExpenseInput) (models.Expense, error) {
	_, order, err := s.load(ctx, actorID, id, workorder.OpAddExpense)
	if err != nil {
		return models.Expense{}, err
	}

	problems := &ValidationError{}
	category := strings.TrimSpace(input.Category)
	if category == "" {
		problems.Add("category", "is required")
	} else if utf8.RuneCountInString(category) > maxCategoryLength {
		problems.Add("category", fmt.Sprintf("must be at most %d characters", maxCategoryLength))
	}
	amount, err := workorder.ParseAmount(input.Amount)
	if err != nil {
		problems.Add("amount", err.Error())
	}
	checkDescription(input.Description, problems)
	if err := problems.OrNil(); err != nil {
		return models.Expense{}, err
	}

	expense := models.Expense{
		ID:          ids.New(),
		WorkOrderID: order.ID,
		Category:    category,
		AmountCents: amount,
		Description: input.Description,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.expenses.Create(ctx, expense); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return models.Expense{}, s.conflict(ctx, workorder.OpAddExpense, order.ID)
		}
		return models.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	return expense, nil
}

func (s *WorkOrderService) RemoveExpense(ctx context.Context, actorID string, id string, expenseID string) error {
	_, order, err := s.load(ctx, actorID, id, workorder.OpRemoveExpense)
	if err != nil {
		return err
	}
	expense, err := s.expenses.GetByID(ctx, order.ID, expenseID)
	if err != nil {
		return err
	}
	if err := s.expenses.Delete(ctx, order.ID, expenseID); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return s.conflict(ctx, workorder.OpRemoveExpense, order.ID)
		}
		return err
	}
	if expense.ReceiptKey != nil {
		s.discardReceipt(ctx, *expense.ReceiptKey)
	}
	return nil
}

// discardReceipt removes an object no row points at any more. A failure
// leaves an orphaned object behind and is only logged.
func (s *WorkOrderService) discardReceipt(ctx context.Context, key string) {
	if s.receipts == nil {
		return
	}
	if err := s.receipts.RemoveReceipt(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("object_key", key).Msg("receipt cleanup failed")
	}
}
