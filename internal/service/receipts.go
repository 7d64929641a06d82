package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"timesheets/internal/ids"
	"timesheets/internal/media/sniffer"
	"timesheets/internal/models"
	"timesheets/internal/repository"
	"timesheets/internal/workorder"
)

type ReceiptUpload struct {
	File         io.Reader
	Size         int64
	DeclaredType string
}

// AttachReceipt stores a scanned receipt for an expense. It counts as an
// expense mutation, so approved orders refuse it.
func (s *WorkOrderService) AttachReceipt(ctx context.Context, actorID string, id string, expenseID string, upload ReceiptUpload) (models.Expense, error) {
	if s.receipts == nil {
		return models.Expense{}, ErrReceiptsDisabled
	}

	_, order, err := s.load(ctx, actorID, id, workorder.OpAttachReceipt)
	if err != nil {
		return models.Expense{}, err
	}
	expense, err := s.expenses.GetByID(ctx, order.ID, expenseID)
	if err != nil {
		return models.Expense{}, err
	}

	if upload.File == nil || upload.Size <= 0 {
		return models.Expense{}, &ValidationError{Fields: map[string]string{"file": "is required"}}
	}
	if s.maxReceiptSize > 0 && upload.Size > s.maxReceiptSize {
		return models.Expense{}, &ValidationError{Fields: map[string]string{
			"file": fmt.Sprintf("must be at most %d bytes", s.maxReceiptSize),
		}}
	}

	result, head, err := sniffer.Detect(upload.File)
	if err != nil {
		return models.Expense{}, &ValidationError{Fields: map[string]string{"file": "must be a JPEG, PNG, WEBP or PDF file"}, Err: err}
	}
	if upload.DeclaredType != "" && upload.DeclaredType != "application/octet-stream" && upload.DeclaredType != result.MIME {
		return models.Expense{}, &ValidationError{Fields: map[string]string{
			"file": fmt.Sprintf("content type mismatch: declared %s, actual %s", upload.DeclaredType, result.MIME),
		}}
	}

	key := s.receiptKey(order.ID, expense.ID, string(result.Type))
	body := io.MultiReader(bytes.NewReader(head), upload.File)
	if err := s.receipts.PutReceipt(ctx, key, body, upload.Size, result.MIME); err != nil {
		return models.Expense{}, err
	}
	if err := s.expenses.SetReceipt(ctx, expense.ID, key, result.MIME); err != nil {
		s.discardReceipt(ctx, key)
		if errors.Is(err, repository.ErrStatusConflict) {
			return models.Expense{}, s.conflict(ctx, workorder.OpAttachReceipt, order.ID)
		}
		return models.Expense{}, fmt.Errorf("save receipt metadata: %w", err)
	}

	if expense.ReceiptKey != nil {
		s.discardReceipt(ctx, *expense.ReceiptKey)
	}
	expense.ReceiptKey = &key
	expense.ReceiptContentType = &result.MIME
	s.log.Info().
		Str("work_order_id", order.ID).
		Str("expense_id", expense.ID).
		Str("object_key", key).
		Msg("receipt stored")
	return expense, nil
}

func (s *WorkOrderService) receiptKey(workOrderID string, expenseID string, ext string) string {
	datePrefix := s.now().UTC().Format("2006/01/02")
	return path.Join("receipts", datePrefix, workOrderID, fmt.Sprintf("%s-%s.%s", expenseID, ids.New(), ext))
}
