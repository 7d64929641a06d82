package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"timesheets/internal/models"
)

type ExpenseRepository struct {
	pool *pgxpool.Pool
}

func NewExpenseRepository(pool *pgxpool.Pool) *ExpenseRepository {
	return &ExpenseRepository{pool: pool}
}

const expenseColumns = `id, work_order_id, category, amount_cents, description, receipt_key, receipt_content_type, created_at`

func scanExpense(row scanner) (models.Expense, error) {
	var expense models.Expense
	err := row.Scan(
		&expense.ID,
		&expense.WorkOrderID,
		&expense.Category,
		&expense.AmountCents,
		&expense.Description,
		&expense.ReceiptKey,
		&expense.ReceiptContentType,
		&expense.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Expense{}, ErrExpenseNotFound
	}
	return expense, err
}

// Create inserts the expense while holding a share lock on its work order,
// so an approval either waits for it or makes it fail with ErrStatusConflict.
func (r *ExpenseRepository) Create(ctx context.Context, expense models.Expense) error {
	const query = `
		INSERT INTO expenses (id, work_order_id, category, amount_cents, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	return r.withOpenOrder(ctx, expense.WorkOrderID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, query,
			expense.ID,
			expense.WorkOrderID,
			expense.Category,
			expense.AmountCents,
			expense.Description,
			expense.CreatedAt,
		)
		return err
	})
}

// withOpenOrder runs fn in a transaction that holds a share lock on a work
// order which is not approved.
func (r *ExpenseRepository) withOpenOrder(ctx context.Context, workOrderID string, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin expense write: %w", err)
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx, `SELECT status FROM work_orders WHERE id = $1 FOR SHARE`, workOrderID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrWorkOrderNotFound
		}
		return err
	}
	if models.WorkOrderStatus(status) == models.WorkOrderStatusApproved {
		return ErrStatusConflict
	}

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *ExpenseRepository) GetByID(ctx context.Context, workOrderID string, id string) (models.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = $1 AND work_order_id = $2`
	return scanExpense(r.pool.QueryRow(ctx, query, id, workOrderID))
}

func (r *ExpenseRepository) ListByWorkOrder(ctx context.Context, workOrderID string) ([]models.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE work_order_id = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, workOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, expense)
	}
	return expenses, rows.Err()
}

func (r *ExpenseRepository) Delete(ctx context.Context, workOrderID string, id string) error {
	return r.withOpenOrder(ctx, workOrderID, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, `DELETE FROM expenses WHERE id = $1 AND work_order_id = $2`, id, workOrderID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrExpenseNotFound
		}
		return nil
	})
}

func (r *ExpenseRepository) SetReceipt(ctx context.Context, id string, key string, contentType string) error {
	const lookup = `SELECT work_order_id FROM expenses WHERE id = $1`
	const query = `
		UPDATE expenses SET receipt_key = $2, receipt_content_type = $3 WHERE id = $1
	`
	var workOrderID string
	if err := r.pool.QueryRow(ctx, lookup, id).Scan(&workOrderID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrExpenseNotFound
		}
		return err
	}

	return r.withOpenOrder(ctx, workOrderID, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, query, id, key, contentType)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrExpenseNotFound
		}
		return nil
	})
}
