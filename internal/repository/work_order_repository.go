package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"timesheets/internal/models"
)

type WorkOrderRepository struct {
	pool *pgxpool.Pool
}

func NewWorkOrderRepository(pool *pgxpool.Pool) *WorkOrderRepository {
	return &WorkOrderRepository{pool: pool}
}

const workOrderColumns = `
	id, worker_id, site_id, work_date, start_time, end_time, total_hours, description,
	status, approver_id, reject_reason, submitted_at, decided_at, created_at, updated_at
`

func scanWorkOrder(row scanner) (models.WorkOrder, error) {
	var order models.WorkOrder
	err := row.Scan(
		&order.ID,
		&order.WorkerID,
		&order.SiteID,
		&order.WorkDate,
		&order.StartTime,
		&order.EndTime,
		&order.TotalHours,
		&order.Description,
		&order.Status,
		&order.ApproverID,
		&order.RejectReason,
		&order.SubmittedAt,
		&order.DecidedAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.WorkOrder{}, ErrWorkOrderNotFound
	}
	return order, err
}

func (r *WorkOrderRepository) Create(ctx context.Context, order models.WorkOrder) error {
	const query = `
		INSERT INTO work_orders (
			id, worker_id, site_id, work_date, start_time, end_time, total_hours,
			description, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10
		)
	`

	_, err := r.pool.Exec(ctx, query,
		order.ID,
		order.WorkerID,
		order.SiteID,
		order.WorkDate,
		order.StartTime,
		order.EndTime,
		order.TotalHours,
		order.Description,
		order.Status,
		order.CreatedAt,
	)
	return err
}

func (r *WorkOrderRepository) GetByID(ctx context.Context, id string) (models.WorkOrder, error) {
	query := `SELECT ` + workOrderColumns + ` FROM work_orders WHERE id = $1`
	return scanWorkOrder(r.pool.QueryRow(ctx, query, id))
}

// Update writes the editable fields unless the order has been approved in
// the meantime, in which case ErrStatusConflict is returned.
func (r *WorkOrderRepository) Update(ctx context.Context, order models.WorkOrder) error {
	const query = `
		UPDATE work_orders
		SET site_id = $2,
		    work_date = $3,
		    start_time = $4,
		    end_time = $5,
		    total_hours = $6,
		    description = $7,
		    updated_at = $8
		WHERE id = $1 AND status <> 'APPROVED'
	`
	cmd, err := r.pool.Exec(ctx, query,
		order.ID,
		order.SiteID,
		order.WorkDate,
		order.StartTime,
		order.EndTime,
		order.TotalHours,
		order.Description,
		order.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *WorkOrderRepository) TransitionStatus(ctx context.Context, id string, change models.StatusChange) error {
	const query = `
		UPDATE work_orders
		SET status = $3,
		    approver_id = COALESCE($4, approver_id),
		    reject_reason = COALESCE($5, reject_reason),
		    submitted_at = COALESCE($6, submitted_at),
		    decided_at = COALESCE($7, decided_at),
		    updated_at = $8
		WHERE id = $1 AND status = $2
	`

	submittedAt, decidedAt := change.Stamps()
	cmd, err := r.pool.Exec(ctx, query,
		id,
		change.From,
		change.To,
		change.ApproverID,
		change.RejectReason,
		submittedAt,
		decidedAt,
		change.At,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *WorkOrderRepository) ListStaleDrafts(ctx context.Context, createdBefore time.Time) ([]models.WorkOrder, error) {
	query := `SELECT ` + workOrderColumns + `
		FROM work_orders
		WHERE status = 'DRAFT' AND created_at < $1
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, createdBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.WorkOrder
	for rows.Next() {
		order, err := scanWorkOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (r *WorkOrderRepository) CountByStatus(ctx context.Context, status models.WorkOrderStatus) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM work_orders WHERE status = $1`, status).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
