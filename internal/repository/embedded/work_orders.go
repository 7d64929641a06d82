package embedded

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"timesheets/internal/models"
	"timesheets/internal/repository"
)

type WorkOrderRepository struct {
	database *gorm.DB
}

func NewWorkOrderRepository(database *gorm.DB) *WorkOrderRepository {
	return &WorkOrderRepository{database: database}
}

func (repo *WorkOrderRepository) Create(ctx context.Context, order models.WorkOrder) error {
	row := workOrderToRow(order)
	return repo.database.WithContext(ctx).Create(&row).Error
}

func (repo *WorkOrderRepository) GetByID(ctx context.Context, id string) (models.WorkOrder, error) {
	var row workOrderRow
	if err := repo.database.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.WorkOrder{}, repository.ErrWorkOrderNotFound
		}
		return models.WorkOrder{}, err
	}
	return workOrderFromRow(row)
}

func (repo *WorkOrderRepository) Update(ctx context.Context, order models.WorkOrder) error {
	result := repo.database.WithContext(ctx).
		Model(&workOrderRow{}).
		Where("id = ? AND status <> ?", order.ID, string(models.WorkOrderStatusApproved)).
		Updates(map[string]any{
			"site_id":     order.SiteID,
			"work_date":   order.WorkDate.Format(models.WorkDateLayout),
			"start_time":  order.StartTime,
			"end_time":    order.EndTime,
			"total_hours": order.TotalHours,
			"description": order.Description,
			"updated_at":  utc(order.UpdatedAt),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repository.ErrStatusConflict
	}
	return nil
}

func (repo *WorkOrderRepository) TransitionStatus(ctx context.Context, id string, change models.StatusChange) error {
	updates := map[string]any{
		"status":     string(change.To),
		"updated_at": utc(change.At),
	}
	if change.ApproverID != nil {
		updates["approver_id"] = *change.ApproverID
	}
	if change.RejectReason != nil {
		updates["reject_reason"] = *change.RejectReason
	}
	submittedAt, decidedAt := change.Stamps()
	if submittedAt != nil {
		updates["submitted_at"] = utc(*submittedAt)
	}
	if decidedAt != nil {
		updates["decided_at"] = utc(*decidedAt)
	}

	result := repo.database.WithContext(ctx).
		Model(&workOrderRow{}).
		Where("id = ? AND status = ?", id, string(change.From)).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repository.ErrStatusConflict
	}
	return nil
}

func (repo *WorkOrderRepository) ListStaleDrafts(ctx context.Context, createdBefore time.Time) ([]models.WorkOrder, error) {
	var rows []workOrderRow
	if err := repo.database.WithContext(ctx).
		Where("status = ? AND created_at < ?", string(models.WorkOrderStatusDraft), utc(createdBefore)).
		Order("created_at").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	orders := make([]models.WorkOrder, 0, len(rows))
	for _, row := range rows {
		order, err := workOrderFromRow(row)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (repo *WorkOrderRepository) CountByStatus(ctx context.Context, status models.WorkOrderStatus) (int, error) {
	var count int64
	if err := repo.database.WithContext(ctx).
		Model(&workOrderRow{}).
		Where("status = ?", string(status)).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

type ExpenseRepository struct {
	database *gorm.DB
}

func NewExpenseRepository(database *gorm.DB) *ExpenseRepository {
	return &ExpenseRepository{database: database}
}

func (repo *ExpenseRepository) Create(ctx context.Context, expense models.Expense) error {
	row := expenseRow{
		ID:          expense.ID,
		WorkOrderID: expense.WorkOrderID,
		Category:    expense.Category,
		AmountCents: expense.AmountCents,
		Description: expense.Description,
		CreatedAt:   utc(expense.CreatedAt),
	}
	return repo.withOpenOrder(ctx, expense.WorkOrderID, func(tx *gorm.DB) error {
		return tx.Create(&row).Error
	})
}

// withOpenOrder runs fn in a transaction after checking that the work order
// is not approved. Writes are serialised on the single connection.
func (repo *ExpenseRepository) withOpenOrder(ctx context.Context, workOrderID string, fn func(tx *gorm.DB) error) error {
	return repo.database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order workOrderRow
		if err := tx.Select("status").Where("id = ?", workOrderID).Take(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrWorkOrderNotFound
			}
			return err
		}
		if models.WorkOrderStatus(order.Status) == models.WorkOrderStatusApproved {
			return repository.ErrStatusConflict
		}
		return fn(tx)
	})
}

func (repo *ExpenseRepository) GetByID(ctx context.Context, workOrderID string, id string) (models.Expense, error) {
	var row expenseRow
	if err := repo.database.WithContext(ctx).
		Where("id = ? AND work_order_id = ?", id, workOrderID).
		Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Expense{}, repository.ErrExpenseNotFound
		}
		return models.Expense{}, err
	}
	return expenseFromRow(row), nil
}

func (repo *ExpenseRepository) ListByWorkOrder(ctx context.Context, workOrderID string) ([]models.Expense, error) {
	var rows []expenseRow
	if err := repo.database.WithContext(ctx).
		Where("work_order_id = ?", workOrderID).
		Order("created_at").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	expenses := make([]models.Expense, 0, len(rows))
	for _, row := range rows {
		expenses = append(expenses, expenseFromRow(row))
	}
	return expenses, nil
}

func (repo *ExpenseRepository) Delete(ctx context.Context, workOrderID string, id string) error {
	return repo.withOpenOrder(ctx, workOrderID, func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND work_order_id = ?", id, workOrderID).Delete(&expenseRow{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repository.ErrExpenseNotFound
		}
		return nil
	})
}

func (repo *ExpenseRepository) SetReceipt(ctx context.Context, id string, key string, contentType string) error {
	var expense expenseRow
	if err := repo.database.WithContext(ctx).Select("work_order_id").Where("id = ?", id).Take(&expense).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return repository.ErrExpenseNotFound
		}
		return err
	}

	return repo.withOpenOrder(ctx, expense.WorkOrderID, func(tx *gorm.DB) error {
		result := tx.Model(&expenseRow{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"receipt_key":          key,
				"receipt_content_type": contentType,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repository.ErrExpenseNotFound
		}
		return nil
	})
}
