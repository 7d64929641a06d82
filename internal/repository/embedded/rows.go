// Package embedded implements the store interfaces on gorm over SQLite,
// for single-node deployments and tests.
package embedded

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"timesheets/internal/models"
)

type workerRow struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	CreatedAt time.Time
}

func (workerRow) TableName() string { return "workers" }

type siteRow struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	CreatedAt time.Time
}

func (siteRow) TableName() string { return "sites" }

type identityRow struct {
	ID           string  `gorm:"primaryKey"`
	Email        string  `gorm:"uniqueIndex;not null"`
	PasswordHash []byte  `gorm:"not null"`
	Role         string  `gorm:"not null"`
	WorkerID     *string `gorm:"uniqueIndex"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (identityRow) TableName() string { return "identities" }

type refreshTokenRow struct {
	ID         string    `gorm:"primaryKey"`
	IdentityID string    `gorm:"index;not null"`
	TokenHash  []byte    `gorm:"uniqueIndex;not null"`
	ExpiresAt  time.Time `gorm:"index"`
	CreatedAt  time.Time
}

func (refreshTokenRow) TableName() string { return "refresh_tokens" }

type resetTokenRow struct {
	ID         string    `gorm:"primaryKey"`
	IdentityID string    `gorm:"index;not null"`
	TokenHash  []byte    `gorm:"uniqueIndex;not null"`
	ExpiresAt  time.Time `gorm:"index"`
	CreatedAt  time.Time
}

func (resetTokenRow) TableName() string { return "reset_tokens" }

type workOrderRow struct {
	ID           string `gorm:"primaryKey"`
	WorkerID     string `gorm:"index;not null"`
	SiteID       string `gorm:"not null"`
	WorkDate     string `gorm:"not null"`
	StartTime    string `gorm:"not null"`
	EndTime      string `gorm:"not null"`
	TotalHours   float64
	Description  string
	Status       string `gorm:"index;not null"`
	ApproverID   *string
	RejectReason *string
	SubmittedAt  *time.Time
	DecidedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (workOrderRow) TableName() string { return "work_orders" }

type expenseRow struct {
	ID                 string `gorm:"primaryKey"`
	WorkOrderID        string `gorm:"index;not null"`
	Category           string `gorm:"not null"`
	AmountCents        int64  `gorm:"not null"`
	Description        string
	ReceiptKey         *string
	ReceiptContentType *string
	CreatedAt          time.Time
}

func (expenseRow) TableName() string { return "expenses" }

// Migrate creates or updates every table the store uses.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&workerRow{},
		&siteRow{},
		&identityRow{},
		&refreshTokenRow{},
		&resetTokenRow{},
		&workOrderRow{},
		&expenseRow{},
	)
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || (err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed"))
}

func utc(t time.Time) time.Time {
	return t.UTC()
}

func identityFromRow(row identityRow) models.Identity {
	return models.Identity{
		ID:           row.ID,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		Role:         models.Role(row.Role),
		WorkerID:     row.WorkerID,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func workOrderToRow(order models.WorkOrder) workOrderRow {
	return workOrderRow{
		ID:           order.ID,
		WorkerID:     order.WorkerID,
		SiteID:       order.SiteID,
		WorkDate:     order.WorkDate.Format(models.WorkDateLayout),
		StartTime:    order.StartTime,
		EndTime:      order.EndTime,
		TotalHours:   order.TotalHours,
		Description:  order.Description,
		Status:       string(order.Status),
		ApproverID:   order.ApproverID,
		RejectReason: order.RejectReason,
		SubmittedAt:  order.SubmittedAt,
		DecidedAt:    order.DecidedAt,
		CreatedAt:    utc(order.CreatedAt),
		UpdatedAt:    utc(order.UpdatedAt),
	}
}

func workOrderFromRow(row workOrderRow) (models.WorkOrder, error) {
	workDate, err := time.Parse(models.WorkDateLayout, row.WorkDate)
	if err != nil {
		return models.WorkOrder{}, err
	}
	return models.WorkOrder{
		ID:           row.ID,
		WorkerID:     row.WorkerID,
		SiteID:       row.SiteID,
		WorkDate:     workDate,
		StartTime:    row.StartTime,
		EndTime:      row.EndTime,
		TotalHours:   row.TotalHours,
		Description:  row.Description,
		Status:       models.WorkOrderStatus(row.Status),
		ApproverID:   row.ApproverID,
		RejectReason: row.RejectReason,
		SubmittedAt:  row.SubmittedAt,
		DecidedAt:    row.DecidedAt,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}, nil
}

func expenseFromRow(row expenseRow) models.Expense {
	return models.Expense{
		ID:                 row.ID,
		WorkOrderID:        row.WorkOrderID,
		Category:           row.Category,
		AmountCents:        row.AmountCents,
		Description:        row.Description,
		ReceiptKey:         row.ReceiptKey,
		ReceiptContentType: row.ReceiptContentType,
		CreatedAt:          row.CreatedAt,
	}
}
