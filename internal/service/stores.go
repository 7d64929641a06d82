package service

import (
	"context"
	"io"
	"time"

	"timesheets/internal/models"
	"timesheets/internal/notify"
)

// The store interfaces below are satisfied by both the Postgres
// repositories and the embedded SQLite store.

type IdentityRepository interface {
	Create(ctx context.Context, identity models.Identity) error
	FindByEmail(ctx context.Context, email string) (models.Identity, error)
	GetByID(ctx context.Context, id string) (models.Identity, error)
	FindByWorkerID(ctx context.Context, workerID string) (models.Identity, error)
	ListByRoles(ctx context.Context, roles ...models.Role) ([]models.Identity, error)
	UpdatePassword(ctx context.Context, id string, passwordHash []byte) error
	CountByRole(ctx context.Context, role models.Role) (int, error)
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, token models.RefreshToken) error
	FindByHash(ctx context.Context, hash []byte) (models.RefreshToken, error)
	DeleteByHash(ctx context.Context, hash []byte) (bool, error)
	DeleteByIdentity(ctx context.Context, identityID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Rotate(ctx context.Context, oldHash []byte, next models.RefreshToken, now time.Time) (models.RefreshToken, error)
}

type ResetTokenRepository interface {
	Replace(ctx context.Context, token models.ResetToken) error
	Consume(ctx context.Context, hash []byte, now time.Time) (models.ResetToken, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type WorkOrderRepository interface {
	Create(ctx context.Context, order models.WorkOrder) error
	GetByID(ctx context.Context, id string) (models.WorkOrder, error)
	Update(ctx context.Context, order models.WorkOrder) error
	TransitionStatus(ctx context.Context, id string, change models.StatusChange) error
	ListStaleDrafts(ctx context.Context, createdBefore time.Time) ([]models.WorkOrder, error)
	CountByStatus(ctx context.Context, status models.WorkOrderStatus) (int, error)
}

type ExpenseRepository interface {
	Create(ctx context.Context, expense models.Expense) error
	GetByID(ctx context.Context, workOrderID string, id string) (models.Expense, error)
	ListByWorkOrder(ctx context.Context, workOrderID string) ([]models.Expense, error)
	Delete(ctx context.Context, workOrderID string, id string) error
	SetReceipt(ctx context.Context, id string, key string, contentType string) error
}

type Directory interface {
	CreateWorker(ctx context.Context, worker models.Worker) error
	CreateSite(ctx context.Context, site models.Site) error
	ListSites(ctx context.Context) ([]models.Site, error)
	WorkerExists(ctx context.Context, id string) (bool, error)
	SiteExists(ctx context.Context, id string) (bool, error)
}

type ReceiptStore interface {
	PutReceipt(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	RemoveReceipt(ctx context.Context, key string) error
}

type EventDispatcher interface {
	Dispatch(event notify.Event)
}
