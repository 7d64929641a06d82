package repository

import "errors"

// Store errors shared by every persistence backend.
var (
	ErrIdentityNotFound     = errors.New("identity not found")
	ErrEmailTaken           = errors.New("email already registered")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenExpired  = errors.New("refresh token expired")
	ErrResetTokenNotFound   = errors.New("reset token not found")
	ErrResetTokenExpired    = errors.New("reset token expired")
	ErrWorkOrderNotFound    = errors.New("work order not found")
	ErrExpenseNotFound      = errors.New("expense not found")
	ErrWorkerNotFound       = errors.New("worker not found")
	ErrSiteNotFound         = errors.New("site not found")

	// ErrStatusConflict means a guarded update matched no row because the
	// work order left the expected status.
	ErrStatusConflict = errors.New("work order status changed")
)

type scanner interface {
	Scan(dest ...any) error
}
