package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"timesheets/internal/repository"
	"timesheets/internal/workorder"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrResetTokenInvalid  = errors.New("reset token invalid")
	ErrReceiptsDisabled   = errors.New("receipt storage not configured")

	ErrForbidden            = workorder.ErrForbidden
	ErrEmailTaken           = repository.ErrEmailTaken
	ErrIdentityNotFound     = repository.ErrIdentityNotFound
	ErrRefreshTokenNotFound = repository.ErrRefreshTokenNotFound
	ErrRefreshTokenExpired  = repository.ErrRefreshTokenExpired
	ErrWorkOrderNotFound    = repository.ErrWorkOrderNotFound
	ErrExpenseNotFound      = repository.ErrExpenseNotFound
	ErrWorkerNotFound       = repository.ErrWorkerNotFound
	ErrSiteNotFound         = repository.ErrSiteNotFound
)

// ValidationError carries per-field messages that are safe to show to the
// caller. Err, when set, is the rule that failed.
type ValidationError struct {
	Fields map[string]string
	Err    error
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", key, e.Fields[key]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func (e *ValidationError) Add(field string, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

// OrNil returns nil when no field failed.
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
