package models

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleSupervisor Role = "SUPERVISOR"
	RoleWorker     Role = "WORKER"
)

func ParseRole(value string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(value)))
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", value)
	}
	return role, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSupervisor, RoleWorker:
		return true
	default:
		return false
	}
}

// CanDecide reports whether the role may approve or reject submitted work.
func (r Role) CanDecide() bool {
	switch r {
	case RoleAdmin, RoleSupervisor:
		return true
	case RoleWorker:
		return false
	default:
		return false
	}
}

type Identity struct {
	ID           string
	Email        string
	PasswordHash []byte
	Role         Role
	WorkerID     *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OwnsWorker reports whether the identity is linked to the given worker record.
func (i Identity) OwnsWorker(workerID string) bool {
	return i.WorkerID != nil && *i.WorkerID == workerID
}
