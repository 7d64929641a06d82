package models

import "time"

type RefreshToken struct {
	ID         string
	IdentityID string
	TokenHash  []byte
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

func (t RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

type ResetToken struct {
	ID         string
	IdentityID string
	TokenHash  []byte
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

func (t ResetToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
