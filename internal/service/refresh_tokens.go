package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"timesheets/internal/ids"
	"timesheets/internal/models"
	"timesheets/internal/security"
)

const refreshTokenBytes = 48

// RefreshTokenStore issues opaque refresh tokens and persists only their
// hashes.
type RefreshTokenStore struct {
	repo RefreshTokenRepository
	ttl  time.Duration
	now  func() time.Time
}

func NewRefreshTokenStore(repo RefreshTokenRepository, ttl time.Duration) *RefreshTokenStore {
	return &RefreshTokenStore{repo: repo, ttl: ttl, now: time.Now}
}

func (s *RefreshTokenStore) WithClock(now func() time.Time) *RefreshTokenStore {
	s.now = now
	return s
}

func (s *RefreshTokenStore) newToken(identityID string) (string, models.RefreshToken, error) {
	raw, hash, err := security.GenerateOpaqueToken(refreshTokenBytes)
	if err != nil {
		return "", models.RefreshToken{}, err
	}
	now := s.now()
	return raw, models.RefreshToken{
		ID:         ids.New(),
		IdentityID: identityID,
		TokenHash:  hash,
		ExpiresAt:  now.Add(s.ttl),
		CreatedAt:  now,
	}, nil
}

func (s *RefreshTokenStore) Issue(ctx context.Context, identityID string) (string, error) {
	raw, token, err := s.newToken(identityID)
	if err != nil {
		return "", err
	}
	if err := s.repo.Create(ctx, token); err != nil {
		return "", fmt.Errorf("store refresh token: %w", err)
	}
	return raw, nil
}

// Validate returns the owning identity. An expired token is removed and
// reported as ErrRefreshTokenExpired; later lookups see ErrRefreshTokenNotFound.
func (s *RefreshTokenStore) Validate(ctx context.Context, raw string) (string, error) {
	hash := security.HashOpaqueToken(raw)
	token, err := s.repo.FindByHash(ctx, hash)
	if err != nil {
		return "", err
	}
	if token.Expired(s.now()) {
		if _, err := s.repo.DeleteByHash(ctx, hash); err != nil {
			return "", fmt.Errorf("delete expired refresh token: %w", err)
		}
		return "", ErrRefreshTokenExpired
	}
	return token.IdentityID, nil
}

// Rotate exchanges raw for a fresh token of the same identity. The old
// token stops working even if the caller never receives the new one.
func (s *RefreshTokenStore) Rotate(ctx context.Context, raw string) (identityID string, next string, err error) {
	next, successor, err := s.newToken("")
	if err != nil {
		return "", "", err
	}

	stored, err := s.repo.Rotate(ctx, security.HashOpaqueToken(raw), successor, s.now())
	if err != nil {
		if errors.Is(err, ErrRefreshTokenNotFound) || errors.Is(err, ErrRefreshTokenExpired) {
			return "", "", err
		}
		return "", "", fmt.Errorf("rotate refresh token: %w", err)
	}
	return stored.IdentityID, next, nil
}

func (s *RefreshTokenStore) Revoke(ctx context.Context, raw string) error {
	_, err := s.repo.DeleteByHash(ctx, security.HashOpaqueToken(raw))
	return err
}

func (s *RefreshTokenStore) RevokeAll(ctx context.Context, identityID string) (int64, error) {
	return s.repo.DeleteByIdentity(ctx, identityID)
}

func (s *RefreshTokenStore) SweepExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now())
}
