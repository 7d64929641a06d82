package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"timesheets/internal/models"
)

type RefreshTokenRepository struct {
	pool *pgxpool.Pool
}

func NewRefreshTokenRepository(pool *pgxpool.Pool) *RefreshTokenRepository {
	return &RefreshTokenRepository{pool: pool}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, token models.RefreshToken) error {
	const query = `
		INSERT INTO refresh_tokens (id, identity_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	_, err := r.pool.Exec(ctx, query, token.ID, token.IdentityID, token.TokenHash, token.ExpiresAt)
	return err
}

func (r *RefreshTokenRepository) FindByHash(ctx context.Context, hash []byte) (models.RefreshToken, error) {
	const query = `
		SELECT id, identity_id, token_hash, expires_at, created_at
		FROM refresh_tokens
		WHERE token_hash = $1
	`

	var token models.RefreshToken
	if err := r.pool.QueryRow(ctx, query, hash).Scan(
		&token.ID,
		&token.IdentityID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.RefreshToken{}, ErrRefreshTokenNotFound
		}
		return models.RefreshToken{}, err
	}
	return token, nil
}

// DeleteByHash reports whether a row was removed.
func (r *RefreshTokenRepository) DeleteByHash(ctx context.Context, hash []byte) (bool, error) {
	const query = `DELETE FROM refresh_tokens WHERE token_hash = $1`
	cmd, err := r.pool.Exec(ctx, query, hash)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *RefreshTokenRepository) DeleteByIdentity(ctx context.Context, identityID string) (int64, error) {
	const query = `DELETE FROM refresh_tokens WHERE identity_id = $1`
	cmd, err := r.pool.Exec(ctx, query, identityID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM refresh_tokens WHERE expires_at <= $1`
	cmd, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

// Rotate deletes the row holding oldHash and inserts next for the same
// identity in one transaction. Only one of several concurrent callers can
// delete the row; the rest get ErrRefreshTokenNotFound. An expired row is
// still deleted, but no successor is written.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, oldHash []byte, next models.RefreshToken, now time.Time) (models.RefreshToken, error) {
	const deleteQuery = `
		DELETE FROM refresh_tokens
		WHERE token_hash = $1
		RETURNING id, identity_id, token_hash, expires_at, created_at
	`
	const insertQuery = `
		INSERT INTO refresh_tokens (id, identity_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return models.RefreshToken{}, fmt.Errorf("begin rotate: %w", err)
	}
	defer tx.Rollback(ctx)

	var old models.RefreshToken
	if err := tx.QueryRow(ctx, deleteQuery, oldHash).Scan(
		&old.ID,
		&old.IdentityID,
		&old.TokenHash,
		&old.ExpiresAt,
		&old.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.RefreshToken{}, ErrRefreshTokenNotFound
		}
		return models.RefreshToken{}, err
	}

	if old.Expired(now) {
		if err := tx.Commit(ctx); err != nil {
			return models.RefreshToken{}, fmt.Errorf("commit expired delete: %w", err)
		}
		return models.RefreshToken{}, ErrRefreshTokenExpired
	}

	next.IdentityID = old.IdentityID
	if _, err := tx.Exec(ctx, insertQuery, next.ID, next.IdentityID, next.TokenHash, next.ExpiresAt); err != nil {
		return models.RefreshToken{}, fmt.Errorf("insert successor: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return models.RefreshToken{}, fmt.Errorf("commit rotate: %w", err)
	}
	return next, nil
}
