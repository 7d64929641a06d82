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

type ResetTokenRepository struct {
	pool *pgxpool.Pool
}

func NewResetTokenRepository(pool *pgxpool.Pool) *ResetTokenRepository {
	return &ResetTokenRepository{pool: pool}
}

// Replace drops any outstanding reset tokens of the identity and stores the
// new one.
func (r *ResetTokenRepository) Replace(ctx context.Context, token models.ResetToken) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM reset_tokens WHERE identity_id = $1`, token.IdentityID); err != nil {
			return fmt.Errorf("delete previous: %w", err)
		}
		const query = `
			INSERT INTO reset_tokens (id, identity_id, token_hash, expires_at, created_at)
			VALUES ($1, $2, $3, $4, NOW())
		`
		_, err := tx.Exec(ctx, query, token.ID, token.IdentityID, token.TokenHash, token.ExpiresAt)
		return err
	})
}

// Consume deletes the token and returns it. Expired tokens are deleted too.
func (r *ResetTokenRepository) Consume(ctx context.Context, hash []byte, now time.Time) (models.ResetToken, error) {
	const query = `
		DELETE FROM reset_tokens
		WHERE token_hash = $1
		RETURNING id, identity_id, token_hash, expires_at, created_at
	`

	var token models.ResetToken
	if err := r.pool.QueryRow(ctx, query, hash).Scan(
		&token.ID,
		&token.IdentityID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ResetToken{}, ErrResetTokenNotFound
		}
		return models.ResetToken{}, err
	}
	if token.Expired(now) {
		return models.ResetToken{}, ErrResetTokenExpired
	}
	return token, nil
}

func (r *ResetTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM reset_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
