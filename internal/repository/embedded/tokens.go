package embedded

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"timesheets/internal/models"
	"timesheets/internal/repository"
)

type RefreshTokenRepository struct {
	database *gorm.DB
}

func NewRefreshTokenRepository(database *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{database: database}
}

func refreshTokenToRow(token models.RefreshToken) refreshTokenRow {
	return refreshTokenRow{
		ID:         token.ID,
		IdentityID: token.IdentityID,
		TokenHash:  token.TokenHash,
		ExpiresAt:  utc(token.ExpiresAt),
	}
}

func (repo *RefreshTokenRepository) Create(ctx context.Context, token models.RefreshToken) error {
	row := refreshTokenToRow(token)
	return repo.database.WithContext(ctx).Create(&row).Error
}

func (repo *RefreshTokenRepository) FindByHash(ctx context.Context, hash []byte) (models.RefreshToken, error) {
	var row refreshTokenRow
	if err := repo.database.WithContext(ctx).Where("token_hash = ?", hash).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.RefreshToken{}, repository.ErrRefreshTokenNotFound
		}
		return models.RefreshToken{}, err
	}
	return models.RefreshToken{
		ID:         row.ID,
		IdentityID: row.IdentityID,
		TokenHash:  row.TokenHash,
		ExpiresAt:  row.ExpiresAt,
		CreatedAt:  row.CreatedAt,
	}, nil
}

func (repo *RefreshTokenRepository) DeleteByHash(ctx context.Context, hash []byte) (bool, error) {
	result := repo.database.WithContext(ctx).Where("token_hash = ?", hash).Delete(&refreshTokenRow{})
	return result.RowsAffected > 0, result.Error
}

func (repo *RefreshTokenRepository) DeleteByIdentity(ctx context.Context, identityID string) (int64, error) {
	result := repo.database.WithContext(ctx).Where("identity_id = ?", identityID).Delete(&refreshTokenRow{})
	return result.RowsAffected, result.Error
}

func (repo *RefreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := repo.database.WithContext(ctx).Where("expires_at <= ?", utc(now)).Delete(&refreshTokenRow{})
	return result.RowsAffected, result.Error
}

func (repo *RefreshTokenRepository) Rotate(ctx context.Context, oldHash []byte, next models.RefreshToken, now time.Time) (models.RefreshToken, error) {
	expired := false
	err := repo.database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old refreshTokenRow
		if err := tx.Where("token_hash = ?", oldHash).Take(&old).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrRefreshTokenNotFound
			}
			return err
		}

		result := tx.Where("id = ?", old.ID).Delete(&refreshTokenRow{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repository.ErrRefreshTokenNotFound
		}

		if !now.Before(old.ExpiresAt) {
			expired = true
			return nil
		}

		next.IdentityID = old.IdentityID
		row := refreshTokenToRow(next)
		return tx.Create(&row).Error
	})
	if err != nil {
		return models.RefreshToken{}, err
	}
	if expired {
		return models.RefreshToken{}, repository.ErrRefreshTokenExpired
	}
	return next, nil
}

type ResetTokenRepository struct {
	database *gorm.DB
}

func NewResetTokenRepository(database *gorm.DB) *ResetTokenRepository {
	return &ResetTokenRepository{database: database}
}

func (repo *ResetTokenRepository) Replace(ctx context.Context, token models.ResetToken) error {
	return repo.database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("identity_id = ?", token.IdentityID).Delete(&resetTokenRow{}).Error; err != nil {
			return err
		}
		row := resetTokenRow{
			ID:         token.ID,
			IdentityID: token.IdentityID,
			TokenHash:  token.TokenHash,
			ExpiresAt:  utc(token.ExpiresAt),
		}
		return tx.Create(&row).Error
	})
}

func (repo *ResetTokenRepository) Consume(ctx context.Context, hash []byte, now time.Time) (models.ResetToken, error) {
	var row resetTokenRow
	err := repo.database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("token_hash = ?", hash).Take(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrResetTokenNotFound
			}
			return err
		}
		result := tx.Where("id = ?", row.ID).Delete(&resetTokenRow{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repository.ErrResetTokenNotFound
		}
		return nil
	})
	if err != nil {
		return models.ResetToken{}, err
	}
	if !now.Before(row.ExpiresAt) {
		return models.ResetToken{}, repository.ErrResetTokenExpired
	}
	return models.ResetToken{
		ID:         row.ID,
		IdentityID: row.IdentityID,
		TokenHash:  row.TokenHash,
		ExpiresAt:  row.ExpiresAt,
		CreatedAt:  row.CreatedAt,
	}, nil
}

func (repo *ResetTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := repo.database.WithContext(ctx).Where("expires_at <= ?", utc(now)).Delete(&resetTokenRow{})
	return result.RowsAffected, result.Error
}
