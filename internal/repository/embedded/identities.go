package embedded

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"timesheets/internal/models"
	"timesheets/internal/repository"
)

type IdentityRepository struct {
	database *gorm.DB
}

func NewIdentityRepository(database *gorm.DB) *IdentityRepository {
	return &IdentityRepository{database: database}
}

func (repo *IdentityRepository) Create(ctx context.Context, identity models.Identity) error {
	row := identityRow{
		ID:           identity.ID,
		Email:        identity.Email,
		PasswordHash: identity.PasswordHash,
		Role:         string(identity.Role),
		WorkerID:     identity.WorkerID,
	}
	err := repo.database.WithContext(ctx).Create(&row).Error
	if isUniqueViolation(err) {
		return repository.ErrEmailTaken
	}
	return err
}

func (repo *IdentityRepository) find(ctx context.Context, query string, arg any) (models.Identity, error) {
	var row identityRow
	if err := repo.database.WithContext(ctx).Where(query, arg).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Identity{}, repository.ErrIdentityNotFound
		}
		return models.Identity{}, err
	}
	return identityFromRow(row), nil
}

func (repo *IdentityRepository) FindByEmail(ctx context.Context, email string) (models.Identity, error) {
	return repo.find(ctx, "email = ?", email)
}

func (repo *IdentityRepository) GetByID(ctx context.Context, id string) (models.Identity, error) {
	return repo.find(ctx, "id = ?", id)
}

func (repo *IdentityRepository) FindByWorkerID(ctx context.Context, workerID string) (models.Identity, error) {
	return repo.find(ctx, "worker_id = ?", workerID)
}

func (repo *IdentityRepository) ListByRoles(ctx context.Context, roles ...models.Role) ([]models.Identity, error) {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}

	var rows []identityRow
	if err := repo.database.WithContext(ctx).
		Where("role IN ?", names).
		Order("created_at").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	identities := make([]models.Identity, 0, len(rows))
	for _, row := range rows {
		identities = append(identities, identityFromRow(row))
	}
	return identities, nil
}

func (repo *IdentityRepository) UpdatePassword(ctx context.Context, id string, passwordHash []byte) error {
	result := repo.database.WithContext(ctx).
		Model(&identityRow{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return repository.ErrIdentityNotFound
	}
	return nil
}

func (repo *IdentityRepository) CountByRole(ctx context.Context, role models.Role) (int, error) {
	var count int64
	if err := repo.database.WithContext(ctx).
		Model(&identityRow{}).
		Where("role = ?", string(role)).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}
