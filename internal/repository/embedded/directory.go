package embedded

import (
	"context"

	"gorm.io/gorm"

	"timesheets/internal/models"
)

type DirectoryRepository struct {
	database *gorm.DB
}

func NewDirectoryRepository(database *gorm.DB) *DirectoryRepository {
	return &DirectoryRepository{database: database}
}

func (repo *DirectoryRepository) CreateWorker(ctx context.Context, worker models.Worker) error {
	return repo.database.WithContext(ctx).Create(&workerRow{ID: worker.ID, Name: worker.Name}).Error
}

func (repo *DirectoryRepository) CreateSite(ctx context.Context, site models.Site) error {
	return repo.database.WithContext(ctx).Create(&siteRow{ID: site.ID, Name: site.Name}).Error
}

func (repo *DirectoryRepository) ListSites(ctx context.Context) ([]models.Site, error) {
	var rows []siteRow
	if err := repo.database.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	sites := make([]models.Site, 0, len(rows))
	for _, row := range rows {
		sites = append(sites, models.Site{ID: row.ID, Name: row.Name, CreatedAt: row.CreatedAt})
	}
	return sites, nil
}

func (repo *DirectoryRepository) WorkerExists(ctx context.Context, id string) (bool, error) {
	return repo.exists(ctx, &workerRow{}, id)
}

func (repo *DirectoryRepository) SiteExists(ctx context.Context, id string) (bool, error) {
	return repo.exists(ctx, &siteRow{}, id)
}

func (repo *DirectoryRepository) exists(ctx context.Context, model any, id string) (bool, error) {
	var count int64
	if err := repo.database.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
