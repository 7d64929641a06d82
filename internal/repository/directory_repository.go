package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"timesheets/internal/models"
)

// DirectoryRepository exposes the worker and site tables. Full CRUD for
// them lives outside this service.
type DirectoryRepository struct {
	pool *pgxpool.Pool
}

func NewDirectoryRepository(pool *pgxpool.Pool) *DirectoryRepository {
	return &DirectoryRepository{pool: pool}
}

func (r *DirectoryRepository) CreateWorker(ctx context.Context, worker models.Worker) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO workers (id, name, created_at) VALUES ($1, $2, NOW())`, worker.ID, worker.Name)
	return err
}

func (r *DirectoryRepository) CreateSite(ctx context.Context, site models.Site) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO sites (id, name, created_at) VALUES ($1, $2, NOW())`, site.ID, site.Name)
	return err
}

func (r *DirectoryRepository) ListSites(ctx context.Context) ([]models.Site, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at FROM sites ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sites []models.Site
	for rows.Next() {
		var site models.Site
		if err := rows.Scan(&site.ID, &site.Name, &site.CreatedAt); err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

func (r *DirectoryRepository) WorkerExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM workers WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *DirectoryRepository) SiteExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sites WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}
