package service

import (
	"context"
	"fmt"
	"strings"

	"timesheets/internal/ids"
	"timesheets/internal/models"
)

// DirectoryService is the minimal site registry work orders point at.
type DirectoryService struct {
	directory Directory
}

func NewDirectoryService(directory Directory) *DirectoryService {
	return &DirectoryService{directory: directory}
}

func (s *DirectoryService) CreateSite(ctx context.Context, name string) (models.Site, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Site{}, &ValidationError{Fields: map[string]string{"name": "is required"}}
	}
	site := models.Site{ID: ids.New(), Name: name}
	if err := s.directory.CreateSite(ctx, site); err != nil {
		return models.Site{}, fmt.Errorf("create site: %w", err)
	}
	return site, nil
}

func (s *DirectoryService) ListSites(ctx context.Context) ([]models.Site, error) {
	return s.directory.ListSites(ctx)
}
