package services

import (
	"context"

	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"github.com/tbourn/go-postgen/internal/domain"
	"github.com/tbourn/go-postgen/internal/repo"
)

// CatalogService lists the reference data a user can generate from.
type CatalogService struct {
	DB *gorm.DB
}

// Profiles returns the user's profiles and the shared demo profiles.
func (s *CatalogService) Profiles(ctx context.Context, userID string) ([]domain.Profile, error) {
	ctx, span := otel.Tracer("services/CatalogService").Start(ctx, "Profiles")
	defer span.End()
	return repo.ListProfiles(ctx, s.DB, userID)
}

// Platforms returns every platform.
func (s *CatalogService) Platforms(ctx context.Context) ([]domain.Platform, error) {
	ctx, span := otel.Tracer("services/CatalogService").Start(ctx, "Platforms")
	defer span.End()
	return repo.ListPlatforms(ctx, s.DB)
}

// Projects returns the user's projects and the shared demo projects.
func (s *CatalogService) Projects(ctx context.Context, userID string) ([]domain.Project, error) {
	ctx, span := otel.Tracer("services/CatalogService").Start(ctx, "Projects")
	defer span.End()
	return repo.ListProjects(ctx, s.DB, userID)
}
