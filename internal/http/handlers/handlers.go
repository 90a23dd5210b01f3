package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-postgen/internal/domain"
	"github.com/tbourn/go-postgen/internal/http/middleware"
	"github.com/tbourn/go-postgen/internal/services"
)

// GenerationService drafts posts and reports the generation quota.
type GenerationService interface {
	Generate(ctx context.Context, userID string, req domain.GenerateRequest) (*domain.GenerateResponse, error)
	GenerateVariants(ctx context.Context, userID string, req domain.GenerateRequest, n int) (*domain.GenerateResponse, error)
	Status(userID string) domain.RateLimitStatus
}

// VersionService manages the versions of a post.
type VersionService interface {
	List(ctx context.Context, userID, postID string) (domain.VersionList, error)
	Stats(ctx context.Context, userID, postID string) (int64, *time.Time, error)
	Iterate(ctx context.Context, userID, postID string, req domain.IterateRequest) (*domain.IterateResult, *domain.RateLimitStatus, error)
	Select(ctx context.Context, userID, postID, versionID string) error
}

// CatalogService lists reference data.
type CatalogService interface {
	Profiles(ctx context.Context, userID string) ([]domain.Profile, error)
	Platforms(ctx context.Context) ([]domain.Platform, error)
	Projects(ctx context.Context, userID string) ([]domain.Project, error)
}

// IdempotencyStore keeps responses recorded under an Idempotency-Key.
type IdempotencyStore interface {
	Lookup(ctx context.Context, userID, scope, key string) (services.StoredResponse, bool, error)
	Save(ctx context.Context, userID, scope, key string, resp services.StoredResponse) error
}

// Handlers aggregates HTTP handlers and their service dependencies.
type Handlers struct {
	gen  GenerationService
	ver  VersionService
	cat  CatalogService
	idem IdempotencyStore
}

// New constructs Handlers. idem may be nil, which disables replays.
func New(gen GenerationService, ver VersionService, cat CatalogService, idem IdempotencyStore) *Handlers {
	return &Handlers{gen: gen, ver: ver, cat: cat, idem: idem}
}

// userID returns the caller resolved by middleware.Authenticate.
func userID(c *gin.Context) string { return middleware.UserID(c) }
