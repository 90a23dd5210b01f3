// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides read access to reference data:
// profiles, platforms and projects.
//
// Profiles and projects are owned by a user; rows with an empty user_id are
// shared demo data visible to everyone. Platforms are global.
package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-postgen/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

func visibleTo(db *gorm.DB, userID string) *gorm.DB {
	return db.Where("user_id = ? OR user_id = ''", userID)
}

// ListProfiles returns the profiles visible to userID ordered by name.
func ListProfiles(ctx context.Context, db *gorm.DB, userID string) ([]domain.Profile, error) {
	out := []domain.Profile{}
	err := visibleTo(db.WithContext(ctx), userID).Order("name ASC, id ASC").Find(&out).Error
	return out, err
}

// GetProfile fetches a profile visible to userID, or ErrNotFound.
func GetProfile(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Profile, error) {
	var p domain.Profile
	if err := visibleTo(db.WithContext(ctx), userID).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPlatforms returns every platform ordered by name.
func ListPlatforms(ctx context.Context, db *gorm.DB) ([]domain.Platform, error) {
	out := []domain.Platform{}
	err := db.WithContext(ctx).Order("name ASC, id ASC").Find(&out).Error
	return out, err
}

// GetPlatform fetches a platform by id or slug (case-insensitive), or
// ErrNotFound.
func GetPlatform(ctx context.Context, db *gorm.DB, idOrSlug string) (*domain.Platform, error) {
	var p domain.Platform
	err := db.WithContext(ctx).
		Where("id = ? OR slug = ?", idOrSlug, strings.ToLower(idOrSlug)).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjects returns the projects visible to userID ordered by name.
func ListProjects(ctx context.Context, db *gorm.DB, userID string) ([]domain.Project, error) {
	out := []domain.Project{}
	err := visibleTo(db.WithContext(ctx), userID).Order("name ASC, id ASC").Find(&out).Error
	return out, err
}

// GetProject fetches a project visible to userID, or ErrNotFound.
func GetProject(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Project, error) {
	var p domain.Project
	if err := visibleTo(db.WithContext(ctx), userID).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// IsNotFound reports whether err means a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
