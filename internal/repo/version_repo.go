// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// PostVersion model.
//
// Version numbers are allocated as MAX(version_number)+1 for the post, so
// callers must create versions inside a transaction. The unique index
// (post_id, version_number) rejects a concurrent duplicate.
package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-postgen/internal/domain"
)

// NextVersionNumber returns the number the next version of postID gets.
func NextVersionNumber(ctx context.Context, db *gorm.DB, postID string) (int, error) {
	var maxN sql.NullInt64
	err := db.WithContext(ctx).
		Model(&domain.PostVersion{}).
		Where("post_id = ?", postID).
		Select("MAX(version_number)").
		Row().Scan(&maxN)
	if err != nil {
		return 0, err
	}
	return int(maxN.Int64) + 1, nil
}

// CreateVersion numbers v as the next version of v.PostID and inserts it.
// When v.IsSelected is set, every other version of the post is deselected
// first.
func CreateVersion(ctx context.Context, db *gorm.DB, v *domain.PostVersion) error {
	n, err := NextVersionNumber(ctx, db, v.PostID)
	if err != nil {
		return err
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.VersionNumber = n
	now := time.Now().UTC()
	v.CreatedAt, v.UpdatedAt = now, now

	if v.IsSelected {
		if err := clearSelection(ctx, db, v.PostID); err != nil {
			return err
		}
	}
	return db.WithContext(ctx).Omit(clause.Associations).Create(v).Error
}

// ListVersions returns every version of postID in version order.
func ListVersions(ctx context.Context, db *gorm.DB, postID string) ([]domain.PostVersion, error) {
	out := []domain.PostVersion{}
	err := db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("version_number ASC").
		Find(&out).Error
	return out, err
}

// GetVersion fetches one version of postID, or ErrNotFound.
func GetVersion(ctx context.Context, db *gorm.DB, postID, versionID string) (*domain.PostVersion, error) {
	var v domain.PostVersion
	err := db.WithContext(ctx).
		Where("id = ? AND post_id = ?", versionID, postID).
		First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// SelectedVersion returns the selected version of postID, or ErrNotFound.
func SelectedVersion(ctx context.Context, db *gorm.DB, postID string) (*domain.PostVersion, error) {
	var v domain.PostVersion
	err := db.WithContext(ctx).
		Where("post_id = ? AND is_selected = ?", postID, true).
		First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// SelectVersion makes versionID the only selected version of postID.
// Returns ErrNotFound when the version does not belong to the post.
func SelectVersion(ctx context.Context, db *gorm.DB, postID, versionID string) error {
	if err := clearSelection(ctx, db, postID); err != nil {
		return err
	}
	res := db.WithContext(ctx).
		Model(&domain.PostVersion{}).
		Where("id = ? AND post_id = ?", versionID, postID).
		Updates(map[string]any{"is_selected": true, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func clearSelection(ctx context.Context, db *gorm.DB, postID string) error {
	return db.WithContext(ctx).
		Model(&domain.PostVersion{}).
		Where("post_id = ? AND is_selected = ?", postID, true).
		Updates(map[string]any{"is_selected": false, "updated_at": time.Now().UTC()}).Error
}
