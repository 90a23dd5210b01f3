// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Post model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-postgen/internal/domain"
)

// CreatePost inserts p, assigning an id and UTC timestamps when missing.
func CreatePost(ctx context.Context, db *gorm.DB, p *domain.Post) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	return db.WithContext(ctx).Create(p).Error
}

// GetPost fetches a post by id and owner, or ErrNotFound.
func GetPost(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Post, error) {
	var p domain.Post
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SyncPostText copies the selected version's text onto the post and adds
// usage to its running total. A zero usage leaves the total unchanged.
func SyncPostText(ctx context.Context, db *gorm.DB, postID, text string, usage domain.TokenUsage) error {
	res := db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("id = ?", postID).
		Updates(map[string]any{
			"generated_text":          text,
			"usage_prompt_tokens":     gorm.Expr("usage_prompt_tokens + ?", usage.PromptTokens),
			"usage_completion_tokens": gorm.Expr("usage_completion_tokens + ?", usage.CompletionTokens),
			"usage_total_tokens":      gorm.Expr("usage_total_tokens + ?", usage.TotalTokens),
			"updated_at":              time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
