// Package services – VersionService
//
// VersionService owns a post's version history after the first draft:
// listing, iterating (a new selected version derived from the selected one)
// and switching the selected version. Version numbers are allocated inside
// the same transaction that inserts the version.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-postgen/internal/domain"
	"github.com/tbourn/go-postgen/internal/llm"
	"github.com/tbourn/go-postgen/internal/repo"
)

// VersionService manages post versions.
type VersionService struct {
	DB    *gorm.DB
	LLM   llm.Generator
	Quota *Quota
}

// List returns every version of postID in version order.
func (s *VersionService) List(ctx context.Context, userID, postID string) (domain.VersionList, error) {
	tr := otel.Tracer("services/VersionService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(attribute.String("post.id", postID)),
	)
	defer span.End()

	if _, err := s.post(ctx, userID, postID); err != nil {
		return domain.VersionList{}, err
	}
	vs, err := repo.ListVersions(ctx, s.DB, postID)
	if err != nil {
		return domain.VersionList{}, err
	}
	return domain.VersionList{TotalVersions: len(vs), Versions: vs}, nil
}

// Stats returns the version count of postID and the latest change time, for
// conditional responses.
func (s *VersionService) Stats(ctx context.Context, userID, postID string) (int64, *time.Time, error) {
	if _, err := s.post(ctx, userID, postID); err != nil {
		return 0, nil, err
	}
	return repo.VersionsStats(ctx, s.DB, postID)
}

// Iterate rewrites the selected version of postID per req and stores the
// result as the new selected version. The post text follows the selection.
func (s *VersionService) Iterate(ctx context.Context, userID, postID string, req domain.IterateRequest) (*domain.IterateResult, *domain.RateLimitStatus, error) {
	tr := otel.Tracer("services/VersionService")
	ctx, span := tr.Start(ctx, "Iterate",
		trace.WithAttributes(
			attribute.String("post.id", postID),
			attribute.String("iteration.type", string(req.IterationType)),
		),
	)
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, nil, err
	}
	post, err := s.post(ctx, userID, postID)
	if err != nil {
		return nil, nil, err
	}
	current, err := repo.SelectedVersion(ctx, s.DB, postID)
	if err != nil {
		return nil, nil, notFoundAs(err, ErrNoSelectedVersion)
	}
	var platform *domain.Platform
	if post.PlatformID != nil {
		if p, err := repo.GetPlatform(ctx, s.DB, *post.PlatformID); err == nil {
			platform = p
		}
	}

	status, ok := s.Quota.Take(userID)
	if !ok {
		return nil, nil, ErrQuotaExceeded
	}

	label := string(req.IterationType)
	if label == "" {
		label = "feedback"
	}
	instruction := req.Prompt()
	comp, err := s.LLM.Complete(ctx, llm.RevisionPrompt(current.GeneratedText, instruction, label, platform))
	if err != nil {
		s.Quota.Refund(userID, status.ResetAt)
		span.RecordError(err)
		return nil, nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	v := &domain.PostVersion{
		PostID:          postID,
		GeneratedText:   comp.Text,
		IterationPrompt: &instruction,
		IsSelected:      true,
		Usage:           comp.Usage,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.CreateVersion(ctx, tx, v); err != nil {
			return err
		}
		return repo.SyncPostText(ctx, tx, postID, v.GeneratedText, v.Usage)
	})
	if err != nil {
		return nil, nil, err
	}

	return &domain.IterateResult{
		VersionID:       v.ID,
		VersionNumber:   v.VersionNumber,
		GeneratedText:   v.GeneratedText,
		IterationPrompt: v.IterationPrompt,
		IsSelected:      v.IsSelected,
		Usage:           v.Usage,
	}, &status, nil
}

// Select makes versionID the selected version of postID. Selecting the
// already selected version succeeds without changes.
func (s *VersionService) Select(ctx context.Context, userID, postID, versionID string) error {
	tr := otel.Tracer("services/VersionService")
	ctx, span := tr.Start(ctx, "Select",
		trace.WithAttributes(
			attribute.String("post.id", postID),
			attribute.String("version.id", versionID),
		),
	)
	defer span.End()

	if _, err := s.post(ctx, userID, postID); err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		v, err := repo.GetVersion(ctx, tx, postID, versionID)
		if err != nil {
			return notFoundAs(err, ErrVersionNotFound)
		}
		if v.IsSelected {
			return nil
		}
		if err := repo.SelectVersion(ctx, tx, postID, versionID); err != nil {
			return notFoundAs(err, ErrVersionNotFound)
		}
		return repo.SyncPostText(ctx, tx, postID, v.GeneratedText, domain.TokenUsage{})
	})
}

func (s *VersionService) post(ctx context.Context, userID, postID string) (*domain.Post, error) {
	p, err := repo.GetPost(ctx, s.DB, postID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrPostNotFound
	}
	return p, err
}
