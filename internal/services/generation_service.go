// Package services – GenerationService
//
// This file implements GenerationService, which turns a generation request
// into a stored post. It resolves the reference data the request points to,
// spends one unit of the caller's quota, asks the configured llm.Generator
// for text and persists the post together with its first version(s) in one
// transaction.
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-postgen/internal/domain"
	"github.com/tbourn/go-postgen/internal/llm"
	"github.com/tbourn/go-postgen/internal/repo"
	"github.com/tbourn/go-postgen/internal/utils"
)

const defaultTitle = "Untitled post"

// GenerationService creates posts from generation requests.
type GenerationService struct {
	DB    *gorm.DB
	LLM   llm.Generator
	Quota *Quota

	// Title generation config
	TitleLocale language.Tag
	TitleMaxLen int
}

// Generate drafts a single post. The response carries the post, its first
// (selected) version, the generation context and the quota after spending.
func (s *GenerationService) Generate(ctx context.Context, userID string, req domain.GenerateRequest) (*domain.GenerateResponse, error) {
	tr := otel.Tracer("services/GenerationService")
	ctx, span := tr.Start(ctx, "Generate",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("profile.id", req.ProfileID),
		),
	)
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	brief, genCtx, err := s.resolve(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	status, ok := s.Quota.Take(userID)
	if !ok {
		return nil, ErrQuotaExceeded
	}
	comp, err := s.LLM.Complete(ctx, llm.DraftPrompt(brief))
	if err != nil {
		s.Quota.Refund(userID, status.ResetAt)
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	post := s.newPost(userID, req, brief, comp.Text, comp.Usage)
	version := &domain.PostVersion{GeneratedText: comp.Text, IsSelected: true, Usage: comp.Usage}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.CreatePost(ctx, tx, post); err != nil {
			return err
		}
		version.PostID = post.ID
		return repo.CreateVersion(ctx, tx, version)
	})
	if err != nil {
		return nil, err
	}

	return &domain.GenerateResponse{
		Message:   "Post generated",
		Data:      domain.GenerateData{Post: post, Version: version, Context: genCtx},
		RateLimit: &status,
	}, nil
}

// GenerateVariants drafts n alternatives from the same inputs, one per
// approach in domain.Approaches order. n is clamped to
// [domain.MinVariants, domain.MaxVariants]. The batch is stored as a single
// post whose versions are the variants; the first variant is selected.
// A batch spends one quota unit.
func (s *GenerationService) GenerateVariants(ctx context.Context, userID string, req domain.GenerateRequest, n int) (*domain.GenerateResponse, error) {
	n = utils.Clamp(n, domain.MinVariants, domain.MaxVariants)

	tr := otel.Tracer("services/GenerationService")
	ctx, span := tr.Start(ctx, "GenerateVariants",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("variants", n),
		),
	)
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	brief, genCtx, err := s.resolve(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	status, ok := s.Quota.Take(userID)
	if !ok {
		return nil, ErrQuotaExceeded
	}

	approaches := domain.Approaches[:n]
	comps := make([]llm.Completion, n)
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range approaches {
		b := brief
		b.Approach = a
		g.Go(func() error {
			c, err := s.LLM.Complete(gctx, llm.DraftPrompt(b))
			if err != nil {
				return err
			}
			comps[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.Quota.Refund(userID, status.ResetAt)
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	var total domain.TokenUsage
	for _, c := range comps {
		total = total.Add(c.Usage)
	}
	post := s.newPost(userID, req, brief, comps[0].Text, total)

	format := "text"
	if brief.Platform != nil && brief.Platform.Format != "" {
		format = brief.Platform.Format
	}
	variants := make([]domain.VariantData, 0, n)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.CreatePost(ctx, tx, post); err != nil {
			return err
		}
		for i, c := range comps {
			v := &domain.PostVersion{
				PostID:        post.ID,
				GeneratedText: c.Text,
				Approach:      string(approaches[i]),
				IsSelected:    i == 0,
				Usage:         c.Usage,
			}
			if err := repo.CreateVersion(ctx, tx, v); err != nil {
				return err
			}
			variants = append(variants, domain.VariantData{
				PostID:        post.ID,
				VersionID:     v.ID,
				VersionNumber: v.VersionNumber,
				GeneratedText: v.GeneratedText,
				Approach:      approaches[i],
				Format:        format,
				Usage:         c.Usage,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &domain.GenerateResponse{
		Message:   fmt.Sprintf("Generated %d variants", n),
		Data:      domain.GenerateData{Variants: variants, Context: genCtx},
		RateLimit: &status,
	}, nil
}

// Status reports the caller's generation quota.
func (s *GenerationService) Status(userID string) domain.RateLimitStatus {
	return s.Quota.Status(userID)
}

// resolve loads the reference data a request names and builds the brief
// and the context echoed back to the caller.
func (s *GenerationService) resolve(ctx context.Context, userID string, req domain.GenerateRequest) (llm.Brief, *domain.GenerationContext, error) {
	profile, err := repo.GetProfile(ctx, s.DB, req.ProfileID, userID)
	if err != nil {
		return llm.Brief{}, nil, notFoundAs(err, ErrProfileNotFound)
	}
	brief := llm.Brief{Profile: *profile, Goal: strings.TrimSpace(req.Goal), RawIdea: req.RawIdea}
	genCtx := &domain.GenerationContext{Profile: profile.Name, Goal: brief.Goal}

	if id := deref(req.PlatformID); id != "" {
		p, err := repo.GetPlatform(ctx, s.DB, id)
		if err != nil {
			return llm.Brief{}, nil, notFoundAs(err, ErrPlatformNotFound)
		}
		brief.Platform = p
		genCtx.Platform = p.Name
	}
	if id := deref(req.ProjectID); id != "" {
		p, err := repo.GetProject(ctx, s.DB, id, userID)
		if err != nil {
			return llm.Brief{}, nil, notFoundAs(err, ErrProjectNotFound)
		}
		brief.Project = p
		genCtx.Project = p.Name
	}
	return brief, genCtx, nil
}

func (s *GenerationService) newPost(userID string, req domain.GenerateRequest, b llm.Brief, text string, usage domain.TokenUsage) *domain.Post {
	title := s.clipTitle(s.titleFromIdea(req.RawIdea))
	if title == "" {
		title = defaultTitle
	}
	p := &domain.Post{
		UserID:        userID,
		ProfileID:     b.Profile.ID,
		Goal:          strings.TrimSpace(req.Goal),
		RawIdea:       strings.TrimSpace(req.RawIdea),
		Title:         title,
		GeneratedText: text,
		Usage:         usage,
	}
	if b.Platform != nil {
		p.PlatformID = &b.Platform.ID
	}
	if b.Project != nil {
		p.ProjectID = &b.Project.ID
	}
	return p
}

// titleFromIdea derives a concise title from the raw idea.
func (s *GenerationService) titleFromIdea(idea string) string {
	toks := titleWordRE.FindAllString(strings.ToLower(strings.TrimSpace(idea)), -1)
	if len(toks) == 0 {
		return ""
	}

	titleCaser := cases.Title(s.TitleLocaleOrDefault())
	out := make([]string, 0, 8)
	for _, w := range toks {
		if _, skip := titleStopWords[w]; skip {
			continue
		}
		out = append(out, titleCaser.String(w))
		if len(out) >= 8 {
			break
		}
	}
	return strings.Join(out, " ")
}

// clipTitle truncates a generated title to the configured maximum rune length.
func (s *GenerationService) clipTitle(title string) string {
	limit := s.TitleMaxLen
	if limit <= 0 {
		limit = 60
	}
	if utf8.RuneCountInString(title) > limit {
		return strings.TrimSpace(string([]rune(title)[:limit]))
	}
	return title
}

// TitleLocaleOrDefault returns the configured locale for casing or English if unset.
func (s *GenerationService) TitleLocaleOrDefault() language.Tag {
	if s.TitleLocale == language.Und {
		return language.English
	}
	return s.TitleLocale
}

// Extract Unicode letters with optional trailing numbers (e.g., "q3").
var titleWordRE = regexp.MustCompile(`[\p{L}]+[\p{N}]*`)

// Minimal English stop-words set for compact titles.
var titleStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {},
	"is": {}, "are": {}, "for": {}, "on": {}, "with": {}, "by": {}, "from": {},
	"at": {}, "as": {}, "that": {}, "this": {}, "it": {}, "be": {}, "was": {}, "were": {},
}

func notFoundAs(err, sentinel error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return sentinel
	}
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
