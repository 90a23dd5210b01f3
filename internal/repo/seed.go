// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file seeds demo reference data.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-postgen/internal/domain"
)

// Fixed ids so seeded data is stable across restarts.
const (
	DemoProfileID  = "00000000-0000-4000-8000-000000000001"
	DemoProfile2ID = "00000000-0000-4000-8000-000000000002"
	DemoProjectID  = "00000000-0000-4000-8000-000000000101"
)

// DemoPlatforms are the platforms known out of the box.
var DemoPlatforms = []domain.Platform{
	{ID: "00000000-0000-4000-8000-000000000201", Slug: "linkedin", Name: "LinkedIn", MaxLength: 3000, Format: "text"},
	{ID: "00000000-0000-4000-8000-000000000202", Slug: "x", Name: "X", MaxLength: 280, Format: "text"},
	{ID: "00000000-0000-4000-8000-000000000203", Slug: "instagram", Name: "Instagram", MaxLength: 2200, Format: "text"},
	{ID: "00000000-0000-4000-8000-000000000204", Slug: "blog", Name: "Blog", MaxLength: 0, Format: "markdown"},
}

// SeedDemo inserts shared demo profiles, a project and the platforms. Rows
// that already exist are left untouched, so it is safe on every start.
func SeedDemo(ctx context.Context, db *gorm.DB) error {
	now := time.Now().UTC()
	profiles := []domain.Profile{
		{ID: DemoProfileID, Name: "Founder voice", Tone: "confident, candid", Audience: "startup founders and early employees",
			Description: "Second-time founder building developer tools.", CreatedAt: now, UpdatedAt: now},
		{ID: DemoProfile2ID, Name: "Engineering blog", Tone: "technical, precise", Audience: "software engineers",
			Description: "Writes deep dives about how the product is built.", CreatedAt: now, UpdatedAt: now},
	}
	projects := []domain.Project{
		{ID: DemoProjectID, ProfileID: DemoProfileID, Name: "Launch week",
			Description: "Five announcements in five days.", CreatedAt: now, UpdatedAt: now},
	}
	platforms := make([]domain.Platform, len(DemoPlatforms))
	for i, p := range DemoPlatforms {
		p.CreatedAt, p.UpdatedAt = now, now
		platforms[i] = p
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ignore := tx.Clauses(clause.OnConflict{DoNothing: true})
		if err := ignore.Create(&platforms).Error; err != nil {
			return err
		}
		if err := ignore.Create(&profiles).Error; err != nil {
			return err
		}
		return ignore.Create(&projects).Error
	})
}
