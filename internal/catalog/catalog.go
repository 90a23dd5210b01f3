// Package catalog serves reference data (profiles, platforms, projects)
// through the TTL cache so repeated reads within a TTL window never reach
// the network.
package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/tbourn/go-postgen/internal/cache"
	"github.com/tbourn/go-postgen/internal/domain"
	"github.com/tbourn/go-postgen/internal/search"
)

// Cache key families.
const (
	keyProfiles  = "profiles"
	keyPlatforms = "platforms"
	keyProjects  = "projects"
	keyIndex     = "search-index"
)

// Kinds of searchable reference data.
const (
	KindProfile  = "profile"
	KindPlatform = "platform"
	KindProject  = "project"
)

// Source lists reference data. *client.Client satisfies it.
type Source interface {
	ListProfiles(ctx context.Context) ([]domain.Profile, error)
	ListPlatforms(ctx context.Context) ([]domain.Platform, error)
	ListProjects(ctx context.Context) ([]domain.Project, error)
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithTTLs overrides the list and configuration TTL classes. Non-positive
// values keep the defaults.
func WithTTLs(list, config, volatile time.Duration) Option {
	return func(c *Catalog) {
		if list > 0 {
			c.listTTL = list
		}
		if config > 0 {
			c.configTTL = config
		}
		if volatile > 0 {
			c.indexTTL = volatile
		}
	}
}

// Catalog reads reference data through a cache.Store.
type Catalog struct {
	src       Source
	store     *cache.Store
	listTTL   time.Duration
	configTTL time.Duration
	indexTTL  time.Duration
}

// New returns a Catalog. Profiles and projects use the list TTL class,
// platforms the configuration class.
func New(src Source, store *cache.Store, opts ...Option) *Catalog {
	c := &Catalog{
		src:       src,
		store:     store,
		listTTL:   cache.TTLList,
		configTTL: cache.TTLConfig,
		indexTTL:  cache.TTLVolatile,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Profiles returns the user's profiles, cached for the list TTL.
func (c *Catalog) Profiles(ctx context.Context) ([]domain.Profile, error) {
	return cache.GetOrFetch(ctx, c.store, cache.Key(keyProfiles), c.listTTL, c.src.ListProfiles)
}

// Platforms returns every platform, cached for the configuration TTL.
func (c *Catalog) Platforms(ctx context.Context) ([]domain.Platform, error) {
	return cache.GetOrFetch(ctx, c.store, cache.Key(keyPlatforms), c.configTTL, c.src.ListPlatforms)
}

// Projects returns all projects, or only those of profileID when it is
// non-nil. Each filter is cached under its own key.
func (c *Catalog) Projects(ctx context.Context, profileID *string) ([]domain.Project, error) {
	if profileID == nil {
		return cache.GetOrFetch(ctx, c.store, cache.Key(keyProjects), c.listTTL, c.src.ListProjects)
	}
	return cache.GetOrFetch(ctx, c.store, cache.Key(keyProjects, profileID), c.listTTL, func(ctx context.Context) ([]domain.Project, error) {
		all, err := c.Projects(ctx, nil)
		if err != nil {
			return nil, err
		}
		out := make([]domain.Project, 0, len(all))
		for _, p := range all {
			if p.ProfileID == *profileID {
				out = append(out, p)
			}
		}
		return out, nil
	})
}

// Platform looks up a platform by id or slug.
func (c *Catalog) Platform(ctx context.Context, idOrSlug string) (domain.Platform, bool, error) {
	ps, err := c.Platforms(ctx)
	if err != nil {
		return domain.Platform{}, false, err
	}
	for _, p := range ps {
		if p.ID == idOrSlug || strings.EqualFold(p.Slug, idOrSlug) {
			return p, true, nil
		}
	}
	return domain.Platform{}, false, nil
}

// InvalidateProfiles drops the cached profile list and reports how many
// entries were removed.
func (c *Catalog) InvalidateProfiles() int { return c.invalidate(keyProfiles) }

// InvalidatePlatforms drops the cached platform list.
func (c *Catalog) InvalidatePlatforms() int { return c.invalidate(keyPlatforms) }

// InvalidateProjects drops every cached project list, filtered or not.
func (c *Catalog) InvalidateProjects() int { return c.invalidate(keyProjects) }

// InvalidateAll drops every family and the search index.
func (c *Catalog) InvalidateAll() int {
	return c.invalidate(keyProfiles) + c.invalidate(keyPlatforms) + c.invalidate(keyProjects)
}

func (c *Catalog) invalidate(family string) int {
	c.store.Delete(keyIndex)
	return c.store.DeleteByPrefix(family)
}

// Index returns a search index over all reference data. Document ids are
// cache.Key(kind, id).
func (c *Catalog) Index(ctx context.Context) (search.Index, error) {
	return cache.GetOrFetch(ctx, c.store, keyIndex, c.indexTTL, c.buildIndex)
}

func (c *Catalog) buildIndex(ctx context.Context) (search.Index, error) {
	profiles, err := c.Profiles(ctx)
	if err != nil {
		return nil, err
	}
	platforms, err := c.Platforms(ctx)
	if err != nil {
		return nil, err
	}
	projects, err := c.Projects(ctx, nil)
	if err != nil {
		return nil, err
	}

	docs := make([]search.Doc, 0, len(profiles)+len(platforms)+len(projects))
	for _, p := range profiles {
		docs = append(docs, search.Doc{ID: cache.Key(KindProfile, p.ID), Text: joinText(p.Name, p.Tone, p.Audience, p.Description)})
	}
	for _, p := range platforms {
		docs = append(docs, search.Doc{ID: cache.Key(KindPlatform, p.ID), Text: joinText(p.Name, p.Slug)})
	}
	for _, p := range projects {
		docs = append(docs, search.Doc{ID: cache.Key(KindProject, p.ID), Text: joinText(p.Name, p.Description)})
	}
	return search.NewIndex(docs), nil
}

func joinText(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n")
}
