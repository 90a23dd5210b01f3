package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-postgen/internal/cache"
	"github.com/tbourn/go-postgen/internal/limiter"
	"github.com/tbourn/go-postgen/internal/search"
)

// DefaultSearchDebounce is the quiet period before a search runs.
const DefaultSearchDebounce = 300 * time.Millisecond

// Hit is one search result.
type Hit struct {
	Kind    string
	ID      string
	Snippet string
	Score   float64
}

// LiveSearch runs catalog searches for search-box input. Only the last
// query typed within the debounce window is executed.
type LiveSearch struct {
	cat      *Catalog
	ctx      context.Context
	k        int
	deb      *limiter.Debouncer[string]
	onResult func(query string, hits []Hit, err error)
}

// NewLiveSearch returns a LiveSearch delivering results to onResult. ctx
// bounds every search it runs. wait <= 0 means DefaultSearchDebounce.
func NewLiveSearch(ctx context.Context, cat *Catalog, wait time.Duration, k int, onResult func(query string, hits []Hit, err error), opts ...limiter.Option) *LiveSearch {
	if wait <= 0 {
		wait = DefaultSearchDebounce
	}
	ls := &LiveSearch{cat: cat, ctx: ctx, k: k, onResult: onResult}
	ls.deb = limiter.NewDebouncer(ls.run, wait, opts...)
	return ls
}

// Type records the current input. Blank input cancels any pending search.
func (ls *LiveSearch) Type(query string) {
	if strings.TrimSpace(query) == "" {
		ls.deb.Cancel()
		return
	}
	ls.deb.Call(query)
}

// Submit runs the pending search now.
func (ls *LiveSearch) Submit() { ls.deb.Flush() }

// Cancel drops the pending search.
func (ls *LiveSearch) Cancel() { ls.deb.Cancel() }

// Pending reports whether a search is waiting for the quiet period.
func (ls *LiveSearch) Pending() bool { return ls.deb.Pending() }

func (ls *LiveSearch) run(query string) {
	hits, err := ls.cat.Search(ls.ctx, query, ls.k)
	if err != nil {
		log.Warn().Err(err).Str("component", "catalog").Msg("live search failed")
	}
	ls.onResult(query, hits, err)
}

// Search answers query from the cached index.
func (c *Catalog) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	idx, err := c.Index(ctx)
	if err != nil {
		return nil, err
	}
	return toHits(idx.TopK(query, k)), nil
}

func toHits(rs []search.Result) []Hit {
	out := make([]Hit, 0, len(rs))
	for _, r := range rs {
		kind, id, _ := strings.Cut(r.ID, cache.KeyDelimiter)
		out = append(out, Hit{Kind: kind, ID: id, Snippet: r.Snippet, Score: r.Score})
	}
	return out
}
