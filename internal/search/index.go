// Package search provides a small, deterministic, concurrency-safe in-memory
// index over reference data (profile names, platform labels, project
// descriptions) for search-as-you-type.
//
// Scoring is Jaccard similarity between the query token set and each
// document's token set, score = |Q ∩ D| / |Q ∪ D|, where a query token also
// matches any document token it is a prefix of. Ties are broken by shorter
// text, then by ID, so results are stable.
package search

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Doc is one searchable item.
type Doc struct {
	ID   string
	Text string
}

// Result is a ranked document with its similarity score.
type Result struct {
	ID      string
	Snippet string
	Score   float64
}

// Index is the minimal interface implemented by all search indices.
type Index interface {
	TopK(query string, k int) []Result
	Len() int
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	stopwords map[string]struct{}
	maxDocs   int
}

func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = fold(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

func WithMaxDocs(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDocs = n
		}
	}
}

// ----------------------------------------------------------------------------
// Implementation

type doc struct {
	id     string
	text   string
	tokens map[string]struct{}
	runes  int
}

type index struct {
	cfg  config
	docs []doc
}

// NewIndex builds an immutable Index. Document text may be Markdown; it is
// reduced with PlainText before tokenizing. Documents without any word are
// skipped.
func NewIndex(docs []Doc, opts ...Option) Index {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}
	out := make([]doc, 0, len(docs))
	for _, d := range docs {
		t := PlainText(d.Text)
		if t == "" {
			continue
		}
		toks := tokenize(t, cfg.stopwords)
		if len(toks) == 0 {
			continue
		}
		out = append(out, doc{id: d.ID, text: t, tokens: toks, runes: utf8.RuneCountInString(t)})
		if cfg.maxDocs > 0 && len(out) >= cfg.maxDocs {
			break
		}
	}
	return &index{cfg: cfg, docs: out}
}

func (i *index) Len() int { return len(i.docs) }

// TopK returns up to k best-matching documents. k <= 0 means 5.
func (i *index) TopK(q string, k int) []Result {
	if len(i.docs) == 0 || strings.TrimSpace(q) == "" {
		return nil
	}
	if k <= 0 {
		k = 5
	}
	qTokens := tokenize(q, i.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}
	qLen := len(qTokens)

	type scored struct {
		doc   *doc
		score float64
	}
	buf := make([]scored, 0, min(k*4, len(i.docs)))
	for n := range i.docs {
		d := &i.docs[n]
		over := prefixOverlap(qTokens, d.tokens)
		if over == 0 {
			continue
		}
		union := float64(qLen + len(d.tokens) - over)
		if union <= 0 {
			continue
		}
		buf = append(buf, scored{doc: d, score: float64(over) / union})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].score != buf[b].score {
			return buf[a].score > buf[b].score
		}
		if buf[a].doc.runes != buf[b].doc.runes {
			return buf[a].doc.runes < buf[b].doc.runes
		}
		return buf[a].doc.id < buf[b].doc.id
	})

	if k > len(buf) {
		k = len(buf)
	}
	out := make([]Result, k)
	for n := 0; n < k; n++ {
		out[n] = Result{ID: buf[n].doc.id, Snippet: buf[n].doc.text, Score: buf[n].score}
	}
	return out
}

// ----------------------------------------------------------------------------
// Helpers

var wordRE = regexp.MustCompile(`[\p{L}\p{N}]+`)

// fold applies Unicode case folding so "Straße" and "STRASSE" share a token.
// A Caser holds state, so each call gets its own.
func fold(s string) string { return cases.Fold().String(s) }

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	words := wordRE.FindAllString(fold(s), -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if stop != nil {
			if _, skip := stop[w]; skip {
				continue
			}
		}
		out[w] = struct{}{}
	}
	return out
}

// prefixOverlap counts query tokens that equal, or are a prefix of, some
// document token.
func prefixOverlap(q, d map[string]struct{}) int {
	n := 0
	for qt := range q {
		if _, ok := d[qt]; ok {
			n++
			continue
		}
		for dt := range d {
			if strings.HasPrefix(dt, qt) {
				n++
				break
			}
		}
	}
	return n
}
