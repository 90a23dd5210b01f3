package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// KeyDelimiter joins the parts of a composite cache key.
const KeyDelimiter = ":"

// Key joins the present parts with KeyDelimiter. Nil parts and nil *string,
// *int or *uint pointers are skipped, so optional ids can be passed as-is.
// No present parts yields "".
func Key(parts ...any) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		switch v := p.(type) {
		case nil:
			continue
		case string:
			out = append(out, v)
		case *string:
			if v != nil {
				out = append(out, *v)
			}
		case *int:
			if v != nil {
				out = append(out, fmt.Sprint(*v))
			}
		case *uint:
			if v != nil {
				out = append(out, fmt.Sprint(*v))
			}
		default:
			out = append(out, fmt.Sprint(v))
		}
	}
	return strings.Join(out, KeyDelimiter)
}

// GetOrFetch returns the cached value for key, or calls fetch, stores the
// result for ttl and returns it. Errors from fetch are returned and nothing
// is cached. A cached value of a different type is treated as a miss.
//
// Unless the store was built WithSingleFlight, concurrent misses for the
// same key each call fetch independently and the last one to finish wins.
func GetOrFetch[T any](ctx context.Context, s *Store, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	if v, ok := s.Get(key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}

	if s.group == nil {
		return fetchAndStore(ctx, s, key, ttl, fetch)
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		return fetchAndStore(ctx, s, key, ttl, fetch)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func fetchAndStore[T any](ctx context.Context, s *Store, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	v, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	s.Set(key, v, ttl)
	return v, nil
}

// WithCache returns a reusable accessor that delegates to GetOrFetch.
func WithCache[T any](s *Store, key string, ttl time.Duration, fetch func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		return GetOrFetch(ctx, s, key, ttl, fetch)
	}
}
