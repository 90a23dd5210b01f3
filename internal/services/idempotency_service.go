package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-postgen/internal/repo"
)

// StoredResponse is a response recorded under an Idempotency-Key.
type StoredResponse struct {
	Status int
	Body   []byte
}

// IdempotencyService records the first successful response of a mutating
// request so a retry carrying the same key replays it.
type IdempotencyService struct {
	DB  *gorm.DB
	TTL time.Duration
	Now func() time.Time
}

func (s *IdempotencyService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Lookup returns the recorded response for (userID, scope, key), or false.
func (s *IdempotencyService) Lookup(ctx context.Context, userID, scope, key string) (StoredResponse, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, userID, scope, key, s.now())
	if errors.Is(err, repo.ErrNotFound) {
		return StoredResponse{}, false, nil
	}
	if err != nil {
		return StoredResponse{}, false, err
	}
	return StoredResponse{Status: rec.Status, Body: rec.Body}, true, nil
}

// Save records resp. A concurrent request that saved first wins and Save
// reports success.
func (s *IdempotencyService) Save(ctx context.Context, userID, scope, key string, resp StoredResponse) error {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	_, err := repo.CreateIdempotency(ctx, s.DB, userID, scope, key, resp.Status, resp.Body, ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

// Purge deletes expired records.
func (s *IdempotencyService) Purge(ctx context.Context) (int64, error) {
	return repo.PurgeExpiredIdempotency(ctx, s.DB, s.now())
}
