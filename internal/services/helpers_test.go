package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-postgen/internal/llm"
	"github.com/tbourn/go-postgen/internal/repo"
)

// ---------- test helpers ----------

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if err := repo.SeedDemo(context.Background(), db); err != nil {
		t.Fatalf("seed: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// fakeLLM records prompts and answers with a numbered text, or fails.
type fakeLLM struct {
	mu      sync.Mutex
	prompts []llm.Prompt
	err     error
}

func (f *fakeLLM) Complete(_ context.Context, p llm.Prompt) (llm.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, p)
	if f.err != nil {
		return llm.Completion{}, f.err
	}
	return llm.Completion{Text: fmt.Sprintf("[%s] %s", p.Label, p.Subject)}, nil
}

var errModelDown = errors.New("model down")

type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time { return c.t }
