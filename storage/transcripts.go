package storage

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"meetingSummarize/config"
	"meetingSummarize/core"
)

// ErrNotFound is returned when no transcript record has the requested id.
var ErrNotFound = errors.New("transcript not found")

// SearchHit is one transcript search result.
type SearchHit struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	Score       float64   `json:"score"`
	Snippet     string    `json:"snippet"`
}

// TranscriptStore persists the durable transcript artifacts.
//
// Write semantics the job runner depends on: SetTranscript marks the record
// completed and is never rolled back by later failures; SetSummary writes
// summary_json as a whole document and only on an explicit successful
// summarization, so a failed retry leaves any prior summary untouched.
type TranscriptStore interface {
	Create(ctx context.Context, originalFilename, model string) (*core.TranscriptRecord, error)
	Get(ctx context.Context, id string) (*core.TranscriptRecord, error)
	List(ctx context.Context, limit, offset int) ([]core.TranscriptListItem, int, error)
	SetTranscript(ctx context.Context, id, transcript string) error
	SetSummary(ctx context.Context, id, summaryJSON string) error
	SetError(ctx context.Context, id, msg string) error
	Rename(ctx context.Context, id, displayName string) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string, topK int) ([]SearchHit, error)
}

// NewTranscriptStore selects the backend from the STORE env variable
// ("postgres" or the default "memory"), falling back to memory when the
// database is unreachable.
func NewTranscriptStore(ctx context.Context, cfg *config.Config) TranscriptStore {
	storeKind := strings.ToLower(strings.TrimSpace(os.Getenv("STORE")))
	if storeKind == "postgres" {
		s, err := newPostgresTranscriptStore(ctx, cfg)
		if err != nil {
			log.Printf("Warning: failed to initialize postgres store (%v), falling back to memory store", err)
			return NewMemoryTranscriptStore()
		}
		return s
	}
	return NewMemoryTranscriptStore()
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
