package storage

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	openai "github.com/sashabaranov/go-openai"

	"meetingSummarize/config"
	"meetingSummarize/core"
)

const embeddingDim = 1536

// Embeddings of very long transcripts are computed over a bounded prefix to
// stay inside the embedding model's input limit.
const embeddingInputChars = 8000

type embeddingClient interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// PostgresTranscriptStore persists records in a transcripts table. When the
// pgvector extension and API access are available it also maintains a
// transcript embedding per row for semantic search; rows without embeddings
// remain fully functional.
type PostgresTranscriptStore struct {
	pool           *pgxpool.Pool
	oa             embeddingClient
	embeddingModel string
	vectorEnabled  bool
}

func newPostgresTranscriptStore(ctx context.Context, cfg *config.Config) (*PostgresTranscriptStore, error) {
	if cfg.PostgresURL == "" {
		return nil, errors.New("postgres_url is not configured")
	}
	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresTranscriptStore{pool: pool, embeddingModel: cfg.EmbeddingModel}
	if cfg.HasValidAPI() {
		clientConfig := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
		s.oa = openai.NewClientWithConfig(clientConfig)
	}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresTranscriptStore) ensureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		log.Printf("Warning: pgvector extension unavailable (%v), transcript search falls back to keyword matching", err)
	} else {
		s.vectorEnabled = true
	}

	ddl := `CREATE TABLE IF NOT EXISTS transcripts (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		original_filename TEXT NOT NULL,
		display_name TEXT NOT NULL,
		model TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'processing',
		transcript TEXT,
		summary_json TEXT,
		error TEXT
	)`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create transcripts table: %w", err)
	}
	if _, err := s.pool.Exec(ctx,
		`CREATE INDEX IF NOT EXISTS idx_transcripts_created_at ON transcripts (created_at DESC)`); err != nil {
		return fmt.Errorf("create transcripts index: %w", err)
	}
	if s.vectorEnabled {
		if _, err := s.pool.Exec(ctx,
			fmt.Sprintf(`ALTER TABLE transcripts ADD COLUMN IF NOT EXISTS embedding vector(%d)`, embeddingDim)); err != nil {
			return fmt.Errorf("add embedding column: %w", err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresTranscriptStore) Close() {
	s.pool.Close()
}

func (s *PostgresTranscriptStore) Create(ctx context.Context, originalFilename, model string) (*core.TranscriptRecord, error) {
	rec := &core.TranscriptRecord{
		ID:               core.NewID(),
		OriginalFilename: originalFilename,
		DisplayName:      originalFilename,
		Model:            model,
		Status:           core.TranscriptProcessing,
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO transcripts (id, original_filename, display_name, model, status)
		 VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		rec.ID, rec.OriginalFilename, rec.DisplayName, rec.Model, string(rec.Status),
	).Scan(&rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert transcript: %w", err)
	}
	return rec, nil
}

func (s *PostgresTranscriptStore) Get(ctx context.Context, id string) (*core.TranscriptRecord, error) {
	var (
		rec        core.TranscriptRecord
		status     string
		transcript *string
		errMsg     *string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, created_at, original_filename, display_name, model, status, transcript, summary_json, error
		 FROM transcripts WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.OriginalFilename, &rec.DisplayName, &rec.Model,
		&status, &transcript, &rec.SummaryJSON, &errMsg)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	rec.Status = core.TranscriptStatus(status)
	if transcript != nil {
		rec.Transcript = *transcript
	}
	if errMsg != nil {
		rec.Error = *errMsg
	}
	return &rec, nil
}

func (s *PostgresTranscriptStore) List(ctx context.Context, limit, offset int) ([]core.TranscriptListItem, int, error) {
	limit, offset = clampPage(limit, offset)

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transcripts`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transcripts: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, created_at, original_filename, display_name, model, status, error
		 FROM transcripts ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list transcripts: %w", err)
	}
	defer rows.Close()

	items := make([]core.TranscriptListItem, 0, limit)
	for rows.Next() {
		var (
			item   core.TranscriptListItem
			status string
			errMsg *string
		)
		if err := rows.Scan(&item.ID, &item.CreatedAt, &item.OriginalFilename,
			&item.DisplayName, &item.Model, &status, &errMsg); err != nil {
			return nil, 0, fmt.Errorf("scan transcript row: %w", err)
		}
		item.Status = core.TranscriptStatus(status)
		if errMsg != nil {
			item.Error = *errMsg
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

func (s *PostgresTranscriptStore) SetTranscript(ctx context.Context, id, transcript string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE transcripts SET transcript = $2, status = 'completed', error = NULL WHERE id = $1`,
		id, transcript)
	if err != nil {
		return fmt.Errorf("update transcript: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	s.updateEmbedding(ctx, id, transcript)
	return nil
}

// updateEmbedding is best-effort: search degrades, persistence never fails
// because of it.
func (s *PostgresTranscriptStore) updateEmbedding(ctx context.Context, id, transcript string) {
	if !s.vectorEnabled || s.oa == nil || transcript == "" {
		return
	}
	input := transcript
	if len(input) > embeddingInputChars {
		input = input[:embeddingInputChars]
	}
	resp, err := s.oa.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(s.embeddingModel),
		Input: []string{input},
	})
	if err != nil || len(resp.Data) == 0 {
		log.Printf("Warning: embedding for transcript %s failed: %v", id, err)
		return
	}
	if _, err := s.pool.Exec(ctx,
		`UPDATE transcripts SET embedding = $2 WHERE id = $1`,
		id, pgvector.NewVector(resp.Data[0].Embedding)); err != nil {
		log.Printf("Warning: storing embedding for transcript %s failed: %v", id, err)
	}
}

func (s *PostgresTranscriptStore) SetSummary(ctx context.Context, id, summaryJSON string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE transcripts SET summary_json = $2 WHERE id = $1`, id, summaryJSON)
	if err != nil {
		return fmt.Errorf("update summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresTranscriptStore) SetError(ctx context.Context, id, msg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE transcripts SET status = 'error', error = $2 WHERE id = $1`, id, msg)
	if err != nil {
		return fmt.Errorf("update transcript error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresTranscriptStore) Rename(ctx context.Context, id, displayName string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE transcripts SET display_name = $2 WHERE id = $1`, id, displayName)
	if err != nil {
		return fmt.Errorf("rename transcript: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresTranscriptStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM transcripts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete transcript: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresTranscriptStore) Search(ctx context.Context, query string, topK int) ([]SearchHit, error) {
	if topK <= 0 {
		topK = 5
	}
	if s.vectorEnabled && s.oa != nil {
		if hits, err := s.vectorSearch(ctx, query, topK); err == nil {
			return hits, nil
		} else {
			log.Printf("Warning: vector search failed (%v), falling back to keyword search", err)
		}
	}
	return s.keywordSearch(ctx, query, topK)
}

func (s *PostgresTranscriptStore) vectorSearch(ctx context.Context, query string, topK int) ([]SearchHit, error) {
	resp, err := s.oa.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(s.embeddingModel),
		Input: []string{query},
	})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no query embedding returned")
	}
	vec := pgvector.NewVector(resp.Data[0].Embedding)

	rows, err := s.pool.Query(ctx,
		`SELECT id, display_name, created_at, 1 - (embedding <=> $1) AS score, left(transcript, 200)
		 FROM transcripts
		 WHERE embedding IS NOT NULL AND status = 'completed'
		 ORDER BY embedding <=> $1
		 LIMIT $2`, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()
	return scanHits(rows, false)
}

func (s *PostgresTranscriptStore) keywordSearch(ctx context.Context, query string, topK int) ([]SearchHit, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, display_name, created_at, left(transcript, 200)
		 FROM transcripts
		 WHERE status = 'completed'
		   AND (transcript ILIKE '%' || $1 || '%' OR display_name ILIKE '%' || $1 || '%')
		 ORDER BY created_at DESC
		 LIMIT $2`, query, topK)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	defer rows.Close()
	return scanHits(rows, true)
}

func scanHits(rows pgx.Rows, keywordOnly bool) ([]SearchHit, error) {
	hits := make([]SearchHit, 0)
	for rows.Next() {
		var (
			hit  SearchHit
			snip *string
		)
		var err error
		if keywordOnly {
			err = rows.Scan(&hit.ID, &hit.DisplayName, &hit.CreatedAt, &snip)
			hit.Score = 1
		} else {
			err = rows.Scan(&hit.ID, &hit.DisplayName, &hit.CreatedAt, &hit.Score, &snip)
		}
		if err != nil {
			return nil, fmt.Errorf("scan search hit: %w", err)
		}
		if snip != nil {
			hit.Snippet = *snip
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

var _ TranscriptStore = (*PostgresTranscriptStore)(nil)
