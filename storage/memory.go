package storage

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"meetingSummarize/core"
)

// MemoryTranscriptStore keeps records in a process-local map. Default
// backend; also used throughout the tests.
type MemoryTranscriptStore struct {
	mu      sync.RWMutex
	records map[string]*core.TranscriptRecord
}

func NewMemoryTranscriptStore() *MemoryTranscriptStore {
	return &MemoryTranscriptStore{records: map[string]*core.TranscriptRecord{}}
}

func (s *MemoryTranscriptStore) Create(ctx context.Context, originalFilename, model string) (*core.TranscriptRecord, error) {
	rec := &core.TranscriptRecord{
		ID:               core.NewID(),
		CreatedAt:        time.Now(),
		OriginalFilename: originalFilename,
		DisplayName:      originalFilename,
		Model:            model,
		Status:           core.TranscriptProcessing,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = rec
	out := *rec
	return &out, nil
}

func (s *MemoryTranscriptStore) Get(ctx context.Context, id string) (*core.TranscriptRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *rec
	return &out, nil
}

func (s *MemoryTranscriptStore) List(ctx context.Context, limit, offset int) ([]core.TranscriptListItem, int, error) {
	limit, offset = clampPage(limit, offset)

	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]*core.TranscriptRecord, 0, len(s.records))
	for _, rec := range s.records {
		all = append(all, rec)
	}
	// Newest first; id as tiebreaker for a stable order.
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})

	total := len(all)
	if offset >= total {
		return []core.TranscriptListItem{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	items := make([]core.TranscriptListItem, 0, end-offset)
	for _, rec := range all[offset:end] {
		items = append(items, rec.ListItem())
	}
	return items, total, nil
}

func (s *MemoryTranscriptStore) SetTranscript(ctx context.Context, id, transcript string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	rec.Transcript = transcript
	rec.Status = core.TranscriptCompleted
	rec.Error = ""
	return nil
}

func (s *MemoryTranscriptStore) SetSummary(ctx context.Context, id, summaryJSON string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	rec.SummaryJSON = &summaryJSON
	return nil
}

func (s *MemoryTranscriptStore) SetError(ctx context.Context, id, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	rec.Status = core.TranscriptError
	rec.Error = msg
	return nil
}

func (s *MemoryTranscriptStore) Rename(ctx context.Context, id, displayName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return ErrNotFound
	}
	rec.DisplayName = displayName
	return nil
}

func (s *MemoryTranscriptStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return ErrNotFound
	}
	delete(s.records, id)
	return nil
}

// Search ranks completed transcripts by term-frequency cosine similarity
// against the query.
func (s *MemoryTranscriptStore) Search(ctx context.Context, query string, topK int) ([]SearchHit, error) {
	if topK <= 0 {
		topK = 5
	}
	qv := embedTerms(query)

	s.mu.RLock()
	defer s.mu.RUnlock()
	hits := make([]SearchHit, 0)
	for _, rec := range s.records {
		if rec.Status != core.TranscriptCompleted || rec.Transcript == "" {
			continue
		}
		score := cosineTerms(qv, embedTerms(rec.DisplayName+" "+rec.Transcript))
		if score <= 0 {
			continue
		}
		hits = append(hits, SearchHit{
			ID:          rec.ID,
			DisplayName: rec.DisplayName,
			CreatedAt:   rec.CreatedAt,
			Score:       score,
			Snippet:     snippet(rec.Transcript),
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

var nonWord = regexp.MustCompile(`[^a-zA-Z0-9\p{Han}]+`)

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "a": {}, "an": {}, "of": {}, "to": {}, "in": {},
	"is": {}, "are": {}, "for": {}, "on": {}, "with": {}, "that": {},
	"this": {}, "it": {}, "as": {}, "at": {}, "be": {}, "by": {}, "from": {},
}

func embedTerms(text string) map[string]float64 {
	vec := map[string]float64{}
	for _, tok := range strings.Fields(nonWord.ReplaceAllString(strings.ToLower(text), " ")) {
		if _, ok := stopWords[tok]; ok {
			continue
		}
		vec[tok]++
	}
	return vec
}

func cosineTerms(a, b map[string]float64) float64 {
	var dot, na, nb float64
	for t, w := range a {
		na += w * w
		if bw, ok := b[t]; ok {
			dot += w * bw
		}
	}
	for _, w := range b {
		nb += w * w
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func snippet(text string) string {
	const max = 200
	if len(text) <= max {
		return text
	}
	cut := text[:max]
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}
