package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sort"

	"github.com/ShayCichocki/reflex/internal/embed"
)

// QueryOptions tune a semantic search.
type QueryOptions struct {
	// Limit caps the number of results; <= 0 means the default of 5.
	Limit int
	// Filter requires exact matches before scoring. The keys "type" and
	// "source" match the entry's columns; any other key matches against the
	// entry's metadata.
	Filter map[string]string
	// MinSimilarity drops results scoring below it; 0 keeps everything.
	MinSimilarity float64
}

// DefaultQueryLimit is the result cap used when QueryOptions.Limit is unset.
const DefaultQueryLimit = 5

// Query embeds queryText and returns the nearest entries in the project's
// collection, nearest-first. Expired entries encountered during the scan are
// skipped and lazily deleted. The scan is a brute-force pass over the
// collection; fine for a per-project local cache at moderate scale.
func (s *Store) Query(ctx context.Context, projectID, queryText string, opts QueryOptions) ([]Result, error) {
	if projectID == "" {
		projectID = DefaultProject
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultQueryLimit
	}

	queryVec, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	s.mu.RLock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, type, source, embedding, metadata, ttl_seconds, created_at
		FROM entries WHERE project_id = ?
	`, projectID)
	if err != nil {
		s.mu.RUnlock()
		return nil, fmt.Errorf("scan collection: %w", err)
	}

	var results []Result
	var stale []string
	now := s.now()

	for rows.Next() {
		var (
			r          Result
			blob       []byte
			metaJSON   string
			ttlSeconds int64
			createdAt  string
		)
		if err := rows.Scan(&r.ID, &r.Text, &r.Type, &r.Source, &blob, &metaJSON, &ttlSeconds, &createdAt); err != nil {
			rows.Close()
			s.mu.RUnlock()
			return nil, fmt.Errorf("scan entry: %w", err)
		}

		r.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			rows.Close()
			s.mu.RUnlock()
			return nil, fmt.Errorf("parse created_at for %s: %w", r.ID, err)
		}

		if expired(r.CreatedAt, ttlSeconds, now) {
			stale = append(stale, r.ID)
			continue
		}

		if err := json.Unmarshal([]byte(metaJSON), &r.Metadata); err != nil {
			log.Printf("[store] warning: bad metadata on entry %s: %v", r.ID, err)
			r.Metadata = nil
		}
		if !matchesFilter(r, opts.Filter) {
			continue
		}

		r.Similarity = embed.CosineSimilarity(queryVec, decodeVector(blob))
		if opts.MinSimilarity > 0 && r.Similarity < opts.MinSimilarity {
			continue
		}

		results = append(results, r)
	}
	err = rows.Err()
	rows.Close()
	s.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("scan collection: %w", err)
	}

	s.deleteStale(ctx, projectID, stale)

	sort.Slice(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

func matchesFilter(r Result, filter map[string]string) bool {
	for k, want := range filter {
		switch k {
		case "type":
			if r.Type != want {
				return false
			}
		case "source":
			if r.Source != want {
				return false
			}
		default:
			got, ok := r.Metadata[k]
			if !ok || fmt.Sprint(got) != want {
				return false
			}
		}
	}
	return true
}

// deleteStale removes expired entries found during a read. Best-effort; a
// failed delete just leaves the entry for the next read or sweep.
func (s *Store) deleteStale(ctx context.Context, projectID string, ids []string) {
	if len(ids) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE project_id = ? AND id = ?", projectID, id); err != nil {
			log.Printf("[store] warning: delete expired entry %s: %v", id, err)
		}
	}
}

// Get fetches a single entry by id, without TTL verification.
func (s *Store) Get(ctx context.Context, projectID, id string) (*Result, error) {
	if projectID == "" {
		projectID = DefaultProject
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		r         Result
		metaJSON  string
		createdAt string
	)
	row := s.db.QueryRowContext(ctx, `
		SELECT id, text, type, source, metadata, created_at
		FROM entries WHERE project_id = ? AND id = ?
	`, projectID, id)
	if err := row.Scan(&r.ID, &r.Text, &r.Type, &r.Source, &metaJSON, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get entry: %w", err)
	}

	var err error
	r.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if err := json.Unmarshal([]byte(metaJSON), &r.Metadata); err != nil {
		r.Metadata = nil
	}
	return &r, nil
}
