package store

import (
	"context"
	"fmt"
)

// SweepExpired deletes every expired entry in a project's collection and
// returns the count removed. Full scan over the collection; a secondary
// expiry index would only pay off at collection sizes this cache is not
// expected to reach.
func (s *Store) SweepExpired(ctx context.Context, projectID string) (int, error) {
	if projectID == "" {
		projectID = DefaultProject
	}

	s.mu.RLock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ttl_seconds, created_at FROM entries
		WHERE project_id = ? AND ttl_seconds > 0
	`, projectID)
	if err != nil {
		s.mu.RUnlock()
		return 0, fmt.Errorf("scan for expired entries: %w", err)
	}

	var stale []string
	now := s.now()
	for rows.Next() {
		var (
			id         string
			ttlSeconds int64
			createdAt  string
		)
		if err := rows.Scan(&id, &ttlSeconds, &createdAt); err != nil {
			rows.Close()
			s.mu.RUnlock()
			return 0, fmt.Errorf("scan entry: %w", err)
		}
		t, err := parseTime(createdAt)
		if err != nil {
			rows.Close()
			s.mu.RUnlock()
			return 0, fmt.Errorf("parse created_at for %s: %w", id, err)
		}
		if expired(t, ttlSeconds, now) {
			stale = append(stale, id)
		}
	}
	err = rows.Err()
	rows.Close()
	s.mu.RUnlock()
	if err != nil {
		return 0, fmt.Errorf("scan for expired entries: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, id := range stale {
		result, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE project_id = ? AND id = ?", projectID, id)
		if err != nil {
			return removed, fmt.Errorf("delete expired entry %s: %w", id, err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			removed++
		}
	}
	return removed, nil
}
