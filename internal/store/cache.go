package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

// CacheHit is an unexpired cached skill result.
type CacheHit struct {
	// Payload is the deserialized skill output.
	Payload any
	// CachedAt is when the result was stored.
	CachedAt time.Time
}

// InputHash derives the stable cache key for a skill invocation. The input is
// canonicalized through a JSON round-trip so that logically equal inputs hash
// identically regardless of Go map iteration or struct field source.
func InputHash(skillName string, input any) (string, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("encode skill input: %w", err)
	}

	// Round-trip through any so json re-emits map keys in sorted order.
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", fmt.Errorf("canonicalize skill input: %w", err)
	}
	canonical, err := json.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("canonicalize skill input: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(skillName))
	h.Write([]byte{0})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CacheResult stores a skill's output under the hash of (skillName, input).
// ttl of 0 means the entry never expires. Returns the cache key.
func (s *Store) CacheResult(ctx context.Context, projectID, skillName string, input, result any, ttl time.Duration) (string, error) {
	hash, err := InputHash(skillName, input)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("encode skill result: %w", err)
	}

	_, err = s.storeWithID(ctx, projectID, hash, Content{
		Text:   string(payload),
		Type:   TypeCache,
		Source: skillName,
		TTL:    ttl,
		Metadata: map[string]any{
			"skill_name": skillName,
			"input_hash": hash,
		},
	})
	if err != nil {
		return "", err
	}
	return hash, nil
}

// CheckCache looks up a cached result by its exact input hash. An expired
// entry is deleted and reported as a miss (nil, nil). The stored payload is
// deserialized before being returned.
func (s *Store) CheckCache(ctx context.Context, projectID, skillName, inputHash string) (*CacheHit, error) {
	if projectID == "" {
		projectID = DefaultProject
	}

	s.mu.RLock()
	var (
		text       string
		ttlSeconds int64
		createdAt  string
	)
	row := s.db.QueryRowContext(ctx, `
		SELECT text, ttl_seconds, created_at
		FROM entries
		WHERE project_id = ? AND id = ? AND type = ? AND source = ?
	`, projectID, inputHash, TypeCache, skillName)
	err := row.Scan(&text, &ttlSeconds, &createdAt)
	s.mu.RUnlock()

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("check cache: %w", err)
	}

	cachedAt, err := parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse cache timestamp: %w", err)
	}

	if expired(cachedAt, ttlSeconds, s.now()) {
		s.deleteStale(ctx, projectID, []string{inputHash})
		return nil, nil
	}

	var payload any
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		// A corrupt payload is as good as a miss; drop it.
		log.Printf("[store] warning: corrupt cache entry %s: %v", inputHash, err)
		s.deleteStale(ctx, projectID, []string{inputHash})
		return nil, nil
	}

	return &CacheHit{Payload: payload, CachedAt: cachedAt}, nil
}
