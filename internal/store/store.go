// Package store provides the SQLite-backed, project-partitioned vector cache.
// Each project gets its own logical collection; entries carry an embedding for
// semantic search plus a TTL for expiry. Ids are deterministic functions of an
// entry's defining fields, so storing the same content twice overwrites.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ShayCichocki/reflex/internal/embed"
)

// Entry types stored in a collection.
const (
	TypeContext = "context"
	TypeCache   = "cache"
)

// DefaultProject is the collection used when the caller supplies no project id.
const DefaultProject = "default"

// Content is the input to a Store write.
type Content struct {
	// Text is the payload indexed for semantic search.
	Text string
	// Type tags the entry (TypeContext, TypeCache, or caller-defined).
	Type string
	// Source records what produced the entry (handler name, skill name, "cli").
	Source string
	// TTL is how long the entry stays valid; 0 means it never expires.
	TTL time.Duration
	// Metadata is arbitrary JSON-serializable annotations.
	Metadata map[string]any
}

// Result is one semantic-search match.
type Result struct {
	ID         string
	Text       string
	Type       string
	Source     string
	Similarity float64
	Metadata   map[string]any
	CreatedAt  time.Time
}

// Store is the persistent vector cache. Safe for concurrent use.
type Store struct {
	db       *sql.DB
	dbPath   string
	embedder embed.Embedder
	mu       sync.RWMutex

	// now is swapped in tests to simulate the passage of time.
	now func() time.Time
}

// GlobalDBPath returns the path to the global reflex cache database.
func GlobalDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "reflex", "cache.db")
}

// ProjectDBPath returns the path to a project-local cache database.
func ProjectDBPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".reflex", "cache.db")
}

// New opens (creating if needed) the cache database at dbPath.
// WAL mode is enabled for concurrent reads.
func New(dbPath string, embedder embed.Embedder) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{
		db:       conn,
		dbPath:   dbPath,
		embedder: embedder,
		now:      time.Now,
	}

	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Path returns the path to the database file.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Entries},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const migrationV1Entries = `
CREATE TABLE IF NOT EXISTS entries (
	project_id TEXT NOT NULL,
	id TEXT NOT NULL,
	text TEXT NOT NULL,
	type TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	embedding BLOB,
	metadata TEXT NOT NULL DEFAULT '{}',
	ttl_seconds INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	PRIMARY KEY (project_id, id)
);

CREATE INDEX IF NOT EXISTS idx_entries_project_type ON entries(project_id, type);
`

// ContentID derives the deterministic entry id from a content's defining
// fields. Identical (text, type, source) triples always map to the same id.
func ContentID(c Content) string {
	h := sha256.New()
	h.Write([]byte(c.Text))
	h.Write([]byte{0})
	h.Write([]byte(c.Type))
	h.Write([]byte{0})
	h.Write([]byte(c.Source))
	return hex.EncodeToString(h.Sum(nil))
}

// Store writes content into the project's collection and returns its id.
// Writing identical content twice overwrites the same row, so the collection's
// entry count does not grow.
func (s *Store) Store(ctx context.Context, projectID string, c Content) (string, error) {
	return s.storeWithID(ctx, projectID, ContentID(c), c)
}

func (s *Store) storeWithID(ctx context.Context, projectID, id string, c Content) (string, error) {
	if projectID == "" {
		projectID = DefaultProject
	}
	if c.Type == "" {
		c.Type = TypeContext
	}

	vec, err := s.embedder.Embed(ctx, c.Text)
	if err != nil {
		return "", fmt.Errorf("embed content: %w", err)
	}

	meta, err := json.Marshal(c.Metadata)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entries (project_id, id, text, type, source, embedding, metadata, ttl_seconds, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, id) DO UPDATE SET
			text = excluded.text,
			type = excluded.type,
			source = excluded.source,
			embedding = excluded.embedding,
			metadata = excluded.metadata,
			ttl_seconds = excluded.ttl_seconds,
			created_at = excluded.created_at
	`, projectID, id, c.Text, c.Type, c.Source, encodeVector(vec), string(meta),
		int64(c.TTL/time.Second), formatTime(s.now()))
	if err != nil {
		return "", fmt.Errorf("store entry: %w", err)
	}

	return id, nil
}

// Count returns the number of entries in a project's collection.
func (s *Store) Count(ctx context.Context, projectID string) (int, error) {
	if projectID == "" {
		projectID = DefaultProject
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries WHERE project_id = ?", projectID)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// DeleteProject removes a project's entire collection.
// Returns the number of entries removed.
func (s *Store) DeleteProject(ctx context.Context, projectID string) (int64, error) {
	if projectID == "" {
		projectID = DefaultProject
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE project_id = ?", projectID)
	if err != nil {
		return 0, fmt.Errorf("delete project collection: %w", err)
	}
	return result.RowsAffected()
}

// expired reports whether an entry written at createdAt with the given TTL is
// past its lifetime. A zero TTL never expires.
func expired(createdAt time.Time, ttlSeconds int64, now time.Time) bool {
	if ttlSeconds <= 0 {
		return false
	}
	return now.Sub(createdAt) > time.Duration(ttlSeconds)*time.Second
}

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime parses a time string from SQLite.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
