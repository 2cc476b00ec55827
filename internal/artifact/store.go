// Package artifact persists the audit trail of every generation: the prompt,
// the final executable source, where the video landed, and how hard the
// repair ladder had to work to get there.
package artifact

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"sceneforge/internal/logging"
)

// Record is one completed (or failed) generation.
type Record struct {
	RequestID   string
	Prompt      string
	EntryType   string
	FinalSource string
	VideoPath   string
	TierReached string // highest repair tier applied, "none" when untouched
	Attempts    int
	Succeeded   bool
	CreatedAt   time.Time
}

// Store is a SQLite-backed audit store.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

const schema = `
CREATE TABLE IF NOT EXISTS generations (
	request_id   TEXT PRIMARY KEY,
	prompt       TEXT NOT NULL,
	entry_type   TEXT NOT NULL,
	final_source TEXT NOT NULL,
	video_path   TEXT NOT NULL DEFAULT '',
	tier_reached TEXT NOT NULL DEFAULT 'none',
	attempts     INTEGER NOT NULL DEFAULT 0,
	succeeded    INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_generations_created ON generations(created_at);
`

// Open initializes the SQLite database at the given path.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.Store("failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.Store("failed to set sqlite journal_mode=WAL: %v", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Store("audit store ready at %s", path)
	return &Store{db: db, dbPath: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts one generation record.
func (s *Store) Save(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO generations
			(request_id, prompt, entry_type, final_source, video_path, tier_reached, attempts, succeeded, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(request_id) DO UPDATE SET
			final_source = excluded.final_source,
			video_path   = excluded.video_path,
			tier_reached = excluded.tier_reached,
			attempts     = excluded.attempts,
			succeeded    = excluded.succeeded`,
		rec.RequestID, rec.Prompt, rec.EntryType, rec.FinalSource,
		rec.VideoPath, rec.TierReached, rec.Attempts, boolToInt(rec.Succeeded), rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save generation record: %w", err)
	}
	return nil
}

// Get loads one generation record by request id.
func (s *Store) Get(requestID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(`
		SELECT request_id, prompt, entry_type, final_source, video_path, tier_reached, attempts, succeeded, created_at
		FROM generations WHERE request_id = ?`, requestID)

	var rec Record
	var succeeded int
	err := row.Scan(&rec.RequestID, &rec.Prompt, &rec.EntryType, &rec.FinalSource,
		&rec.VideoPath, &rec.TierReached, &rec.Attempts, &succeeded, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("generation %s not found", requestID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load generation record: %w", err)
	}
	rec.Succeeded = succeeded != 0
	return &rec, nil
}

// Recent returns the latest records, newest first.
func (s *Store) Recent(limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT request_id, prompt, entry_type, final_source, video_path, tier_reached, attempts, succeeded, created_at
		FROM generations ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list generation records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var succeeded int
		if err := rows.Scan(&rec.RequestID, &rec.Prompt, &rec.EntryType, &rec.FinalSource,
			&rec.VideoPath, &rec.TierReached, &rec.Attempts, &succeeded, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan generation record: %w", err)
		}
		rec.Succeeded = succeeded != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
