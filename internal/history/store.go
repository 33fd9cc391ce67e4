package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"imgseek/internal/searchapi"
)

// DefaultLimit matches the backend's history page size.
const DefaultLimit = 50

// timeLayout is fixed-width so that searched_at sorts as text in time order.
// Values are always stored in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Search is one completed similarity search.
type Search struct {
	ID         string                   `json:"id" yaml:"id"`
	QueryName  string                   `json:"query_name" yaml:"query_name"`
	QuerySize  int64                    `json:"query_size" yaml:"query_size"`
	MediaType  string                   `json:"media_type" yaml:"media_type"`
	ServerFile string                   `json:"server_file" yaml:"server_file"`
	ServerURL  string                   `json:"server_url" yaml:"server_url"`
	SearchedAt time.Time                `json:"searched_at" yaml:"searched_at"`
	Results    []searchapi.SearchResult `json:"results" yaml:"results"`
}

// Store keeps a local log of searches in a sqlite database.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
	now  func() time.Time
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	s := &Store{db: db, path: path, now: time.Now}

	if err := s.configure(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure history database: %w", err)
	}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run history migrations: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) configure() error {
	s.db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to apply pragma '%s': %w", pragma, err)
		}
	}
	return nil
}

// Record stores a search and its ranked results. ID and SearchedAt are
// filled in when empty.
func (s *Store) Record(ctx context.Context, search *Search) error {
	if search.ID == "" {
		search.ID = uuid.NewString()
	}
	if search.SearchedAt.IsZero() {
		search.SearchedAt = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO searches (id, query_name, query_size, media_type, server_file, server_url, searched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		search.ID, search.QueryName, search.QuerySize, search.MediaType,
		search.ServerFile, search.ServerURL, search.SearchedAt.UTC().Format(timeLayout),
	); err != nil {
		return fmt.Errorf("failed to insert search: %w", err)
	}

	for i, r := range search.Results {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO search_results (search_id, rank, filename, path, distance)
			 VALUES (?, ?, ?, ?, ?)`,
			search.ID, i+1, r.Filename, r.Path, r.Distance,
		); err != nil {
			return fmt.Errorf("failed to insert result %d: %w", i+1, err)
		}
	}

	return tx.Commit()
}

// List returns the most recent searches, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Search, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, query_name, query_size, media_type, server_file, server_url, searched_at
		 FROM searches ORDER BY searched_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query searches: %w", err)
	}

	var searches []Search
	for rows.Next() {
		var (
			sr Search
			ts string
		)
		if err := rows.Scan(&sr.ID, &sr.QueryName, &sr.QuerySize, &sr.MediaType, &sr.ServerFile, &sr.ServerURL, &ts); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan search: %w", err)
		}
		sr.SearchedAt, _ = time.Parse(timeLayout, ts)
		searches = append(searches, sr)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range searches {
		results, err := s.results(ctx, searches[i].ID)
		if err != nil {
			return nil, err
		}
		searches[i].Results = results
	}
	return searches, nil
}

// Get returns a single search by ID, or sql.ErrNoRows.
func (s *Store) Get(ctx context.Context, id string) (*Search, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		sr Search
		ts string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, query_name, query_size, media_type, server_file, server_url, searched_at
		 FROM searches WHERE id = ?`, id).
		Scan(&sr.ID, &sr.QueryName, &sr.QuerySize, &sr.MediaType, &sr.ServerFile, &sr.ServerURL, &ts)
	if err != nil {
		return nil, err
	}
	sr.SearchedAt, _ = time.Parse(timeLayout, ts)

	results, err := s.results(ctx, id)
	if err != nil {
		return nil, err
	}
	sr.Results = results
	return &sr, nil
}

// Prune removes all but the newest keep searches and returns how many were deleted.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM searches WHERE id NOT IN (
			SELECT id FROM searches ORDER BY searched_at DESC, rowid DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) results(ctx context.Context, searchID string) ([]searchapi.SearchResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT filename, path, distance FROM search_results WHERE search_id = ? ORDER BY rank`, searchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	results := []searchapi.SearchResult{}
	for rows.Next() {
		var r searchapi.SearchResult
		if err := rows.Scan(&r.Filename, &r.Path, &r.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
