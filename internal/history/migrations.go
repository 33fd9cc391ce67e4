package history

import "fmt"

// Migration is one versioned schema change.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

func migrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_searches",
			SQL: `
				CREATE TABLE IF NOT EXISTS searches (
					id TEXT PRIMARY KEY,
					query_name TEXT NOT NULL,
					query_size INTEGER NOT NULL DEFAULT 0,
					media_type TEXT NOT NULL DEFAULT '',
					server_file TEXT NOT NULL DEFAULT '',
					server_url TEXT NOT NULL DEFAULT '',
					searched_at TEXT NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_searches_searched_at ON searches(searched_at);

				CREATE TABLE IF NOT EXISTS search_results (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					search_id TEXT NOT NULL REFERENCES searches(id) ON DELETE CASCADE,
					rank INTEGER NOT NULL,
					filename TEXT NOT NULL,
					path TEXT NOT NULL,
					distance REAL NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_search_results_search_id ON search_results(search_id);
			`,
		},
	}
}

func (s *Store) runMigrations() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	for _, m := range migrations() {
		if m.Version <= current {
			continue
		}
		if err := s.runMigration(m); err != nil {
			return fmt.Errorf("failed to run migration %d (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

func (s *Store) runMigration(m Migration) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(m.SQL); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.Version, m.Name); err != nil {
		return err
	}
	return tx.Commit()
}
