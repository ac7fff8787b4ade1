package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Action log - one row per fired click or zoom
		`CREATE TABLE IF NOT EXISTS action_log (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			gesture TEXT NOT NULL,
			action TEXT NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_action_log_session_id ON action_log(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_action_log_created_at ON action_log(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
