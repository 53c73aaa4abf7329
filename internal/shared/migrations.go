package shared

import (
	"database/sql"
	"embed"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// Migration represents a journal schema migration with up and down SQL.
type Migration struct {
	Version int
	Up      string
	Down    string
}

// loadMigrations reads migration files from the embedded filesystem, pairing
// NNNN_name_up.sql with NNNN_name_down.sql, sorted by version.
func loadMigrations() ([]Migration, error) {
	entries, err := migrationFiles.ReadDir("sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read migration directory: %w", err)
	}

	byVersion := make(map[int]*Migration)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		version, err := strconv.Atoi(strings.SplitN(name, "_", 2)[0])
		if err != nil {
			continue
		}

		content, err := migrationFiles.ReadFile(filepath.Join("sql", name))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", name, err)
		}

		m := byVersion[version]
		if m == nil {
			m = &Migration{Version: version}
			byVersion[version] = m
		}
		if strings.HasSuffix(name, "_up.sql") {
			m.Up = string(content)
		} else if strings.HasSuffix(name, "_down.sql") {
			m.Down = string(content)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" || m.Down == "" {
			return nil, fmt.Errorf("incomplete migration for version %d", m.Version)
		}
		migrations = append(migrations, *m)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// RunMigrations executes all pending journal migrations on the database.
// Applied versions are tracked in a schema_migrations table, so reruns are no-ops.
func RunMigrations(db *sql.DB) error {
	migrations, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, migration := range migrations {
		var exists bool
		err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)", migration.Version).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if exists {
			continue
		}
		if err := execMigration(db, migration.Up, "INSERT INTO schema_migrations (version) VALUES (?)", migration.Version); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
		}
	}

	return nil
}

// RollbackMigration rolls back the most recently applied migration.
func RollbackMigration(db *sql.DB) error {
	migrations, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	var current int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), -1) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("failed to check migrations: %w", err)
	}
	if current < 0 {
		return fmt.Errorf("no migrations to rollback")
	}

	for _, migration := range migrations {
		if migration.Version == current {
			if err := execMigration(db, migration.Down, "DELETE FROM schema_migrations WHERE version = ?", migration.Version); err != nil {
				return fmt.Errorf("failed to rollback migration %d: %w", migration.Version, err)
			}
			return nil
		}
	}

	return fmt.Errorf("migration version %d not found", current)
}

// execMigration runs the statements of a migration script plus a bookkeeping
// statement in one transaction.
func execMigration(db *sql.DB, script, record string, version int) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range strings.Split(script, ";") {
		stmt = stripSQLComments(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute statement: %w\nStatement: %s", err, stmt)
		}
	}

	if _, err := tx.Exec(record, version); err != nil {
		return err
	}

	return tx.Commit()
}

func stripSQLComments(sql string) string {
	var result []string
	for _, line := range strings.Split(sql, "\n") {
		if idx := strings.Index(line, "--"); idx >= 0 {
			line = line[:idx]
		}
		if line = strings.TrimSpace(line); line != "" {
			result = append(result, line)
		}
	}
	return strings.Join(result, "\n")
}
