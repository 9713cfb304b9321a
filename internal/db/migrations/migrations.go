package migrations

import (
	"database/sql"
	"fmt"
	"log"
	"time"
)

// Migration is one reversible schema change
type Migration struct {
	ID        string
	Name      string
	UpSQL     string
	DownSQL   string
	CreatedAt time.Time
}

// Applied is a migration recorded in the migrations table
type Applied struct {
	Name      string
	AppliedAt time.Time
}

// All returns the schema migrations in the order they must be applied
func All() []*Migration {
	return []*Migration{
		InitialSchema,
		RetentionPolicies,
		ActiveVoyageIndex,
	}
}

// Validate checks that names are unique, IDs ascend and both directions
// carry SQL
func Validate(list []*Migration) error {
	seen := make(map[string]bool, len(list))
	for i, m := range list {
		if m.Name == "" || m.UpSQL == "" || m.DownSQL == "" {
			return fmt.Errorf("migration %d (%q) is incomplete", i, m.Name)
		}
		if seen[m.Name] {
			return fmt.Errorf("duplicate migration %s", m.Name)
		}
		seen[m.Name] = true
		if i > 0 && m.ID <= list[i-1].ID {
			return fmt.Errorf("migration %s is out of order after %s", m.ID, list[i-1].ID)
		}
	}
	return nil
}

// Migrator applies and reverts migrations against a database
type Migrator struct {
	db *sql.DB
}

// New creates a new Migrator
func New(db *sql.DB) *Migrator {
	return &Migrator{db: db}
}

// Initialize creates the migrations table if it doesn't exist
func (m *Migrator) Initialize() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

// Applied lists recorded migrations, oldest first
func (m *Migrator) Applied() ([]Applied, error) {
	rows, err := m.db.Query(`SELECT name, applied_at FROM migrations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			log.Printf("error closing rows: %v", cerr)
		}
	}()

	var applied []Applied
	for rows.Next() {
		var a Applied
		if err := rows.Scan(&a.Name, &a.AppliedAt); err != nil {
			return nil, err
		}
		applied = append(applied, a)
	}
	return applied, rows.Err()
}

func (m *Migrator) appliedSet() (map[string]bool, error) {
	applied, err := m.Applied()
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(applied))
	for _, a := range applied {
		set[a.Name] = true
	}
	return set, nil
}

// Pending returns the migrations from list that have not been applied
func (m *Migrator) Pending(list []*Migration) ([]*Migration, error) {
	applied, err := m.appliedSet()
	if err != nil {
		return nil, err
	}
	var pending []*Migration
	for _, migration := range list {
		if !applied[migration.Name] {
			pending = append(pending, migration)
		}
	}
	return pending, nil
}

// step runs one direction of a migration and its bookkeeping in a transaction
func (m *Migrator) step(migration *Migration, stmt, record string) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if err := tx.Rollback(); err != nil {
			log.Printf("Warning: failed to rollback transaction: %v", err)
		}
	}()

	if _, err := tx.Exec(stmt); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", migration.Name, err)
	}
	if _, err := tx.Exec(record, migration.Name); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", migration.Name, err)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ApplyMigration applies a single migration
func (m *Migrator) ApplyMigration(migration *Migration) error {
	return m.step(migration, migration.UpSQL, "INSERT INTO migrations (name) VALUES ($1)")
}

// RollbackMigration reverts a single migration
func (m *Migrator) RollbackMigration(migration *Migration) error {
	return m.step(migration, migration.DownSQL, "DELETE FROM migrations WHERE name = $1")
}

// Migrate applies every pending migration and returns how many ran
func (m *Migrator) Migrate(list []*Migration) (int, error) {
	if err := Validate(list); err != nil {
		return 0, err
	}
	if err := m.Initialize(); err != nil {
		return 0, fmt.Errorf("failed to initialize migrations: %w", err)
	}

	pending, err := m.Pending(list)
	if err != nil {
		return 0, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for i, migration := range pending {
		if err := m.ApplyMigration(migration); err != nil {
			return i, fmt.Errorf("failed to apply migration %s: %w", migration.Name, err)
		}
		log.Printf("Applied migration: %s", migration.Name)
	}
	return len(pending), nil
}

// Rollback reverts up to steps of the most recently applied migrations
func (m *Migrator) Rollback(list []*Migration, steps int) (int, error) {
	if steps < 1 {
		return 0, fmt.Errorf("rollback steps must be positive, got %d", steps)
	}
	applied, err := m.appliedSet()
	if err != nil {
		return 0, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	done := 0
	for i := len(list) - 1; i >= 0 && done < steps; i-- {
		if !applied[list[i].Name] {
			continue
		}
		if err := m.RollbackMigration(list[i]); err != nil {
			return done, fmt.Errorf("failed to rollback migration %s: %w", list[i].Name, err)
		}
		log.Printf("Rolled back migration: %s", list[i].Name)
		done++
	}
	if done == 0 {
		return 0, fmt.Errorf("no migrations to rollback")
	}
	return done, nil
}
