// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package registry persists container descriptors in a local SQLite
// database so the CLI can report on containers across invocations.
package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/pod-engine/pkg/types"
)

const dbFile = "pods.db"

// Store manages the container registry SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the registry database at dir/pods.db,
// creating the schema when it does not exist.
func NewStore(cfg types.RegistryConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating registry directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening registry database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating registry schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS containers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			image TEXT NOT NULL,
			ports TEXT,
			gpu_enabled INTEGER NOT NULL DEFAULT 0,
			gpu_count INTEGER NOT NULL DEFAULT 0,
			gpu_type TEXT,
			created_at TEXT NOT NULL,
			status TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_containers_status ON containers(status)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save inserts or replaces a descriptor keyed by container ID.
func (s *Store) Save(ctx context.Context, d *types.ContainerDescriptor) error {
	ports, err := json.Marshal(d.Ports)
	if err != nil {
		return fmt.Errorf("encoding port map: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO containers
			(id, name, image, ports, gpu_enabled, gpu_count, gpu_type, created_at, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Name, d.Image, string(ports),
		boolToInt(d.GPUEnabled), d.GPUCount, d.GPUType,
		d.CreatedAt.UTC().Format(time.RFC3339Nano), string(d.Status))
	if err != nil {
		return fmt.Errorf("saving container %s: %w", d.Name, err)
	}
	return nil
}

// refWhere matches a row by exact ID, by name, or by an ID prefix of at
// least twelve characters, the short form the engine and the CLI print.
// Shorter prefixes do not match; they would be too easy to collide.
const refWhere = `id = ? OR name = ? OR (length(?) >= 12 AND id LIKE ? || '%')`

func refArgs(ref string) []interface{} {
	return []interface{}{ref, ref, ref, ref}
}

// Get looks a descriptor up by ID, name, or short ID. A missing container
// returns sql.ErrNoRows wrapped with context.
func (s *Store) Get(ctx context.Context, ref string) (*types.ContainerDescriptor, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, image, ports, gpu_enabled, gpu_count, gpu_type, created_at, status
		 FROM containers WHERE `+refWhere, refArgs(ref)...)
	d, err := scanDescriptor(row)
	if err != nil {
		return nil, fmt.Errorf("looking up container %s: %w", ref, err)
	}
	return d, nil
}

// List returns all stored descriptors ordered by creation time, newest
// first.
func (s *Store) List(ctx context.Context) ([]*types.ContainerDescriptor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, image, ports, gpu_enabled, gpu_count, gpu_type, created_at, status
		 FROM containers ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing containers: %w", err)
	}
	defer rows.Close()

	var out []*types.ContainerDescriptor
	for rows.Next() {
		d, err := scanDescriptor(rows)
		if err != nil {
			return nil, fmt.Errorf("listing containers: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing containers: %w", err)
	}
	return out, nil
}

// UpdateStatus rewrites the stored status of one container.
func (s *Store) UpdateStatus(ctx context.Context, ref string, status types.ContainerStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE containers SET status = ? WHERE `+refWhere,
		append([]interface{}{string(status)}, refArgs(ref)...)...)
	if err != nil {
		return fmt.Errorf("updating status of %s: %w", ref, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("updating status of %s: %w", ref, sql.ErrNoRows)
	}
	return nil
}

// Delete removes a descriptor. Deleting an unknown container is not an
// error.
func (s *Store) Delete(ctx context.Context, ref string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM containers WHERE `+refWhere, refArgs(ref)...); err != nil {
		return fmt.Errorf("deleting container %s: %w", ref, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDescriptor(row rowScanner) (*types.ContainerDescriptor, error) {
	var (
		d          types.ContainerDescriptor
		ports      sql.NullString
		gpuEnabled int
		gpuType    sql.NullString
		created    string
		status     string
	)
	if err := row.Scan(&d.ID, &d.Name, &d.Image, &ports, &gpuEnabled,
		&d.GPUCount, &gpuType, &created, &status); err != nil {
		return nil, err
	}
	d.GPUEnabled = gpuEnabled != 0
	d.GPUType = gpuType.String
	d.Status = types.ContainerStatus(status)
	d.Ports = make(map[string]string)
	if ports.Valid && ports.String != "" {
		if err := json.Unmarshal([]byte(ports.String), &d.Ports); err != nil {
			return nil, fmt.Errorf("decoding port map: %w", err)
		}
	}
	if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
		d.CreatedAt = ts
	}
	return &d, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
