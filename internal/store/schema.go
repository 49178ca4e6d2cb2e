package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

// schemaV1 is the initial schema for the SQLite store.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS networks (
    name TEXT PRIMARY KEY,
    source TEXT,
    node_count INTEGER NOT NULL,
    block_count INTEGER NOT NULL,
    created_at TEXT NOT NULL
);

-- Nodes in network order, with the block they belong to
CREATE TABLE IF NOT EXISTS network_nodes (
    network TEXT NOT NULL REFERENCES networks(name) ON DELETE CASCADE,
    id TEXT NOT NULL,
    position INTEGER NOT NULL,
    block TEXT NOT NULL,
    block_position INTEGER NOT NULL,
    PRIMARY KEY (network, id)
);
CREATE INDEX IF NOT EXISTS idx_nodes_position ON network_nodes(network, position);

-- Excitation adjacency, neighbor order preserved by position
CREATE TABLE IF NOT EXISTS network_excitation (
    network TEXT NOT NULL REFERENCES networks(name) ON DELETE CASCADE,
    source TEXT NOT NULL,
    target TEXT NOT NULL,
    position INTEGER NOT NULL,
    PRIMARY KEY (network, source, position)
);

-- Inhibition ring: one successor per node
CREATE TABLE IF NOT EXISTS network_inhibition (
    network TEXT NOT NULL REFERENCES networks(name) ON DELETE CASCADE,
    node TEXT NOT NULL,
    next TEXT NOT NULL,
    PRIMARY KEY (network, node)
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// InitSchema creates the schema on a fresh database. An existing database
// must have been written by this schema version or an older one and pass
// ValidateIntegrity.
func InitSchema(ctx context.Context, db *sql.DB) error {
	version, ok, err := schemaVersion(ctx, db)
	if err != nil {
		return err
	}
	if !ok {
		return createSchema(ctx, db)
	}
	if version > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, SchemaVersion)
	}
	return ValidateIntegrity(ctx, db)
}

// schemaVersion reports the recorded schema version, and false on a
// database that has none yet.
func schemaVersion(ctx context.Context, db *sql.DB) (int, bool, error) {
	var tables int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'`).Scan(&tables); err != nil {
		return 0, false, fmt.Errorf("failed to read schema version: %w", err)
	}
	if tables == 0 {
		return 0, false, nil
	}

	var version sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil {
		return 0, false, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(version.Int64), version.Valid, nil
}

func createSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`,
		SchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return tx.Commit()
}

// ValidateIntegrity checks the database file with PRAGMA integrity_check,
// then checks that every stored network has as many nodes and ring entries
// as its header records. All problems found are joined into one error.
func ValidateIntegrity(ctx context.Context, db *sql.DB) error {
	var problems []error

	var result string
	if err := db.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&result); err != nil {
		return fmt.Errorf("failed to run integrity_check: %w", err)
	}
	if result != "ok" {
		problems = append(problems, fmt.Errorf("integrity_check: %s", result))
	}

	rows, err := db.QueryContext(ctx, `
		SELECT n.name, n.node_count,
		       (SELECT COUNT(*) FROM network_nodes WHERE network = n.name),
		       (SELECT COUNT(*) FROM network_inhibition WHERE network = n.name)
		FROM networks n ORDER BY n.name`)
	if err != nil {
		return fmt.Errorf("failed to check stored networks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var want, nodes, ring int
		if err := rows.Scan(&name, &want, &nodes, &ring); err != nil {
			return fmt.Errorf("failed to scan network counts: %w", err)
		}
		if nodes != want {
			problems = append(problems, fmt.Errorf("network %s: %d nodes stored, header says %d", name, nodes, want))
		}
		if ring != nodes {
			problems = append(problems, fmt.Errorf("network %s: %d ring entries for %d nodes", name, ring, nodes))
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate networks: %w", err)
	}

	if len(problems) > 0 {
		return fmt.Errorf("database integrity check failed: %w", errors.Join(problems...))
	}
	return nil
}
