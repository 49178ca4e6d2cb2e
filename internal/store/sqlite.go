package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/nvandessel/iac/internal/network"
	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteNetworkStore implements NetworkStore on a SQLite database at
// <root>/.iac/iac.db.
type SQLiteNetworkStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// DataDir returns the directory holding iac's files under root.
func DataDir(root string) string {
	return filepath.Join(root, ".iac")
}

// DatabasePath returns the path of the network database under root.
func DatabasePath(root string) string {
	return filepath.Join(DataDir(root), "iac.db")
}

// NewSQLiteNetworkStore opens (creating if needed) the database under
// projectRoot and initializes its schema.
func NewSQLiteNetworkStore(projectRoot string) (*SQLiteNetworkStore, error) {
	dir := DataDir(projectRoot)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .iac directory: %w", err)
	}

	dbPath := DatabasePath(projectRoot)
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteNetworkStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteNetworkStore) Path() string {
	return s.dbPath
}

// SaveNetwork writes n under name in a single transaction, replacing any
// network already stored with that name.
func (s *SQLiteNetworkStore) SaveNetwork(ctx context.Context, name, source string, n *network.Network) error {
	if err := checkSavable(name, n); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Cascades to nodes, excitation and inhibition rows.
	if _, err := tx.ExecContext(ctx, `DELETE FROM networks WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to replace network %s: %w", name, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO networks (name, source, node_count, block_count, created_at) VALUES (?, ?, ?, ?, ?)`,
		name, source, len(n.Nodes), len(n.Blocks), time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("failed to insert network %s: %w", name, err)
	}

	blockOf := make(map[string]string)
	blockPos := make(map[string]int)
	for _, b := range n.Blocks {
		for i, id := range b.Members {
			blockOf[id] = b.Name
			blockPos[id] = i
		}
	}

	nodeStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO network_nodes (network, id, position, block, block_position) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare node insert: %w", err)
	}
	defer nodeStmt.Close()

	excStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO network_excitation (network, source, target, position) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare excitation insert: %w", err)
	}
	defer excStmt.Close()

	inhStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO network_inhibition (network, node, next) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare inhibition insert: %w", err)
	}
	defer inhStmt.Close()

	for pos, id := range n.Nodes {
		block, ok := blockOf[id]
		if !ok {
			return fmt.Errorf("node %q is in no block", id)
		}
		if _, err := nodeStmt.ExecContext(ctx, name, id, pos, block, blockPos[id]); err != nil {
			return fmt.Errorf("failed to insert node %s: %w", id, err)
		}
		for i, target := range n.Excitation[id] {
			if _, err := excStmt.ExecContext(ctx, name, id, target, i); err != nil {
				return fmt.Errorf("failed to insert excitation %s->%s: %w", id, target, err)
			}
		}
		next, ok := n.Inhibition[id]
		if !ok {
			return fmt.Errorf("node %q has no inhibition successor", id)
		}
		if _, err := inhStmt.ExecContext(ctx, name, id, next); err != nil {
			return fmt.Errorf("failed to insert inhibition %s->%s: %w", id, next, err)
		}
	}

	return tx.Commit()
}

// LoadNetwork reads the network stored under name.
func (s *SQLiteNetworkStore) LoadNetwork(ctx context.Context, name string) (*network.Network, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM networks WHERE name = ?`, name).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to look up network %s: %w", name, err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	n := &network.Network{
		Excitation: make(map[string][]string),
		Inhibition: make(map[string]string),
	}

	if err := s.loadNodes(ctx, name, n); err != nil {
		return nil, err
	}
	if err := s.loadExcitation(ctx, name, n); err != nil {
		return nil, err
	}
	if err := s.loadInhibition(ctx, name, n); err != nil {
		return nil, err
	}
	return n, nil
}

// loadNodes fills the node order and blocks. Blocks are ordered by the
// position of their first node; members keep their order within the
// block, which the ring relies on.
func (s *SQLiteNetworkStore) loadNodes(ctx context.Context, name string, n *network.Network) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, block, block_position FROM network_nodes WHERE network = ? ORDER BY position`, name)
	if err != nil {
		return fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	type member struct {
		id  string
		pos int
	}
	blockIndex := make(map[string]int)
	members := make(map[string][]member)
	for rows.Next() {
		var m member
		var block string
		if err := rows.Scan(&m.id, &block, &m.pos); err != nil {
			return fmt.Errorf("failed to scan node: %w", err)
		}
		n.Nodes = append(n.Nodes, m.id)
		n.Excitation[m.id] = []string{}
		if _, ok := blockIndex[block]; !ok {
			blockIndex[block] = len(n.Blocks)
			n.Blocks = append(n.Blocks, network.Block{Name: block})
		}
		members[block] = append(members[block], m)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate nodes: %w", err)
	}

	for block, i := range blockIndex {
		ms := members[block]
		sort.Slice(ms, func(a, b int) bool { return ms[a].pos < ms[b].pos })
		ids := make([]string, len(ms))
		for j, m := range ms {
			ids[j] = m.id
		}
		n.Blocks[i].Members = ids
	}
	return nil
}

func (s *SQLiteNetworkStore) loadExcitation(ctx context.Context, name string, n *network.Network) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source, target FROM network_excitation WHERE network = ? ORDER BY source, position`, name)
	if err != nil {
		return fmt.Errorf("failed to query excitation: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var source, target string
		if err := rows.Scan(&source, &target); err != nil {
			return fmt.Errorf("failed to scan excitation: %w", err)
		}
		n.Excitation[source] = append(n.Excitation[source], target)
	}
	return rows.Err()
}

func (s *SQLiteNetworkStore) loadInhibition(ctx context.Context, name string, n *network.Network) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT node, next FROM network_inhibition WHERE network = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to query inhibition: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var node, next string
		if err := rows.Scan(&node, &next); err != nil {
			return fmt.Errorf("failed to scan inhibition: %w", err)
		}
		n.Inhibition[node] = next
	}
	return rows.Err()
}

// ListNetworks returns every stored network sorted by name.
func (s *SQLiteNetworkStore) ListNetworks(ctx context.Context) ([]NetworkInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, COALESCE(source, ''), node_count, block_count, created_at FROM networks ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query networks: %w", err)
	}
	defer rows.Close()

	infos := []NetworkInfo{}
	for rows.Next() {
		var info NetworkInfo
		var created string
		if err := rows.Scan(&info.Name, &info.Source, &info.Nodes, &info.Blocks, &created); err != nil {
			return nil, fmt.Errorf("failed to scan network: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			info.CreatedAt = t
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate networks: %w", err)
	}
	return infos, nil
}

// DeleteNetwork removes the network stored under name.
func (s *SQLiteNetworkStore) DeleteNetwork(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM networks WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete network %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete network %s: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteNetworkStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
