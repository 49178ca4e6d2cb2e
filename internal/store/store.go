// Package store defines the NetworkStore interface for saving and loading
// built networks by name.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nvandessel/iac/internal/network"
)

// ErrNotFound is returned when no network is stored under a name.
var ErrNotFound = errors.New("network not found")

// NetworkInfo summarizes a stored network.
type NetworkInfo struct {
	Name      string    `json:"name"`
	Nodes     int       `json:"nodes"`
	Blocks    int       `json:"blocks"`
	Source    string    `json:"source,omitempty"` // where the network was built from, e.g. a CSV path
	CreatedAt time.Time `json:"created_at"`
}

// NetworkStore persists networks produced by the builder. Simulation state
// is never stored.
type NetworkStore interface {
	// SaveNetwork stores n under name, replacing any network with that name.
	SaveNetwork(ctx context.Context, name, source string, n *network.Network) error

	// LoadNetwork returns the network stored under name, or ErrNotFound.
	LoadNetwork(ctx context.Context, name string) (*network.Network, error)

	// ListNetworks returns every stored network, sorted by name.
	ListNetworks(ctx context.Context) ([]NetworkInfo, error)

	// DeleteNetwork removes the network stored under name, or returns ErrNotFound.
	DeleteNetwork(ctx context.Context, name string) error

	Close() error
}

// checkSavable rejects networks a store cannot hold faithfully. Nodes are
// stored by block name, so a repeated name would merge two blocks on load.
func checkSavable(name string, n *network.Network) error {
	if name == "" {
		return fmt.Errorf("network name is required")
	}
	if n == nil {
		return fmt.Errorf("network is nil")
	}
	seen := make(map[string]bool, len(n.Blocks))
	for _, b := range n.Blocks {
		if seen[b.Name] {
			return fmt.Errorf("network %s: block name %q is used more than once", name, b.Name)
		}
		seen[b.Name] = true
	}
	return nil
}
