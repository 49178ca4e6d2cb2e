package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nvandessel/iac/internal/network"
)

type memoryEntry struct {
	info    NetworkInfo
	network *network.Network
}

// InMemoryNetworkStore implements NetworkStore for testing and development.
type InMemoryNetworkStore struct {
	mu       sync.RWMutex
	networks map[string]memoryEntry
}

// NewInMemoryNetworkStore creates a new in-memory store.
func NewInMemoryNetworkStore() *InMemoryNetworkStore {
	return &InMemoryNetworkStore{
		networks: make(map[string]memoryEntry),
	}
}

// SaveNetwork stores a copy of n under name.
func (s *InMemoryNetworkStore) SaveNetwork(ctx context.Context, name, source string, n *network.Network) error {
	if err := checkSavable(name, n); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.networks[name] = memoryEntry{
		info: NetworkInfo{
			Name:      name,
			Nodes:     len(n.Nodes),
			Blocks:    len(n.Blocks),
			Source:    source,
			CreatedAt: time.Now().UTC(),
		},
		network: n.Clone(),
	}
	return nil
}

// LoadNetwork returns a copy of the network stored under name.
func (s *InMemoryNetworkStore) LoadNetwork(ctx context.Context, name string) (*network.Network, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.networks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return entry.network.Clone(), nil
}

// ListNetworks returns the stored networks sorted by name.
func (s *InMemoryNetworkStore) ListNetworks(ctx context.Context) ([]NetworkInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]NetworkInfo, 0, len(s.networks))
	for _, entry := range s.networks {
		infos = append(infos, entry.info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos, nil
}

// DeleteNetwork removes the network stored under name.
func (s *InMemoryNetworkStore) DeleteNetwork(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.networks[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(s.networks, name)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryNetworkStore) Close() error {
	return nil
}
