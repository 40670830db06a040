// Package inmemorystore provides a thread-safe, in-memory implementation of
// the nodestore.Store interface.
//
// Lookups happen on every tick for every node, while writes only happen on
// user edits, so the store uses a sync.RWMutex around a plain map.
package inmemorystore

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/specialistvlad/nodegrid/internal/node"
	"github.com/specialistvlad/nodegrid/internal/nodeid"
	"github.com/specialistvlad/nodegrid/internal/nodestore"
)

// Store is an in-memory node registry.
type Store struct {
	mu    sync.RWMutex
	nodes map[nodeid.NodeID]node.Node
}

// New creates a new, empty node registry.
func New() *Store {
	return &Store{nodes: make(map[nodeid.NodeID]node.Node)}
}

var _ nodestore.Store = (*Store)(nil)

// Add registers an instance under id.
func (s *Store) Add(ctx context.Context, id nodeid.NodeID, n node.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[id]; ok {
		return fmt.Errorf("node %s: %w", id, nodestore.ErrExists)
	}
	s.nodes[id] = n
	return nil
}

// Remove unregisters id.
func (s *Store) Remove(ctx context.Context, id nodeid.NodeID) (node.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	delete(s.nodes, id)
	return n, ok
}

// Get returns the instance for id.
func (s *Store) Get(ctx context.Context, id nodeid.NodeID) (node.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	return n, ok
}

// IDs returns all registered ids in ascending order.
func (s *Store) IDs(ctx context.Context) []nodeid.NodeID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.nodes))
}

// Len returns the number of registered instances.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}
