// Package inmemoryattrs provides a thread-safe, in-memory implementation of
// the attrstore.Store interface.
//
// The registry is read far more often than it is written (every rebuild
// resolves every link, while writes only happen on node creation and
// deletion), so a single sync.RWMutex guards three maps: the primary
// attribute table, a reverse index for logical lookups and a per-node index
// that makes Purge proportional to the node's slot count.
package inmemoryattrs

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/specialistvlad/nodegrid/internal/attrstore"
	"github.com/specialistvlad/nodegrid/internal/ctxlog"
	"github.com/specialistvlad/nodegrid/internal/nodeid"
)

type logicalKey struct {
	node nodeid.NodeID
	dir  nodeid.Direction
	key  string
}

// Store is an in-memory attribute registry.
type Store struct {
	mu      sync.RWMutex
	attrs   map[nodeid.AttrID]attrstore.Entry
	logical map[logicalKey]nodeid.AttrID
	byNode  map[nodeid.NodeID][]nodeid.AttrID
}

// New creates a new, empty attribute registry.
func New() *Store {
	return &Store{
		attrs:   make(map[nodeid.AttrID]attrstore.Entry),
		logical: make(map[logicalKey]nodeid.AttrID),
		byNode:  make(map[nodeid.NodeID][]nodeid.AttrID),
	}
}

var _ attrstore.Store = (*Store)(nil)

// Register records the owner of an attribute id.
func (s *Store) Register(ctx context.Context, id nodeid.AttrID, entry attrstore.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.attrs[id]; ok {
		if existing == entry {
			return nil
		}
		ctxlog.FromContext(ctx).Warn("Attribute registration refused.",
			"attrID", id, "existingNode", existing.Node, "requestedNode", entry.Node)
		return fmt.Errorf("attribute %s: %w", id, attrstore.ErrConflict)
	}

	lk := logicalKey{node: entry.Node, dir: entry.Direction, key: entry.Key}
	if other, ok := s.logical[lk]; ok {
		return fmt.Errorf("node %s already has %s slot %q as attribute %s: %w",
			entry.Node, entry.Direction, entry.Key, other, attrstore.ErrConflict)
	}

	s.attrs[id] = entry
	s.logical[lk] = id
	s.byNode[entry.Node] = append(s.byNode[entry.Node], id)
	return nil
}

// Resolve returns the entry for an attribute id.
func (s *Store) Resolve(ctx context.Context, id nodeid.AttrID) (attrstore.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.attrs[id]
	return e, ok
}

// Lookup returns the attribute id for a logical slot.
func (s *Store) Lookup(ctx context.Context, node nodeid.NodeID, dir nodeid.Direction, key string) (nodeid.AttrID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.logical[logicalKey{node: node, dir: dir, key: key}]
	return id, ok
}

// Purge removes every entry owned by node.
func (s *Store) Purge(ctx context.Context, node nodeid.NodeID) []nodeid.AttrID {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.byNode[node]
	delete(s.byNode, node)
	for _, id := range ids {
		e := s.attrs[id]
		delete(s.logical, logicalKey{node: e.Node, dir: e.Direction, key: e.Key})
		delete(s.attrs, id)
	}

	out := slices.Clone(ids)
	slices.Sort(out)
	ctxlog.FromContext(ctx).Debug("Attributes purged.", "nodeID", node, "count", len(out))
	return out
}

// Snapshot returns a copy of the whole registry.
func (s *Store) Snapshot(ctx context.Context) map[nodeid.AttrID]attrstore.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.attrs)
}

// Len returns the number of registered attributes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.attrs)
}
