package graph

import (
	"container/heap"
	"errors"
	"fmt"

	"github.com/specialistvlad/nodegrid/internal/nodeid"
)

// ErrCycle is returned by TopologicalSort when the graph restricted to the
// given nodes is not acyclic.
var ErrCycle = errors.New("dependency cycle detected")

// CycleError carries the nodes that could not be ordered.
type CycleError struct {
	Remaining []nodeid.NodeID
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %d node(s) involved %v", ErrCycle, len(e.Remaining), e.Remaining)
}

// Unwrap lets errors.Is match ErrCycle.
func (e *CycleError) Unwrap() error {
	return ErrCycle
}

// idHeap is a min-heap of node ids.
type idHeap []nodeid.NodeID

func (h idHeap) Len() int           { return len(h) }
func (h idHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *idHeap) Push(x any)        { *h = append(*h, x.(nodeid.NodeID)) }
func (h *idHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// TopologicalSort orders nodes so every node comes after all nodes it
// depends on. Edges touching ids outside nodes are ignored. Ties are broken
// by ascending node id. On a cycle it returns a *CycleError and no order.
func TopologicalSort(nodes []nodeid.NodeID, g *Graph) ([]nodeid.NodeID, error) {
	present := make(map[nodeid.NodeID]struct{}, len(nodes))
	for _, id := range nodes {
		present[id] = struct{}{}
	}

	inDegree := make(map[nodeid.NodeID]int, len(present))
	for id := range present {
		inDegree[id] = 0
	}
	if g != nil {
		for from, deps := range g.adj {
			if _, ok := present[from]; !ok {
				continue
			}
			for to := range deps {
				if _, ok := present[to]; ok {
					inDegree[to]++
				}
			}
		}
	}

	ready := &idHeap{}
	for id, deg := range inDegree {
		if deg == 0 {
			*ready = append(*ready, id)
		}
	}
	heap.Init(ready)

	order := make([]nodeid.NodeID, 0, len(present))
	for ready.Len() > 0 {
		id := heap.Pop(ready).(nodeid.NodeID)
		order = append(order, id)
		if g == nil {
			continue
		}
		for to := range g.adj[id] {
			if _, ok := present[to]; !ok {
				continue
			}
			inDegree[to]--
			if inDegree[to] == 0 {
				heap.Push(ready, to)
			}
		}
	}

	if len(order) < len(present) {
		remaining := make(idHeap, 0, len(present)-len(order))
		for id, deg := range inDegree {
			if deg > 0 {
				remaining = append(remaining, id)
			}
		}
		heap.Init(&remaining)
		sorted := make([]nodeid.NodeID, 0, len(remaining))
		for remaining.Len() > 0 {
			sorted = append(sorted, heap.Pop(&remaining).(nodeid.NodeID))
		}
		return nil, &CycleError{Remaining: sorted}
	}
	return order, nil
}
