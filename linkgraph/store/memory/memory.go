package memory

import (
	"sync"

	"golang.org/x/xerrors"

	"sitegraph/linkgraph/graph"
)

// Compile-time check for ensuring Graph implements graph.Graph.
var _ graph.Graph = (*Graph)(nil)

// Graph implements an in-memory link graph accumulator. Node IDs are
// slice indices, so they are dense and assigned in first-seen order.
type Graph struct {
	mu sync.RWMutex

	nodes []*graph.Node
	edges []*graph.Edge

	nodeNameIndex map[string]*graph.Node
}

// NewGraph creates a new in-memory link graph.
func NewGraph() *Graph {
	return &Graph{
		nodeNameIndex: make(map[string]*graph.Node),
	}
}

// UpsertNode creates a new node or resolves the ID of an existing one.
func (s *Graph) UpsertNode(node *graph.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Check if a node with the same name already exists. If so, point
	// the ID to the existing node; first-seen wins.
	if existing := s.nodeNameIndex[node.Name]; existing != nil {
		node.ID = existing.ID
		return nil
	}

	node.ID = len(s.nodes)
	nCopy := &graph.Node{ID: node.ID, Name: node.Name}
	s.nodes = append(s.nodes, nCopy)
	s.nodeNameIndex[nCopy.Name] = nCopy
	return nil
}

// FindNode looks up a node by its ID.
func (s *Graph) FindNode(id int) (*graph.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.known(id) {
		return nil, xerrors.Errorf("find node: %w", graph.ErrNotFound)
	}

	nCopy := new(graph.Node)
	*nCopy = *s.nodes[id]
	return nCopy, nil
}

// UpsertEdge appends a new edge and bumps the degree of its endpoints.
func (s *Graph) UpsertEdge(edge *graph.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.known(edge.Source) || !s.known(edge.Target) {
		return xerrors.Errorf("upsert edge: %w", graph.ErrUnknownEdgeLinks)
	}

	eCopy := new(graph.Edge)
	*eCopy = *edge
	s.edges = append(s.edges, eCopy)

	// A self-loop counts once as source and once as target.
	s.nodes[edge.Source].Degree++
	s.nodes[edge.Target].Degree++
	return nil
}

// Nodes returns an iterator for all nodes in the graph.
func (s *Graph) Nodes() (graph.NodeIterator, error) {
	s.mu.RLock()
	list := make([]*graph.Node, len(s.nodes))
	copy(list, s.nodes)
	s.mu.RUnlock()
	return &nodeIterator{s: s, nodes: list}, nil
}

// Edges returns an iterator for all edges in the graph.
func (s *Graph) Edges() (graph.EdgeIterator, error) {
	s.mu.RLock()
	list := make([]*graph.Edge, len(s.edges))
	copy(list, s.edges)
	s.mu.RUnlock()
	return &edgeIterator{s: s, edges: list}, nil
}

func (s *Graph) known(id int) bool {
	return id >= 0 && id < len(s.nodes)
}
