package graph

// Iterator is implemented by graph objects that can be iterated.
type Iterator interface {
	// Next advances the iterator. If no more items are available or an
	// error occurs, calls to Next() return false.
	Next() bool

	// Error returns the last error encountered by the iterator.
	Error() error

	// Close releases any resources associated with an iterator.
	Close() error
}

// NodeIterator is implemented by objects that can iterate the graph nodes.
type NodeIterator interface {
	Iterator

	// Node returns the currently fetched node object.
	Node() *Node
}

// EdgeIterator is implemented by objects that can iterate the graph edges.
type EdgeIterator interface {
	Iterator

	// Edge returns the currently fetched edge object.
	Edge() *Edge
}

// Node is a document, or a referenced but missing target, in the link graph.
type Node struct {
	// ID is assigned in first-seen order starting at 0.
	ID int `json:"id"`

	// Name is the normalized site-relative key of the document.
	Name string `json:"name"`

	// Degree counts edge endpoints touching this node.
	Degree int `json:"degree"`

	// Size is derived from Degree once the graph is complete.
	Size float64 `json:"size"`
}

// Edge is a directed reference from a source document to a target node.
type Edge struct {
	Source int `json:"source"`
	Target int `json:"target"`
}

// Snapshot is the serializable form of a complete link graph.
type Snapshot struct {
	Nodes []*Node `json:"nodes"`
	Links []*Edge `json:"links"`
}

// Graph is implemented by types that accumulate nodes and edges while a
// link graph is being built.
type Graph interface {
	// UpsertNode registers a node by name. New nodes receive the next ID;
	// for known names n.ID is set to the ID assigned on first sight.
	UpsertNode(n *Node) error

	// FindNode looks up a node by its ID.
	FindNode(id int) (*Node, error)

	// UpsertEdge appends an edge and increments the degree of both
	// endpoints. Duplicate edges and self-loops are kept.
	UpsertEdge(e *Edge) error

	// Nodes returns an iterator over all nodes in ID order.
	Nodes() (NodeIterator, error)

	// Edges returns an iterator over all edges in insertion order.
	Edges() (EdgeIterator, error)
}
