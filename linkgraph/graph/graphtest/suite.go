package graphtest

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"

	"sitegraph/linkgraph/graph"
)

// SuiteBase defines a re-usable set of graph-related tests that can
// be executed against any type that implements graph.Graph.
type SuiteBase struct {
	g graph.Graph
}

// SetGraph configures the test-suite to run all tests against g.
func (s *SuiteBase) SetGraph(g graph.Graph) {
	s.g = g
}

// TestUpsertNode verifies the node upsert logic.
func (s *SuiteBase) TestUpsertNode(c *gc.C) {
	first := &graph.Node{Name: "index.html"}
	c.Assert(s.g.UpsertNode(first), gc.IsNil)
	c.Assert(first.ID, gc.Equals, 0, gc.Commentf("expected the first node to receive ID 0"))

	second := &graph.Node{Name: "about.html"}
	c.Assert(s.g.UpsertNode(second), gc.IsNil)
	c.Assert(second.ID, gc.Equals, 1)

	// Upserting a known name must resolve to the original ID.
	again := &graph.Node{Name: "index.html", ID: 42}
	c.Assert(s.g.UpsertNode(again), gc.IsNil)
	c.Assert(again.ID, gc.Equals, first.ID, gc.Commentf("node ID changed while upserting"))

	third := &graph.Node{Name: "docs/index.html"}
	c.Assert(s.g.UpsertNode(third), gc.IsNil)
	c.Assert(third.ID, gc.Equals, 2, gc.Commentf("IDs must be assigned in first-seen order"))
}

// TestFindNode verifies the node lookup logic.
func (s *SuiteBase) TestFindNode(c *gc.C) {
	node := &graph.Node{Name: "a.html"}
	c.Assert(s.g.UpsertNode(node), gc.IsNil)

	other, err := s.g.FindNode(node.ID)
	c.Assert(err, gc.IsNil)
	c.Assert(other, gc.DeepEquals, node, gc.Commentf("lookup by ID returned the wrong node"))

	_, err = s.g.FindNode(1000)
	c.Assert(xerrors.Is(err, graph.ErrNotFound), gc.Equals, true)

	_, err = s.g.FindNode(-1)
	c.Assert(xerrors.Is(err, graph.ErrNotFound), gc.Equals, true)
}

// TestUpsertEdge verifies that edges update the degree of both endpoints.
func (s *SuiteBase) TestUpsertEdge(c *gc.C) {
	a, b := &graph.Node{Name: "a.html"}, &graph.Node{Name: "b.html"}
	c.Assert(s.g.UpsertNode(a), gc.IsNil)
	c.Assert(s.g.UpsertNode(b), gc.IsNil)

	c.Assert(s.g.UpsertEdge(&graph.Edge{Source: a.ID, Target: b.ID}), gc.IsNil)
	c.Assert(s.g.UpsertEdge(&graph.Edge{Source: a.ID, Target: b.ID}), gc.IsNil)
	c.Assert(s.g.UpsertEdge(&graph.Edge{Source: b.ID, Target: a.ID}), gc.IsNil)

	s.assertDegree(c, a.ID, 3)
	s.assertDegree(c, b.ID, 3)
	c.Assert(s.countEdges(c), gc.Equals, 3, gc.Commentf("duplicate edges must be retained"))

	// Create edge with unknown node IDs
	err := s.g.UpsertEdge(&graph.Edge{Source: a.ID, Target: 99})
	c.Assert(xerrors.Is(err, graph.ErrUnknownEdgeLinks), gc.Equals, true)
	err = s.g.UpsertEdge(&graph.Edge{Source: -1, Target: a.ID})
	c.Assert(xerrors.Is(err, graph.ErrUnknownEdgeLinks), gc.Equals, true)
	s.assertDegree(c, a.ID, 3)
}

// TestSelfLoop verifies that a self-loop counts once for each role.
func (s *SuiteBase) TestSelfLoop(c *gc.C) {
	n := &graph.Node{Name: "self.html"}
	c.Assert(s.g.UpsertNode(n), gc.IsNil)
	c.Assert(s.g.UpsertEdge(&graph.Edge{Source: n.ID, Target: n.ID}), gc.IsNil)
	s.assertDegree(c, n.ID, 2)
}

// TestIterationOrder verifies that iterators follow insertion order.
func (s *SuiteBase) TestIterationOrder(c *gc.C) {
	var names []string
	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("page-%d.html", 9-i)
		names = append(names, name)
		c.Assert(s.g.UpsertNode(&graph.Node{Name: name}), gc.IsNil)
	}
	for i := 1; i < 10; i++ {
		c.Assert(s.g.UpsertEdge(&graph.Edge{Source: i, Target: i - 1}), gc.IsNil)
	}

	it, err := s.g.Nodes()
	c.Assert(err, gc.IsNil)
	var got []string
	for expID := 0; it.Next(); expID++ {
		n := it.Node()
		c.Assert(n.ID, gc.Equals, expID)
		got = append(got, n.Name)
	}
	c.Assert(it.Error(), gc.IsNil)
	c.Assert(it.Close(), gc.IsNil)
	c.Assert(got, gc.DeepEquals, names)

	edgeIt, err := s.g.Edges()
	c.Assert(err, gc.IsNil)
	for src := 1; edgeIt.Next(); src++ {
		c.Assert(edgeIt.Edge(), gc.DeepEquals, &graph.Edge{Source: src, Target: src - 1})
	}
	c.Assert(edgeIt.Error(), gc.IsNil)
	c.Assert(edgeIt.Close(), gc.IsNil)
}

// TestConcurrentNodeIterators verifies that multiple clients can concurrently
// access the store.
func (s *SuiteBase) TestConcurrentNodeIterators(c *gc.C) {
	var (
		wg           sync.WaitGroup
		numIterators = 10
		numNodes     = 100
	)

	for i := 0; i < numNodes; i++ {
		c.Assert(s.g.UpsertNode(&graph.Node{Name: fmt.Sprint(i)}), gc.IsNil)
	}

	wg.Add(numIterators)
	for i := 0; i < numIterators; i++ {
		go func(id int) {
			defer wg.Done()

			itTagComment := gc.Commentf("iterator %d", id)
			seen := make(map[int]bool)
			it, err := s.g.Nodes()
			c.Assert(err, gc.IsNil, itTagComment)

			for it.Next() {
				nodeID := it.Node().ID
				c.Assert(seen[nodeID], gc.Equals, false, gc.Commentf("iterator %d saw same node twice", id))
				seen[nodeID] = true
			}

			c.Assert(seen, gc.HasLen, numNodes, itTagComment)
			c.Assert(it.Error(), gc.IsNil, itTagComment)
			c.Assert(it.Close(), gc.IsNil, itTagComment)
		}(i)
	}

	doneCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneCh)
	}()

	select {
	case <-doneCh:
	// test completed successfully
	case <-time.After(10 * time.Second):
		c.Fatal("timed out waiting for test to complete")
	}
}

func (s *SuiteBase) assertDegree(c *gc.C, id, exp int) {
	n, err := s.g.FindNode(id)
	c.Assert(err, gc.IsNil)
	c.Assert(n.Degree, gc.Equals, exp, gc.Commentf("unexpected degree for node %q", n.Name))
}

func (s *SuiteBase) countEdges(c *gc.C) int {
	it, err := s.g.Edges()
	c.Assert(err, gc.IsNil)
	defer func() { c.Assert(it.Close(), gc.IsNil) }()

	var count int
	for it.Next() {
		count++
	}
	c.Assert(it.Error(), gc.IsNil)
	return count
}
