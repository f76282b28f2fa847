package watcher

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/juju/clock/testclock"
	ignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"

	"sitegraph/linkgraph/builder"
	"sitegraph/linkgraph/graph"
)

var _ = gc.Suite(new(WatcherTestSuite))

func Test(t *testing.T) {
	// Run all gocheck test-suites
	gc.TestingT(t)
}

const debounce = time.Second

type WatcherTestSuite struct {
	root    string
	output  string
	clk     *testclock.Clock
	events  chan fsnotify.Event
	builder *builderStub
	cancel  context.CancelFunc
	done    chan error
}

func (s *WatcherTestSuite) SetUpTest(c *gc.C) {
	s.root = c.MkDir()
	s.output = filepath.Join(c.MkDir(), builder.DefaultOutputFile)
	s.clk = testclock.NewClock(time.Now())
	s.events = make(chan fsnotify.Event)
	s.builder = &builderStub{built: make(chan struct{}, 10)}

	svc, err := NewService(Config{
		Root:     s.root,
		Output:   s.output,
		Builder:  s.builder,
		Exclude:  ignore.CompileIgnoreLines("*.tmp.html"),
		Debounce: debounce,
		Clock:    s.clk,
		Events:   s.events,
	})
	c.Assert(err, gc.IsNil)

	var ctx context.Context
	ctx, s.cancel = context.WithCancel(context.TODO())
	s.done = make(chan error, 1)
	go func() { s.done <- svc.Run(ctx) }()
}

func (s *WatcherTestSuite) TearDownTest(c *gc.C) {
	s.cancel()
	select {
	case err := <-s.done:
		c.Assert(err, gc.IsNil)
	case <-time.After(10 * time.Second):
		c.Fatal("timeout waiting for watcher to exit")
	}
}

func (s *WatcherTestSuite) TestBurstOfChangesTriggersSingleRebuild(c *gc.C) {
	s.send(fsnotify.Write, "index.html")
	s.send(fsnotify.Create, "docs/new.html")
	s.send(fsnotify.Remove, "docs/old.html")
	s.sync()

	c.Assert(s.clk.WaitAdvance(debounce, 10*time.Second, 1), gc.IsNil)
	s.awaitBuild(c)
	s.sync()

	data, err := ioutil.ReadFile(s.output)
	c.Assert(err, gc.IsNil)
	c.Assert(string(data), gc.Equals, "{\n  \"nodes\": [\n    {\n      \"id\": 0,\n      \"name\": \"index.html\",\n      \"degree\": 0,\n      \"size\": 5\n    }\n  ],\n  \"links\": []\n}\n")
	c.Assert(s.builder.callCount(), gc.Equals, 1)
}

func (s *WatcherTestSuite) TestChangeDuringQuietPeriodRestartsTimer(c *gc.C) {
	s.send(fsnotify.Write, "index.html")
	s.sync()
	c.Assert(s.clk.WaitAdvance(debounce/2, 10*time.Second, 1), gc.IsNil)

	s.send(fsnotify.Write, "about.html")
	s.sync()
	c.Assert(s.clk.WaitAdvance(debounce/2, 10*time.Second, 1), gc.IsNil)
	s.sync()
	c.Assert(s.builder.callCount(), gc.Equals, 0)

	c.Assert(s.clk.WaitAdvance(debounce/2, 10*time.Second, 1), gc.IsNil)
	s.awaitBuild(c)
}

func (s *WatcherTestSuite) TestIrrelevantChangesAreIgnored(c *gc.C) {
	s.send(fsnotify.Write, "style.css")
	s.send(fsnotify.Chmod, "index.html")
	s.send(fsnotify.Write, "drafts/post.tmp.html")
	s.sync()

	c.Assert(s.clk.WaitAdvance(debounce, 100*time.Millisecond, 1), gc.NotNil)
	c.Assert(s.builder.callCount(), gc.Equals, 0)
}

func (s *WatcherTestSuite) TestFailedRebuildKeepsWatching(c *gc.C) {
	s.builder.setErr(xerrors.New("walk failed"))
	s.send(fsnotify.Write, "index.html")
	s.sync()
	c.Assert(s.clk.WaitAdvance(debounce, 10*time.Second, 1), gc.IsNil)
	s.awaitBuild(c)

	s.builder.setErr(nil)
	s.send(fsnotify.Write, "index.html")
	s.sync()
	c.Assert(s.clk.WaitAdvance(debounce, 10*time.Second, 1), gc.IsNil)
	s.awaitBuild(c)
}

func (s *WatcherTestSuite) TestConfigValidation(c *gc.C) {
	_, err := NewService(Config{Debounce: -time.Second})
	c.Assert(err, gc.ErrorMatches, "(?s)watcher service: config validation failed: .*site root has not been specified.*output file has not been specified.*graph builder has not been provided.*invalid debounce period -1s.*")
}

func (s *WatcherTestSuite) send(op fsnotify.Op, rel string) {
	s.events <- fsnotify.Event{Name: filepath.Join(s.root, filepath.FromSlash(rel)), Op: op}
}

// sync returns once the watcher loop has finished handling every event
// sent before it.
func (s *WatcherTestSuite) sync() {
	s.events <- fsnotify.Event{Name: filepath.Join(s.root, "sync.txt"), Op: fsnotify.Write}
	s.events <- fsnotify.Event{Name: filepath.Join(s.root, "sync.txt"), Op: fsnotify.Write}
}

func (s *WatcherTestSuite) awaitBuild(c *gc.C) {
	select {
	case <-s.builder.built:
	case <-time.After(10 * time.Second):
		c.Fatal("timeout waiting for graph rebuild")
	}
}

type builderStub struct {
	mu    sync.Mutex
	calls int
	err   error
	built chan struct{}
}

func (b *builderStub) Build(context.Context) (*builder.Result, error) {
	b.mu.Lock()
	defer func() {
		b.mu.Unlock()
		b.built <- struct{}{}
	}()

	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	return &builder.Result{
		Graph: &graph.Snapshot{
			Nodes: []*graph.Node{{ID: 0, Name: "index.html", Size: 5}},
			Links: []*graph.Edge{},
		},
		Documents: 1,
	}, nil
}

func (b *builderStub) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func (b *builderStub) setErr(err error) {
	b.mu.Lock()
	b.err = err
	b.mu.Unlock()
}
