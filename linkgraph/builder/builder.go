package builder

import (
	"context"
	"io/fs"
	"io/ioutil"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"sitegraph/linkgraph/extractor"
	"sitegraph/linkgraph/graph"
	"sitegraph/linkgraph/pathnorm"
	"sitegraph/linkgraph/store/memory"
	"sitegraph/pipeline"
)

const (
	// DefaultMinSize is the size assigned to nodes without any edges.
	DefaultMinSize = 5.0

	// DefaultMaxSize is the size assigned to the nodes with the highest degree.
	DefaultMaxSize = 30.0
)

// Normalizer is implemented by types that canonicalize document paths and
// the hrefs found inside them.
type Normalizer interface {
	Normalize(raw string) string
	NormalizeFrom(raw, base string) string
}

// Config encapsulates the settings for configuring the graph builder.
type Config struct {
	// The directory containing the site. If not specified, the current
	// working directory will be used.
	Root string

	// The file system to walk. If not specified, the directory tree at
	// Root will be used.
	FS fs.FS

	// The normalizer for node keys. If not specified, a pathnorm.Normalizer
	// that checks directories against FS will be used.
	Normalizer Normalizer

	// The extractor for document links. If not specified, an
	// extractor.Extractor reading from FS will be used.
	Extractor DocumentExtractor

	// An optional matcher for paths that should be skipped by the walk.
	Exclude Matcher

	// Node size bounds. If not specified, DefaultMinSize and
	// DefaultMaxSize will be used.
	MinSize float64
	MaxSize float64

	// A clock instance for timing builds. If not specified, the wall-clock
	// will be used.
	Clock clock.Clock

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.Root == "" {
		cfg.Root = "."
	}
	if cfg.FS == nil {
		cfg.FS = os.DirFS(cfg.Root)
	}
	if cfg.MinSize == 0 {
		cfg.MinSize = DefaultMinSize
	}
	if cfg.MaxSize == 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.MinSize < 0 || cfg.MaxSize < cfg.MinSize {
		err = multierror.Append(err, xerrors.Errorf("invalid node size bounds [%v, %v]", cfg.MinSize, cfg.MaxSize))
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	if cfg.Normalizer == nil {
		norm, nErr := pathnorm.New(cfg.Root, pathnorm.FSPathKind{FS: cfg.FS})
		if nErr != nil {
			err = multierror.Append(err, nErr)
		} else {
			cfg.Normalizer = norm
		}
	}
	if cfg.Extractor == nil && cfg.Normalizer != nil {
		ex, exErr := extractor.New(extractor.Config{
			FS:         cfg.FS,
			Normalizer: cfg.Normalizer,
			Logger:     cfg.Logger,
		})
		if exErr != nil {
			err = multierror.Append(err, exErr)
		} else {
			cfg.Extractor = ex
		}
	}
	return err
}

// Result describes a completed build.
type Result struct {
	// The link graph with node sizes computed.
	Graph *graph.Snapshot

	// Number of documents discovered by the walk.
	Documents int

	// Documents whose links could not be extracted.
	Skipped []*extractor.Result

	// Time spent on the build.
	Elapsed time.Duration
}

// Builder constructs link graphs from a tree of HTML documents.
type Builder struct {
	cfg Config
}

// New creates a new graph builder with the specified config.
func New(cfg Config) (*Builder, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("graph builder: config validation failed: %w", err)
	}
	return &Builder{cfg: cfg}, nil
}

// Build walks the site and returns a freshly built link graph. Per-document
// extraction problems are reported in Result.Skipped; errors walking the
// tree are fatal.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	startAt := b.cfg.Clock.Now()
	b.cfg.Logger.WithField("root", b.cfg.Root).Info("starting graph build")

	docs, err := discoverDocuments(b.cfg.FS, b.cfg.Exclude)
	if err != nil {
		return nil, xerrors.Errorf("graph builder: unable to discover documents: %w", err)
	}

	store := memory.NewGraph()
	updater := newGraphUpdater(store)
	p := pipeline.New(
		pipeline.FIFO(newLinkExtractor(b.cfg.Extractor, b.cfg.Normalizer)),
	)
	if err = p.Process(ctx, &documentSource{paths: docs}, updater); err != nil {
		return nil, xerrors.Errorf("graph builder: unable to process documents: %w", err)
	} else if err = ctx.Err(); err != nil {
		return nil, xerrors.Errorf("graph builder: build aborted: %w", err)
	}

	snapshot, err := snapshotOf(store)
	if err != nil {
		return nil, xerrors.Errorf("graph builder: unable to collect graph: %w", err)
	}
	ScaleSizes(snapshot.Nodes, b.cfg.MinSize, b.cfg.MaxSize)

	res := &Result{
		Graph:     snapshot,
		Documents: updater.documents,
		Skipped:   updater.skipped,
		Elapsed:   b.cfg.Clock.Now().Sub(startAt),
	}
	for _, skipped := range res.Skipped {
		b.cfg.Logger.WithField("file", skipped.Path).WithError(skipped.Err).Warn("skipped document")
	}
	b.cfg.Logger.WithFields(logrus.Fields{
		"documents":    res.Documents,
		"nodes":        len(snapshot.Nodes),
		"links":        len(snapshot.Links),
		"skipped":      len(res.Skipped),
		"elapsed_time": res.Elapsed.String(),
	}).Info("completed graph build")
	return res, nil
}

// ScaleSizes assigns each node a size between minSize and maxSize that is
// proportional to its degree. When no node has any edges every node gets
// minSize.
func ScaleSizes(nodes []*graph.Node, minSize, maxSize float64) {
	var maxDegree int
	for _, n := range nodes {
		if n.Degree > maxDegree {
			maxDegree = n.Degree
		}
	}

	for _, n := range nodes {
		if maxDegree == 0 {
			n.Size = minSize
			continue
		}
		normalizedDegree := float64(n.Degree) / float64(maxDegree)
		n.Size = minSize + (maxSize-minSize)*normalizedDegree
	}
}

func snapshotOf(g graph.Graph) (*graph.Snapshot, error) {
	snapshot := &graph.Snapshot{
		Nodes: []*graph.Node{},
		Links: []*graph.Edge{},
	}

	nodeIt, err := g.Nodes()
	if err != nil {
		return nil, err
	}
	for nodeIt.Next() {
		snapshot.Nodes = append(snapshot.Nodes, nodeIt.Node())
	}
	if err = nodeIt.Error(); err != nil {
		_ = nodeIt.Close()
		return nil, err
	} else if err = nodeIt.Close(); err != nil {
		return nil, err
	}

	edgeIt, err := g.Edges()
	if err != nil {
		return nil, err
	}
	for edgeIt.Next() {
		snapshot.Links = append(snapshot.Links, edgeIt.Edge())
	}
	if err = edgeIt.Error(); err != nil {
		_ = edgeIt.Close()
		return nil, err
	}
	return snapshot, edgeIt.Close()
}
