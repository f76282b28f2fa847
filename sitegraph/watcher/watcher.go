package watcher

import (
	"context"
	"io/fs"
	"io/ioutil"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"sitegraph/linkgraph/builder"
)

// DefaultDebounce is the quiet period after the last change before the
// graph gets rebuilt.
const DefaultDebounce = 500 * time.Millisecond

// GraphBuilder is implemented by types that can build a link graph from
// scratch.
type GraphBuilder interface {
	Build(ctx context.Context) (*builder.Result, error)
}

// Config encapsulates the settings for configuring the rebuild watcher.
type Config struct {
	// The site directory to watch.
	Root string

	// The file the rebuilt graph is written to.
	Output string

	// The builder that produces a fresh graph on every rebuild.
	Builder GraphBuilder

	// An optional matcher for site-relative paths whose changes are
	// ignored. Directory paths are passed with a trailing slash.
	Exclude builder.Matcher

	// The quiet period to wait for after a change. If not specified,
	// DefaultDebounce will be used.
	Debounce time.Duration

	// A clock instance for the debounce timer. If not specified, the
	// wall-clock will be used.
	Clock clock.Clock

	// A source of file system events. If not specified, the tree at Root
	// is watched with fsnotify.
	Events <-chan fsnotify.Event

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.Root == "" {
		err = multierror.Append(err, xerrors.Errorf("site root has not been specified"))
	}
	if cfg.Output == "" {
		err = multierror.Append(err, xerrors.Errorf("output file has not been specified"))
	}
	if cfg.Builder == nil {
		err = multierror.Append(err, xerrors.Errorf("graph builder has not been provided"))
	}
	if cfg.Debounce < 0 {
		err = multierror.Append(err, xerrors.Errorf("invalid debounce period %v", cfg.Debounce))
	} else if cfg.Debounce == 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return err
}

// Service rebuilds the graph file whenever HTML documents under the site
// root change. Bursts of changes result in a single rebuild once the tree
// has been quiet for the debounce period.
type Service struct {
	cfg     Config
	watcher *fsnotify.Watcher
	dirs    map[string]struct{}
}

// NewService creates a new watcher service instance with the specified
// config.
func NewService(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("watcher service: config validation failed: %w", err)
	}
	return &Service{
		cfg:  cfg,
		dirs: make(map[string]struct{}),
	}, nil
}

// Name implements service.Service
func (svc *Service) Name() string { return "watcher" }

// Run implements service.Service
func (svc *Service) Run(ctx context.Context) error {
	events, errCh := svc.cfg.Events, (<-chan error)(nil)
	if events == nil {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return xerrors.Errorf("unable to create file system watcher: %w", err)
		}
		defer func() { _ = w.Close() }()

		svc.watcher = w
		if err = svc.watchTree(svc.cfg.Root); err != nil {
			return err
		}
		events, errCh = w.Events, w.Errors
	}

	svc.cfg.Logger.WithFields(logrus.Fields{
		"root":     svc.cfg.Root,
		"debounce": svc.cfg.Debounce.String(),
	}).Info("watching site for changes")

	var timer clock.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		var fire <-chan time.Time
		if timer != nil {
			fire = timer.Chan()
		}

		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !svc.handleEvent(ev) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = svc.cfg.Clock.NewTimer(svc.cfg.Debounce)
		case err, ok := <-errCh:
			if !ok {
				return nil
			}
			svc.cfg.Logger.WithError(err).Warn("file system watcher error")
		case <-fire:
			timer = nil
			svc.rebuild(ctx)
		}
	}
}

// handleEvent keeps the set of watched directories current and reports
// whether the event should trigger a rebuild.
func (svc *Service) handleEvent(ev fsnotify.Event) bool {
	rel, ok := svc.siteRelative(ev.Name)
	if !ok {
		return false
	}

	if _, watched := svc.dirs[ev.Name]; watched && (ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)) {
		delete(svc.dirs, ev.Name)
		return !isExcluded(svc.cfg.Exclude, rel+"/")
	}

	if ev.Has(fsnotify.Create) && svc.watcher != nil {
		if err := svc.watchTree(ev.Name); err == nil {
			if _, watched := svc.dirs[ev.Name]; watched {
				return true
			}
		}
	}

	return isRelevant(ev, rel, svc.cfg.Exclude)
}

func (svc *Service) rebuild(ctx context.Context) {
	res, err := svc.cfg.Builder.Build(ctx)
	if err != nil {
		svc.cfg.Logger.WithError(err).Error("graph rebuild failed")
		return
	}
	if err = builder.WriteFile(svc.cfg.Output, res.Graph); err != nil {
		svc.cfg.Logger.WithError(err).Error("unable to write rebuilt graph")
		return
	}
	svc.cfg.Logger.WithField("output", svc.cfg.Output).Infof(
		"Generated graph with %d nodes and %d links", len(res.Graph.Nodes), len(res.Graph.Links),
	)
}

// watchTree adds dir and every non-excluded directory below it to the
// fsnotify watch list. Paths that are not directories are ignored.
func (svc *Service) watchTree(dir string) error {
	return filepath.WalkDir(dir, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return xerrors.Errorf("unable to watch %q: %w", name, err)
		} else if !d.IsDir() {
			return nil
		}
		if rel, ok := svc.siteRelative(name); ok && rel != "." && isExcluded(svc.cfg.Exclude, rel+"/") {
			return filepath.SkipDir
		}
		if err := svc.watcher.Add(name); err != nil {
			return xerrors.Errorf("unable to watch %q: %w", name, err)
		}
		svc.dirs[name] = struct{}{}
		return nil
	})
}

func (svc *Service) siteRelative(name string) (string, bool) {
	rel, err := filepath.Rel(svc.cfg.Root, name)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// isRelevant reports whether a change to the site-relative path rel can
// alter the graph.
func isRelevant(ev fsnotify.Event, rel string, exclude builder.Matcher) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	return strings.HasSuffix(rel, ".html") && !isExcluded(exclude, rel)
}

func isExcluded(exclude builder.Matcher, name string) bool {
	return exclude != nil && exclude.MatchesPath(name)
}
