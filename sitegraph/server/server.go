package server

import (
	"context"
	"io"
	"io/fs"
	"io/ioutil"
	"net"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

const (
	// DefaultListenAddr is the address the server listens on when none is
	// configured.
	DefaultListenAddr = "localhost:8000"

	allowedMethods = "GET, OPTIONS"
	allowedHeaders = "X-Requested-With"

	indexFile = "index.html"
)

var imageExtensions = []string{".jpg", ".jpeg", ".gif", ".png"}

// Config encapsulates the settings for configuring the static file server.
type Config struct {
	// The directory to serve files from. If not specified, the current
	// working directory will be used.
	Root string

	// The file system to serve. If not specified, the directory tree at
	// Root will be used.
	FS fs.FS

	// The address to listen for incoming requests on. If not specified,
	// DefaultListenAddr will be used.
	ListenAddr string

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	if cfg.Root == "" {
		cfg.Root = "."
	}
	if cfg.FS == nil {
		info, err := os.Stat(cfg.Root)
		if err != nil {
			return xerrors.Errorf("unable to access site root: %w", err)
		} else if !info.IsDir() {
			return xerrors.Errorf("site root %q is not a directory", cfg.Root)
		}
		cfg.FS = os.DirFS(cfg.Root)
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return nil
}

// Service serves the site directory over HTTP with permissive CORS headers
// so that a front end loaded from anywhere can fetch the graph data.
type Service struct {
	cfg     Config
	router  *mux.Router
	handler http.Handler
	files   http.Handler
}

// NewService creates a new static server instance with the specified config.
func NewService(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("server: config validation failed: %w", err)
	}

	svc := &Service{
		cfg:    cfg,
		router: mux.NewRouter(),
		files:  http.FileServer(http.FS(cfg.FS)),
	}
	svc.router.Methods(http.MethodOptions).HandlerFunc(svc.handlePreflight)
	svc.router.Methods(http.MethodGet, http.MethodHead).HandlerFunc(svc.handleFile)

	// CORS headers are attached outside the router so that they also reach
	// responses the router generates itself.
	svc.handler = withCORS(svc.logRequests(svc.router))
	return svc, nil
}

// Name implements service.Service
func (svc *Service) Name() string { return "server" }

// Run implements service.Service
func (svc *Service) Run(ctx context.Context) error {
	l, err := net.Listen("tcp", svc.cfg.ListenAddr)
	if err != nil {
		return xerrors.Errorf("server: unable to listen on %q: %w", svc.cfg.ListenAddr, err)
	}
	defer func() { _ = l.Close() }()

	srv := &http.Server{
		Addr:    svc.cfg.ListenAddr,
		Handler: svc,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	svc.cfg.Logger.WithField("addr", svc.cfg.ListenAddr).Info("starting server")
	svc.cfg.Logger.Infof("Open http://%s to view the site", l.Addr().String())
	if err = srv.Serve(l); err == http.ErrServerClosed {
		// Asked to cleanly shut down
		err = nil
	}
	return err
}

// ServeHTTP implements http.Handler.
func (svc *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	svc.handler.ServeHTTP(w, r)
}

func (svc *Service) handlePreflight(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
	w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
	w.WriteHeader(http.StatusOK)
}

// handleFile serves the requested file. Images that do not exist at the
// requested location are looked up by name anywhere in the site and served
// from the first match.
func (svc *Service) handleFile(w http.ResponseWriter, r *http.Request) {
	name := siteRelative(r.URL.Path)
	if _, err := fs.Stat(svc.cfg.FS, name); err != nil && isImage(name) {
		if found := findFile(svc.cfg.FS, path.Base(name)); found != "" {
			svc.cfg.Logger.WithFields(logrus.Fields{
				"requested": r.URL.Path,
				"found":     found,
			}).Info("found file at alternate location")

			r = r.Clone(r.Context())
			r.URL.Path = "/" + found
		}
	}
	if path.Base(r.URL.Path) == indexFile && svc.serveIndex(w, r) {
		return
	}
	svc.files.ServeHTTP(w, r)
}

// serveIndex answers explicit requests for an index document with its
// content. http.FileServer would redirect them to the directory instead.
func (svc *Service) serveIndex(w http.ResponseWriter, r *http.Request) bool {
	name := siteRelative(r.URL.Path)
	f, err := svc.cfg.FS.Open(name)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	content, ok := f.(io.ReadSeeker)
	if !ok {
		return false
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), content)
	return true
}

func (svc *Service) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		svc.cfg.Logger.WithFields(logrus.Fields{
			"request_id": uuid.New().String(),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
		}).Info("handled request")
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// siteRelative maps a URL path to a name inside the served file system.
func siteRelative(urlPath string) string {
	name := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if name == "" {
		return "."
	}
	return name
}

func isImage(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
