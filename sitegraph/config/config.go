// Package config loads the settings shared by the sitegraph commands from an
// optional YAML file.
package config

import (
	"bytes"
	"io"
	"io/ioutil"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"
	ignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"

	"sitegraph/linkgraph/builder"
	"sitegraph/sitegraph/server"
	"sitegraph/sitegraph/watcher"
)

// Config holds the settings for building and serving a site graph.
type Config struct {
	// The site directory.
	Root string `yaml:"root"`

	// The graph file. Relative paths are taken from Root so that the
	// server publishes the graph next to the site it describes.
	Output string `yaml:"output"`

	// An optional file with gitignore-style patterns for paths to leave
	// out of the graph.
	ExcludeFile string `yaml:"exclude_file"`

	// Node size bounds.
	MinSize float64 `yaml:"min_size"`
	MaxSize float64 `yaml:"max_size"`

	Server ServerConfig `yaml:"server"`
	Watch  WatchConfig  `yaml:"watch"`
}

// ServerConfig holds the static server settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// WatchConfig holds the rebuild watcher settings.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// Default returns the settings used when no config file is given.
func Default() Config {
	return Config{
		Root:    ".",
		Output:  builder.DefaultOutputFile,
		MinSize: builder.DefaultMinSize,
		MaxSize: builder.DefaultMaxSize,
		Server: ServerConfig{
			Addr: server.DefaultListenAddr,
		},
		Watch: WatchConfig{
			Debounce: watcher.DefaultDebounce,
		},
	}
}

// Load reads the YAML file at path on top of the defaults. An empty path
// yields the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return Config{}, xerrors.Errorf("config: unable to read %q: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err = dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, xerrors.Errorf("config: unable to parse %q: %w", path, err)
	}

	if err = cfg.Validate(); err != nil {
		return Config{}, xerrors.Errorf("config: %q: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (cfg Config) Validate() error {
	var err error
	if cfg.Root == "" {
		err = multierror.Append(err, xerrors.Errorf("root has not been specified"))
	}
	if cfg.Output == "" {
		err = multierror.Append(err, xerrors.Errorf("output has not been specified"))
	}
	if cfg.MinSize < 0 || cfg.MaxSize < cfg.MinSize {
		err = multierror.Append(err, xerrors.Errorf("invalid node size bounds [%v, %v]", cfg.MinSize, cfg.MaxSize))
	}
	if cfg.Server.Addr == "" {
		err = multierror.Append(err, xerrors.Errorf("server address has not been specified"))
	}
	if cfg.Watch.Debounce <= 0 {
		err = multierror.Append(err, xerrors.Errorf("invalid watch debounce period %v", cfg.Watch.Debounce))
	}
	return err
}

// OutputPath returns the location of the graph file.
func (cfg Config) OutputPath() string {
	if filepath.IsAbs(cfg.Output) {
		return cfg.Output
	}
	return filepath.Join(cfg.Root, cfg.Output)
}

// ExcludeMatcher compiles the exclude file. It returns nil when no exclude
// file is configured.
func (cfg Config) ExcludeMatcher() (builder.Matcher, error) {
	if cfg.ExcludeFile == "" {
		return nil, nil
	}
	matcher, err := ignore.CompileIgnoreFile(cfg.ExcludeFile)
	if err != nil {
		return nil, xerrors.Errorf("config: unable to load exclude file: %w", err)
	}
	return matcher, nil
}
