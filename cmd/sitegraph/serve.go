package main

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sitegraph/sitegraph/config"
	"sitegraph/sitegraph/server"
	"sitegraph/sitegraph/service"
	"sitegraph/sitegraph/watcher"
)

var (
	flagAddr     string
	flagWatch    bool
	flagDebounce time.Duration

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the site over HTTP for the graph viewer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger()
			services, err := newServices(cmd.Context(), cfg, logger, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return services.Run(cmd.Context())
		},
	}
)

func init() {
	serveCmd.Flags().StringVar(&flagRoot, "root", ".", "site directory to serve")
	serveCmd.Flags().StringVar(&flagAddr, "addr", server.DefaultListenAddr, "address to listen on")
	serveCmd.Flags().BoolVar(&flagWatch, "watch", false, "rebuild the graph when documents change")
	serveCmd.Flags().DurationVar(&flagDebounce, "debounce", watcher.DefaultDebounce, "quiet period before a rebuild")
}

// newServices assembles the server and, when watching is enabled, a
// watcher that starts from a freshly built graph.
func newServices(ctx context.Context, cfg config.Config, logger *logrus.Entry, out io.Writer) (service.Group, error) {
	srv, err := server.NewService(server.Config{
		Root:       cfg.Root,
		ListenAddr: cfg.Server.Addr,
		Logger:     logger.WithField("service", "server"),
	})
	if err != nil {
		return nil, err
	}
	group := service.Group{srv}
	if !cfg.Watch.Enabled {
		return group, nil
	}

	if err = runBuild(ctx, cfg, logger, out); err != nil {
		return nil, err
	}
	b, err := newBuilder(cfg, logger.WithField("service", "builder"))
	if err != nil {
		return nil, err
	}
	exclude, err := cfg.ExcludeMatcher()
	if err != nil {
		return nil, err
	}
	w, err := watcher.NewService(watcher.Config{
		Root:     cfg.Root,
		Output:   cfg.OutputPath(),
		Builder:  b,
		Exclude:  exclude,
		Debounce: cfg.Watch.Debounce,
		Logger:   logger.WithField("service", "watcher"),
	})
	if err != nil {
		return nil, err
	}
	return append(group, w), nil
}
