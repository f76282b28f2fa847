package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	"sitegraph/linkgraph/builder"
	"sitegraph/sitegraph/config"
)

var (
	flagRoot        string
	flagOutput      string
	flagExcludeFile string

	buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Build the link graph and write it as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runBuild(cmd.Context(), cfg, newLogger(), cmd.OutOrStdout())
		},
	}
)

func init() {
	buildCmd.Flags().StringVar(&flagRoot, "root", ".", "site directory to scan")
	buildCmd.Flags().StringVar(&flagOutput, "output", builder.DefaultOutputFile, "graph file, relative to the site root unless absolute")
	buildCmd.Flags().StringVar(&flagExcludeFile, "exclude-file", "", "file with gitignore-style patterns to leave out")
}

func newBuilder(cfg config.Config, logger *logrus.Entry) (*builder.Builder, error) {
	exclude, err := cfg.ExcludeMatcher()
	if err != nil {
		return nil, err
	}
	return builder.New(builder.Config{
		Root:    cfg.Root,
		Exclude: exclude,
		MinSize: cfg.MinSize,
		MaxSize: cfg.MaxSize,
		Logger:  logger,
	})
}

// runBuild builds the graph once, writes it to the configured output and
// reports the outcome on out.
func runBuild(ctx context.Context, cfg config.Config, logger *logrus.Entry, out io.Writer) error {
	b, err := newBuilder(cfg, logger)
	if err != nil {
		return err
	}

	res, err := b.Build(ctx)
	if err != nil {
		return err
	}
	if err = builder.WriteFile(cfg.OutputPath(), res.Graph); err != nil {
		return xerrors.Errorf("unable to write graph: %w", err)
	}

	if len(res.Skipped) != 0 {
		fmt.Fprintf(out, "Skipped %d of %d documents:\n", len(res.Skipped), res.Documents)
		for _, skipped := range res.Skipped {
			fmt.Fprintf(out, "  %s: %v\n", skipped.Path, skipped.Err)
		}
	}
	fmt.Fprintf(out, "Generated graph with %d nodes and %d links\n", len(res.Graph.Nodes), len(res.Graph.Links))
	return nil
}
