package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sitegraph/sitegraph/config"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "sitegraph",
		Short: "Build and browse the link graph of a static HTML site",
		Long: `sitegraph walks a directory of HTML documents, records every local
link between them and writes the resulting graph as JSON for a browser-based
visualization. It can also serve the site locally while keeping the graph
up to date.`,
		SilenceUsage: true,
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML file with sitegraph settings")
	rootCmd.AddCommand(buildCmd, serveCmd)
}

func newLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	return logrus.NewEntry(logger)
}

// loadConfig reads the config file, if any, and applies the flags the user
// set explicitly on top of it.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("root") {
		cfg.Root = flagRoot
	}
	if flags.Changed("output") {
		cfg.Output = flagOutput
	}
	if flags.Changed("exclude-file") {
		cfg.ExcludeFile = flagExcludeFile
	}
	if flags.Changed("addr") {
		cfg.Server.Addr = flagAddr
	}
	if flags.Changed("watch") {
		cfg.Watch.Enabled = flagWatch
	}
	if flags.Changed("debounce") {
		cfg.Watch.Debounce = flagDebounce
	}
	return cfg, cfg.Validate()
}
