package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/born-ml/stgraph/internal/config"
)

// app carries the state shared by every command.
type app struct {
	configPath string
	seriesPath string
	graphPath  string
	verbose    bool

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "stgraph",
		Short: "Inspect and export spatiotemporal graph datasets",
		Long: `stgraph windows a (time, nodes, features) series into graph records,
normalizes them and writes them as SafeTensors files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "stgraph.yaml", "YAML configuration file")
	flags.StringVar(&a.seriesPath, "series", "", "series CSV, overrides dataset.path")
	flags.StringVar(&a.graphPath, "graph", "", "distance matrix CSV, overrides connectivity.path")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newVersionCmd(),
		newInspectCmd(a),
		newExportCmd(a),
		newShowCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.seriesPath != "" {
		cfg.Dataset.Path = a.seriesPath
	}
	if a.graphPath != "" {
		cfg.Connectivity.Path = a.graphPath
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	a.cfg = cfg
	a.logger = slog.New(cfg.Log.Handler(cmd.ErrOrStderr()))
	a.logger.Debug("configuration loaded", "path", a.configPath)
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stgraph %s\n", version)
		},
	}
}
