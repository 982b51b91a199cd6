package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/born-ml/stgraph/internal/connectivity"
	"github.com/born-ml/stgraph/internal/loader"
)

func newInspectCmd(a *app) *cobra.Command {
	var load bool
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print a summary of the configured dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := buildPipeline(a.cfg, a.logger)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := p.summarize(out); err != nil {
				return err
			}
			if load {
				return a.loadAll(cmd.Context(), out, p)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&load, "load", false, "build every training batch and report timing")
	return cmd
}

func (p *pipeline) summarize(w io.Writer) error {
	ds := p.ds
	fmt.Fprintf(w, "series: steps=%d nodes=%d channels=%d\n", ds.NumSteps(), ds.NumNodes(), ds.NumChannels())
	fmt.Fprintf(w, "samples: %d (window=%d horizon=%d span=%d)\n", ds.Len(), ds.Window(), ds.Horizon(), ds.SampleSpan())
	fmt.Fprintf(w, "split: train=%d val=%d test=%d\n", len(p.split.Train), len(p.split.Val), len(p.split.Test))

	if p.edgeIndex != nil {
		g, err := connectivity.ToGraph(p.edgeIndex, p.edgeWeight, ds.NumNodes())
		if err != nil {
			return err
		}
		deg, err := connectivity.InDegree(p.edgeIndex, p.edgeWeight, ds.NumNodes())
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "graph: nodes=%d edges=%d mean_in_degree=%.4f\n",
			g.Nodes().Len(), g.Edges().Len(), stat.Mean(deg, nil))
	}
	if ds.Len() > 0 {
		rec, err := ds.Get(0)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "first: %s\n", rec)
	}
	return nil
}

func (a *app) loadAll(ctx context.Context, w io.Writer, p *pipeline) error {
	if ctx == nil {
		ctx = context.Background()
	}
	metrics := loader.NewMetrics(prometheus.NewRegistry())
	l, err := loader.New(p.ds, a.cfg.Loader.Loader(), loader.WithLogger(a.logger), loader.WithMetrics(metrics))
	if err != nil {
		return err
	}

	start := time.Now()
	n := 0
	for _, err := range l.All(ctx, p.split.Train) {
		if err != nil {
			return err
		}
		n++
	}
	fmt.Fprintf(w, "loaded: batches=%d mode=%s elapsed=%s\n", n, l.Config().Mode, time.Since(start).Round(time.Millisecond))
	return nil
}
