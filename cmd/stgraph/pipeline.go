package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/born-ml/stgraph/internal/config"
	"github.com/born-ml/stgraph/internal/connectivity"
	"github.com/born-ml/stgraph/internal/data"
	"github.com/born-ml/stgraph/internal/dataset"
	"github.com/born-ml/stgraph/internal/preprocessing"
	"github.com/born-ml/stgraph/internal/tensor"
)

var (
	errNoSeries   = errors.New("no series: set dataset.path or --series")
	errGraphNodes = errors.New("graph and series node counts differ")
)

// scaler is a Transform fitted on masked data.
type scaler interface {
	data.Transform
	FitMasked(x, mask *tensor.RawTensor, p string) error
}

// pipeline is a dataset built from the configuration, with its split and
// graph.
type pipeline struct {
	ds         *dataset.Dataset
	split      dataset.Split
	edgeIndex  *tensor.RawTensor
	edgeWeight *tensor.RawTensor
	scaler     data.Transform
}

func buildPipeline(cfg config.Config, logger *slog.Logger) (*pipeline, error) {
	if cfg.Dataset.Path == "" {
		return nil, errNoSeries
	}
	series, mask, err := loadSeries(cfg.Dataset.Path, cfg.Dataset.Channels)
	if err != nil {
		return nil, err
	}
	logger.Debug("series loaded", "path", cfg.Dataset.Path, "shape", series.Shape().String())

	p := &pipeline{}
	opts := append(cfg.Window.Options(), dataset.WithMask(mask))
	if cfg.Connectivity.Path != "" {
		if p.edgeIndex, p.edgeWeight, err = loadGraph(cfg.Connectivity, series.Shape()[1]); err != nil {
			return nil, err
		}
		logger.Debug("graph loaded", "path", cfg.Connectivity.Path, "edges", connectivity.NumEdges(p.edgeIndex))
		opts = append(opts, dataset.WithConnectivity(p.edgeIndex, p.edgeWeight))
	}

	// Window geometry first, so the split is known before fitting.
	plain, err := dataset.New(series, opts...)
	if err != nil {
		return nil, err
	}
	if p.split, err = cfg.Dataset.Splitter(plain.SampleSpan() - 1).Split(plain.Len()); err != nil {
		return nil, err
	}

	p.ds = plain
	if cfg.Scaler.Kind != "none" {
		if p.scaler, err = fitScaler(cfg, plain, series, mask, p.split.Train); err != nil {
			return nil, err
		}
		opts = append(opts,
			dataset.WithScaler(dataset.KeyInput, p.scaler),
			dataset.WithScaler(dataset.KeyTarget, p.scaler),
		)
		if p.ds, err = dataset.New(series, opts...); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// fitScaler fits on the steps covered by training samples only.
func fitScaler(cfg config.Config, ds *dataset.Dataset, series, mask *tensor.RawTensor, train []int) (data.Transform, error) {
	var s scaler
	switch cfg.Scaler.Kind {
	case "standard":
		s = preprocessing.NewStandardScaler(cfg.Scaler.Axes...)
	case "minmax":
		s = preprocessing.NewMinMaxScaler(cfg.Scaler.Axes...)
	default:
		return nil, fmt.Errorf("%w: scaler %q", config.ErrInvalidConfig, cfg.Scaler.Kind)
	}
	if len(train) == 0 {
		return nil, fmt.Errorf("%w: no training samples to fit the scaler", dataset.ErrInvalidWindow)
	}

	steps := min(ds.NumSteps(), train[len(train)-1]*cfg.Window.Stride+ds.Window())
	x, err := tensor.Narrow(series, 0, 0, steps)
	if err != nil {
		return nil, err
	}
	m, err := tensor.Narrow(mask, 0, 0, steps)
	if err != nil {
		return nil, err
	}
	if err := s.FitMasked(x, m, dataset.TargetPattern); err != nil {
		return nil, err
	}
	return s, nil
}

func loadGraph(cfg config.ConnectivityConfig, numNodes int) (edgeIndex, edgeWeight *tensor.RawTensor, err error) {
	dist, err := loadDistances(cfg.Path)
	if err != nil {
		return nil, nil, err
	}
	if n, _ := dist.Dims(); n != numNodes {
		return nil, nil, fmt.Errorf("%w: %s has %d nodes, series %d", errGraphNodes, cfg.Path, n, numNodes)
	}
	adj := connectivity.GaussianKernel(dist, cfg.Theta, cfg.Threshold)
	edgeIndex, edgeWeight = connectivity.FromDense(adj, cfg.SelfLoops)
	return edgeIndex, edgeWeight, nil
}
