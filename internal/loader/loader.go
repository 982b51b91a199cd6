// Package loader builds batches of dataset samples concurrently.
package loader

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/born-ml/stgraph/internal/batch"
	"github.com/born-ml/stgraph/internal/data"
)

// ErrInvalidConfig is returned for unusable loader settings.
var ErrInvalidConfig = errors.New("invalid loader config")

// Source provides samples by index. *dataset.Dataset satisfies it; Get must
// be safe for concurrent use.
type Source interface {
	Len() int
	Get(i int) (*data.Record, error)
}

// Loader turns sample indices into collated batches.
type Loader struct {
	src     Source
	cfg     Config
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger. Default slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(ld *Loader) { ld.logger = l }
}

// WithMetrics sets the collectors. Default: unregistered collectors.
func WithMetrics(m *Metrics) Option {
	return func(ld *Loader) { ld.metrics = m }
}

// New returns a loader over src.
func New(src Source, cfg Config, opts ...Option) (*Loader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l := &Loader{src: src, cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	if l.metrics == nil {
		l.metrics = NewMetrics(nil)
	}
	return l, nil
}

// Config returns the loader configuration.
func (l *Loader) Config() Config { return l.cfg }

// NumBatches returns the number of batches Batches builds for n indices.
func (l *Loader) NumBatches(n int) int {
	if l.cfg.DropLast {
		return n / l.cfg.BatchSize
	}
	return (n + l.cfg.BatchSize - 1) / l.cfg.BatchSize
}

// Batches builds one batch per BatchSize indices, at most Workers at a time,
// and returns them in index order. The first error cancels the remaining
// work and is returned.
func (l *Loader) Batches(ctx context.Context, indices []int) ([]*data.Record, error) {
	chunks := l.cfg.chunks(indices)
	out := make([]*data.Record, len(chunks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.cfg.Workers)
	for i, chunk := range chunks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := l.build(chunk)
			if err != nil {
				return fmt.Errorf("batch %d: %w", i, err)
			}
			out[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// All yields batches in index order, building up to Workers batches ahead.
// Iteration stops after the first error.
func (l *Loader) All(ctx context.Context, indices []int) iter.Seq2[*data.Record, error] {
	return func(yield func(*data.Record, error) bool) {
		step := l.cfg.Workers * l.cfg.BatchSize
		for start := 0; start < len(indices); start += step {
			end := min(start+step, len(indices))
			batches, err := l.Batches(ctx, indices[start:end])
			if err != nil {
				yield(nil, err)
				return
			}
			for _, b := range batches {
				if !yield(b, nil) {
					return
				}
			}
		}
	}
}

func (l *Loader) build(indices []int) (*data.Record, error) {
	start := time.Now()
	records := make([]*data.Record, len(indices))
	for i, idx := range indices {
		r, err := l.src.Get(idx)
		if err != nil {
			return nil, err
		}
		records[i] = r
	}
	l.metrics.records.Add(float64(len(records)))

	var (
		b   *data.Record
		err error
	)
	switch l.cfg.Mode {
	case ModeUnion:
		b, err = batch.Union(records)
	default:
		b, err = batch.Stack(records)
	}
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	mode := string(l.cfg.Mode)
	l.metrics.batches.WithLabelValues(mode).Inc()
	l.metrics.batchSeconds.WithLabelValues(mode).Observe(elapsed.Seconds())
	l.logger.Debug("batch built",
		slog.Int("size", len(records)),
		slog.String("mode", mode),
		slog.Duration("elapsed", elapsed))
	return b, nil
}
