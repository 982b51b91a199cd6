package loader

import (
	"fmt"
	"runtime"
)

// Mode selects how samples are collated.
type Mode string

// Collation modes.
const (
	ModeStack Mode = "stack" // new leading batch axis
	ModeUnion Mode = "union" // disjoint union of graphs
)

// Config controls batch construction.
type Config struct {
	Workers   int  // Batches built concurrently.
	BatchSize int  // Samples per batch.
	Mode      Mode // Collation mode.
	DropLast  bool // Drop a trailing batch smaller than BatchSize.
}

// DefaultConfig returns stacked batches of 32 built on every CPU.
func DefaultConfig() Config {
	return Config{
		Workers:   runtime.NumCPU(),
		BatchSize: 32,
		Mode:      ModeStack,
	}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers %d < 1", ErrInvalidConfig, c.Workers)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: batch size %d < 1", ErrInvalidConfig, c.BatchSize)
	}
	if c.Mode != ModeStack && c.Mode != ModeUnion {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}
	return nil
}

// chunks splits indices into batches of size.
func (c Config) chunks(indices []int) [][]int {
	var out [][]int
	for start := 0; start < len(indices); start += c.BatchSize {
		end := min(start+c.BatchSize, len(indices))
		if end-start < c.BatchSize && c.DropLast {
			break
		}
		out = append(out, indices[start:end])
	}
	return out
}
