package dataset

import "fmt"

// Split holds sample indices for each partition, in temporal order.
type Split struct {
	Train []int
	Val   []int
	Test  []int
}

// Splitter partitions samples into contiguous train, validation and test
// ranges, test last.
//
// ValLen and TestLen below 1 are fractions: TestLen of all samples, ValLen
// of the samples left after the test range. Values from 1 up are counts.
// Gap samples are dropped before each boundary so that windows of adjacent
// partitions do not overlap; Dataset.SampleSpan()-1 removes all overlap.
type Splitter struct {
	ValLen  float64
	TestLen float64
	Gap     int
}

// Split partitions n samples.
func (s Splitter) Split(n int) (Split, error) {
	if s.ValLen < 0 || s.TestLen < 0 || s.Gap < 0 {
		return Split{}, fmt.Errorf("%w: val=%v test=%v gap=%d", ErrInvalidWindow, s.ValLen, s.TestLen, s.Gap)
	}
	test := length(s.TestLen, n)
	val := length(s.ValLen, n-test)
	testStart := n - test
	valStart := testStart - val
	if valStart-s.Gap < 0 || test > n {
		return Split{}, fmt.Errorf("%w: %d samples cannot hold val=%d test=%d gap=%d",
			ErrInvalidWindow, n, val, test, s.Gap)
	}
	return Split{
		Train: span(0, valStart-s.Gap),
		Val:   span(valStart, max(valStart, testStart-s.Gap)),
		Test:  span(testStart, n),
	}, nil
}

func length(v float64, n int) int {
	if v < 1 {
		return int(v * float64(n))
	}
	return int(v)
}

func span(from, to int) []int {
	out := make([]int, 0, max(0, to-from))
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}
