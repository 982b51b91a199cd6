package tensor

import (
	"testing"
)

func sliceEqual[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPermute(t *testing.T) {
	t.Run("2D transpose", func(t *testing.T) {
		x := MustFromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3})
		y := Permute(x)

		if !y.Shape().Equal(Shape{3, 2}) {
			t.Fatalf("expected shape [3 2], got %v", y.Shape())
		}
		want := []float32{1, 4, 2, 5, 3, 6}
		if got := y.AsFloat32(); !sliceEqual(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("3D t n c to n t c", func(t *testing.T) {
		x := Arange(Shape{2, 3, 2}, Int64)
		y := Permute(x, 1, 0, 2)

		if !y.Shape().Equal(Shape{3, 2, 2}) {
			t.Fatalf("expected shape [3 2 2], got %v", y.Shape())
		}
		// y[n][t][c] == x[t][n][c] == t*6 + n*2 + c
		got := y.AsInt64()
		for n := 0; n < 3; n++ {
			for tt := 0; tt < 2; tt++ {
				for c := 0; c < 2; c++ {
					want := int64(tt*6 + n*2 + c)
					if v := got[n*4+tt*2+c]; v != want {
						t.Errorf("y[%d][%d][%d] = %d, want %d", n, tt, c, v, want)
					}
				}
			}
		}
	})

	t.Run("round trip", func(t *testing.T) {
		x := Arange(Shape{4, 3, 2}, Float64)
		y := Permute(Permute(x, 2, 0, 1), 1, 2, 0)
		if !Equal(x, y) {
			t.Errorf("round trip changed tensor")
		}
	})

	t.Run("invalid axes panic", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Errorf("expected panic on duplicate axis")
			}
		}()
		Permute(Zeros(Shape{2, 2}, Float32), 0, 0)
	})
}

func TestReshape(t *testing.T) {
	x := Arange(Shape{2, 6}, Float32)

	y, err := Reshape(x, Shape{3, -1})
	if err != nil {
		t.Fatalf("Reshape failed: %v", err)
	}
	if !y.Shape().Equal(Shape{3, 4}) {
		t.Errorf("expected shape [3 4], got %v", y.Shape())
	}
	if !y.SharesBuffer(x) {
		t.Errorf("reshape should return a view")
	}

	if _, err := Reshape(x, Shape{5, 2}); err == nil {
		t.Errorf("expected error for incompatible shape")
	}
	if _, err := Reshape(x, Shape{-1, -1}); err == nil {
		t.Errorf("expected error for two inferred dimensions")
	}
}

func TestCastAndFloat64s(t *testing.T) {
	x := MustFromSlice([]float32{1.5, -2.5, 0}, Shape{3})

	i := Cast(x, Int32)
	if i.DType() != Int32 {
		t.Fatalf("expected int32, got %v", i.DType())
	}
	if got := i.AsInt32(); !sliceEqual(got, []int32{1, -2, 0}) {
		t.Errorf("unexpected int32 values %v", got)
	}

	b := Cast(x, Bool)
	if got := b.AsBool(); !sliceEqual(got, []bool{true, true, false}) {
		t.Errorf("unexpected bool values %v", got)
	}

	if Cast(x, Float32) != x {
		t.Errorf("cast to same dtype should be a no-op")
	}
}

func TestCatStackNarrow(t *testing.T) {
	t.Run("cat along dim 1", func(t *testing.T) {
		a := MustFromSlice([]float32{1, 2, 3, 4}, Shape{2, 2})
		b := MustFromSlice([]float32{5, 6}, Shape{2, 1})

		c, err := Cat([]*RawTensor{a, b}, 1)
		if err != nil {
			t.Fatalf("Cat failed: %v", err)
		}
		want := []float32{1, 2, 5, 3, 4, 6}
		if got := c.AsFloat32(); !sliceEqual(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("cat rejects dtype mismatch", func(t *testing.T) {
		a := Zeros(Shape{2}, Float32)
		b := Zeros(Shape{2}, Int64)
		if _, err := Cat([]*RawTensor{a, b}, 0); err == nil {
			t.Errorf("expected dtype mismatch error")
		}
	})

	t.Run("stack adds leading dim", func(t *testing.T) {
		a := MustFromSlice([]int64{1, 2}, Shape{2})
		b := MustFromSlice([]int64{3, 4}, Shape{2})

		s, err := Stack([]*RawTensor{a, b}, 0)
		if err != nil {
			t.Fatalf("Stack failed: %v", err)
		}
		if !s.Shape().Equal(Shape{2, 2}) {
			t.Errorf("expected shape [2 2], got %v", s.Shape())
		}
		if got := s.AsInt64(); !sliceEqual(got, []int64{1, 2, 3, 4}) {
			t.Errorf("unexpected values %v", got)
		}
	})

	t.Run("narrow middle dim", func(t *testing.T) {
		x := Arange(Shape{2, 4, 1}, Float64)
		y, err := Narrow(x, 1, 1, 2)
		if err != nil {
			t.Fatalf("Narrow failed: %v", err)
		}
		want := []float64{1, 2, 5, 6}
		if got := y.AsFloat64(); !sliceEqual(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
		if _, err := Narrow(x, 1, 3, 2); err == nil {
			t.Errorf("expected out of bounds error")
		}
	})
}

func TestAllClose(t *testing.T) {
	a := MustFromSlice([]float64{1, 2, 3}, Shape{3})
	b := MustFromSlice([]float64{1, 2, 3.0000001}, Shape{3})
	if !AllClose(a, b, 1e-6) {
		t.Errorf("expected tensors to be close")
	}
	if AllClose(a, MustFromSlice([]float64{1, 2, 4}, Shape{3}), 1e-6) {
		t.Errorf("expected tensors to differ")
	}
}
