package embedding

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/blas/gonum"
)

var impl gonum.Implementation

// MeanPool averages the rows of states. All rows must share one width.
func MeanPool(states [][]float32) ([]float32, error) {
	if len(states) == 0 || len(states[0]) == 0 {
		return nil, errors.New("no hidden states to pool")
	}
	dim := len(states[0])
	out := make([]float32, dim)
	for i, row := range states {
		if len(row) != dim {
			return nil, errors.New("hidden states have inconsistent widths")
		}
		if i == 0 {
			copy(out, row)
			continue
		}
		impl.Saxpy(dim, 1, row, 1, out, 1)
	}
	impl.Sscal(dim, 1/float32(len(states)), out, 1)
	return out, nil
}

// Normalize scales v in place to unit L2 norm. A zero or non-finite norm is an error.
func Normalize(v []float32) error {
	if len(v) == 0 {
		return errors.New("empty vector")
	}
	n := impl.Snrm2(len(v), v, 1)
	if n == 0 || math.IsNaN(float64(n)) || math.IsInf(float64(n), 0) {
		return errors.New("vector norm is zero or not finite")
	}
	impl.Sscal(len(v), 1/n, v, 1)
	return nil
}

// checkUnit verifies every element is finite and the norm is 1 within tol.
func checkUnit(v []float32, tol float64) error {
	if len(v) == 0 {
		return errors.New("empty vector")
	}
	var sum float64
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return errors.New("vector has non-finite elements")
		}
		sum += f * f
	}
	if math.Abs(math.Sqrt(sum)-1) > tol {
		return errors.New("vector is not unit length")
	}
	return nil
}
