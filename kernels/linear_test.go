// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"math/rand/v2"
	"testing"

	"github.com/gomlx/gogp/lazy"
	"github.com/gomlx/gogp/priors"
	"github.com/gomlx/gogp/types/shapes"
	"github.com/gomlx/gogp/types/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-12

func randomInputs(rng *rand.Rand, dimensions ...int) *tensors.Tensor {
	t := tensors.FromShape(shapes.Make(dimensions...))
	flat := t.Flat()
	for i := range flat {
		flat[i] = rng.NormFloat64()
	}
	return t
}

func TestLinearBranchSelection(t *testing.T) {
	rng := rand.New(rand.NewPCG(20, 0))
	k := NewLinear(3).Done()
	x := randomInputs(rng, 6, 3)

	// Same tensor on both sides: the symmetric root form.
	shifted, ok := k.Forward(x, x).(*lazy.ShiftedMatrix)
	require.True(t, ok)
	_, isRoot := shifted.Base().(*lazy.RootMatrix)
	require.True(t, isRoot)

	// A separate but elementwise-equal tensor still takes the root path.
	shifted, ok = k.Forward(x, x.Clone()).(*lazy.ShiftedMatrix)
	require.True(t, ok)
	_, isRoot = shifted.Base().(*lazy.RootMatrix)
	require.True(t, isRoot)

	// Different inputs: the general two-factor form.
	z := randomInputs(rng, 4, 3)
	shifted, ok = k.Forward(x, z).(*lazy.ShiftedMatrix)
	require.True(t, ok)
	_, isMatmul := shifted.Base().(*lazy.MatmulMatrix)
	require.True(t, isMatmul)
	require.True(t, shifted.Shape().Equal(shapes.Make(6, 4)))
}

func TestLinearSymmetry(t *testing.T) {
	rng := rand.New(rand.NewPCG(21, 0))
	k := NewLinear(4).Done()
	copy(k.Offset().Flat(), []float64{0.5, -1, 0, 2})
	k.Variance().Flat()[0] = 0.3

	x := randomInputs(rng, 8, 4)
	dense := k.Forward(x, x).Materialize()
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			assert.InDelta(t, dense.At(i, j), dense.At(j, i), tolerance)
		}
	}
}

func TestLinearVarianceShift(t *testing.T) {
	rng := rand.New(rand.NewPCG(22, 0))
	k := NewLinear(3).Done()
	offset := []float64{1, -0.5, 0.25}
	copy(k.Offset().Flat(), offset)
	const variance = 0.7
	k.Variance().Flat()[0] = variance

	x := randomInputs(rng, 5, 3)
	z := randomInputs(rng, 6, 3)
	dense := k.Forward(x, z).Materialize()
	require.True(t, dense.Shape().Equal(shapes.Make(5, 6)))
	for i := 0; i < 5; i++ {
		for j := 0; j < 6; j++ {
			want := variance
			for c := 0; c < 3; c++ {
				want += (x.At(i, c) - offset[c]) * (z.At(j, c) - offset[c])
			}
			assert.InDelta(t, want, dense.At(i, j), tolerance)
		}
	}
}

func TestLinearBatched(t *testing.T) {
	rng := rand.New(rand.NewPCG(23, 0))
	k := NewLinear(3).Done()
	x := randomInputs(rng, 2, 5, 3)
	result := k.Forward(x, x)
	require.True(t, result.Shape().Equal(shapes.Make(2, 5, 5)))

	// Each batch element is the unbatched covariance of its slice.
	dense := result.Materialize()
	for batch := 0; batch < 2; batch++ {
		single := tensors.FromFlatDataAndDimensions(x.Flat()[batch*15:(batch+1)*15], 5, 3)
		want := k.Forward(single, single).Materialize()
		for i := 0; i < 5; i++ {
			for j := 0; j < 5; j++ {
				assert.InDelta(t, want.At(i, j), dense.At(batch, i, j), tolerance)
			}
		}
	}
}

func TestLinearDimensionMismatch(t *testing.T) {
	rng := rand.New(rand.NewPCG(24, 0))
	k := NewLinear(3).Done()
	bad := randomInputs(rng, 5, 4)
	require.Panics(t, func() { k.Forward(bad, bad) })
	good := randomInputs(rng, 5, 3)
	require.Panics(t, func() { k.Forward(good, bad) })
	require.Panics(t, func() { k.Forward(randomInputs(rng, 3), good) })
}

func TestLinearZeroLengthBatch(t *testing.T) {
	k := NewLinear(3).Done()
	empty := tensors.FromShape(shapes.Make(0, 3))
	result := k.Forward(empty, empty)
	require.True(t, result.Shape().Equal(shapes.Make(0, 0)))
	require.Equal(t, 0, len(result.Materialize().Flat()))
}

func TestLinearActiveDims(t *testing.T) {
	rng := rand.New(rand.NewPCG(25, 0))
	restricted := NewLinear(2).WithActiveDims(0, 2).Done()
	full := NewLinear(2).Done()

	x := randomInputs(rng, 5, 4)
	sliced := tensors.FromShape(shapes.Make(5, 2))
	for i := 0; i < 5; i++ {
		sliced.Set(x.At(i, 0), i, 0)
		sliced.Set(x.At(i, 2), i, 1)
	}
	got := restricted.Forward(x, x).Materialize()
	want := full.Forward(sliced, sliced).Materialize()
	require.True(t, got.InDelta(want, tolerance))

	// Active dimension beyond the input width.
	narrow := randomInputs(rng, 5, 2)
	require.Panics(t, func() { restricted.Forward(narrow, narrow) })
}

func TestLinearConfigErrors(t *testing.T) {
	require.Panics(t, func() { NewLinear(0).Done() })
	require.Panics(t, func() { NewLinear(-2).Done() })
	require.Panics(t, func() { NewLinear(3).WithActiveDims(0, 1).Done() })
	require.Panics(t, func() { NewLinear(2).WithVarianceBounds(1, -1).Done() })
}

func TestLinearParametersAndPriors(t *testing.T) {
	k := NewLinear(3).
		WithVariancePrior(priors.NewNormal(0, 1)).
		WithOffsetBounds(-1, 1).
		Done()
	params := k.Parameters()
	require.Len(t, params, 2)
	require.Equal(t, "variance", params[0].Name)
	require.Equal(t, "offset", params[1].Name)
	require.NotNil(t, params[0].Prior)
	require.NotNil(t, params[1].Prior)

	// Zero-initialized parameters inside the offset bounds: finite log-prior.
	logProb := k.PriorLogProb()
	assert.False(t, logProb > 0)
	assert.InDelta(t, priors.NewNormal(0, 1).LogProb(0)+3*params[1].Prior.LogProb(0), logProb, tolerance)
}
