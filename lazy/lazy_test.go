// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lazy

import (
	"math/rand/v2"
	"testing"

	"github.com/gomlx/gogp/types/shapes"
	"github.com/gomlx/gogp/types/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-12

// denseMatVec multiplies the materialized matrix by v, the slow reference the
// implicit products are checked against.
func denseMatVec(t *testing.T, m Matrix, v *tensors.Tensor) *tensors.Tensor {
	t.Helper()
	dense := m.Materialize()
	shape := m.Shape()
	rows, cols := shape.Dim(-2), shape.Dim(-1)
	batches := 1
	out := tensors.FromShape(shapes.Make(rows))
	if shape.Rank() == 3 {
		batches = shape.Dim(0)
		out = tensors.FromShape(shapes.Make(batches, rows))
	}
	for batch := 0; batch < batches; batch++ {
		for i := 0; i < rows; i++ {
			acc := 0.0
			for j := 0; j < cols; j++ {
				var mv, vv float64
				if shape.Rank() == 3 {
					mv = dense.At(batch, i, j)
				} else {
					mv = dense.At(i, j)
				}
				if v.Rank() == 2 {
					vv = v.At(batch, j)
				} else {
					vv = v.At(j)
				}
				acc += mv * vv
			}
			if shape.Rank() == 3 {
				out.Set(acc, batch, i)
			} else {
				out.Set(acc, i)
			}
		}
	}
	return out
}

func randomTensor(rng *rand.Rand, dimensions ...int) *tensors.Tensor {
	t := tensors.FromShape(shapes.Make(dimensions...))
	flat := t.Flat()
	for i := range flat {
		flat[i] = rng.NormFloat64()
	}
	return t
}

func TestRootMatchesMatmul(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 0))
	x := randomTensor(rng, 7, 3)
	root := Root(x)
	matmul := Matmul(x, x)
	require.True(t, root.Shape().Equal(shapes.Make(7, 7)))
	require.True(t, root.Shape().Equal(matmul.Shape()))
	require.True(t, root.Materialize().InDelta(matmul.Materialize(), tolerance))

	v := randomTensor(rng, 7)
	require.True(t, root.MatVec(v).InDelta(matmul.MatVec(v), tolerance))
}

func TestRootMatVec(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 0))
	for _, dims := range [][]int{{5, 2}, {1, 4}, {4, 8, 3}} {
		root := Root(randomTensor(rng, dims...))
		n := root.Shape().Dim(-1)
		v := randomTensor(rng, n)
		require.True(t, root.MatVec(v).InDelta(denseMatVec(t, root, v), tolerance),
			"factor dims %v", dims)
	}

	// Batched matrix with batched vectors.
	root := Root(randomTensor(rng, 4, 8, 3))
	v := randomTensor(rng, 4, 8)
	require.True(t, root.MatVec(v).InDelta(denseMatVec(t, root, v), tolerance))
}

func TestRootSymmetry(t *testing.T) {
	rng := rand.New(rand.NewPCG(2, 0))
	dense := Root(randomTensor(rng, 6, 4)).Materialize()
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			assert.InDelta(t, dense.At(i, j), dense.At(j, i), tolerance)
		}
	}
}

func TestMatmulRectangular(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 0))
	a := randomTensor(rng, 5, 3)
	b := randomTensor(rng, 9, 3)
	m := Matmul(a, b)
	require.True(t, m.Shape().Equal(shapes.Make(5, 9)))

	v := randomTensor(rng, 9)
	require.True(t, m.MatVec(v).InDelta(denseMatVec(t, m, v), tolerance))

	// Entry check against the naive definition.
	dense := m.Materialize()
	acc := 0.0
	for d := 0; d < 3; d++ {
		acc += a.At(2, d) * b.At(4, d)
	}
	assert.InDelta(t, acc, dense.At(2, 4), tolerance)
}

func TestMatmulValidation(t *testing.T) {
	rng := rand.New(rand.NewPCG(4, 0))
	require.Panics(t, func() { Matmul(randomTensor(rng, 5, 3), randomTensor(rng, 5, 4)) })
	require.Panics(t, func() { Matmul(randomTensor(rng, 5, 3), randomTensor(rng, 2, 5, 3)) })
	require.Panics(t, func() { Matmul(randomTensor(rng, 2, 5, 3), randomTensor(rng, 3, 5, 3)) })
	require.Panics(t, func() { Matmul(randomTensor(rng, 5), randomTensor(rng, 5)) })
}

func TestWrap(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 0))
	values := randomTensor(rng, 6, 4)
	m := Wrap(values)
	require.True(t, m.Shape().Equal(shapes.Make(6, 4)))
	require.Same(t, values, m.Materialize())

	v := randomTensor(rng, 4)
	require.True(t, m.MatVec(v).InDelta(denseMatVec(t, m, v), tolerance))

	require.Panics(t, func() { m.MatVec(randomTensor(rng, 5)) })
	require.Panics(t, func() { Wrap(randomTensor(rng, 4)) })
}

func TestShiftedScalar(t *testing.T) {
	rng := rand.New(rand.NewPCG(6, 0))
	x := randomTensor(rng, 5, 3)
	shifted := Root(x).Add(tensors.FromValue([]float64{0.75}))
	require.True(t, shifted.Shape().Equal(shapes.Make(5, 5)))

	// Every entry of the dense form is the base entry plus the constant.
	base := Root(x).Materialize()
	dense := shifted.Materialize()
	for i := 0; i < 5; i++ {
		for j := 0; j < 5; j++ {
			assert.InDelta(t, base.At(i, j)+0.75, dense.At(i, j), tolerance)
		}
	}

	v := randomTensor(rng, 5)
	require.True(t, shifted.MatVec(v).InDelta(denseMatVec(t, shifted, v), tolerance))
}

func TestShiftedBroadcastTerm(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 0))
	base := Wrap(randomTensor(rng, 4, 6))

	// A row term broadcast over the rows.
	row := randomTensor(rng, 6)
	shifted := base.Add(row)
	dense := shifted.Materialize()
	for i := 0; i < 4; i++ {
		for j := 0; j < 6; j++ {
			assert.InDelta(t, base.Materialize().At(i, j)+row.At(j), dense.At(i, j), tolerance)
		}
	}
	v := randomTensor(rng, 6)
	require.True(t, shifted.MatVec(v).InDelta(denseMatVec(t, shifted, v), tolerance))

	// A full term, and stacking two shifts.
	full := randomTensor(rng, 4, 6)
	stacked := shifted.Add(full)
	require.True(t, stacked.MatVec(v).InDelta(denseMatVec(t, stacked, v), tolerance))

	// Non-broadcastable term.
	require.Panics(t, func() { base.Add(randomTensor(rng, 5)) })
	require.Panics(t, func() { base.Add(randomTensor(rng, 2, 4, 6)) })
}

func TestSum(t *testing.T) {
	rng := rand.New(rand.NewPCG(8, 0))
	x := randomTensor(rng, 5, 3)
	a := Root(x)
	b := Wrap(randomTensor(rng, 5, 5))
	sum := Sum(a, b)
	require.True(t, sum.Shape().Equal(shapes.Make(5, 5)))
	require.True(t, sum.Materialize().InDelta(a.Materialize().Add(b.Materialize()), tolerance))

	v := randomTensor(rng, 5)
	require.True(t, sum.MatVec(v).InDelta(denseMatVec(t, sum, v), tolerance))

	require.Panics(t, func() { Sum(a, Wrap(randomTensor(rng, 4, 4))) })
}

func TestKroneckerShape(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 0))
	c := Wrap(randomTensor(rng, 2, 2))
	d := Wrap(randomTensor(rng, 10, 7))
	k := Kronecker(c, d)
	require.True(t, k.Shape().Equal(shapes.Make(20, 14)))
	require.True(t, k.Materialize().Shape().Equal(shapes.Make(20, 14)))

	batched := Kronecker(c, Wrap(randomTensor(rng, 3, 10, 7)))
	require.True(t, batched.Shape().Equal(shapes.Make(3, 20, 14)))

	require.Panics(t, func() { Kronecker(Wrap(randomTensor(rng, 3, 2, 2)), d) })
}

func TestKroneckerBlockStructure(t *testing.T) {
	rng := rand.New(rand.NewPCG(10, 0))
	c := randomTensor(rng, 2, 3)
	d := randomTensor(rng, 4, 5)
	dense := Kronecker(Wrap(c), Wrap(d)).Materialize()
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 4; k++ {
				for l := 0; l < 5; l++ {
					assert.InDelta(t, c.At(i, j)*d.At(k, l), dense.At(i*4+k, j*5+l), tolerance)
				}
			}
		}
	}
}

func TestKroneckerMatVec(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 0))
	c := Wrap(randomTensor(rng, 3, 3))

	// Lazy right factor: the product must still match the dense reference.
	x := randomTensor(rng, 6, 2)
	k := Kronecker(c, Root(x))
	v := randomTensor(rng, 18)
	require.True(t, k.MatVec(v).InDelta(denseMatVec(t, k, v), tolerance))

	// Rectangular right factor.
	k = Kronecker(c, Matmul(randomTensor(rng, 4, 2), randomTensor(rng, 7, 2)))
	v = randomTensor(rng, 21)
	require.True(t, k.MatVec(v).InDelta(denseMatVec(t, k, v), tolerance))

	// Batched right factor, shared and per-batch vectors.
	k = Kronecker(c, Root(randomTensor(rng, 2, 5, 3)))
	v = randomTensor(rng, 15)
	require.True(t, k.MatVec(v).InDelta(denseMatVec(t, k, v), tolerance))
	vb := randomTensor(rng, 2, 15)
	require.True(t, k.MatVec(vb).InDelta(denseMatVec(t, k, vb), tolerance))

	// Kronecker shifted by a scalar.
	shifted := k.Add(tensors.FromValue([]float64{-0.5}))
	require.True(t, shifted.MatVec(v).InDelta(denseMatVec(t, shifted, v), tolerance))
}

func TestZeroSized(t *testing.T) {
	empty := tensors.FromShape(shapes.Make(0, 3))
	root := Root(empty)
	require.True(t, root.Shape().Equal(shapes.Make(0, 0)))
	require.Equal(t, 0, len(root.Materialize().Flat()))
	out := root.MatVec(tensors.FromShape(shapes.Make(0)))
	require.True(t, out.Shape().Equal(shapes.Make(0)))

	// Zero inner dimension: the product is a zero matrix, not an error.
	wide := Root(tensors.FromShape(shapes.Make(4, 0)))
	require.True(t, wide.Shape().Equal(shapes.Make(4, 4)))
	require.Equal(t, []float64{0, 0, 0, 0}, wide.MatVec(tensors.FromValue([]float64{1, 1, 1, 1})).Flat())
}
