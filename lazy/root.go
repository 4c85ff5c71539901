// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lazy

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gogp/types/shapes"
	"github.com/gomlx/gogp/types/tensors"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
)

// RootMatrix represents the product R Rᵀ of a factor R with itself.
//
// It is symmetric and positive semi-definite by construction, which
// downstream algorithms may rely on -- so it must only be built when the two
// logical factors are exactly the same tensor (the x1 == x2 training path of
// a kernel).
type RootMatrix struct {
	factor *tensors.Tensor
}

// Root creates the lazy matrix R Rᵀ from the single factor R of shape
// (batch?, n, d). The factor is borrowed, not copied.
func Root(factor *tensors.Tensor) *RootMatrix {
	if factor.Rank() < 2 {
		exceptions.Panicf("lazy.Root: factor must have rank 2 or 3, got shape %s", factor.Shape())
	}
	return &RootMatrix{factor: factor}
}

// Factor returns the borrowed root factor R.
func (m *RootMatrix) Factor() *tensors.Tensor { return m.factor }

// Shape returns (batch?, n, n) for a factor of shape (batch?, n, d).
func (m *RootMatrix) Shape() shapes.Shape {
	n := m.factor.Rows()
	if m.factor.Rank() == 3 {
		return shapes.Make(m.factor.Shape().Dim(0), n, n)
	}
	return shapes.Make(n, n)
}

// MatVec computes R (Rᵀ v) in O(n·d) time, never forming R Rᵀ.
func (m *RootMatrix) MatVec(v *tensors.Tensor) *tensors.Tensor {
	out, batches, batchedV := matVecTarget(m, v)
	n, d := m.factor.Rows(), m.factor.Cols()
	if n == 0 || d == 0 {
		return out // All products are empty or zero.
	}
	tmp := make([]float64, d)
	for batch := 0; batch < batches; batch++ {
		f := m.factor.Matrix(batch).RawMatrix()
		src := vecSlice(v, batch, batchedV)
		dst := outSlice(out, batch)
		vSrc := blas64.Vector{N: n, Inc: 1, Data: src}
		vTmp := blas64.Vector{N: d, Inc: 1, Data: tmp}
		vDst := blas64.Vector{N: n, Inc: 1, Data: dst}
		blas64.Gemv(blas.Trans, 1, f, vSrc, 0, vTmp)
		blas64.Gemv(blas.NoTrans, 1, f, vTmp, 0, vDst)
	}
	return out
}

// Add returns this matrix shifted by a broadcastable term.
func (m *RootMatrix) Add(term *tensors.Tensor) Matrix {
	return newShifted(m, term)
}

// Materialize computes the dense R Rᵀ.
func (m *RootMatrix) Materialize() *tensors.Tensor {
	out := tensors.FromShape(m.Shape())
	n, d := m.factor.Rows(), m.factor.Cols()
	if n == 0 || d == 0 {
		return out
	}
	for batch := 0; batch < m.factor.NumMatrices(); batch++ {
		f := m.factor.Matrix(batch)
		dst := out.Matrix(batch)
		dst.Mul(f, f.T())
	}
	return out
}

var _ Matrix = (*RootMatrix)(nil)
