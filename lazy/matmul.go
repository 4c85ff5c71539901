// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lazy

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gogp/types/shapes"
	"github.com/gomlx/gogp/types/tensors"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
)

// MatmulMatrix represents the product A Bᵀ of two independent factors.
//
// Unlike RootMatrix it carries no symmetry or definiteness guarantees: it is
// the cross-covariance form, generally rectangular (A of shape (n1, d), B of
// shape (n2, d)).
type MatmulMatrix struct {
	left, right *tensors.Tensor
}

// Matmul creates the lazy matrix A Bᵀ from the two factors. Both factors must
// share the same inner dimension d and the same batching; they are borrowed,
// not copied.
func Matmul(a, b *tensors.Tensor) *MatmulMatrix {
	if a.Rank() < 2 || b.Rank() < 2 {
		exceptions.Panicf("lazy.Matmul: factors must have rank 2 or 3, got shapes %s and %s", a.Shape(), b.Shape())
	}
	if a.Rank() != b.Rank() {
		exceptions.Panicf("lazy.Matmul: factors must have the same rank, got shapes %s and %s", a.Shape(), b.Shape())
	}
	if a.Rank() == 3 && a.Shape().Dim(0) != b.Shape().Dim(0) {
		exceptions.Panicf("lazy.Matmul: factors have mismatching batch dimensions, shapes %s and %s", a.Shape(), b.Shape())
	}
	if a.Cols() != b.Cols() {
		exceptions.Panicf("lazy.Matmul: factors have mismatching inner dimensions, shapes %s and %s", a.Shape(), b.Shape())
	}
	return &MatmulMatrix{left: a, right: b}
}

// Factors returns the borrowed factors (A, B) of the product A Bᵀ.
func (m *MatmulMatrix) Factors() (a, b *tensors.Tensor) { return m.left, m.right }

// Shape returns (batch?, n1, n2) for factors (batch?, n1, d) and (batch?, n2, d).
func (m *MatmulMatrix) Shape() shapes.Shape {
	if m.left.Rank() == 3 {
		return shapes.Make(m.left.Shape().Dim(0), m.left.Rows(), m.right.Rows())
	}
	return shapes.Make(m.left.Rows(), m.right.Rows())
}

// MatVec computes A (Bᵀ v) in O((n1+n2)·d) time, never forming A Bᵀ.
func (m *MatmulMatrix) MatVec(v *tensors.Tensor) *tensors.Tensor {
	out, batches, batchedV := matVecTarget(m, v)
	n1, n2, d := m.left.Rows(), m.right.Rows(), m.left.Cols()
	if n1 == 0 || n2 == 0 || d == 0 {
		return out
	}
	tmp := make([]float64, d)
	for batch := 0; batch < batches; batch++ {
		a := m.left.Matrix(batch).RawMatrix()
		b := m.right.Matrix(batch).RawMatrix()
		src := vecSlice(v, batch, batchedV)
		dst := outSlice(out, batch)
		vSrc := blas64.Vector{N: n2, Inc: 1, Data: src}
		vTmp := blas64.Vector{N: d, Inc: 1, Data: tmp}
		vDst := blas64.Vector{N: n1, Inc: 1, Data: dst}
		blas64.Gemv(blas.Trans, 1, b, vSrc, 0, vTmp)
		blas64.Gemv(blas.NoTrans, 1, a, vTmp, 0, vDst)
	}
	return out
}

// Add returns this matrix shifted by a broadcastable term.
func (m *MatmulMatrix) Add(term *tensors.Tensor) Matrix {
	return newShifted(m, term)
}

// Materialize computes the dense A Bᵀ.
func (m *MatmulMatrix) Materialize() *tensors.Tensor {
	out := tensors.FromShape(m.Shape())
	n1, n2, d := m.left.Rows(), m.right.Rows(), m.left.Cols()
	if n1 == 0 || n2 == 0 || d == 0 {
		return out
	}
	for batch := 0; batch < m.left.NumMatrices(); batch++ {
		dst := out.Matrix(batch)
		dst.Mul(m.left.Matrix(batch), m.right.Matrix(batch).T())
	}
	return out
}

var _ Matrix = (*MatmulMatrix)(nil)
