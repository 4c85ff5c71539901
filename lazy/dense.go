// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lazy

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gogp/types/shapes"
	"github.com/gomlx/gogp/types/tensors"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
)

// DenseMatrix is a plain dense tensor behind the Matrix interface, so that
// kernels returning dense covariances compose uniformly with the lazy
// variants (e.g. as a Kronecker factor).
type DenseMatrix struct {
	values *tensors.Tensor
}

// Wrap puts a dense (batch?, rows, cols) tensor behind the Matrix interface.
// The tensor is borrowed, not copied.
func Wrap(values *tensors.Tensor) *DenseMatrix {
	if values.Rank() < 2 {
		exceptions.Panicf("lazy.Wrap: tensor must have rank 2 or 3, got shape %s", values.Shape())
	}
	return &DenseMatrix{values: values}
}

// Shape of the wrapped tensor.
func (m *DenseMatrix) Shape() shapes.Shape { return m.values.Shape() }

// MatVec computes the ordinary dense matrix-vector product.
func (m *DenseMatrix) MatVec(v *tensors.Tensor) *tensors.Tensor {
	out, batches, batchedV := matVecTarget(m, v)
	rows, cols := m.values.Rows(), m.values.Cols()
	if rows == 0 || cols == 0 {
		return out
	}
	for batch := 0; batch < batches; batch++ {
		a := m.values.Matrix(batch).RawMatrix()
		vSrc := blas64.Vector{N: cols, Inc: 1, Data: vecSlice(v, batch, batchedV)}
		vDst := blas64.Vector{N: rows, Inc: 1, Data: outSlice(out, batch)}
		blas64.Gemv(blas.NoTrans, 1, a, vSrc, 0, vDst)
	}
	return out
}

// Add returns this matrix shifted by a broadcastable term.
func (m *DenseMatrix) Add(term *tensors.Tensor) Matrix {
	return newShifted(m, term)
}

// Materialize returns the wrapped tensor itself (still borrowed).
func (m *DenseMatrix) Materialize() *tensors.Tensor { return m.values }

var _ Matrix = (*DenseMatrix)(nil)
