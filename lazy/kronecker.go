// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lazy

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gogp/types/shapes"
	"github.com/gomlx/gogp/types/tensors"
	"gonum.org/v1/gonum/mat"
)

// KroneckerMatrix represents the Kronecker product C ⊗ D of two lazy (or
// wrapped dense) factors: each entry C[i,j] scales a full copy of D, giving a
// block matrix of shape (rowsC·rowsD, colsC·colsD).
//
// This is the joint covariance of a multitask kernel: C the small task
// covariance, D the data covariance. The product is never formed densely;
// MatVec uses (C ⊗ D)·vec(X) = vec(C X Dᵀ), which costs one implicit MatVec
// of D per column of C plus a small dense multiply by C, instead of a product
// against the full (rowsC·rowsD)² matrix.
type KroneckerMatrix struct {
	left, right Matrix
}

// Kronecker composes two lazy matrices into their Kronecker product C ⊗ D.
//
// The left factor must be unbatched (rank-2 shape); the right factor may
// carry a leading batch axis, which the product preserves.
func Kronecker(left, right Matrix) *KroneckerMatrix {
	if left.Shape().Rank() != 2 {
		exceptions.Panicf("lazy.Kronecker: left factor must be unbatched rank-2, got shape %s", left.Shape())
	}
	if r := right.Shape().Rank(); r != 2 && r != 3 {
		exceptions.Panicf("lazy.Kronecker: right factor must have rank 2 or 3, got shape %s", right.Shape())
	}
	return &KroneckerMatrix{left: left, right: right}
}

// Factors returns the two lazy factors (C, D) of the product C ⊗ D.
func (m *KroneckerMatrix) Factors() (left, right Matrix) { return m.left, m.right }

// Shape returns (batch?, rowsC·rowsD, colsC·colsD).
func (m *KroneckerMatrix) Shape() shapes.Shape {
	ls, rs := m.left.Shape(), m.right.Shape()
	rows := ls.Dim(-2) * rs.Dim(-2)
	cols := ls.Dim(-1) * rs.Dim(-1)
	if rs.Rank() == 3 {
		return shapes.Make(rs.Dim(0), rows, cols)
	}
	return shapes.Make(rows, cols)
}

// MatVec computes (C ⊗ D)·v via vec(C X Dᵀ), with X the row-major reshape of
// v to (colsC, colsD). D is only touched through its own implicit MatVec, so
// its lazy structure is still exploited.
func (m *KroneckerMatrix) MatVec(v *tensors.Tensor) *tensors.Tensor {
	out, batches, batchedV := matVecTarget(m, v)
	ls, rs := m.left.Shape(), m.right.Shape()
	p, q := ls.Dim(0), ls.Dim(1)
	r, s := rs.Dim(-2), rs.Dim(-1)
	if p*r == 0 || q*s == 0 {
		return out
	}

	// mid[batch] = X Dᵀ of shape (q, r): row j is D applied to row j of X.
	mid := make([]*mat.Dense, batches)
	for batch := range mid {
		mid[batch] = mat.NewDense(q, r, nil)
	}
	for j := 0; j < q; j++ {
		var vj *tensors.Tensor
		if rs.Rank() == 3 {
			vj = tensors.FromShape(shapes.Make(batches, s))
			for batch := 0; batch < batches; batch++ {
				src := vecSlice(v, batch, batchedV)
				copy(vj.Flat()[batch*s:], src[j*s:(j+1)*s])
			}
		} else {
			src := vecSlice(v, 0, batchedV)
			vj = tensors.FromFlatDataAndDimensions(src[j*s:(j+1)*s], s)
		}
		wj := m.right.MatVec(vj)
		for batch := 0; batch < batches; batch++ {
			mid[batch].SetRow(j, outSlice(wj, batch))
		}
	}

	// dst = C · (X Dᵀ), row-major (p, r) is exactly the result vector.
	c := m.left.Materialize().Matrix(0)
	for batch := 0; batch < batches; batch++ {
		dst := mat.NewDense(p, r, outSlice(out, batch))
		dst.Mul(c, mid[batch])
	}
	return out
}

// Add returns this matrix shifted by a broadcastable term.
func (m *KroneckerMatrix) Add(term *tensors.Tensor) Matrix {
	return newShifted(m, term)
}

// Materialize forms the full block matrix, entry (i·rowsD+k, j·colsD+l) being
// C[i,j]·D[k,l].
func (m *KroneckerMatrix) Materialize() *tensors.Tensor {
	out := tensors.FromShape(m.Shape())
	if out.Shape().Size() == 0 {
		return out
	}
	c := m.left.Materialize()
	d := m.right.Materialize()
	p, q := c.Rows(), c.Cols()
	r, s := d.Rows(), d.Cols()
	for batch := 0; batch < out.NumMatrices(); batch++ {
		dst := out.Matrix(batch)
		block := d.Matrix(batch % d.NumMatrices())
		for i := 0; i < p; i++ {
			for j := 0; j < q; j++ {
				scale := c.At(i, j)
				for k := 0; k < r; k++ {
					for l := 0; l < s; l++ {
						dst.Set(i*r+k, j*s+l, scale*block.At(k, l))
					}
				}
			}
		}
	}
	return out
}

var _ Matrix = (*KroneckerMatrix)(nil)
