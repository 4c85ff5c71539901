// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package lazy implements lazy covariance-matrix representations.
//
// A lazy Matrix stands for a logical matrix without materializing it. Kernels
// return lazy matrices so that downstream inference code can run implicit
// linear algebra (matrix-vector products, solves) exploiting the algebraic
// structure of each representation, instead of paying for the full dense
// product.
//
// The set of variants is closed:
//
//   - Root(R): the product R Rᵀ of a single factor with itself. Always
//     symmetric and positive semi-definite. MatVec costs O(n·d) instead of
//     the O(n²) of the dense form.
//   - Matmul(A, B): the product A Bᵀ of two independent factors, possibly
//     rectangular and non-symmetric. Same O(n·d) MatVec.
//   - Wrap(T): a plain dense matrix behind the Matrix interface, so dense
//     and lazy operands compose uniformly.
//   - Kronecker(C, D): the Kronecker product C ⊗ D, never formed densely;
//     MatVec uses the identity (C ⊗ D)·vec(X) = vec(C X Dᵀ).
//
// Add returns a ShiftedMatrix layering a broadcastable tensor term on top of
// any Matrix, and Sum adds two lazy matrices of the same shape.
//
// Matrices may carry one leading batch axis, following the shape conventions
// of package shapes: a batched Matrix has a rank-3 shape (batch, rows, cols).
//
// All variants borrow the factor tensors they are built from -- they do not
// copy. The caller must keep those tensors unchanged for as long as the lazy
// matrix is in use.
package lazy

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gogp/types/shapes"
	"github.com/gomlx/gogp/types/tensors"
)

// Matrix is a lazy matrix: a logical (batch?, rows, cols) matrix supporting
// implicit products without being formed densely.
type Matrix interface {
	// Shape returns the logical shape: (rows, cols), or (batch, rows, cols)
	// for batched matrices.
	Shape() shapes.Shape

	// MatVec computes the implicit matrix-vector product M·v.
	//
	// v must have rank 1 with length cols. For batched matrices v may instead
	// have rank 2 with shape (batch, cols): one vector per batch element; a
	// rank-1 v is broadcast over the batch. The result has shape (rows) or
	// (batch, rows) accordingly.
	MatVec(v *tensors.Tensor) *tensors.Tensor

	// Add returns a new lazy matrix representing M + term, with term
	// broadcastable to M's shape (a size-1 tensor adds a constant to every
	// entry). It panics if term cannot broadcast to the matrix shape.
	Add(term *tensors.Tensor) Matrix

	// Materialize forces the matrix to its dense form. It may share storage
	// with the variant's factors; use sparingly, it defeats the point of the
	// lazy representation except for small matrices.
	Materialize() *tensors.Tensor
}

// matVecTarget validates v against the matrix shape and allocates the result
// tensor. It returns the number of batch elements to loop over and whether v
// carries its own batch axis.
func matVecTarget(m Matrix, v *tensors.Tensor) (out *tensors.Tensor, batches int, batchedV bool) {
	shape := m.Shape()
	rows, cols := shape.Dim(-2), shape.Dim(-1)
	batches = 1
	if shape.Rank() == 3 {
		batches = shape.Dim(0)
	}
	switch v.Rank() {
	case 1:
		if v.Shape().Dim(0) != cols {
			exceptions.Panicf("lazy: MatVec of %s matrix with vector of shape %s", shape, v.Shape())
		}
	case 2:
		if shape.Rank() != 3 {
			exceptions.Panicf("lazy: MatVec of unbatched %s matrix with batched vector %s", shape, v.Shape())
		}
		if v.Shape().Dim(0) != batches || v.Shape().Dim(1) != cols {
			exceptions.Panicf("lazy: MatVec of %s matrix with vector of shape %s", shape, v.Shape())
		}
		batchedV = true
	default:
		exceptions.Panicf("lazy: MatVec requires a rank-1 or rank-2 vector, got shape %s", v.Shape())
	}
	if shape.Rank() == 3 {
		out = tensors.FromShape(shapes.Make(batches, rows))
	} else {
		out = tensors.FromShape(shapes.Make(rows))
	}
	return
}

// vecSlice returns the batch-th input vector held in v.
func vecSlice(v *tensors.Tensor, batch int, batchedV bool) []float64 {
	if !batchedV {
		return v.Flat()
	}
	cols := v.Shape().Dim(1)
	return v.Flat()[batch*cols : (batch+1)*cols]
}

// outSlice returns the batch-th result vector held in out, as allocated by
// matVecTarget.
func outSlice(out *tensors.Tensor, batch int) []float64 {
	rows := out.Shape().Dim(-1)
	if out.Rank() == 1 {
		return out.Flat()
	}
	return out.Flat()[batch*rows : (batch+1)*rows]
}
