// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"github.com/gomlx/exceptions"
)

// SubRowVector returns a new tensor with the rank-1 tensor row subtracted
// from every row of t, broadcasting over the row and batch axes. t must have
// rank 2 or 3 and its last dimension must match len(row): anything else is a
// dimension mismatch and panics.
func (t *Tensor) SubRowVector(row *Tensor) *Tensor {
	if row.Rank() != 1 {
		exceptions.Panicf("Tensor.SubRowVector: row vector must have rank 1, got shape %s", row.shape)
	}
	if t.Rank() < 2 {
		exceptions.Panicf("Tensor.SubRowVector: tensor must have rank 2 or 3, got shape %s", t.shape)
	}
	width := row.shape.Dim(0)
	if t.Cols() != width {
		exceptions.Panicf("Tensor.SubRowVector: dimension mismatch, tensor shape %s has %d columns, row vector has %d",
			t.shape, t.Cols(), width)
	}
	result := FromShape(t.shape)
	for ii, v := range t.flat {
		result.flat[ii] = v - row.flat[ii%width]
	}
	return result
}

// Scale returns a new tensor with every element multiplied by c.
func (t *Tensor) Scale(c float64) *Tensor {
	result := FromShape(t.shape)
	for ii, v := range t.flat {
		result.flat[ii] = c * v
	}
	return result
}

// Add returns the elementwise sum of two tensors of identical shape.
func (t *Tensor) Add(other *Tensor) *Tensor {
	if !t.shape.Equal(other.shape) {
		exceptions.Panicf("Tensor.Add: shape mismatch %s vs %s", t.shape, other.shape)
	}
	result := FromShape(t.shape)
	for ii, v := range t.flat {
		result.flat[ii] = v + other.flat[ii]
	}
	return result
}
