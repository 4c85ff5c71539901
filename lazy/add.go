// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lazy

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gogp/types/shapes"
	"github.com/gomlx/gogp/types/tensors"
)

// ShiftedMatrix is a lazy matrix plus a broadcastable tensor term: the result
// of Matrix.Add. Its MatVec is the sum of the base matrix's implicit product
// and the term's contribution -- for the common case of a scalar term (the
// variance shift of the linear kernel) that contribution is just
// term·sum(v) added to every output entry, keeping the O(n·d) cost.
type ShiftedMatrix struct {
	base Matrix
	term *tensors.Tensor
	bc   broadcaster
}

func newShifted(base Matrix, term *tensors.Tensor) *ShiftedMatrix {
	bc, err := newBroadcaster(term, base.Shape())
	if err != nil {
		exceptions.Panicf("lazy: cannot add term of shape %s to matrix of shape %s: %v",
			term.Shape(), base.Shape(), err)
	}
	return &ShiftedMatrix{base: base, term: term, bc: bc}
}

// Base returns the lazy matrix being shifted.
func (m *ShiftedMatrix) Base() Matrix { return m.base }

// Term returns the borrowed broadcastable term.
func (m *ShiftedMatrix) Term() *tensors.Tensor { return m.term }

// Shape is the shape of the base matrix.
func (m *ShiftedMatrix) Shape() shapes.Shape { return m.base.Shape() }

// MatVec computes base·v + term·v, the term applied with broadcasting.
func (m *ShiftedMatrix) MatVec(v *tensors.Tensor) *tensors.Tensor {
	out := m.base.MatVec(v)
	batches := 1
	if out.Rank() == 2 {
		batches = out.Shape().Dim(0)
	}
	rows, cols := m.Shape().Dim(-2), m.Shape().Dim(-1)
	batchedV := v.Rank() == 2
	if m.term.Shape().Size() == 1 {
		// Constant shift c: (c·𝟙𝟙ᵀ)v = c·sum(v)·𝟙.
		c := m.term.Flat()[0]
		for batch := 0; batch < batches; batch++ {
			src := vecSlice(v, batch, batchedV)
			total := 0.0
			for _, value := range src {
				total += value
			}
			dst := outSlice(out, batch)
			for i := range dst {
				dst[i] += c * total
			}
		}
		return out
	}
	for batch := 0; batch < batches; batch++ {
		src := vecSlice(v, batch, batchedV)
		dst := outSlice(out, batch)
		for i := 0; i < rows; i++ {
			acc := 0.0
			for j := 0; j < cols; j++ {
				acc += m.bc.at(batch, i, j) * src[j]
			}
			dst[i] += acc
		}
	}
	return out
}

// Add layers another broadcastable term on top.
func (m *ShiftedMatrix) Add(term *tensors.Tensor) Matrix {
	return newShifted(m, term)
}

// Materialize computes the dense base matrix plus the broadcast term.
func (m *ShiftedMatrix) Materialize() *tensors.Tensor {
	out := m.base.Materialize().Clone()
	rows, cols := m.Shape().Dim(-2), m.Shape().Dim(-1)
	for batch := 0; batch < out.NumMatrices(); batch++ {
		flat := out.Flat()[batch*rows*cols : (batch+1)*rows*cols]
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				flat[i*cols+j] += m.bc.at(batch, i, j)
			}
		}
	}
	return out
}

var _ Matrix = (*ShiftedMatrix)(nil)

// SumMatrix is the lazy sum of two lazy matrices of identical shape: the
// composition used by additive kernels. Both implicit products are computed
// independently and added.
type SumMatrix struct {
	first, second Matrix
}

// Sum lazily adds two matrices of identical shape.
func Sum(first, second Matrix) *SumMatrix {
	if !first.Shape().Equal(second.Shape()) {
		exceptions.Panicf("lazy.Sum: shape mismatch %s vs %s", first.Shape(), second.Shape())
	}
	return &SumMatrix{first: first, second: second}
}

// Shape of either operand.
func (m *SumMatrix) Shape() shapes.Shape { return m.first.Shape() }

// MatVec computes first·v + second·v.
func (m *SumMatrix) MatVec(v *tensors.Tensor) *tensors.Tensor {
	return m.first.MatVec(v).Add(m.second.MatVec(v))
}

// Add returns this matrix shifted by a broadcastable term.
func (m *SumMatrix) Add(term *tensors.Tensor) Matrix {
	return newShifted(m, term)
}

// Materialize computes the dense sum of both operands.
func (m *SumMatrix) Materialize() *tensors.Tensor {
	return m.first.Materialize().Add(m.second.Materialize())
}

var _ Matrix = (*SumMatrix)(nil)
