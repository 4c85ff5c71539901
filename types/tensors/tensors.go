// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tensors implements a minimal float64 Tensor: a multidimensional
// array of rank 1 to 3, stored flat in row-major order.
//
// It is the value type handed to kernels (batches of input vectors) and the
// factor type borrowed by the lazy matrix variants in package lazy. For the
// actual dense linear algebra it interoperates with gonum: Matrix returns a
// *mat.Dense view sharing the tensor's storage.
//
// Shape conventions follow package shapes: a rank-2 tensor is (rows, cols)
// and a rank-3 tensor is (batch, rows, cols).
package tensors

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gogp/types/shapes"
	"gonum.org/v1/gonum/mat"
)

// Tensor is a float64 multidimensional array of rank 1 to 3.
//
// Tensors are created with FromShape, FromValue, FromFlatDataAndDimensions or
// FromDense. The zero value is not valid.
type Tensor struct {
	shape shapes.Shape
	flat  []float64
}

// MultiDimensionSlice lists the Go slice types FromValue accepts.
type MultiDimensionSlice interface {
	[]float64 | [][]float64 | [][][]float64
}

// FromShape returns a zero-initialized Tensor of the given shape.
func FromShape(shape shapes.Shape) *Tensor {
	if shape.Rank() < 1 || shape.Rank() > 3 {
		exceptions.Panicf("tensors.FromShape(%s): only ranks 1 to 3 are supported", shape)
	}
	return &Tensor{shape: shape.Clone(), flat: make([]float64, shape.Size())}
}

// FromFlatDataAndDimensions creates a Tensor with the given dimensions,
// backed by the flat row-major data given. The data is borrowed, not copied.
func FromFlatDataAndDimensions(data []float64, dimensions ...int) *Tensor {
	shape := shapes.Make(dimensions...)
	if shape.Rank() < 1 || shape.Rank() > 3 {
		exceptions.Panicf("tensors.FromFlatDataAndDimensions(%s): only ranks 1 to 3 are supported", shape)
	}
	if len(data) != shape.Size() {
		exceptions.Panicf("tensors.FromFlatDataAndDimensions(%s): data has %d values, shape needs %d",
			shape, len(data), shape.Size())
	}
	return &Tensor{shape: shape, flat: data}
}

// FromScalarAndDimensions creates a Tensor of the given dimensions with every
// element set to value.
func FromScalarAndDimensions(value float64, dimensions ...int) *Tensor {
	t := FromShape(shapes.Make(dimensions...))
	for ii := range t.flat {
		t.flat[ii] = value
	}
	return t
}

// FromValue creates a Tensor from a (nested) slice literal, copying the data.
func FromValue[S MultiDimensionSlice](value S) *Tensor {
	switch v := any(value).(type) {
	case []float64:
		return FromFlatDataAndDimensions(slices.Clone(v), len(v))
	case [][]float64:
		rows, cols := len(v), 0
		if rows > 0 {
			cols = len(v[0])
		}
		t := FromShape(shapes.Make(rows, cols))
		for ii, row := range v {
			if len(row) != cols {
				exceptions.Panicf("tensors.FromValue: ragged slice, row %d has %d values, row 0 has %d", ii, len(row), cols)
			}
			copy(t.flat[ii*cols:], row)
		}
		return t
	case [][][]float64:
		batch, rows, cols := len(v), 0, 0
		if batch > 0 {
			rows = len(v[0])
			if rows > 0 {
				cols = len(v[0][0])
			}
		}
		t := FromShape(shapes.Make(batch, rows, cols))
		for bb, m := range v {
			if len(m) != rows {
				exceptions.Panicf("tensors.FromValue: ragged slice, batch element %d has %d rows, element 0 has %d", bb, len(m), rows)
			}
			for ii, row := range m {
				if len(row) != cols {
					exceptions.Panicf("tensors.FromValue: ragged slice, row (%d, %d) has %d values, wanted %d", bb, ii, len(row), cols)
				}
				copy(t.flat[(bb*rows+ii)*cols:], row)
			}
		}
		return t
	}
	return nil // Unreachable, the type set is closed.
}

// FromDense creates a rank-2 Tensor borrowing the backing data of a gonum
// dense matrix. It panics if the matrix has padding (a stride different from
// its width), which never happens for matrices created with mat.NewDense.
func FromDense(m *mat.Dense) *Tensor {
	raw := m.RawMatrix()
	if raw.Stride != raw.Cols && raw.Rows > 1 {
		exceptions.Panicf("tensors.FromDense: matrix stride %d != cols %d, cannot borrow storage", raw.Stride, raw.Cols)
	}
	return &Tensor{shape: shapes.Make(raw.Rows, raw.Cols), flat: raw.Data[:raw.Rows*raw.Cols]}
}

// Shape of the Tensor.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// Rank of the Tensor's shape.
func (t *Tensor) Rank() int { return t.shape.Rank() }

// Flat returns the tensor's row-major backing data. It is a borrowed view,
// not a copy.
func (t *Tensor) Flat() []float64 { return t.flat }

// At returns the element at the given indices, one per axis.
func (t *Tensor) At(indices ...int) float64 {
	return t.flat[t.flatIndex(indices)]
}

// Set assigns the element at the given indices, one per axis.
func (t *Tensor) Set(value float64, indices ...int) {
	t.flat[t.flatIndex(indices)] = value
}

func (t *Tensor) flatIndex(indices []int) int {
	if len(indices) != t.shape.Rank() {
		exceptions.Panicf("Tensor.At/Set: got %d indices for shape %s", len(indices), t.shape)
	}
	pos := 0
	for axis, idx := range indices {
		dim := t.shape.Dimensions[axis]
		if idx < 0 || idx >= dim {
			exceptions.Panicf("Tensor.At/Set: index %d out-of-bounds for axis %d of shape %s", idx, axis, t.shape)
		}
		pos = pos*dim + idx
	}
	return pos
}

// Clone returns a deep copy of the Tensor.
func (t *Tensor) Clone() *Tensor {
	return &Tensor{shape: t.shape.Clone(), flat: slices.Clone(t.flat)}
}

// Equal reports whether the two tensors have the same shape and exactly equal
// elements. This is the predicate kernels use to pick the symmetric
// root-product path, so it is exact equality, not a tolerance comparison.
func (t *Tensor) Equal(other *Tensor) bool {
	if !t.shape.Equal(other.shape) {
		return false
	}
	return slices.Equal(t.flat, other.flat)
}

// InDelta reports whether the two tensors have the same shape and every
// element within delta of each other.
func (t *Tensor) InDelta(other *Tensor, delta float64) bool {
	if !t.shape.Equal(other.shape) {
		return false
	}
	for ii, v := range t.flat {
		diff := v - other.flat[ii]
		if diff < -delta || diff > delta {
			return false
		}
	}
	return true
}

// NumMatrices returns the number of rank-2 matrices stacked in this tensor:
// the batch dimension for rank-3 tensors, 1 otherwise.
func (t *Tensor) NumMatrices() int {
	if t.Rank() == 3 {
		return t.shape.Dim(0)
	}
	return 1
}

// Rows returns the penultimate dimension, the number of rows of each matrix.
func (t *Tensor) Rows() int { return t.shape.Dim(-2) }

// Cols returns the last dimension, the number of columns of each matrix.
func (t *Tensor) Cols() int { return t.shape.Dim(-1) }

// Matrix returns the batch-th matrix as a *mat.Dense view sharing the
// tensor's storage: mutations are visible both ways. The tensor must have
// rank 2 or 3, and for rank 2 batch must be 0.
//
// Matrices with zero rows or columns are returned as an empty (but valid)
// dense matrix, since gonum does not represent zero-sized matrices.
func (t *Tensor) Matrix(batch int) *mat.Dense {
	if t.Rank() < 2 {
		exceptions.Panicf("Tensor.Matrix: tensor of shape %s has no matrices", t.shape)
	}
	if batch < 0 || batch >= t.NumMatrices() {
		exceptions.Panicf("Tensor.Matrix(%d): out-of-bounds for shape %s", batch, t.shape)
	}
	rows, cols := t.Rows(), t.Cols()
	if rows == 0 || cols == 0 {
		return &mat.Dense{}
	}
	start := batch * rows * cols
	return mat.NewDense(rows, cols, t.flat[start:start+rows*cols])
}

// String prints the shape and the values of the tensor.
func (t *Tensor) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %v", t.shape, t.flat)
	return b.String()
}
