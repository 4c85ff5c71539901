// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapes defines Shape and associated tools.
//
// A Shape describes the logical dimensions of a tensor or of a lazy covariance
// matrix. This library works on float64 values only, so a Shape is just its
// dimensions -- there is no element type attached.
//
// Conventions used throughout the library:
//
//   - Rank: number of axes of a tensor.
//   - Axis: the index of a dimension. Negative axes count from the end, so
//     axis -1 is the last axis.
//   - Batch: matrices may carry one optional leading batch axis. A rank-2
//     shape is (rows, cols); a rank-3 shape is (batch, rows, cols).
//
// A dimension of zero is legal: zero-length batches of inputs must propagate
// their shapes through the kernels without failing.
package shapes

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
)

// Shape holds the dimensions of a tensor or lazy matrix.
//
// Use Make to create a new Shape.
type Shape struct {
	Dimensions []int
}

// HasShape is an interface for objects that have an associated Shape:
// tensors.Tensor, lazy matrices and Shape itself implement it.
type HasShape interface {
	Shape() Shape
}

// Make returns a Shape with the given dimensions.
// It panics if any dimension is negative -- zero is allowed.
func Make(dimensions ...int) Shape {
	s := Shape{Dimensions: slices.Clone(dimensions)}
	for _, dim := range dimensions {
		if dim < 0 {
			exceptions.Panicf("shapes.Make(%s): cannot create a shape with a negative dimension", s)
		}
	}
	return s
}

// Rank of the shape, that is, the number of dimensions.
func (s Shape) Rank() int { return len(s.Dimensions) }

// Dim returns the dimension of the given axis. axis can take negative numbers,
// in which case it counts from the end -- so axis=-1 refers to the last axis.
// It panics for an out-of-bounds axis.
func (s Shape) Dim(axis int) int {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += s.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= s.Rank() {
		exceptions.Panicf("Shape.Dim(%d) out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return s.Dimensions[adjustedAxis]
}

// Shape returns a shallow copy of itself. It implements the HasShape interface.
func (s Shape) Shape() Shape { return s }

// Size returns the number of elements needed for this shape, the product of
// all dimensions.
func (s Shape) Size() (size int) {
	size = 1
	for _, d := range s.Dimensions {
		size *= d
	}
	return
}

// Equal compares two shapes for equality of rank and dimensions.
func (s Shape) Equal(s2 Shape) bool {
	return slices.Equal(s.Dimensions, s2.Dimensions)
}

// Clone returns a deep copy of the shape.
func (s Shape) Clone() Shape {
	return Shape{Dimensions: slices.Clone(s.Dimensions)}
}

// String implements fmt.Stringer, pretty-prints the shape.
func (s Shape) String() string {
	return fmt.Sprintf("%v", s.Dimensions)
}
