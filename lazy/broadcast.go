// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lazy

import (
	"github.com/gomlx/gogp/types/shapes"
	"github.com/gomlx/gogp/types/tensors"
	"github.com/pkg/errors"
)

// broadcaster evaluates a term tensor as if expanded to a (batch, rows, cols)
// target shape, under the standard right-aligned broadcasting rules: the
// term's dimensions are aligned to the target's trailing axes, and every
// aligned dimension must equal the target's or be 1 (stretched).
type broadcaster struct {
	flat    []float64
	strides [3]int // Element strides per (batch, row, col) axis; 0 where stretched.
}

func newBroadcaster(term *tensors.Tensor, target shapes.Shape) (bc broadcaster, err error) {
	bc.flat = term.Flat()
	targetDims := [3]int{1, target.Dim(-2), target.Dim(-1)}
	if target.Rank() == 3 {
		targetDims[0] = target.Dim(0)
	}
	if term.Rank() > target.Rank() {
		return bc, errors.Errorf("term of rank %d does not broadcast to target of rank %d", term.Rank(), target.Rank())
	}
	// Missing leading axes count as dimension 1.
	termDims := [3]int{1, 1, 1}
	for axis := 0; axis < term.Rank(); axis++ {
		termDims[3-term.Rank()+axis] = term.Shape().Dim(axis)
	}
	stride := 1
	for axis := 2; axis >= 0; axis-- {
		switch termDims[axis] {
		case 1:
			bc.strides[axis] = 0
		case targetDims[axis]:
			bc.strides[axis] = stride
		default:
			return bc, errors.Errorf("term axis of dimension %d does not broadcast to target dimension %d",
				termDims[axis], targetDims[axis])
		}
		stride *= termDims[axis]
	}
	return bc, nil
}

func (bc broadcaster) at(batch, i, j int) float64 {
	return bc.flat[batch*bc.strides[0]+i*bc.strides[1]+j*bc.strides[2]]
}
