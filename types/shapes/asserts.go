// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// UncheckedAxis can be used in CheckDims or AssertDims for an axis whose
// dimension doesn't matter.
const UncheckedAxis = int(-1)

// CheckDims checks that the shape has the given dimensions and rank. A value
// of -1 in dimensions means the axis can take any value and is not checked.
//
// It returns an error if the rank is different or if any of the dimensions
// don't match.
func (s Shape) CheckDims(dimensions ...int) error {
	if s.Rank() != len(dimensions) {
		return errors.Errorf("shape %s has incompatible rank %d (wanted %d)", s, s.Rank(), len(dimensions))
	}
	for ii, wantDim := range dimensions {
		if wantDim != UncheckedAxis && s.Dimensions[ii] != wantDim {
			return errors.Errorf("shape %s axis %d has dimension %d, wanted %d (shape wanted=%v)",
				s, ii, s.Dimensions[ii], wantDim, dimensions)
		}
	}
	return nil
}

// AssertDims is the panic version of CheckDims: it works as an assert clause
// and serves as documentation of the expected shapes in the middle of the
// code.
func (s Shape) AssertDims(dimensions ...int) {
	if err := s.CheckDims(dimensions...); err != nil {
		exceptions.Panicf("%+v", err)
	}
}

// CheckRank checks that the shape has the given rank, and returns an error
// otherwise.
func (s Shape) CheckRank(rank int) error {
	if s.Rank() != rank {
		return errors.Errorf("shape %s has incompatible rank %d (wanted %d)", s, s.Rank(), rank)
	}
	return nil
}

// AssertRank is the panic version of CheckRank.
func (s Shape) AssertRank(rank int) {
	if err := s.CheckRank(rank); err != nil {
		exceptions.Panicf("%+v", err)
	}
}
