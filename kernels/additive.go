// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gogp/lazy"
	"github.com/gomlx/gogp/types/tensors"
)

// Additive is the sum of two or more kernels: its covariance is the
// entrywise sum of the parts' covariances, composed lazily -- each part keeps
// its own representation and the implicit products are simply added.
//
// Nested Additive kernels are flattened, so summing sums keeps a single flat
// list of parts.
type Additive struct {
	parts []Kernel
}

// NewAdditive sums the given kernels. At least two are required; Additive
// arguments are flattened into the part list.
func NewAdditive(first, second Kernel, rest ...Kernel) *Additive {
	parts := make([]Kernel, 0, 2+len(rest))
	for _, k := range append([]Kernel{first, second}, rest...) {
		if k == nil {
			exceptions.Panicf("kernels.NewAdditive: nil kernel part")
		}
		if add, ok := k.(*Additive); ok {
			parts = append(parts, add.parts...)
			continue
		}
		parts = append(parts, k)
	}
	return &Additive{parts: parts}
}

// Parts returns the flattened list of summed kernels.
func (k *Additive) Parts() []Kernel {
	return append([]Kernel(nil), k.parts...)
}

// Forward evaluates every part on the same inputs and returns their lazy sum.
// All parts must produce the same covariance shape.
func (k *Additive) Forward(x1, x2 *tensors.Tensor) lazy.Matrix {
	result := k.parts[0].Forward(x1, x2)
	for _, part := range k.parts[1:] {
		result = lazy.Sum(result, part.Forward(x1, x2))
	}
	return result
}

// PriorLogProb sums the parts' parameter log-priors.
func (k *Additive) PriorLogProb() float64 {
	total := 0.0
	for _, part := range k.parts {
		if withPriors, ok := part.(interface{ PriorLogProb() float64 }); ok {
			total += withPriors.PriorLogProb()
		}
	}
	return total
}

var _ Kernel = (*Additive)(nil)
