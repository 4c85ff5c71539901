// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gogp/lazy"
	"github.com/gomlx/gogp/priors"
	"github.com/gomlx/gogp/types/shapes"
	"github.com/gomlx/gogp/types/tensors"
)

// Linear is the linear (dot-product) kernel:
//
//	k(x1, x2) = (x1 - o)ᵀ (x2 - o) + v
//
// with a learned offset vector o and a learned scalar variance v.
//
// Its Forward never forms the n×n covariance: with identical inputs on both
// sides it returns lazy.Root of the single centered input (symmetric, PSD,
// the training path), otherwise lazy.Matmul of the two centered inputs (the
// cross-covariance path), in both cases shifted by the variance. A
// matrix-vector product K·w against the result costs O(n·d) instead of O(n²).
//
// Create it with NewLinear.
type Linear struct {
	Base
	numDimensions int
}

// LinearConfig configures a Linear kernel. It is created with NewLinear,
// changed with the With* methods and turned into the kernel by Done.
type LinearConfig struct {
	numDimensions                int
	variancePrior, offsetPrior   priors.Prior
	varianceBounds, offsetBounds *priors.Bounds
	activeDims                   []int
}

// NewLinear starts the configuration of a Linear kernel over input vectors of
// the given dimensionality -- needed up front to size the offset parameter.
// Call Done to build the kernel.
func NewLinear(numDimensions int) *LinearConfig {
	return &LinearConfig{numDimensions: numDimensions}
}

// WithVariancePrior sets a prior over the variance parameter.
func (c *LinearConfig) WithVariancePrior(p priors.Prior) *LinearConfig {
	c.variancePrior = p
	return c
}

// WithVarianceBounds sets numeric bounds for the variance, converted into a
// prior (an explicit WithVariancePrior wins over bounds).
func (c *LinearConfig) WithVarianceBounds(lower, upper float64) *LinearConfig {
	c.varianceBounds = &priors.Bounds{Lower: lower, Upper: upper}
	return c
}

// WithOffsetPrior sets an elementwise prior over the offset parameter.
func (c *LinearConfig) WithOffsetPrior(p priors.Prior) *LinearConfig {
	c.offsetPrior = p
	return c
}

// WithOffsetBounds sets numeric bounds for the offset elements, converted
// into a prior (an explicit WithOffsetPrior wins over bounds).
func (c *LinearConfig) WithOffsetBounds(lower, upper float64) *LinearConfig {
	c.offsetBounds = &priors.Bounds{Lower: lower, Upper: upper}
	return c
}

// WithActiveDims restricts the kernel to the given input coordinates. Their
// count must equal the configured number of dimensions.
func (c *LinearConfig) WithActiveDims(dims ...int) *LinearConfig {
	c.activeDims = dims
	return c
}

// Done validates the configuration and builds the Linear kernel. It panics on
// configuration errors: numDimensions < 1, an active-dimensions list whose
// length differs from numDimensions, or inverted bounds.
func (c *LinearConfig) Done() *Linear {
	if c.numDimensions < 1 {
		exceptions.Panicf("kernels.NewLinear: numDimensions must be positive, got %d", c.numDimensions)
	}
	if c.activeDims != nil && len(c.activeDims) != c.numDimensions {
		exceptions.Panicf("kernels.NewLinear: got %d active dimensions, must match numDimensions=%d",
			len(c.activeDims), c.numDimensions)
	}
	k := &Linear{numDimensions: c.numDimensions}
	if c.activeDims != nil {
		k.SetActiveDims(c.activeDims)
	}
	k.RegisterParameter("variance", tensors.FromShape(shapes.Make(1)),
		priors.FromBounds(c.variancePrior, c.varianceBounds))
	k.RegisterParameter("offset", tensors.FromShape(shapes.Make(c.numDimensions)),
		priors.FromBounds(c.offsetPrior, c.offsetBounds))
	return k
}

// NumDimensions returns the input dimensionality the kernel was built for.
func (k *Linear) NumDimensions() int { return k.numDimensions }

// Variance returns the scalar variance parameter tensor.
func (k *Linear) Variance() *tensors.Tensor { return k.Parameter("variance") }

// Offset returns the offset parameter tensor, of length NumDimensions.
func (k *Linear) Offset() *tensors.Tensor { return k.Parameter("offset") }

// Forward computes the covariance between the rows of x1 and x2, each of
// shape (batch?, n, numDimensions).
//
// When x1 and x2 are the same tensor, or elementwise equal, the result is the
// symmetric root form (x1-o)(x1-o)ᵀ + v; otherwise the general two-factor
// form (x1-o)(x2-o)ᵀ + v. It panics with a dimension-mismatch error when the
// inputs' last dimension differs from the registered offset's length.
func (k *Linear) Forward(x1, x2 *tensors.Tensor) lazy.Matrix {
	x1 = k.SliceActiveDims(x1)
	x2 = k.SliceActiveDims(x2)
	k.checkInput(x1)
	k.checkInput(x2)
	offset := k.Offset()
	centered1 := x1.SubRowVector(offset)
	var prod lazy.Matrix
	if x1 == x2 || x1.Equal(x2) {
		prod = lazy.Root(centered1)
	} else {
		prod = lazy.Matmul(centered1, x2.SubRowVector(offset))
	}
	return prod.Add(k.Variance())
}

func (k *Linear) checkInput(x *tensors.Tensor) {
	if x.Rank() < 2 {
		exceptions.Panicf("kernels.Linear: inputs must have rank 2 or 3, got shape %s", x.Shape())
	}
	if x.Cols() != k.numDimensions {
		exceptions.Panicf("kernels.Linear: dimension mismatch, kernel built for %d input dimensions, got input of shape %s",
			k.numDimensions, x.Shape())
	}
}

var _ Kernel = (*Linear)(nil)
