// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"math"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gogp/lazy"
	"github.com/gomlx/gogp/priors"
	"github.com/gomlx/gogp/types/shapes"
	"github.com/gomlx/gogp/types/tensors"
)

// RBF is the squared-exponential (radial basis function) kernel:
//
//	k(x1, x2) = exp(-‖x1 - x2‖² / (2 ℓ²))
//
// with a learned lengthscale ℓ, stored unconstrained as log ℓ
// (zero-initialized, so ℓ starts at 1).
//
// The RBF covariance has no low-rank product structure to exploit, so
// Forward computes it densely and wraps it in lazy.Wrap -- it still composes
// with the lazy algebra, e.g. as the data factor of a Multitask kernel.
//
// Create it with NewRBF.
type RBF struct {
	Base
}

// RBFConfig configures an RBF kernel; see NewRBF.
type RBFConfig struct {
	lengthscalePrior  priors.Prior
	lengthscaleBounds *priors.Bounds
	activeDims        []int
}

// NewRBF starts the configuration of an RBF kernel. Call Done to build it.
func NewRBF() *RBFConfig {
	return &RBFConfig{}
}

// WithLengthscalePrior sets a prior over the log-lengthscale parameter.
func (c *RBFConfig) WithLengthscalePrior(p priors.Prior) *RBFConfig {
	c.lengthscalePrior = p
	return c
}

// WithLengthscaleBounds sets numeric bounds for the log-lengthscale,
// converted into a prior (an explicit prior wins over bounds).
func (c *RBFConfig) WithLengthscaleBounds(lower, upper float64) *RBFConfig {
	c.lengthscaleBounds = &priors.Bounds{Lower: lower, Upper: upper}
	return c
}

// WithActiveDims restricts the kernel to the given input coordinates.
func (c *RBFConfig) WithActiveDims(dims ...int) *RBFConfig {
	c.activeDims = dims
	return c
}

// Done builds the RBF kernel.
func (c *RBFConfig) Done() *RBF {
	k := &RBF{}
	if c.activeDims != nil {
		k.SetActiveDims(c.activeDims)
	}
	k.RegisterParameter("log_lengthscale", tensors.FromShape(shapes.Make(1)),
		priors.FromBounds(c.lengthscalePrior, c.lengthscaleBounds))
	return k
}

// LogLengthscale returns the unconstrained log-lengthscale parameter tensor.
func (k *RBF) LogLengthscale() *tensors.Tensor { return k.Parameter("log_lengthscale") }

// Forward computes the dense RBF covariance between the rows of x1 and x2,
// each of shape (batch?, n, d), wrapped as a lazy matrix of shape
// (batch?, n1, n2). The two inputs must agree on d and batching.
func (k *RBF) Forward(x1, x2 *tensors.Tensor) lazy.Matrix {
	x1 = k.SliceActiveDims(x1)
	x2 = k.SliceActiveDims(x2)
	if x1.Rank() < 2 || x2.Rank() < 2 {
		exceptions.Panicf("kernels.RBF: inputs must have rank 2 or 3, got shapes %s and %s", x1.Shape(), x2.Shape())
	}
	if x1.Rank() != x2.Rank() || x1.Cols() != x2.Cols() ||
		(x1.Rank() == 3 && x1.Shape().Dim(0) != x2.Shape().Dim(0)) {
		exceptions.Panicf("kernels.RBF: dimension mismatch between inputs of shapes %s and %s", x1.Shape(), x2.Shape())
	}
	n1, n2, d := x1.Rows(), x2.Rows(), x1.Cols()
	scale := 2 * math.Exp(2*k.LogLengthscale().At(0))
	var result *tensors.Tensor
	if x1.Rank() == 3 {
		result = tensors.FromShape(shapes.Make(x1.Shape().Dim(0), n1, n2))
	} else {
		result = tensors.FromShape(shapes.Make(n1, n2))
	}
	for batch := 0; batch < x1.NumMatrices(); batch++ {
		f1 := x1.Flat()[batch*n1*d : (batch+1)*n1*d]
		f2 := x2.Flat()[batch*n2*d : (batch+1)*n2*d]
		dst := result.Flat()[batch*n1*n2 : (batch+1)*n1*n2]
		for i := 0; i < n1; i++ {
			for j := 0; j < n2; j++ {
				dist2 := 0.0
				for c := 0; c < d; c++ {
					diff := f1[i*d+c] - f2[j*d+c]
					dist2 += diff * diff
				}
				dst[i*n2+j] = math.Exp(-dist2 / scale)
			}
		}
	}
	return lazy.Wrap(result)
}

var _ Kernel = (*RBF)(nil)
