// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package kernels implements covariance functions ("kernels") for
// Gaussian-process models.
//
// A kernel is a parameterized function from two batches of input vectors to a
// covariance matrix. Kernels never return the covariance densely: Forward
// returns a lazy.Matrix picked to match the structure of the computation, so
// that downstream inference can run implicit linear algebra against it. The
// Linear kernel, for instance, returns the symmetric root form R Rᵀ when
// called with the same inputs on both sides (training) and the general
// two-factor form A Bᵀ for cross-covariances (prediction), both with O(n·d)
// matrix-vector products. The Multitask kernel composes a data kernel with a
// small task covariance through a lazy Kronecker product.
//
// Kernel parameters are plain tensors registered on the embedded Base along
// with optional priors (package priors); an external optimization loop owns
// their mutation between Forward calls. Configuration errors (bad dimensions,
// bad ranks) and shape mismatches panic through gomlx/exceptions; callers
// that prefer errors can recover them with exceptions.Try.
package kernels

import (
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gogp/lazy"
	"github.com/gomlx/gogp/priors"
	"github.com/gomlx/gogp/types/shapes"
	"github.com/gomlx/gogp/types/tensors"
)

// Kernel is a covariance function over batches of input vectors.
type Kernel interface {
	// Forward evaluates the covariance between the rows of x1 and x2, each of
	// shape (batch?, n, d), returning a lazy matrix of shape (batch?, n1, n2).
	Forward(x1, x2 *tensors.Tensor) lazy.Matrix
}

// Func adapts a plain function producing a dense covariance tensor into a
// Kernel: the dense result is wrapped in lazy.Wrap so it composes uniformly
// with the lazy-matrix algebra (e.g. as the data kernel of a Multitask).
type Func func(x1, x2 *tensors.Tensor) *tensors.Tensor

// Forward calls the function and wraps its dense result.
func (f Func) Forward(x1, x2 *tensors.Tensor) lazy.Matrix {
	return lazy.Wrap(f(x1, x2))
}

var _ Kernel = Func(nil)

// Parameter is a named kernel hyperparameter tensor with an optional prior.
// The tensor is owned by the kernel; the external optimizer mutates it in
// place between Forward calls.
type Parameter struct {
	Name  string
	Value *tensors.Tensor
	Prior priors.Prior
}

// Base carries the machinery shared by all kernel modules: the registry of
// named parameters with their priors, and the optional restriction to a
// subset of input coordinates (active dimensions). Concrete kernels embed it.
type Base struct {
	params     []*Parameter
	byName     map[string]*Parameter
	activeDims []int
}

// RegisterParameter adds a named parameter with an optional prior. Names must
// be unique within a kernel.
func (b *Base) RegisterParameter(name string, value *tensors.Tensor, prior priors.Prior) {
	if b.byName == nil {
		b.byName = make(map[string]*Parameter)
	}
	if _, found := b.byName[name]; found {
		exceptions.Panicf("kernels: parameter %q registered twice", name)
	}
	param := &Parameter{Name: name, Value: value, Prior: prior}
	b.params = append(b.params, param)
	b.byName[name] = param
}

// Parameter returns the tensor registered under name, which must exist.
func (b *Base) Parameter(name string) *tensors.Tensor {
	param, found := b.byName[name]
	if !found {
		exceptions.Panicf("kernels: no parameter %q registered", name)
	}
	return param.Value
}

// Parameters returns the registered parameters in registration order.
func (b *Base) Parameters() []*Parameter {
	return slices.Clone(b.params)
}

// PriorLogProb sums the log-density of every registered parameter under its
// prior. Parameters without a prior contribute zero.
func (b *Base) PriorLogProb() float64 {
	total := 0.0
	for _, param := range b.params {
		if param.Prior != nil {
			total += priors.LogProbTensor(param.Prior, param.Value)
		}
	}
	return total
}

// SetActiveDims restricts the kernel to the given input coordinates. Indices
// must be non-negative; bounds against actual inputs are only checkable at
// Forward time.
func (b *Base) SetActiveDims(dims []int) {
	for _, d := range dims {
		if d < 0 {
			exceptions.Panicf("kernels: active dimension %d is negative", d)
		}
	}
	b.activeDims = slices.Clone(dims)
}

// ActiveDims returns the active input coordinates, or nil when the kernel
// reads all of them.
func (b *Base) ActiveDims() []int { return slices.Clone(b.activeDims) }

// SliceActiveDims selects the active coordinates from the last axis of x.
// Without active dimensions configured it returns x unchanged (no copy).
func (b *Base) SliceActiveDims(x *tensors.Tensor) *tensors.Tensor {
	if b.activeDims == nil {
		return x
	}
	if x.Rank() < 2 {
		exceptions.Panicf("kernels: inputs must have rank 2 or 3, got shape %s", x.Shape())
	}
	width := x.Cols()
	for _, d := range b.activeDims {
		if d >= width {
			exceptions.Panicf("kernels: active dimension %d out of range for input of shape %s", d, x.Shape())
		}
	}
	dims := slices.Clone(x.Shape().Dimensions)
	dims[len(dims)-1] = len(b.activeDims)
	result := tensors.FromShape(shapes.Make(dims...))
	srcFlat := x.Flat()
	dstFlat := result.Flat()
	numRows := len(srcFlat) / max(width, 1)
	for row := 0; row < numRows; row++ {
		for i, d := range b.activeDims {
			dstFlat[row*len(b.activeDims)+i] = srcFlat[row*width+d]
		}
	}
	return result
}
