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

// Index is a kernel over task indices rather than input vectors: it holds a
// learned covariance matrix over a fixed, small set of tasks, parameterized
// in low-rank-plus-diagonal form
//
//	C = B Bᵀ + diag(exp(v))
//
// with B a (numTasks × rank) factor and v a per-task log-variance. The
// parameterization keeps C positive definite for any parameter values. Both
// parameters are zero-initialized, so the covariance starts as the identity.
//
// Create it with NewIndex.
type Index struct {
	Base
	numTasks, rank int
}

// IndexConfig configures an Index kernel; see NewIndex.
type IndexConfig struct {
	numTasks, rank int
	prior          priors.Prior
}

// NewIndex starts the configuration of an Index kernel over numTasks tasks.
// Call Done to build the kernel.
func NewIndex(numTasks int) *IndexConfig {
	return &IndexConfig{numTasks: numTasks, rank: 1}
}

// WithRank sets the rank of the covariance factor, between 1 and the number
// of tasks. The default is 1.
func (c *IndexConfig) WithRank(rank int) *IndexConfig {
	c.rank = rank
	return c
}

// WithPrior sets an elementwise prior over the covariance factor.
func (c *IndexConfig) WithPrior(p priors.Prior) *IndexConfig {
	c.prior = p
	return c
}

// Done validates the configuration and builds the Index kernel. It panics on
// configuration errors: numTasks < 1, rank < 1 or rank > numTasks.
func (c *IndexConfig) Done() *Index {
	if c.numTasks < 1 {
		exceptions.Panicf("kernels.NewIndex: numTasks must be positive, got %d", c.numTasks)
	}
	if c.rank < 1 || c.rank > c.numTasks {
		exceptions.Panicf("kernels.NewIndex: rank must be between 1 and numTasks=%d, got %d", c.numTasks, c.rank)
	}
	k := &Index{numTasks: c.numTasks, rank: c.rank}
	k.RegisterParameter("covar_factor", tensors.FromShape(shapes.Make(c.numTasks, c.rank)), c.prior)
	k.RegisterParameter("log_var", tensors.FromShape(shapes.Make(c.numTasks)), nil)
	return k
}

// NumTasks returns the number of tasks the kernel covers.
func (k *Index) NumTasks() int { return k.numTasks }

// Rank returns the rank of the covariance factor.
func (k *Index) Rank() int { return k.rank }

// CovarFactor returns the (numTasks × rank) factor parameter tensor.
func (k *Index) CovarFactor() *tensors.Tensor { return k.Parameter("covar_factor") }

// LogVar returns the per-task log-variance parameter tensor.
func (k *Index) LogVar() *tensors.Tensor { return k.Parameter("log_var") }

// CovarMatrix evaluates the full task covariance C = B Bᵀ + diag(exp(v)) as
// a lazy matrix of shape (numTasks, numTasks). The matrix is small, so it is
// computed densely.
func (k *Index) CovarMatrix() lazy.Matrix {
	return lazy.Wrap(k.evalCovar())
}

func (k *Index) evalCovar() *tensors.Tensor {
	c := lazy.Root(k.CovarFactor()).Materialize()
	logVar := k.LogVar().Flat()
	for i, v := range logVar {
		c.Set(c.At(i, i)+math.Exp(v), i, i)
	}
	return c
}

// Forward gathers entries of the task covariance for two rank-1 tensors of
// task indices: the result's (a, b) entry is C[i1[a], i2[b]]. Indices must be
// integral values in [0, numTasks).
func (k *Index) Forward(i1, i2 *tensors.Tensor) lazy.Matrix {
	if i1.Rank() != 1 || i2.Rank() != 1 {
		exceptions.Panicf("kernels.Index: task indices must have rank 1, got shapes %s and %s", i1.Shape(), i2.Shape())
	}
	covar := k.evalCovar()
	n1, n2 := i1.Shape().Dim(0), i2.Shape().Dim(0)
	result := tensors.FromShape(shapes.Make(n1, n2))
	for a := 0; a < n1; a++ {
		for b := 0; b < n2; b++ {
			result.Set(covar.At(k.taskIndex(i1, a), k.taskIndex(i2, b)), a, b)
		}
	}
	return lazy.Wrap(result)
}

func (k *Index) taskIndex(indices *tensors.Tensor, pos int) int {
	value := indices.At(pos)
	idx := int(value)
	if float64(idx) != value || idx < 0 || idx >= k.numTasks {
		exceptions.Panicf("kernels.Index: task index %g at position %d is not an integer in [0, %d)",
			value, pos, k.numTasks)
	}
	return idx
}

// TaskIndices returns the rank-1 tensor [0, 1, …, numTasks-1], the index
// vector the full covariance is evaluated on.
func (k *Index) TaskIndices() *tensors.Tensor {
	indices := tensors.FromShape(shapes.Make(k.numTasks))
	for i := 0; i < k.numTasks; i++ {
		indices.Set(float64(i), i)
	}
	return indices
}

var _ Kernel = (*Index)(nil)
