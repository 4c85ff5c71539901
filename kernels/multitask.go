// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gogp/lazy"
	"github.com/gomlx/gogp/priors"
	"github.com/gomlx/gogp/types/shapes"
	"github.com/gomlx/gogp/types/tensors"
	"k8s.io/klog/v2"
)

// Tracer observes the shapes flowing through a kernel's Forward. It is the
// only observability hook: kernels never write to any output stream
// themselves. See KlogTracer for a stock implementation.
type Tracer func(stage string, shape shapes.Shape)

// KlogTracer is a Tracer that logs stages and shapes through klog at
// verbosity 2.
func KlogTracer(stage string, shape shapes.Shape) {
	klog.V(2).Infof("kernels: %s shape=%s", stage, shape)
}

// Multitask composes a data-space kernel with a small learned task covariance
// into a joint kernel over (task, input) pairs:
//
//	K((i, x1), (j, x2)) = C_task[i, j] · k_data(x1, x2)
//
// that is, the Kronecker product C_task ⊗ K_data, kept lazy: the joint
// (numTasks·n × numTasks·n) matrix is never formed, its structure is
// exploited for implicit products downstream.
//
// The task covariance is an Index sub-kernel owned by Multitask; the data
// kernel is arbitrary and supplied by the caller. Create with NewMultitask.
type Multitask struct {
	taskKernel *Index
	dataKernel Kernel
	numTasks   int
	tracer     Tracer
}

// MultitaskConfig configures a Multitask kernel; see NewMultitask.
type MultitaskConfig struct {
	dataKernel Kernel
	numTasks   int
	rank       int
	prior      priors.Prior
	tracer     Tracer
}

// NewMultitask starts the configuration of a Multitask kernel combining the
// given data kernel with a learned covariance over numTasks tasks. Call Done
// to build the kernel.
func NewMultitask(dataKernel Kernel, numTasks int) *MultitaskConfig {
	return &MultitaskConfig{dataKernel: dataKernel, numTasks: numTasks, rank: 1}
}

// WithRank sets the rank of the task covariance factor, between 1 and
// numTasks. The default is 1.
func (c *MultitaskConfig) WithRank(rank int) *MultitaskConfig {
	c.rank = rank
	return c
}

// WithTaskCovarPrior sets an elementwise prior over the task covariance
// factor.
func (c *MultitaskConfig) WithTaskCovarPrior(p priors.Prior) *MultitaskConfig {
	c.prior = p
	return c
}

// WithTracer sets an optional observability callback invoked with the shapes
// flowing through Forward. The default is no tracing.
func (c *MultitaskConfig) WithTracer(tracer Tracer) *MultitaskConfig {
	c.tracer = tracer
	return c
}

// Done validates the configuration and builds the Multitask kernel. It panics
// on configuration errors: a nil data kernel, numTasks < 1, or a rank outside
// [1, numTasks].
func (c *MultitaskConfig) Done() *Multitask {
	if c.dataKernel == nil {
		exceptions.Panicf("kernels.NewMultitask: dataKernel must not be nil")
	}
	if c.numTasks < 1 {
		exceptions.Panicf("kernels.NewMultitask: numTasks must be positive, got %d", c.numTasks)
	}
	taskKernel := NewIndex(c.numTasks).WithRank(c.rank).WithPrior(c.prior).Done()
	return &Multitask{
		taskKernel: taskKernel,
		dataKernel: c.dataKernel,
		numTasks:   c.numTasks,
		tracer:     c.tracer,
	}
}

// NumTasks returns the number of tasks of the joint kernel.
func (k *Multitask) NumTasks() int { return k.numTasks }

// TaskKernel returns the owned Index sub-kernel holding the task covariance.
func (k *Multitask) TaskKernel() *Index { return k.taskKernel }

// DataKernel returns the data-space kernel.
func (k *Multitask) DataKernel() Kernel { return k.dataKernel }

func (k *Multitask) trace(stage string, shape shapes.Shape) {
	if k.tracer != nil {
		k.tracer(stage, shape)
	}
}

// Forward evaluates the joint covariance as the lazy Kronecker product of the
// task covariance and the data covariance, of shape
// (batch?, numTasks·n1, numTasks·n2).
//
// The data kernel's Forward is invoked directly, so its own active-dimension
// restriction applies but no other calling conventions are layered on top. A
// data covariance whose shape does not match the inputs' (n1, n2) is a shape
// mismatch and panics at composition time.
func (k *Multitask) Forward(x1, x2 *tensors.Tensor) lazy.Matrix {
	checkMultitaskInput(x1)
	checkMultitaskInput(x2)
	k.trace("multitask/x1", x1.Shape())
	indices := k.taskKernel.TaskIndices()
	covarTask := k.taskKernel.Forward(indices, indices)
	covarData := k.dataKernel.Forward(x1, x2)
	k.trace("multitask/data", covarData.Shape())
	wantBatch := -1
	if x1.Rank() == 3 {
		wantBatch = x1.Shape().Dim(0)
	}
	if err := checkDataCovar(covarData.Shape(), wantBatch, x1.Rows(), x2.Rows()); err != nil {
		exceptions.Panicf("kernels.Multitask: data kernel shape mismatch: %+v", err)
	}
	result := lazy.Kronecker(covarTask, covarData)
	k.trace("multitask/result", result.Shape())
	return result
}

// Size returns the shape Forward's result will have for the given inputs,
// (batch?, numTasks·n1, numTasks·n2), without evaluating either kernel. The
// leading batch dimension is present exactly when the inputs have rank 3.
func (k *Multitask) Size(x1, x2 *tensors.Tensor) shapes.Shape {
	checkMultitaskInput(x1)
	checkMultitaskInput(x2)
	rows := k.numTasks * x1.Rows()
	cols := k.numTasks * x2.Rows()
	if x1.Rank() == 3 {
		return shapes.Make(x1.Shape().Dim(0), rows, cols)
	}
	return shapes.Make(rows, cols)
}

func checkMultitaskInput(x *tensors.Tensor) {
	if x.Rank() < 2 {
		exceptions.Panicf("kernels.Multitask: inputs must have rank 2 or 3, got shape %s", x.Shape())
	}
}

func checkDataCovar(shape shapes.Shape, wantBatch, n1, n2 int) error {
	if wantBatch >= 0 {
		return shape.CheckDims(wantBatch, n1, n2)
	}
	return shape.CheckDims(n1, n2)
}

var _ Kernel = (*Multitask)(nil)
