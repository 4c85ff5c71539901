// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package priors implements prior distributions over kernel hyperparameters.
//
// A Prior only needs to report log-densities: kernels sum the log-probability
// of their registered parameters under their priors and hand the total to the
// (external) optimization loop as a regularization term. Sampling and
// anything else distribution-related is delegated to gonum's stat/distuv.
package priors

import (
	"math"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gogp/types/tensors"
	"gonum.org/v1/gonum/stat/distuv"
)

// Prior is a distribution over a scalar hyperparameter. Vector parameters
// (like the linear kernel's offset) apply their prior elementwise.
type Prior interface {
	// LogProb returns the log-density of the prior at x.
	LogProb(x float64) float64
}

// LogProbTensor sums the prior's log-density over every element of a
// parameter tensor.
func LogProbTensor(p Prior, t *tensors.Tensor) float64 {
	total := 0.0
	for _, v := range t.Flat() {
		total += p.LogProb(v)
	}
	return total
}

// Normal is a Gaussian prior.
type Normal struct {
	dist distuv.Normal
}

// NewNormal returns a Gaussian prior with the given mean and standard
// deviation. Sigma must be positive.
func NewNormal(mu, sigma float64) *Normal {
	if sigma <= 0 {
		exceptions.Panicf("priors.NewNormal: sigma must be positive, got %g", sigma)
	}
	return &Normal{dist: distuv.Normal{Mu: mu, Sigma: sigma}}
}

func (p *Normal) LogProb(x float64) float64 { return p.dist.LogProb(x) }

// Gamma is a Gamma prior, commonly placed on positive scale hyperparameters.
type Gamma struct {
	dist distuv.Gamma
}

// NewGamma returns a Gamma prior with shape alpha and rate beta, both
// positive.
func NewGamma(alpha, beta float64) *Gamma {
	if alpha <= 0 || beta <= 0 {
		exceptions.Panicf("priors.NewGamma: alpha and beta must be positive, got (%g, %g)", alpha, beta)
	}
	return &Gamma{dist: distuv.Gamma{Alpha: alpha, Beta: beta}}
}

func (p *Gamma) LogProb(x float64) float64 { return p.dist.LogProb(x) }

// SmoothedBox is a box prior with Gaussian tails: the log-density is constant
// inside [Lower, Upper] and falls off as a Normal in the distance to the box
// outside it. It is the prior numeric bounds are converted into.
type SmoothedBox struct {
	lower, upper, sigma float64
	logNorm             float64
}

// NewSmoothedBox returns a smoothed box prior over [lower, upper] with tail
// width sigma. Requires lower < upper and sigma > 0.
func NewSmoothedBox(lower, upper, sigma float64) *SmoothedBox {
	if lower >= upper {
		exceptions.Panicf("priors.NewSmoothedBox: requires lower < upper, got [%g, %g]", lower, upper)
	}
	if sigma <= 0 {
		exceptions.Panicf("priors.NewSmoothedBox: sigma must be positive, got %g", sigma)
	}
	// Total mass is the box width plus that of a full Gaussian split
	// between the two tails.
	norm := (upper - lower) + math.Sqrt(2*math.Pi)*sigma
	return &SmoothedBox{lower: lower, upper: upper, sigma: sigma, logNorm: math.Log(norm)}
}

func (p *SmoothedBox) LogProb(x float64) float64 {
	distance := 0.0
	switch {
	case x < p.lower:
		distance = p.lower - x
	case x > p.upper:
		distance = x - p.upper
	}
	return -distance*distance/(2*p.sigma*p.sigma) - p.logNorm
}

// Bounds is a numeric (lower, upper) interval for a hyperparameter, the
// lightweight alternative to handing a kernel an explicit Prior.
type Bounds struct {
	Lower, Upper float64
}

// defaultBoxSigma controls how sharply the converted box prior falls off
// outside its bounds, relative to the box width.
const defaultBoxSigma = 0.01

// FromBounds converts an (explicit prior, optional bounds) pair into a usable
// prior: the explicit prior wins if non-nil, bounds are otherwise converted
// to a SmoothedBox prior, and with neither there is no prior (nil).
// It panics if bounds are present but inverted or empty.
func FromBounds(prior Prior, bounds *Bounds) Prior {
	if prior != nil {
		return prior
	}
	if bounds == nil {
		return nil
	}
	if bounds.Lower >= bounds.Upper {
		exceptions.Panicf("priors.FromBounds: requires lower < upper, got [%g, %g]", bounds.Lower, bounds.Upper)
	}
	sigma := defaultBoxSigma * (bounds.Upper - bounds.Lower)
	return NewSmoothedBox(bounds.Lower, bounds.Upper, sigma)
}
