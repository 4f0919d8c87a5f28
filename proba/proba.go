// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package proba provides the distribution families optimized by bayescal.
//
// Custom families implement Map; the diagonal Gaussian is built in.
package proba

import (
	"github.com/born-ml/bayescal/internal/proba"
)

// Param is a flattened parameter vector.
type Param = proba.Param

// Sample is a point in the support of a distribution.
type Sample = proba.Sample

// Distribution is a member of a family, fixed by its parameter.
type Distribution = proba.Distribution

// Map is a parametric distribution family.
type Map = proba.Map

// KLGradFunc is the KL gradient oracle of a family.
type KLGradFunc = proba.KLGradFunc

// Gaussian is the diagonal Gaussian family.
type Gaussian = proba.Gaussian

// NewGaussianMap creates the diagonal Gaussian family of the given sample dimension.
//
// Parameters are laid out as [means..., log-scales...].
func NewGaussianMap(dim int) *Gaussian {
	return proba.NewGaussianMap(dim)
}
