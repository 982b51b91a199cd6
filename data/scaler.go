// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package data

import (
	"github.com/born-ml/stgraph/internal/preprocessing"
)

// StandardScaler is a z-score Transform fitted along named axes.
type StandardScaler = preprocessing.StandardScaler

// MinMaxScaler is a [0, 1] range Transform fitted along named axes.
type MinMaxScaler = preprocessing.MinMaxScaler

// Scaler errors.
var (
	ErrNotFitted   = preprocessing.ErrNotFitted
	ErrUnknownAxis = preprocessing.ErrUnknownAxis
)

// NewStandardScaler returns an unfitted scaler reducing over axes.
func NewStandardScaler(axes ...string) *StandardScaler {
	return preprocessing.NewStandardScaler(axes...)
}

// NewMinMaxScaler returns an unfitted scaler reducing over axes.
func NewMinMaxScaler(axes ...string) *MinMaxScaler {
	return preprocessing.NewMinMaxScaler(axes...)
}
