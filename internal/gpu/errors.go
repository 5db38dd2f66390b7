// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/wgpu/hal"
)

// Package errors.
var (
	// ErrNoBackend is returned when no HAL backend is registered.
	ErrNoBackend = errors.New("gpu: no HAL backend registered")

	// ErrNoSuitableAdapter is returned when no adapter can present to the surface.
	ErrNoSuitableAdapter = errors.New("gpu: no adapter compatible with the surface")

	// ErrZeroArea is returned when the initial surface extent has a zero dimension.
	ErrZeroArea = errors.New("gpu: surface width and height must be non-zero")

	// ErrClosed is returned when operating on a closed context.
	ErrClosed = errors.New("gpu: context closed")
)

// InitializationError reports a failed startup step.
// Startup failures are fatal: no partial context is returned.
type InitializationError struct {
	Step string
	Err  error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("gpu: initialization failed at %s: %v", e.Step, e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

// SurfaceErrorKind classifies a surface acquisition or presentation failure.
type SurfaceErrorKind uint8

const (
	// SurfaceOther is any failure not covered by the other kinds.
	SurfaceOther SurfaceErrorKind = iota
	// SurfaceOutdated means the surface changed and must be reconfigured.
	SurfaceOutdated
	// SurfaceLost means the surface (or device) was lost.
	SurfaceLost
	// SurfaceOutOfMemory means the device ran out of memory. Fatal.
	SurfaceOutOfMemory
	// SurfaceTimeout means no texture became available in time.
	SurfaceTimeout
)

// String returns a human-readable name for the kind.
func (k SurfaceErrorKind) String() string {
	switch k {
	case SurfaceOutdated:
		return "Outdated"
	case SurfaceLost:
		return "Lost"
	case SurfaceOutOfMemory:
		return "OutOfMemory"
	case SurfaceTimeout:
		return "Timeout"
	default:
		return "Other"
	}
}

// Surface operations reported in SurfaceError.Op.
const (
	OpAcquire = "acquire surface texture"
	OpView    = "create surface view"
	OpPresent = "present"
)

// SurfaceError is returned by AcquireFrame and Present.
type SurfaceError struct {
	Op   string
	Kind SurfaceErrorKind
	Err  error
}

func (e *SurfaceError) Error() string {
	return fmt.Sprintf("gpu: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *SurfaceError) Unwrap() error { return e.Err }

// Recoverable reports whether reconfiguring the surface may fix the failure.
func (e *SurfaceError) Recoverable() bool {
	return e.Kind == SurfaceOutdated || e.Kind == SurfaceLost
}

// Fatal reports whether the render loop must stop.
func (e *SurfaceError) Fatal() bool {
	return e.Kind == SurfaceOutOfMemory
}

// classifySurfaceError maps HAL surface errors onto SurfaceErrorKind.
func classifySurfaceError(op string, err error) *SurfaceError {
	kind := SurfaceOther
	switch {
	case errors.Is(err, hal.ErrSurfaceOutdated):
		kind = SurfaceOutdated
	case errors.Is(err, hal.ErrSurfaceLost), errors.Is(err, hal.ErrDeviceLost):
		kind = SurfaceLost
	case errors.Is(err, hal.ErrDeviceOutOfMemory):
		kind = SurfaceOutOfMemory
	case errors.Is(err, hal.ErrTimeout), errors.Is(err, hal.ErrNotReady):
		kind = SurfaceTimeout
	}
	return &SurfaceError{Op: op, Kind: kind, Err: err}
}
