// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package resource

import "errors"

var (
	// ErrInvalidHandle is returned for zero, unknown or released handles.
	ErrInvalidHandle = errors.New("resource: invalid handle")

	// ErrSizeMismatch is returned when a write does not fit the buffer.
	ErrSizeMismatch = errors.New("resource: write exceeds buffer size")

	// ErrInvalidPixels is returned when pixel data does not match the extent.
	ErrInvalidPixels = errors.New("resource: pixel data does not match texture size")

	// ErrUnsupportedFormat is returned for texture formats the manager cannot upload.
	ErrUnsupportedFormat = errors.New("resource: unsupported texture format")

	// ErrBudgetExceeded is returned when an allocation would exceed the memory budget.
	ErrBudgetExceeded = errors.New("resource: memory budget exceeded")

	// ErrZeroSize is returned for empty buffers and zero-area textures.
	ErrZeroSize = errors.New("resource: zero size")
)
