// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMesh is returned for meshes with malformed index or attribute data.
	ErrInvalidMesh = errors.New("model: invalid mesh")

	// ErrInvalidMaterial is returned when a mesh references a missing material
	// or a material carries malformed pixels.
	ErrInvalidMaterial = errors.New("model: invalid material")

	// ErrDegenerateTriangle is wrapped by DegenerateTriangleError.
	ErrDegenerateTriangle = errors.New("model: degenerate triangle")
)

// DegenerateTriangleError reports a triangle whose texture coordinates span
// zero area. It is a warning: the triangle is drawn but does not contribute
// to the tangent frame of its vertices.
type DegenerateTriangleError struct {
	Mesh     string
	Triangle int
}

func (e *DegenerateTriangleError) Error() string {
	return fmt.Sprintf("model: mesh %q triangle %d has zero UV area", e.Mesh, e.Triangle)
}

func (e *DegenerateTriangleError) Unwrap() error { return ErrDegenerateTriangle }
