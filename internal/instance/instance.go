// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package instance manages per-instance transforms uploaded to a vertex
// buffer stepped once per instance.
package instance

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/g3d/internal/resource"
)

// ErrCapacityExceeded is returned by Set when more instances are given than
// the buffer was allocated for.
var ErrCapacityExceeded = errors.New("instance: capacity exceeded")

// RawSize is the encoded size of one instance: a mat4 model matrix followed
// by a mat3 normal matrix.
const RawSize = (16 + 9) * 4

// Layout describes the instance buffer at shader locations 5 to 11.
var Layout = gputypes.VertexBufferLayout{
	ArrayStride: RawSize,
	StepMode:    gputypes.VertexStepModeInstance,
	Attributes: []gputypes.VertexAttribute{
		{Format: gputypes.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 5},
		{Format: gputypes.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 6},
		{Format: gputypes.VertexFormatFloat32x4, Offset: 32, ShaderLocation: 7},
		{Format: gputypes.VertexFormatFloat32x4, Offset: 48, ShaderLocation: 8},
		{Format: gputypes.VertexFormatFloat32x3, Offset: 64, ShaderLocation: 9},
		{Format: gputypes.VertexFormatFloat32x3, Offset: 76, ShaderLocation: 10},
		{Format: gputypes.VertexFormatFloat32x3, Offset: 88, ShaderLocation: 11},
	},
}

// Instance places one copy of a model.
type Instance struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
}

// Model returns translation * rotation.
func (in Instance) Model() mgl32.Mat4 {
	return mgl32.Translate3D(in.Position[0], in.Position[1], in.Position[2]).Mul4(in.Rotation.Mat4())
}

// Normal returns the rotation part used to transform normals. Instances
// carry no scale, so it needs no inverse transpose.
func (in Instance) Normal() mgl32.Mat3 {
	return in.Rotation.Mat4().Mat3()
}

func (in Instance) encode(dst []byte) {
	m, n := in.Model(), in.Normal()
	for i, v := range m {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
	for i, v := range n {
		binary.LittleEndian.PutUint32(dst[64+i*4:], math.Float32bits(v))
	}
}

// Set is a fixed-capacity instance buffer.
type Set struct {
	mgr      *resource.Manager
	buf      resource.BufferHandle
	capacity int
	count    int
}

// New allocates a buffer for capacity instances. The set starts empty.
func New(mgr *resource.Manager, capacity int) (*Set, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("instance: capacity %d must be positive", capacity)
	}
	buf, err := mgr.CreateEmptyBuffer("instance_buffer", uint64(capacity)*RawSize, gputypes.BufferUsageVertex)
	if err != nil {
		return nil, err
	}
	return &Set{mgr: mgr, buf: buf, capacity: capacity}, nil
}

// Set replaces the instances with one WriteBuffer. More than Capacity
// instances fail with ErrCapacityExceeded and leave the set unchanged.
func (s *Set) Set(instances []Instance) error {
	if len(instances) > s.capacity {
		return fmt.Errorf("%w: %d instances, capacity %d", ErrCapacityExceeded, len(instances), s.capacity)
	}
	if len(instances) > 0 {
		data := make([]byte, len(instances)*RawSize)
		for i := range instances {
			instances[i].encode(data[i*RawSize:])
		}
		if err := s.mgr.WriteBuffer(s.buf, 0, data); err != nil {
			return err
		}
	}
	s.count = len(instances)
	return nil
}

// Count returns the number of instances last set.
func (s *Set) Count() int { return s.count }

// Capacity returns the maximum number of instances.
func (s *Set) Capacity() int { return s.capacity }

// Buffer returns the instance vertex buffer.
func (s *Set) Buffer() resource.BufferHandle { return s.buf }

// Release frees the buffer. The set is empty afterwards.
func (s *Set) Release() {
	if s.buf.Valid() {
		_ = s.mgr.Release(s.buf)
		s.buf = resource.InvalidHandle
	}
	s.count = 0
}

// Grid lays out perRow*perRow instances on the XZ plane, spacing units
// apart, row by row along X. Each instance is turned 45 degrees about the
// axis through its position; the one at the origin is not rotated.
func Grid(perRow int, spacing float32) []Instance {
	out := make([]Instance, 0, perRow*perRow)
	half := float32(perRow) / 2
	for z := range perRow {
		for x := range perRow {
			pos := mgl32.Vec3{spacing * (float32(x) - half), 0, spacing * (float32(z) - half)}
			rot := mgl32.QuatIdent()
			if pos.Len() > 0 {
				rot = mgl32.QuatRotate(mgl32.DegToRad(45), pos.Normalize())
			}
			out = append(out, Instance{Position: pos, Rotation: rot})
		}
	}
	return out
}
