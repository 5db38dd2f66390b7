// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package uniform holds the per-frame uniform buffers shared by every draw:
// the camera view-projection and the point light.
package uniform

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/g3d/camera"
	"github.com/gogpu/g3d/internal/resource"
)

// CameraSize is the size of the camera uniform: view position (vec4)
// followed by the view-projection matrix (mat4x4).
const CameraSize = 16 + 64

// CameraBuffer is the GPU copy of the camera uniform.
type CameraBuffer struct {
	mgr    *resource.Manager
	buf    resource.BufferHandle
	matrix mgl32.Mat4
	pos    mgl32.Vec3
}

// NewCamera allocates the camera uniform buffer with an identity matrix.
func NewCamera(mgr *resource.Manager) (*CameraBuffer, error) {
	c := &CameraBuffer{mgr: mgr, matrix: mgl32.Ident4()}
	buf, err := mgr.CreateBuffer("camera_buffer", c.encode(), gputypes.BufferUsageUniform)
	if err != nil {
		return nil, err
	}
	c.buf = buf
	return c, nil
}

// Update recomputes the view-projection from cam and proj and writes it with
// a single WriteBuffer. On error the buffer and Matrix keep the last valid
// value.
func (c *CameraBuffer) Update(cam *camera.Camera, proj *camera.Projection) error {
	m, err := camera.BuildViewProjection(cam, proj)
	if err != nil {
		return err
	}
	prevM, prevPos := c.matrix, c.pos
	c.matrix, c.pos = m, cam.Position
	if err := c.mgr.WriteBuffer(c.buf, 0, c.encode()); err != nil {
		c.matrix, c.pos = prevM, prevPos
		return err
	}
	return nil
}

// Matrix returns the last view-projection written to the GPU.
func (c *CameraBuffer) Matrix() mgl32.Mat4 { return c.matrix }

// Buffer returns the uniform buffer handle.
func (c *CameraBuffer) Buffer() resource.BufferHandle { return c.buf }

// Release frees the GPU buffer.
func (c *CameraBuffer) Release() {
	if c.buf.Valid() {
		_ = c.mgr.Release(c.buf)
		c.buf = resource.InvalidHandle
	}
}

func (c *CameraBuffer) encode() []byte {
	out := make([]byte, CameraSize)
	putFloats(out, c.pos[0], c.pos[1], c.pos[2], 1)
	putFloats(out[16:], c.matrix[:]...)
	return out
}

func putFloats(dst []byte, vs ...float32) {
	for i, v := range vs {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}
