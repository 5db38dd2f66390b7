// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package uniform

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/g3d/internal/resource"
)

// LightSize is the size of the light uniform: position and color, each a
// vec3 padded to 16 bytes.
const LightSize = 32

// Light is a point light orbiting the world Y axis.
type Light struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3

	// OrbitStep is the rotation in degrees applied by each Advance.
	// Ignored when OrbitRate is non-zero.
	OrbitStep float32
	// OrbitRate is the rotation in degrees per second.
	OrbitRate float32
}

// DefaultLight is a white light at (2, 2, 2) turning one degree per frame.
func DefaultLight() Light {
	return Light{
		Position:  mgl32.Vec3{2, 2, 2},
		Color:     mgl32.Vec3{1, 1, 1},
		OrbitStep: 1,
	}
}

// Advance rotates the light about +Y for one update of length dt.
func (l *Light) Advance(dt time.Duration) {
	deg := l.OrbitStep
	if l.OrbitRate != 0 {
		deg = l.OrbitRate * float32(dt.Seconds())
	}
	if deg == 0 {
		return
	}
	q := mgl32.QuatRotate(mgl32.DegToRad(deg), mgl32.Vec3{0, 1, 0})
	l.Position = q.Rotate(l.Position)
}

func (l *Light) encode() []byte {
	out := make([]byte, LightSize)
	putFloats(out, l.Position[0], l.Position[1], l.Position[2], 0)
	putFloats(out[16:], l.Color[0], l.Color[1], l.Color[2], 0)
	return out
}

// LightBuffer is the GPU copy of a Light.
type LightBuffer struct {
	mgr *resource.Manager
	buf resource.BufferHandle
}

// NewLight allocates the light uniform buffer initialized from l.
func NewLight(mgr *resource.Manager, l *Light) (*LightBuffer, error) {
	buf, err := mgr.CreateBuffer("light_buffer", l.encode(), gputypes.BufferUsageUniform)
	if err != nil {
		return nil, err
	}
	return &LightBuffer{mgr: mgr, buf: buf}, nil
}

// Write uploads l.
func (b *LightBuffer) Write(l *Light) error {
	return b.mgr.WriteBuffer(b.buf, 0, l.encode())
}

// Buffer returns the uniform buffer handle.
func (b *LightBuffer) Buffer() resource.BufferHandle { return b.buf }

// Release frees the GPU buffer.
func (b *LightBuffer) Release() {
	if b.buf.Valid() {
		_ = b.mgr.Release(b.buf)
		b.buf = resource.InvalidHandle
	}
}
