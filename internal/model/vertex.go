// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package model

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gputypes"
)

// VertexSize is the byte stride of an encoded Vertex.
const VertexSize = 56

// Vertex is the per-vertex input of the lit pipeline.
type Vertex struct {
	Position  [3]float32
	TexCoords [2]float32
	Normal    [3]float32
	Tangent   [3]float32
	Bitangent [3]float32
}

// VertexLayout describes Vertex at shader locations 0 through 4.
var VertexLayout = gputypes.VertexBufferLayout{
	ArrayStride: VertexSize,
	StepMode:    gputypes.VertexStepModeVertex,
	Attributes: []gputypes.VertexAttribute{
		{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
		{Format: gputypes.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 1},
		{Format: gputypes.VertexFormatFloat32x3, Offset: 20, ShaderLocation: 2},
		{Format: gputypes.VertexFormatFloat32x3, Offset: 32, ShaderLocation: 3},
		{Format: gputypes.VertexFormatFloat32x3, Offset: 44, ShaderLocation: 4},
	},
}

func putFloats(buf []byte, vs ...float32) []byte {
	for _, v := range vs {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
		buf = buf[4:]
	}
	return buf
}

// EncodeVertices packs vertices little-endian at VertexSize stride.
func EncodeVertices(vertices []Vertex) []byte {
	out := make([]byte, len(vertices)*VertexSize)
	buf := out
	for i := range vertices {
		v := &vertices[i]
		buf = putFloats(buf, v.Position[:]...)
		buf = putFloats(buf, v.TexCoords[:]...)
		buf = putFloats(buf, v.Normal[:]...)
		buf = putFloats(buf, v.Tangent[:]...)
		buf = putFloats(buf, v.Bitangent[:]...)
	}
	return out
}

// EncodeIndices packs indices as little-endian uint32.
func EncodeIndices(indices []uint32) []byte {
	out := make([]byte, len(indices)*4)
	for i, idx := range indices {
		binary.LittleEndian.PutUint32(out[i*4:], idx)
	}
	return out
}
