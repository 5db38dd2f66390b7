// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package model

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/g3d/asset"
)

// uvAreaEpsilon is the smallest |det| of a triangle's UV edge matrix that
// still yields a usable tangent.
const uvAreaEpsilon = 1e-10

var up = mgl32.Vec3{0, 1, 0}

// BuildVertices validates rec and returns its vertices with a tangent frame.
//
// Tangents and bitangents are accumulated per triangle from position and UV
// deltas, averaged over the triangles sharing each vertex and normalized.
// Triangles with zero UV area contribute nothing; their indices are
// returned in degenerate. Vertices left without a contribution get an
// orthonormal frame derived from their normal.
//
// The result depends only on rec, so identical input yields identical
// tangents.
func BuildVertices(rec *asset.MeshRecord) (vertices []Vertex, degenerate []int, err error) {
	if err := validate(rec); err != nil {
		return nil, nil, err
	}

	n := rec.VertexCount()
	vertices = make([]Vertex, n)
	for i := range vertices {
		v := &vertices[i]
		v.Position = rec.Positions[i]
		if rec.TexCoords != nil {
			v.TexCoords = rec.TexCoords[i]
		}
		v.Normal = up
		if rec.Normals != nil {
			if nrm := mgl32.Vec3(rec.Normals[i]); nrm.Len() > 0 {
				v.Normal = nrm.Normalize()
			}
		}
	}

	tangents := make([]mgl32.Vec3, n)
	bitangents := make([]mgl32.Vec3, n)
	contributions := make([]int, n)

	for tri := range rec.TriangleCount() {
		idx := rec.Indices[tri*3 : tri*3+3]
		v0, v1, v2 := &vertices[idx[0]], &vertices[idx[1]], &vertices[idx[2]]

		dPos1 := mgl32.Vec3(v1.Position).Sub(v0.Position)
		dPos2 := mgl32.Vec3(v2.Position).Sub(v0.Position)
		dUV1 := mgl32.Vec2(v1.TexCoords).Sub(v0.TexCoords)
		dUV2 := mgl32.Vec2(v2.TexCoords).Sub(v0.TexCoords)

		det := dUV1.X()*dUV2.Y() - dUV1.Y()*dUV2.X()
		if math32.Abs(det) < uvAreaEpsilon {
			degenerate = append(degenerate, tri)
			continue
		}
		r := 1 / det
		tangent := dPos1.Mul(dUV2.Y()).Sub(dPos2.Mul(dUV1.Y())).Mul(r)
		// Texture V grows downward, so the bitangent is flipped.
		bitangent := dPos2.Mul(dUV1.X()).Sub(dPos1.Mul(dUV2.X())).Mul(-r)

		for _, i := range idx {
			tangents[i] = tangents[i].Add(tangent)
			bitangents[i] = bitangents[i].Add(bitangent)
			contributions[i]++
		}
	}

	for i := range vertices {
		v := &vertices[i]
		if contributions[i] > 0 {
			inv := 1 / float32(contributions[i])
			t, b := tangents[i].Mul(inv), bitangents[i].Mul(inv)
			if t.Len() > uvAreaEpsilon && b.Len() > uvAreaEpsilon {
				v.Tangent = t.Normalize()
				v.Bitangent = b.Normalize()
				continue
			}
		}
		v.Tangent, v.Bitangent = frameFromNormal(v.Normal)
	}
	return vertices, degenerate, nil
}

// frameFromNormal returns a tangent and bitangent orthonormal to n.
func frameFromNormal(n mgl32.Vec3) (tangent, bitangent mgl32.Vec3) {
	ref := mgl32.Vec3{1, 0, 0}
	if math32.Abs(n.X()) > 0.9 {
		ref = mgl32.Vec3{0, 0, 1}
	}
	tangent = ref.Sub(n.Mul(n.Dot(ref))).Normalize()
	bitangent = n.Cross(tangent)
	return tangent, bitangent
}

func validate(rec *asset.MeshRecord) error {
	n := rec.VertexCount()
	switch {
	case n == 0:
		return fmt.Errorf("%w: mesh %q has no vertices", ErrInvalidMesh, rec.Name)
	case len(rec.Indices) == 0 || len(rec.Indices)%3 != 0:
		return fmt.Errorf("%w: mesh %q has %d indices, want a non-zero multiple of 3",
			ErrInvalidMesh, rec.Name, len(rec.Indices))
	case rec.TexCoords != nil && len(rec.TexCoords) != n:
		return fmt.Errorf("%w: mesh %q has %d texture coordinates for %d vertices",
			ErrInvalidMesh, rec.Name, len(rec.TexCoords), n)
	case rec.Normals != nil && len(rec.Normals) != n:
		return fmt.Errorf("%w: mesh %q has %d normals for %d vertices",
			ErrInvalidMesh, rec.Name, len(rec.Normals), n)
	}
	for i, idx := range rec.Indices {
		if int(idx) >= n {
			return fmt.Errorf("%w: mesh %q index %d is %d, only %d vertices",
				ErrInvalidMesh, rec.Name, i, idx, n)
		}
	}
	return nil
}
