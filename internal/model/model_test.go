// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package model

import (
	"encoding/binary"
	"errors"
	"image/color"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/g3d/asset"
	"github.com/gogpu/g3d/internal/gputest"
	"github.com/gogpu/g3d/internal/resource"
)

func newTestLoader(t *testing.T) (*Loader, *resource.Manager, *gputest.Recorder) {
	t.Helper()
	device, queue, cleanup := gputest.NewDevice(t)
	t.Cleanup(cleanup)
	layout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{Label: "texture_bind_group_layout"})
	if err != nil {
		t.Fatalf("CreateBindGroupLayout failed: %v", err)
	}
	t.Cleanup(func() { device.DestroyBindGroupLayout(layout) })
	mgr := resource.NewManager(device, queue)
	return NewLoader(mgr, layout, Options{}), mgr, device.Recorder()
}

func quad() asset.MeshRecord {
	return asset.MeshRecord{
		Name:      "quad",
		Positions: [][3]float32{{-1, -1, 0}, {1, -1, 0}, {1, 1, 0}, {-1, 1, 0}},
		TexCoords: [][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}},
		Normals:   [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
	}
}

func approx(a, b mgl32.Vec3) bool {
	for i := range a {
		if math.Abs(float64(a[i]-b[i])) > 1e-5 {
			return false
		}
	}
	return true
}

func TestBuildVerticesQuad(t *testing.T) {
	rec := quad()
	vertices, degenerate, err := BuildVertices(&rec)
	if err != nil {
		t.Fatalf("BuildVertices failed: %v", err)
	}
	if len(degenerate) != 0 {
		t.Errorf("degenerate = %v, want none", degenerate)
	}
	for i, v := range vertices {
		if !approx(v.Tangent, mgl32.Vec3{1, 0, 0}) {
			t.Errorf("vertex %d tangent = %v, want +X", i, v.Tangent)
		}
		if !approx(v.Bitangent, mgl32.Vec3{0, 1, 0}) {
			t.Errorf("vertex %d bitangent = %v, want +Y", i, v.Bitangent)
		}
	}
}

func TestBuildVerticesDeterministic(t *testing.T) {
	rec := asset.Cube(0)
	first, _, err := BuildVertices(&rec)
	if err != nil {
		t.Fatal(err)
	}
	for range 3 {
		again, _, _ := BuildVertices(&rec)
		for i := range first {
			if first[i] != again[i] {
				t.Fatalf("vertex %d differs between runs: %v vs %v", i, first[i], again[i])
			}
		}
	}
	for i, v := range first {
		if l := mgl32.Vec3(v.Tangent).Len(); math.Abs(float64(l)-1) > 1e-5 {
			t.Errorf("vertex %d tangent length %v", i, l)
		}
		if l := mgl32.Vec3(v.Bitangent).Len(); math.Abs(float64(l)-1) > 1e-5 {
			t.Errorf("vertex %d bitangent length %v", i, l)
		}
	}
}

func TestBuildVerticesDegenerateTriangle(t *testing.T) {
	rec := quad()
	// Collapse the UVs of the second triangle's private vertex onto vertex 0.
	rec.Positions = append(rec.Positions, [3]float32{-1, 2, 0})
	rec.TexCoords = append(rec.TexCoords, [2]float32{0, 1})
	rec.Normals = append(rec.Normals, [3]float32{0, 0, 1})
	rec.Indices = append(rec.Indices, 0, 0, 4)

	vertices, degenerate, err := BuildVertices(&rec)
	if err != nil {
		t.Fatalf("BuildVertices failed: %v", err)
	}
	if len(degenerate) != 1 || degenerate[0] != 2 {
		t.Fatalf("degenerate = %v, want [2]", degenerate)
	}
	v := vertices[4]
	n := mgl32.Vec3(v.Normal)
	tan, bit := mgl32.Vec3(v.Tangent), mgl32.Vec3(v.Bitangent)
	if math.Abs(float64(tan.Dot(n))) > 1e-5 || math.Abs(float64(bit.Dot(n))) > 1e-5 || math.Abs(float64(tan.Dot(bit))) > 1e-5 {
		t.Errorf("fallback frame not orthogonal: n=%v t=%v b=%v", n, tan, bit)
	}
	if !approx(vertices[0].Tangent, mgl32.Vec3{1, 0, 0}) {
		t.Errorf("vertex 0 tangent = %v, degenerate triangle leaked into it", vertices[0].Tangent)
	}
}

func TestBuildVerticesInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*asset.MeshRecord)
	}{
		{"no vertices", func(r *asset.MeshRecord) { r.Positions = nil }},
		{"no indices", func(r *asset.MeshRecord) { r.Indices = nil }},
		{"partial triangle", func(r *asset.MeshRecord) { r.Indices = r.Indices[:5] }},
		{"index out of range", func(r *asset.MeshRecord) { r.Indices[4] = 4 }},
		{"short texcoords", func(r *asset.MeshRecord) { r.TexCoords = r.TexCoords[:3] }},
		{"long normals", func(r *asset.MeshRecord) { r.Normals = append(r.Normals, [3]float32{}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := quad()
			tt.mutate(&rec)
			if _, _, err := BuildVertices(&rec); !errors.Is(err, ErrInvalidMesh) {
				t.Errorf("BuildVertices = %v, want ErrInvalidMesh", err)
			}
		})
	}
}

func TestBuildVerticesDefaults(t *testing.T) {
	rec := quad()
	rec.TexCoords = nil
	rec.Normals = nil
	vertices, degenerate, err := BuildVertices(&rec)
	if err != nil {
		t.Fatal(err)
	}
	if len(degenerate) != 2 {
		t.Errorf("degenerate = %v, want both triangles", degenerate)
	}
	if vertices[0].Normal != [3]float32{0, 1, 0} {
		t.Errorf("default normal = %v, want +Y", vertices[0].Normal)
	}
}

func TestEncodeVertices(t *testing.T) {
	v := []Vertex{{
		Position:  [3]float32{1, 2, 3},
		TexCoords: [2]float32{4, 5},
		Normal:    [3]float32{6, 7, 8},
		Tangent:   [3]float32{9, 10, 11},
		Bitangent: [3]float32{12, 13, 14},
	}}
	data := EncodeVertices(v)
	if len(data) != VertexSize {
		t.Fatalf("len = %d, want %d", len(data), VertexSize)
	}
	for i := range 14 {
		got := math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		if got != float32(i+1) {
			t.Errorf("float %d = %v, want %v", i, got, i+1)
		}
	}
	for _, a := range VertexLayout.Attributes {
		if a.Offset >= VertexSize {
			t.Errorf("attribute %d offset %d past stride", a.ShaderLocation, a.Offset)
		}
	}
}

func TestLoadCube(t *testing.T) {
	l, mgr, _ := newTestLoader(t)

	diffuse := asset.Checker("checker.png", 4, 2, color.NRGBA{255, 255, 255, 255}, color.NRGBA{0, 0, 0, 255})
	m, err := l.Load([]asset.MeshRecord{asset.Cube(0)}, []asset.MaterialRecord{{Name: "cube", Diffuse: diffuse}})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(m.Meshes) != 1 || m.Meshes[0].IndexCount != 36 {
		t.Fatalf("meshes = %+v", m.Meshes)
	}
	if len(m.Warnings) != 0 {
		t.Errorf("Warnings = %v", m.Warnings)
	}
	size, err := mgr.BufferSize(m.Meshes[0].VertexBuffer)
	if err != nil || size != 8*VertexSize {
		t.Errorf("vertex buffer size = %d (%v), want %d", size, err, 8*VertexSize)
	}

	s := mgr.Stats()
	if s.Buffers != 2 || s.Textures != 2 || s.BindGroups != 1 {
		t.Errorf("Stats = %+v, want 2 buffers, diffuse + default normal, 1 bind group", s)
	}

	m.Release()
	if s := mgr.Stats(); s.Buffers != 0 || s.BindGroups != 0 || s.Textures != 1 {
		t.Errorf("after Release: %+v, want only the shared default normal map", s)
	}
	l.Release()
	if s := mgr.Stats(); s.Textures != 0 {
		t.Errorf("after Loader.Release: %d textures", s.Textures)
	}
}

func TestLoadDeduplicatesTextures(t *testing.T) {
	l, mgr, rec := newTestLoader(t)

	shared := asset.Solid("bricks.png", color.NRGBA{200, 80, 60, 255})
	sameKey := asset.Solid("bricks.png", color.NRGBA{200, 80, 60, 255})
	normal := asset.Solid("bricks_normal.png", color.NRGBA{128, 128, 255, 255})
	anon := asset.Solid("", color.NRGBA{1, 2, 3, 255})

	materials := []asset.MaterialRecord{
		{Name: "a", Diffuse: shared, Normal: normal},
		{Name: "b", Diffuse: sameKey, Normal: normal},
		{Name: "c", Diffuse: anon},
		{Name: "d", Diffuse: anon},
	}
	m, err := l.Load(nil, materials)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(m.Materials) != 4 {
		t.Fatalf("%d materials", len(m.Materials))
	}
	if m.Materials[0].Diffuse != m.Materials[1].Diffuse {
		t.Error("materials with the same diffuse key got different textures")
	}
	if m.Materials[2].Diffuse != m.Materials[3].Diffuse {
		t.Error("materials sharing an unkeyed image got different textures")
	}
	if m.Materials[2].Normal != m.Materials[3].Normal {
		t.Error("default normal map not shared")
	}
	// bricks, bricks_normal, anon and the default normal map.
	if got := len(rec.TextureWrites); got != 4 {
		t.Errorf("%d texture uploads, want 4", got)
	}
	if s := mgr.Stats(); s.BindGroups != 4 {
		t.Errorf("BindGroups = %d, want one per material", s.BindGroups)
	}
}

func TestLoadSharesTexturesAcrossModels(t *testing.T) {
	l, mgr, rec := newTestLoader(t)

	load := func() *Model {
		t.Helper()
		bricks := asset.Solid("bricks.png", color.NRGBA{200, 80, 60, 255})
		m, err := l.Load(nil, []asset.MaterialRecord{
			{Name: "wall", Diffuse: bricks},
			{Name: "floor", Diffuse: bricks},
		})
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		return m
	}
	first := load()
	second := load()

	// bricks and the default normal map, uploaded once for both models.
	if got := len(rec.TextureWrites); got != 2 {
		t.Errorf("%d texture uploads, want 2", got)
	}
	if first.Materials[0].Diffuse != second.Materials[0].Diffuse {
		t.Fatal("models loaded by one Loader got different textures for the same key")
	}
	if got := l.SharedTextures(); got != 1 {
		t.Errorf("SharedTextures = %d, want 1", got)
	}

	h := second.Materials[0].Diffuse
	first.Release()
	if _, err := mgr.Texture(h); err != nil {
		t.Fatalf("texture released while still used: %v", err)
	}
	first.Release()
	if _, err := mgr.Texture(h); err != nil {
		t.Fatalf("second Release dropped another reference: %v", err)
	}

	second.Release()
	if _, err := mgr.Texture(h); !errors.Is(err, resource.ErrInvalidHandle) {
		t.Errorf("Texture after last Release: err = %v, want ErrInvalidHandle", err)
	}
	if got := l.SharedTextures(); got != 0 {
		t.Errorf("SharedTextures = %d after every model released", got)
	}
	if s := mgr.Stats(); s.Textures != 1 {
		t.Errorf("Textures = %d, want only the default normal map", s.Textures)
	}
}

func TestLoadWarnsOnDegenerateTriangles(t *testing.T) {
	l, _, _ := newTestLoader(t)
	rec := quad()
	rec.TexCoords = [][2]float32{{0, 0}, {0, 0}, {0, 0}, {0, 0}}

	m, err := l.Load([]asset.MeshRecord{rec}, []asset.MaterialRecord{{Name: "plain"}})
	if err != nil {
		t.Fatalf("Load failed on soft error: %v", err)
	}
	if len(m.Warnings) != 2 {
		t.Fatalf("Warnings = %v, want 2", m.Warnings)
	}
	var dte *DegenerateTriangleError
	if !errors.As(m.Warnings[1], &dte) || dte.Mesh != "quad" || dte.Triangle != 1 {
		t.Errorf("warning = %v", m.Warnings[1])
	}
	if !errors.Is(m.Warnings[0], ErrDegenerateTriangle) {
		t.Errorf("warning does not wrap ErrDegenerateTriangle")
	}
}

func TestLoadFailureReleasesPartialModel(t *testing.T) {
	tests := []struct {
		name      string
		meshes    []asset.MeshRecord
		materials []asset.MaterialRecord
		want      error
	}{
		{
			name:      "material index out of range",
			meshes:    []asset.MeshRecord{{Name: "m", Positions: [][3]float32{{}, {}, {}}, Indices: []uint32{0, 1, 2}, Material: 1}},
			materials: []asset.MaterialRecord{{Name: "only"}},
			want:      ErrInvalidMaterial,
		},
		{
			name:      "bad pixels",
			materials: []asset.MaterialRecord{{Name: "bad", Diffuse: &asset.Pixels{Key: "bad", Width: 2, Height: 2, RGBA: []byte{1}}}},
			want:      ErrInvalidMaterial,
		},
		{
			name:      "bad second mesh",
			meshes:    []asset.MeshRecord{quad(), {Name: "broken", Positions: [][3]float32{{}}, Indices: []uint32{0, 1}}},
			materials: []asset.MaterialRecord{{Name: "tex", Diffuse: asset.Solid("t", color.NRGBA{A: 255})}},
			want:      ErrInvalidMesh,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, mgr, _ := newTestLoader(t)
			m, err := l.Load(tt.meshes, tt.materials)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Load = %v, want %v", err, tt.want)
			}
			if m != nil {
				t.Error("Load returned a model with an error")
			}
			l.Release()
			if s := mgr.Stats(); s.Buffers != 0 || s.Textures != 0 || s.BindGroups != 0 {
				t.Errorf("resources leaked: %+v", s)
			}
		})
	}
}
