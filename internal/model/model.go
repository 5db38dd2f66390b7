// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package model

import (
	"fmt"
	"image/color"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/g3d/asset"
	"github.com/gogpu/g3d/internal/resource"
)

// Mesh is one uploaded triangle mesh. Meshes are immutable.
type Mesh struct {
	Name         string
	VertexBuffer resource.BufferHandle
	IndexBuffer  resource.BufferHandle
	IndexCount   uint32
	Material     int
}

// Material is a diffuse and normal map pair bound as one bind group.
type Material struct {
	Name      string
	Diffuse   resource.TextureHandle
	Normal    resource.TextureHandle
	BindGroup resource.BindGroupHandle
}

// Model is an ordered list of meshes and the materials they reference.
// It owns only handles; Release returns them to the manager.
type Model struct {
	Meshes    []Mesh
	Materials []Material

	// Warnings holds the soft errors of the load, one
	// *DegenerateTriangleError per skipped triangle.
	Warnings []error

	mgr      *resource.Manager
	loader   *Loader
	owned    []resource.Handle
	textures []*sharedTexture
}

// IndexCount returns the total number of indices over all meshes.
func (m *Model) IndexCount() int {
	total := 0
	for _, mesh := range m.Meshes {
		total += int(mesh.IndexCount)
	}
	return total
}

// Release destroys the model's buffers and bind groups in reverse creation
// order, then drops its references to material textures. A texture is
// destroyed when no model loaded by the same Loader uses it any more.
// Shared default textures are not released. Release is idempotent.
func (m *Model) Release() {
	for i := len(m.owned) - 1; i >= 0; i-- {
		_ = m.mgr.Release(m.owned[i])
	}
	for i := len(m.textures) - 1; i >= 0; i-- {
		m.loader.unref(m.textures[i])
	}
	m.owned = nil
	m.textures = nil
	m.Meshes = nil
	m.Materials = nil
}

// Options controls texture upload.
type Options struct {
	// Mipmaps generates mip chains for material textures.
	Mipmaps bool
}

// Loader uploads mesh and material records through a resource manager.
//
// Material textures are deduplicated across every model the loader loads
// and reference counted: a texture lives until the last model using it is
// released. The loader also owns the white diffuse and flat normal
// textures substituted for missing maps; Release destroys them.
type Loader struct {
	mgr    *resource.Manager
	layout hal.BindGroupLayout
	opts   Options

	textures map[textureKey]*sharedTexture

	white resource.TextureHandle
	flat  resource.TextureHandle
}

type sharedTexture struct {
	key    textureKey
	handle resource.TextureHandle
	refs   int
}

// NewLoader returns a loader creating material bind groups against layout,
// which must declare diffuse view, diffuse sampler, normal view and normal
// sampler at bindings 0 to 3.
func NewLoader(mgr *resource.Manager, layout hal.BindGroupLayout, opts Options) *Loader {
	return &Loader{
		mgr:      mgr,
		layout:   layout,
		opts:     opts,
		textures: make(map[textureKey]*sharedTexture),
	}
}

// Release destroys the shared default textures and any material texture
// still referenced. Models loaded earlier must not be drawn afterwards.
func (l *Loader) Release() {
	for key, t := range l.textures {
		_ = l.mgr.Release(t.handle)
		delete(l.textures, key)
	}
	for _, h := range []resource.TextureHandle{l.flat, l.white} {
		if h.Valid() {
			_ = l.mgr.Release(h)
		}
	}
	l.white, l.flat = resource.InvalidHandle, resource.InvalidHandle
}

// SharedTextures returns the number of material textures currently held.
func (l *Loader) SharedTextures() int { return len(l.textures) }

// unref drops one reference to t. Entries already destroyed by Release
// are ignored.
func (l *Loader) unref(t *sharedTexture) {
	if l.textures[t.key] != t {
		return
	}
	if t.refs--; t.refs > 0 {
		return
	}
	_ = l.mgr.Release(t.handle)
	delete(l.textures, t.key)
}

type textureKey struct {
	key    string
	pixels *asset.Pixels
	normal bool
}

func keyOf(p *asset.Pixels, normal bool) textureKey {
	if p.Key != "" {
		return textureKey{key: p.Key, normal: normal}
	}
	return textureKey{pixels: p, normal: normal}
}

// load tracks what one Load call created so a failure can undo it.
type load struct {
	*Loader
	model *Model
	taken map[textureKey]resource.TextureHandle
}

// Load uploads meshes and materials as a new model.
//
// Each distinct texture, identified by Pixels.Key or by pointer when the
// key is empty, is uploaded once per Loader; later loads reuse it. Zero-area UV triangles are logged and
// collected in Model.Warnings; they do not fail the load. Hard errors
// (ErrInvalidMesh, ErrInvalidMaterial, GPU failures) release everything
// the call created.
func (l *Loader) Load(meshes []asset.MeshRecord, materials []asset.MaterialRecord) (*Model, error) {
	ld := &load{
		Loader: l,
		model:  &Model{mgr: l.mgr, loader: l},
		taken:  make(map[textureKey]resource.TextureHandle),
	}
	if err := ld.run(meshes, materials); err != nil {
		ld.model.Release()
		return nil, err
	}
	m := ld.model
	slogger().Debug("model: loaded",
		"meshes", len(m.Meshes),
		"materials", len(m.Materials),
		"textures", len(ld.taken),
		"warnings", len(m.Warnings),
	)
	return m, nil
}

func (ld *load) run(meshes []asset.MeshRecord, materials []asset.MaterialRecord) error {
	for i := range meshes {
		if mi := meshes[i].Material; mi < 0 || mi >= len(materials) {
			return fmt.Errorf("%w: mesh %q references material %d of %d",
				ErrInvalidMaterial, meshes[i].Name, mi, len(materials))
		}
	}
	for i := range materials {
		mat, err := ld.material(&materials[i])
		if err != nil {
			return err
		}
		ld.model.Materials = append(ld.model.Materials, mat)
	}
	for i := range meshes {
		mesh, err := ld.mesh(&meshes[i])
		if err != nil {
			return err
		}
		ld.model.Meshes = append(ld.model.Meshes, mesh)
	}
	return nil
}

func (ld *load) own(h resource.Handle) {
	ld.model.owned = append(ld.model.owned, h)
}

func (ld *load) mesh(rec *asset.MeshRecord) (Mesh, error) {
	vertices, degenerate, err := BuildVertices(rec)
	if err != nil {
		return Mesh{}, err
	}
	for _, tri := range degenerate {
		w := &DegenerateTriangleError{Mesh: rec.Name, Triangle: tri}
		slogger().Warn("model: skipping tangent contribution", "mesh", rec.Name, "triangle", tri)
		ld.model.Warnings = append(ld.model.Warnings, w)
	}

	vb, err := ld.mgr.CreateBuffer(rec.Name+"_vertices", EncodeVertices(vertices), gputypes.BufferUsageVertex)
	if err != nil {
		return Mesh{}, fmt.Errorf("mesh %q: %w", rec.Name, err)
	}
	ld.own(vb)
	ib, err := ld.mgr.CreateBuffer(rec.Name+"_indices", EncodeIndices(rec.Indices), gputypes.BufferUsageIndex)
	if err != nil {
		return Mesh{}, fmt.Errorf("mesh %q: %w", rec.Name, err)
	}
	ld.own(ib)

	return Mesh{
		Name:         rec.Name,
		VertexBuffer: vb,
		IndexBuffer:  ib,
		IndexCount:   uint32(len(rec.Indices)),
		Material:     rec.Material,
	}, nil
}

func (ld *load) material(rec *asset.MaterialRecord) (Material, error) {
	diffuse, err := ld.texture(rec.Diffuse, false)
	if err != nil {
		return Material{}, fmt.Errorf("material %q diffuse: %w", rec.Name, err)
	}
	normal, err := ld.texture(rec.Normal, true)
	if err != nil {
		return Material{}, fmt.Errorf("material %q normal: %w", rec.Name, err)
	}
	group, err := ld.mgr.CreateBindGroup(rec.Name+"_bind_group", ld.layout,
		resource.TextureViewRef{Binding: 0, Texture: diffuse},
		resource.SamplerRef{Binding: 1, Texture: diffuse},
		resource.TextureViewRef{Binding: 2, Texture: normal},
		resource.SamplerRef{Binding: 3, Texture: normal},
	)
	if err != nil {
		return Material{}, fmt.Errorf("material %q: %w", rec.Name, err)
	}
	ld.own(group)
	return Material{Name: rec.Name, Diffuse: diffuse, Normal: normal, BindGroup: group}, nil
}

// texture returns the shared texture for p, uploading it on first use.
// The model takes one reference per distinct texture. Diffuse maps are
// sRGB, normal maps linear, so the same image used both ways is uploaded
// twice.
func (ld *load) texture(p *asset.Pixels, normal bool) (resource.TextureHandle, error) {
	if p == nil {
		return ld.fallback(normal)
	}
	key := keyOf(p, normal)
	if h, ok := ld.taken[key]; ok {
		return h, nil
	}
	if t, ok := ld.Loader.textures[key]; ok {
		t.refs++
		ld.take(t)
		return t.handle, nil
	}
	if err := p.Validate(); err != nil {
		return resource.InvalidHandle, fmt.Errorf("%w: %w", ErrInvalidMaterial, err)
	}
	format := gputypes.TextureFormatRGBA8UnormSrgb
	if normal {
		format = gputypes.TextureFormatRGBA8Unorm
	}
	h, err := ld.mgr.CreateTexture(p.Key, p.RGBA, p.Width, p.Height, format,
		resource.TextureOptions{Mipmaps: ld.opts.Mipmaps})
	if err != nil {
		return resource.InvalidHandle, err
	}
	t := &sharedTexture{key: key, handle: h, refs: 1}
	ld.Loader.textures[key] = t
	ld.take(t)
	return h, nil
}

func (ld *load) take(t *sharedTexture) {
	ld.taken[t.key] = t.handle
	ld.model.textures = append(ld.model.textures, t)
}

func (l *Loader) fallback(normal bool) (resource.TextureHandle, error) {
	slot := &l.white
	p := asset.Solid("default_diffuse", color.NRGBA{255, 255, 255, 255})
	format := gputypes.TextureFormatRGBA8UnormSrgb
	if normal {
		slot = &l.flat
		p = asset.Solid("default_normal", color.NRGBA{128, 128, 255, 255})
		format = gputypes.TextureFormatRGBA8Unorm
	}
	if slot.Valid() {
		return *slot, nil
	}
	h, err := l.mgr.CreateTexture(p.Key, p.RGBA, p.Width, p.Height, format, resource.TextureOptions{})
	if err != nil {
		return resource.InvalidHandle, err
	}
	*slot = h
	return h, nil
}
