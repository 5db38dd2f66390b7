// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pipeline

import (
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/g3d/internal/resource"
)

// DepthTarget is the depth texture matching the surface extent.
type DepthTarget struct {
	mgr           *resource.Manager
	tex           resource.TextureHandle
	width, height uint32
}

// NewDepthTarget creates a width x height depth texture.
func NewDepthTarget(mgr *resource.Manager, width, height uint32) (*DepthTarget, error) {
	d := &DepthTarget{mgr: mgr}
	if err := d.Resize(width, height); err != nil {
		return nil, err
	}
	return d, nil
}

// Resize recreates the texture when the extent changes. Its signature
// matches gpu.ResizeFunc so it can subscribe to surface resizes directly.
func (d *DepthTarget) Resize(width, height uint32) error {
	if d.tex.Valid() && width == d.width && height == d.height {
		return nil
	}
	tex, err := d.mgr.CreateDepthTexture("depth_texture", width, height)
	if err != nil {
		return err
	}
	d.Release()
	d.tex, d.width, d.height = tex, width, height
	return nil
}

// Size returns the current extent.
func (d *DepthTarget) Size() (width, height uint32) { return d.width, d.height }

// Texture returns the depth texture handle.
func (d *DepthTarget) Texture() resource.TextureHandle { return d.tex }

// View returns the attachment view.
func (d *DepthTarget) View() (hal.TextureView, error) {
	return d.mgr.TextureView(d.tex)
}

// Release frees the depth texture.
func (d *DepthTarget) Release() {
	if d.tex.Valid() {
		_ = d.mgr.Release(d.tex)
		d.tex = resource.InvalidHandle
	}
}
