// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pipeline

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Layouts are the bind group layouts shared by every pipeline: material
// textures, the camera uniform and the light uniform.
type Layouts struct {
	Texture hal.BindGroupLayout
	Camera  hal.BindGroupLayout
	Light   hal.BindGroupLayout

	device hal.Device
}

// NewLayouts creates the three layouts. Texture declares diffuse view,
// diffuse sampler, normal view and normal sampler at bindings 0 to 3.
func NewLayouts(device hal.Device) (*Layouts, error) {
	l := &Layouts{device: device}
	var err error

	l.Texture, err = device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "texture_bind_group_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			textureEntry(0), samplerEntry(1),
			textureEntry(2), samplerEntry(3),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create texture layout: %w", err)
	}

	l.Camera, err = device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "camera_bind_group_layout",
		Entries: []gputypes.BindGroupLayoutEntry{uniformEntry(0)},
	})
	if err != nil {
		l.Destroy()
		return nil, fmt.Errorf("create camera layout: %w", err)
	}

	l.Light, err = device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "light_bind_group_layout",
		Entries: []gputypes.BindGroupLayoutEntry{uniformEntry(0)},
	})
	if err != nil {
		l.Destroy()
		return nil, fmt.Errorf("create light layout: %w", err)
	}
	return l, nil
}

// Destroy releases the layouts in reverse creation order.
func (l *Layouts) Destroy() {
	for _, layout := range []*hal.BindGroupLayout{&l.Light, &l.Camera, &l.Texture} {
		if *layout != nil {
			l.device.DestroyBindGroupLayout(*layout)
			*layout = nil
		}
	}
}

func textureEntry(binding uint32) gputypes.BindGroupLayoutEntry {
	return gputypes.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: gputypes.ShaderStageFragment,
		Texture: &gputypes.TextureBindingLayout{
			SampleType:    gputypes.TextureSampleTypeFloat,
			ViewDimension: gputypes.TextureViewDimension2D,
		},
	}
}

func samplerEntry(binding uint32) gputypes.BindGroupLayoutEntry {
	return gputypes.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: gputypes.ShaderStageFragment,
		Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
	}
}

func uniformEntry(binding uint32) gputypes.BindGroupLayoutEntry {
	return gputypes.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: gputypes.ShaderStagesVertexFragment,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
	}
}
