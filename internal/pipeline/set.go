// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pipeline

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/g3d/internal/instance"
	"github.com/gogpu/g3d/internal/model"
	"github.com/gogpu/g3d/internal/resource"
)

// lightVertexLayout reads only positions from the model vertex buffer.
var lightVertexLayout = gputypes.VertexBufferLayout{
	ArrayStride: model.VertexSize,
	StepMode:    gputypes.VertexStepModeVertex,
	Attributes: []gputypes.VertexAttribute{
		{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
	},
}

// Options configures a Set. Empty shader sources select the embedded ones.
type Options struct {
	ModelShader string
	LightShader string
	Validate    bool
}

// Set holds the model and light marker pipelines for one surface format.
type Set struct {
	Model *Pipeline
	Light *Pipeline

	device  hal.Device
	layouts *Layouts
	opts    Options
	format  gputypes.TextureFormat
}

// NewSet compiles both pipelines for format.
func NewSet(device hal.Device, layouts *Layouts, format gputypes.TextureFormat, opts Options) (*Set, error) {
	if opts.ModelShader == "" {
		opts.ModelShader = ModelShader
	}
	if opts.LightShader == "" {
		opts.LightShader = LightShader
	}
	s := &Set{device: device, layouts: layouts, opts: opts}
	if err := s.Rebuild(format); err != nil {
		return nil, err
	}
	return s, nil
}

// Format returns the color format the pipelines target.
func (s *Set) Format() gputypes.TextureFormat { return s.format }

// Rebuild compiles new pipelines for format and destroys the old ones.
// On failure the current pipelines are kept.
func (s *Set) Rebuild(format gputypes.TextureFormat) error {
	m, err := Compile(s.device, Descriptor{
		Label:         "Render Pipeline",
		ShaderSource:  s.opts.ModelShader,
		VertexEntry:   VertexEntry,
		FragmentEntry: FragmentEntry,
		VertexBuffers: []gputypes.VertexBufferLayout{model.VertexLayout, instance.Layout},
		BindGroupLayouts: []hal.BindGroupLayout{
			s.layouts.Texture, s.layouts.Camera, s.layouts.Light,
		},
		ColorFormat: format,
		DepthFormat: resource.DepthFormat,
		Validate:    s.opts.Validate,
	})
	if err != nil {
		return err
	}
	l, err := Compile(s.device, Descriptor{
		Label:            "Light Pipeline",
		ShaderSource:     s.opts.LightShader,
		VertexEntry:      VertexEntry,
		FragmentEntry:    FragmentEntry,
		VertexBuffers:    []gputypes.VertexBufferLayout{lightVertexLayout},
		BindGroupLayouts: []hal.BindGroupLayout{s.layouts.Camera, s.layouts.Light},
		ColorFormat:      format,
		DepthFormat:      resource.DepthFormat,
		Validate:         s.opts.Validate,
	})
	if err != nil {
		m.Destroy()
		return err
	}
	s.destroyPipelines()
	s.Model, s.Light, s.format = m, l, format
	return nil
}

func (s *Set) destroyPipelines() {
	if s.Light != nil {
		s.Light.Destroy()
	}
	if s.Model != nil {
		s.Model.Destroy()
	}
}

// Destroy releases both pipelines. The layouts are not owned by the set.
func (s *Set) Destroy() {
	s.destroyPipelines()
}
