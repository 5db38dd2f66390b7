// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package pipeline builds the render pipelines of the engine: bind group
// layouts, shader validation with naga, pipeline compilation and the depth
// target the pipelines render against.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/g3d/internal/cache"
)

// ErrShaderInvalid is returned when a shader fails to parse or validate, or
// lacks a required entry point.
var ErrShaderInvalid = errors.New("pipeline: invalid shader")

// ErrDestroyed is returned when compiling a destroyed pipeline.
var ErrDestroyed = errors.New("pipeline: destroyed")

// State is the lifecycle stage of a Pipeline.
type State uint8

const (
	StateUncompiled State = iota
	StateCompiled
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUncompiled:
		return "Uncompiled"
	case StateCompiled:
		return "Compiled"
	case StateDestroyed:
		return "Destroyed"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Descriptor describes a render pipeline. Every pipeline built here draws
// triangle lists with counter-clockwise front faces, back-face culling,
// Less depth test with depth writes and replace blending.
type Descriptor struct {
	Label            string
	ShaderSource     string
	VertexEntry      string
	FragmentEntry    string
	VertexBuffers    []gputypes.VertexBufferLayout
	BindGroupLayouts []hal.BindGroupLayout
	ColorFormat      gputypes.TextureFormat
	DepthFormat      gputypes.TextureFormat

	// Validate runs the shader through naga before handing it to the
	// device.
	Validate bool
}

// Pipeline is an immutable compiled render pipeline. Changing any of its
// inputs means compiling a new Pipeline.
type Pipeline struct {
	desc   Descriptor
	state  State
	device hal.Device

	shader   hal.ShaderModule
	layout   hal.PipelineLayout
	pipeline hal.RenderPipeline
}

// New returns an uncompiled pipeline for desc.
func New(desc Descriptor) *Pipeline {
	return &Pipeline{desc: desc}
}

// Compile is New followed by Pipeline.Compile.
func Compile(device hal.Device, desc Descriptor) (*Pipeline, error) {
	p := New(desc)
	if err := p.Compile(device); err != nil {
		return nil, err
	}
	return p, nil
}

// State returns the lifecycle stage.
func (p *Pipeline) State() State { return p.state }

// Label returns the descriptor label.
func (p *Pipeline) Label() string { return p.desc.Label }

// Raw returns the HAL pipeline, nil unless compiled.
func (p *Pipeline) Raw() hal.RenderPipeline { return p.pipeline }

// Compile validates the shader when requested and creates the GPU objects.
// Compiling a compiled pipeline is a no-op. On failure the pipeline stays
// uncompiled and nothing is leaked.
func (p *Pipeline) Compile(device hal.Device) error {
	switch p.state {
	case StateCompiled:
		return nil
	case StateDestroyed:
		return ErrDestroyed
	}
	d := &p.desc
	if d.Validate {
		if err := ValidateShader(d.ShaderSource, d.VertexEntry, d.FragmentEntry); err != nil {
			return fmt.Errorf("%s: %w", d.Label, err)
		}
	}

	shader, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  d.Label + "_shader",
		Source: hal.ShaderSource{WGSL: d.ShaderSource},
	})
	if err != nil {
		return fmt.Errorf("compile %s shader: %w", d.Label, err)
	}
	layout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            d.Label + " Layout",
		BindGroupLayouts: d.BindGroupLayouts,
	})
	if err != nil {
		device.DestroyShaderModule(shader)
		return fmt.Errorf("create %s layout: %w", d.Label, err)
	}

	replace := gputypes.BlendStateReplace()
	pipeline, err := device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  d.Label,
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     shader,
			EntryPoint: d.VertexEntry,
			Buffers:    d.VertexBuffers,
		},
		Fragment: &hal.FragmentState{
			Module:     shader,
			EntryPoint: d.FragmentEntry,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    d.ColorFormat,
					Blend:     &replace,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  gputypes.PrimitiveTopologyTriangleList,
			FrontFace: gputypes.FrontFaceCCW,
			CullMode:  gputypes.CullModeBack,
		},
		DepthStencil: &hal.DepthStencilState{
			Format:            d.DepthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      gputypes.CompareFunctionLess,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		device.DestroyPipelineLayout(layout)
		device.DestroyShaderModule(shader)
		return fmt.Errorf("create %s: %w", d.Label, err)
	}

	p.device = device
	p.shader, p.layout, p.pipeline = shader, layout, pipeline
	p.state = StateCompiled
	return nil
}

// Destroy releases the GPU objects in reverse creation order. The pipeline
// cannot be compiled again.
func (p *Pipeline) Destroy() {
	if p.state == StateCompiled {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.device.DestroyPipelineLayout(p.layout)
		p.device.DestroyShaderModule(p.shader)
		p.shader, p.layout, p.pipeline = nil, nil, nil
	}
	p.state = StateDestroyed
}

// shaderKey identifies one validation: the same source can be checked
// against different entry points.
type shaderKey struct {
	source, vertex, fragment string
}

// validated caches naga results so pipeline rebuilds on resize or format
// change skip parsing.
var validated = cache.New[shaderKey, error](32)

// ValidateShader parses, lowers and validates WGSL source with naga and
// checks that vertexEntry and fragmentEntry exist with the right stages.
// Results, including failures, are cached per source and entry points.
func ValidateShader(source, vertexEntry, fragmentEntry string) error {
	return validated.GetOrCreate(shaderKey{source, vertexEntry, fragmentEntry}, func() error {
		return validateShader(source, vertexEntry, fragmentEntry)
	})
}

// ValidationCacheStats reports hits and misses of the shader validation cache.
func ValidationCacheStats() cache.Stats {
	return validated.Stats()
}

func validateShader(source, vertexEntry, fragmentEntry string) error {
	ast, err := naga.Parse(source)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrShaderInvalid, err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrShaderInvalid, err)
	}
	verrs, err := naga.Validate(module)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrShaderInvalid, err)
	}
	if len(verrs) > 0 {
		return fmt.Errorf("%w: %w", ErrShaderInvalid, verrs[0])
	}
	for _, want := range []struct {
		name  string
		stage ir.ShaderStage
	}{
		{vertexEntry, ir.StageVertex},
		{fragmentEntry, ir.StageFragment},
	} {
		if !hasEntryPoint(module, want.name, want.stage) {
			return fmt.Errorf("%w: missing entry point %q", ErrShaderInvalid, want.name)
		}
	}
	return nil
}

func hasEntryPoint(m *ir.Module, name string, stage ir.ShaderStage) bool {
	for _, ep := range m.EntryPoints {
		if ep.Name == name && ep.Stage == stage {
			return true
		}
	}
	return false
}
