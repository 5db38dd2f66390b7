// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gputest

import (
	"testing"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Device records resource creation, destruction and command encoding.
type Device struct {
	hal.Device
	rec *Recorder
}

// Recorder returns the recorder shared with this device.
func (d *Device) Recorder() *Recorder { return d.rec }

func (d *Device) created(kind string)   { d.rec.Created = append(d.rec.Created, kind) }
func (d *Device) destroyed(kind string) { d.rec.Destroyed = append(d.rec.Destroyed, kind) }

func (d *Device) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	d.created("buffer")
	return d.Device.CreateBuffer(desc)
}

func (d *Device) DestroyBuffer(b hal.Buffer) {
	d.destroyed("buffer")
	d.Device.DestroyBuffer(b)
}

func (d *Device) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	d.created("texture")
	return d.Device.CreateTexture(desc)
}

func (d *Device) DestroyTexture(t hal.Texture) {
	d.destroyed("texture")
	d.Device.DestroyTexture(t)
}

func (d *Device) CreateTextureView(t hal.Texture, desc *hal.TextureViewDescriptor) (hal.TextureView, error) {
	d.created("texture_view")
	return d.Device.CreateTextureView(t, desc)
}

func (d *Device) DestroyTextureView(v hal.TextureView) {
	d.destroyed("texture_view")
	d.Device.DestroyTextureView(v)
}

func (d *Device) CreateSampler(desc *hal.SamplerDescriptor) (hal.Sampler, error) {
	d.created("sampler")
	return d.Device.CreateSampler(desc)
}

func (d *Device) DestroySampler(s hal.Sampler) {
	d.destroyed("sampler")
	d.Device.DestroySampler(s)
}

func (d *Device) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	d.created("bind_group")
	return d.Device.CreateBindGroup(desc)
}

func (d *Device) DestroyBindGroup(g hal.BindGroup) {
	d.destroyed("bind_group")
	d.Device.DestroyBindGroup(g)
}

func (d *Device) CreateRenderPipeline(desc *hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	d.created("render_pipeline")
	d.rec.Pipelines = append(d.rec.Pipelines, desc.Label)
	return d.Device.CreateRenderPipeline(desc)
}

func (d *Device) DestroyRenderPipeline(p hal.RenderPipeline) {
	d.destroyed("render_pipeline")
	d.Device.DestroyRenderPipeline(p)
}

func (d *Device) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	enc, err := d.Device.CreateCommandEncoder(desc)
	if err != nil {
		return nil, err
	}
	d.rec.Encoders++
	return &encoder{CommandEncoder: enc, rec: d.rec}, nil
}

type encoder struct {
	hal.CommandEncoder
	rec *Recorder
}

func (e *encoder) BeginRenderPass(desc *hal.RenderPassDescriptor) hal.RenderPassEncoder {
	p := &PassRecord{Label: desc.Label}
	if len(desc.ColorAttachments) > 0 {
		p.ClearColor = desc.ColorAttachments[0].ClearValue
	}
	if desc.DepthStencilAttachment != nil {
		p.HasDepth = true
		p.DepthClear = desc.DepthStencilAttachment.DepthClearValue
	}
	e.rec.Passes = append(e.rec.Passes, p)
	return &pass{RenderPassEncoder: e.CommandEncoder.BeginRenderPass(desc), rec: p}
}

type pass struct {
	hal.RenderPassEncoder
	rec *PassRecord
}

func (p *pass) SetPipeline(pl hal.RenderPipeline) {
	p.rec.Pipelines++
	p.RenderPassEncoder.SetPipeline(pl)
}

func (p *pass) SetBindGroup(index uint32, group hal.BindGroup, offsets []uint32) {
	p.rec.BindGroups = append(p.rec.BindGroups, BindGroupCall{Index: index, Group: group})
	p.RenderPassEncoder.SetBindGroup(index, group, offsets)
}

func (p *pass) SetVertexBuffer(slot uint32, buf hal.Buffer, offset uint64) {
	p.rec.VertexSlots = append(p.rec.VertexSlots, slot)
	p.RenderPassEncoder.SetVertexBuffer(slot, buf, offset)
}

func (p *pass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.rec.Draws = append(p.rec.Draws, DrawIndexedCall{
		IndexCount:    indexCount,
		InstanceCount: instanceCount,
		FirstIndex:    firstIndex,
		BaseVertex:    baseVertex,
		FirstInstance: firstInstance,
	})
	p.RenderPassEncoder.DrawIndexed(indexCount, instanceCount, firstIndex, baseVertex, firstInstance)
}

func (p *pass) End() {
	p.rec.Ended = true
	p.RenderPassEncoder.End()
}

// NewDevice opens a recording device and queue on the noop backend.
// The cleanup function destroys the device and instance.
func NewDevice(t testing.TB) (*Device, hal.Queue, func()) {
	t.Helper()

	b := NewBackend()
	inst, err := b.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := inst.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		inst.Destroy()
		t.Fatal("no adapters available")
	}
	od, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		inst.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		od.Device.Destroy()
		inst.Destroy()
	}
	return od.Device.(*Device), od.Queue, cleanup
}

// ReadBuffer copies size bytes from a noop buffer starting at offset.
func ReadBuffer(t testing.TB, device hal.Device, buf hal.Buffer, offset, size uint64) []byte {
	t.Helper()
	m, err := unwrapDevice(device).MapBuffer(buf, offset, size)
	if err != nil {
		t.Fatalf("MapBuffer failed: %v", err)
	}
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(m.Ptr), size))
	return out
}
