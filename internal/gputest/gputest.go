// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package gputest provides HAL wrappers over the noop backend that record
// what the engine asks the GPU to do. Tests use it to count draw calls,
// observe surface reconfiguration and inject surface failures.
package gputest

import (
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// DrawIndexedCall captures the arguments of one DrawIndexed command.
type DrawIndexedCall struct {
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	BaseVertex    int32
	FirstInstance uint32
}

// BindGroupCall captures one SetBindGroup command.
type BindGroupCall struct {
	Index uint32
	Group hal.BindGroup
}

// TextureWrite captures one WriteTexture call.
type TextureWrite struct {
	MipLevel    uint32
	Width       uint32
	Height      uint32
	BytesPerRow uint32
	Bytes       int
}

// PassRecord describes one recorded render pass.
type PassRecord struct {
	Label       string
	ClearColor  gputypes.Color
	HasDepth    bool
	DepthClear  float32
	Pipelines   int
	BindGroups  []BindGroupCall
	VertexSlots []uint32
	Draws       []DrawIndexedCall
	Ended       bool
}

// Recorder collects observations from every wrapper sharing it.
type Recorder struct {
	// AcquireErrors are returned by successive AcquireTexture calls.
	// A nil entry lets the call through; once exhausted, calls succeed.
	AcquireErrors []error

	// PresentErrors and ConfigureErrors work the same way for Present and
	// Configure.
	PresentErrors   []error
	ConfigureErrors []error

	// Incompatible makes every adapter report no surface support.
	Incompatible bool

	Configures   []hal.SurfaceConfiguration
	Unconfigures int
	Acquires     int
	Discards     int
	Presents     int
	Submits      int
	Encoders     int

	Pipelines     []string
	Passes        []*PassRecord
	TextureWrites []TextureWrite

	// Created and Destroyed list resource kinds in call order.
	Created   []string
	Destroyed []string
}

// Draws returns the DrawIndexed calls of every recorded pass.
func (r *Recorder) Draws() []DrawIndexedCall {
	var out []DrawIndexedCall
	for _, p := range r.Passes {
		out = append(out, p.Draws...)
	}
	return out
}

// Reset clears counters but keeps the injected errors and Incompatible.
func (r *Recorder) Reset() {
	*r = Recorder{
		AcquireErrors:   r.AcquireErrors,
		PresentErrors:   r.PresentErrors,
		ConfigureErrors: r.ConfigureErrors,
		Incompatible:    r.Incompatible,
	}
}

// pop removes and returns the first injected error of list.
func pop(list *[]error) error {
	if len(*list) == 0 {
		return nil
	}
	err := (*list)[0]
	*list = (*list)[1:]
	return err
}

// Backend wraps the noop backend and hands out recording objects.
type Backend struct {
	hal.Backend
	Rec *Recorder
}

// NewBackend returns a recording backend over noop.API.
func NewBackend() *Backend {
	return &Backend{Backend: noop.API{}, Rec: &Recorder{}}
}

// CreateInstance creates a recording instance.
func (b *Backend) CreateInstance(desc *hal.InstanceDescriptor) (hal.Instance, error) {
	inst, err := b.Backend.CreateInstance(desc)
	if err != nil {
		return nil, err
	}
	return &instance{Instance: inst, rec: b.Rec}, nil
}

type instance struct {
	hal.Instance
	rec *Recorder
}

func (i *instance) CreateSurface(display, window uintptr) (hal.Surface, error) {
	s, err := i.Instance.CreateSurface(display, window)
	if err != nil {
		return nil, err
	}
	return &Surface{Surface: s, rec: i.rec}, nil
}

func (i *instance) EnumerateAdapters(hint hal.Surface) []hal.ExposedAdapter {
	exposed := i.Instance.EnumerateAdapters(unwrapSurface(hint))
	for k := range exposed {
		exposed[k].Adapter = &adapter{Adapter: exposed[k].Adapter, rec: i.rec}
	}
	return exposed
}

type adapter struct {
	hal.Adapter
	rec *Recorder
}

func (a *adapter) SurfaceCapabilities(s hal.Surface) *hal.SurfaceCapabilities {
	if a.rec.Incompatible {
		return nil
	}
	return a.Adapter.SurfaceCapabilities(unwrapSurface(s))
}

func (a *adapter) Open(features gputypes.Features, limits gputypes.Limits) (hal.OpenDevice, error) {
	od, err := a.Adapter.Open(features, limits)
	if err != nil {
		return hal.OpenDevice{}, err
	}
	return hal.OpenDevice{
		Device: &Device{Device: od.Device, rec: a.rec},
		Queue:  &Queue{Queue: od.Queue, rec: a.rec},
	}, nil
}

// Surface records configuration and acquisition.
type Surface struct {
	hal.Surface
	rec *Recorder
}

func unwrapSurface(s hal.Surface) hal.Surface {
	if w, ok := s.(*Surface); ok {
		return w.Surface
	}
	return s
}

func unwrapDevice(d hal.Device) hal.Device {
	if w, ok := d.(*Device); ok {
		return w.Device
	}
	return d
}

// Configure records the configuration before forwarding it.
// Failed attempts are recorded too.
func (s *Surface) Configure(device hal.Device, cfg *hal.SurfaceConfiguration) error {
	s.rec.Configures = append(s.rec.Configures, *cfg)
	if err := pop(&s.rec.ConfigureErrors); err != nil {
		return err
	}
	return s.Surface.Configure(unwrapDevice(device), cfg)
}

// Unconfigure counts the call.
func (s *Surface) Unconfigure(device hal.Device) {
	s.rec.Unconfigures++
	s.Surface.Unconfigure(unwrapDevice(device))
}

// AcquireTexture returns the next injected error, if any.
func (s *Surface) AcquireTexture(fence hal.Fence) (*hal.AcquiredSurfaceTexture, error) {
	s.rec.Acquires++
	if err := pop(&s.rec.AcquireErrors); err != nil {
		return nil, err
	}
	return s.Surface.AcquireTexture(fence)
}

// DiscardTexture counts the call.
func (s *Surface) DiscardTexture(t hal.SurfaceTexture) {
	s.rec.Discards++
	s.Surface.DiscardTexture(t)
}

// Queue counts submissions and presentations.
type Queue struct {
	hal.Queue
	rec *Recorder
}

// Submit counts the call.
func (q *Queue) Submit(cmds []hal.CommandBuffer) (uint64, error) {
	q.rec.Submits++
	return q.Queue.Submit(cmds)
}

// WriteTexture records the destination level and extent.
func (q *Queue) WriteTexture(dst *hal.ImageCopyTexture, data []byte, layout *hal.ImageDataLayout, size *hal.Extent3D) error {
	q.rec.TextureWrites = append(q.rec.TextureWrites, TextureWrite{
		MipLevel:    dst.MipLevel,
		Width:       size.Width,
		Height:      size.Height,
		BytesPerRow: layout.BytesPerRow,
		Bytes:       len(data),
	})
	return q.Queue.WriteTexture(dst, data, layout, size)
}

// Present counts the call and returns the next injected error, if any.
func (q *Queue) Present(s hal.Surface, t hal.SurfaceTexture, damage []image.Rectangle) error {
	q.rec.Presents++
	if err := pop(&q.rec.PresentErrors); err != nil {
		return err
	}
	return q.Queue.Present(unwrapSurface(s), t, damage)
}
