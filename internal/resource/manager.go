// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package resource

import (
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Stats reports live resources and their estimated GPU memory.
type Stats struct {
	Buffers      int
	Textures     int
	BindGroups   int
	BufferBytes  uint64
	TextureBytes uint64

	// Budget is the configured limit in bytes, 0 when unlimited.
	Budget uint64
}

// UsedBytes returns buffer and texture bytes combined.
func (s Stats) UsedBytes() uint64 { return s.BufferBytes + s.TextureBytes }

// String returns a human-readable summary.
func (s Stats) String() string {
	return fmt.Sprintf("Resources[%d buffers, %d textures, %d bind groups, %.1f KB]",
		s.Buffers, s.Textures, s.BindGroups, float64(s.UsedBytes())/1024)
}

type bufferEntry struct {
	label  string
	buffer hal.Buffer
	size   uint64
	usage  gputypes.BufferUsage
}

type textureEntry struct {
	label   string
	texture hal.Texture
	view    hal.TextureView
	sampler hal.Sampler
	format  gputypes.TextureFormat
	width   uint32
	height  uint32
	mips    uint32
	bytes   uint64
}

type bindGroupEntry struct {
	label string
	group hal.BindGroup
}

// Option configures a Manager.
type Option func(*Manager)

// WithBudget limits the bytes of buffers and textures the manager may hold.
// Zero means unlimited.
func WithBudget(bytes uint64) Option {
	return func(m *Manager) { m.budget = bytes }
}

// Manager is an arena of GPU resources addressed by handles.
//
// Creation and uploads return as soon as the commands are queued; the queue
// executes them before any later submission reads the resources.
//
// Manager is not safe for concurrent use.
type Manager struct {
	device hal.Device
	queue  hal.Queue
	budget uint64

	nextID uint64
	order  []uint64

	buffers  map[BufferHandle]*bufferEntry
	textures map[TextureHandle]*textureEntry
	groups   map[BindGroupHandle]*bindGroupEntry

	bufferBytes  uint64
	textureBytes uint64
}

// NewManager creates an empty manager allocating from device and uploading
// through queue.
func NewManager(device hal.Device, queue hal.Queue, opts ...Option) *Manager {
	m := &Manager{
		device:   device,
		queue:    queue,
		buffers:  make(map[BufferHandle]*bufferEntry),
		textures: make(map[TextureHandle]*textureEntry),
		groups:   make(map[BindGroupHandle]*bindGroupEntry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Device returns the device resources are created on.
func (m *Manager) Device() hal.Device { return m.device }

// Queue returns the queue uploads are issued on.
func (m *Manager) Queue() hal.Queue { return m.queue }

func (m *Manager) allocID() uint64 {
	m.nextID++
	m.order = append(m.order, m.nextID)
	return m.nextID
}

func (m *Manager) reserve(bytes uint64) error {
	if m.budget == 0 {
		return nil
	}
	if used := m.bufferBytes + m.textureBytes; used+bytes > m.budget {
		return fmt.Errorf("%w: need %d bytes, %d of %d in use", ErrBudgetExceeded, bytes, used, m.budget)
	}
	return nil
}

// Release destroys the resource identified by h. The handle, and every copy
// of it, becomes invalid. Only the arena of h's type is searched, so a
// handle of one kind never releases a resource of another.
func (m *Manager) Release(h Handle) error {
	var ok bool
	switch h := h.(type) {
	case BufferHandle:
		ok = m.releaseBuffer(h)
	case TextureHandle:
		ok = m.releaseTexture(h)
	case BindGroupHandle:
		ok = m.releaseGroup(h)
	}
	if !ok {
		return ErrInvalidHandle
	}
	m.forget(h.id())
	return nil
}

// forget drops id from the creation order. Ids are allocated in increasing
// order, so order stays sorted.
func (m *Manager) forget(id uint64) {
	if i, found := slices.BinarySearch(m.order, id); found {
		m.order = slices.Delete(m.order, i, i+1)
	}
}

func (m *Manager) releaseBuffer(h BufferHandle) bool {
	e, ok := m.buffers[h]
	if !ok {
		return false
	}
	m.device.DestroyBuffer(e.buffer)
	m.bufferBytes -= e.size
	delete(m.buffers, h)
	return true
}

func (m *Manager) releaseTexture(h TextureHandle) bool {
	e, ok := m.textures[h]
	if !ok {
		return false
	}
	m.device.DestroySampler(e.sampler)
	m.device.DestroyTextureView(e.view)
	m.device.DestroyTexture(e.texture)
	m.textureBytes -= e.bytes
	delete(m.textures, h)
	return true
}

func (m *Manager) releaseGroup(h BindGroupHandle) bool {
	e, ok := m.groups[h]
	if !ok {
		return false
	}
	m.device.DestroyBindGroup(e.group)
	delete(m.groups, h)
	return true
}

// ReleaseAll destroys every live resource, most recently created first.
// Handles issued before the call stay invalid; new allocations continue the
// id sequence.
func (m *Manager) ReleaseAll() {
	for i := len(m.order) - 1; i >= 0; i-- {
		m.releaseID(m.order[i])
	}
	m.order = m.order[:0]
}

// releaseID destroys whichever resource holds id. Ids are unique across
// kinds.
func (m *Manager) releaseID(id uint64) bool {
	return m.releaseBuffer(BufferHandle(id)) ||
		m.releaseTexture(TextureHandle(id)) ||
		m.releaseGroup(BindGroupHandle(id))
}

// Stats returns live counts and byte totals.
func (m *Manager) Stats() Stats {
	return Stats{
		Buffers:      len(m.buffers),
		Textures:     len(m.textures),
		BindGroups:   len(m.groups),
		BufferBytes:  m.bufferBytes,
		TextureBytes: m.textureBytes,
		Budget:       m.budget,
	}
}

// Buffer returns the HAL buffer for h.
func (m *Manager) Buffer(h BufferHandle) (hal.Buffer, error) {
	e, ok := m.buffers[h]
	if !ok {
		return nil, ErrInvalidHandle
	}
	return e.buffer, nil
}

// BufferSize returns the immutable size of the buffer for h.
func (m *Manager) BufferSize(h BufferHandle) (uint64, error) {
	e, ok := m.buffers[h]
	if !ok {
		return 0, ErrInvalidHandle
	}
	return e.size, nil
}

// TextureView returns the default view of the texture for h.
func (m *Manager) TextureView(h TextureHandle) (hal.TextureView, error) {
	e, ok := m.textures[h]
	if !ok {
		return nil, ErrInvalidHandle
	}
	return e.view, nil
}

// Sampler returns the sampler created with the texture for h.
func (m *Manager) Sampler(h TextureHandle) (hal.Sampler, error) {
	e, ok := m.textures[h]
	if !ok {
		return nil, ErrInvalidHandle
	}
	return e.sampler, nil
}

// TextureInfo describes a managed texture.
type TextureInfo struct {
	Format    gputypes.TextureFormat
	Width     uint32
	Height    uint32
	MipLevels uint32
}

// Texture returns the format and extent of the texture for h.
func (m *Manager) Texture(h TextureHandle) (TextureInfo, error) {
	e, ok := m.textures[h]
	if !ok {
		return TextureInfo{}, ErrInvalidHandle
	}
	return TextureInfo{Format: e.format, Width: e.width, Height: e.height, MipLevels: e.mips}, nil
}

// BindGroup returns the HAL bind group for h.
func (m *Manager) BindGroup(h BindGroupHandle) (hal.BindGroup, error) {
	e, ok := m.groups[h]
	if !ok {
		return nil, ErrInvalidHandle
	}
	return e.group, nil
}
