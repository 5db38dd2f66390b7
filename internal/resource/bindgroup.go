// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package resource

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Ref names one managed resource to place at a binding of a bind group.
type Ref interface {
	entry(m *Manager) (gputypes.BindGroupEntry, error)
}

// BufferRef binds a range of a buffer. Size 0 binds from Offset to the end.
type BufferRef struct {
	Binding uint32
	Buffer  BufferHandle
	Offset  uint64
	Size    uint64
}

func (r BufferRef) entry(m *Manager) (gputypes.BindGroupEntry, error) {
	buf, err := m.Buffer(r.Buffer)
	if err != nil {
		return gputypes.BindGroupEntry{}, fmt.Errorf("binding %d: %w", r.Binding, err)
	}
	return gputypes.BindGroupEntry{
		Binding: r.Binding,
		Resource: gputypes.BufferBinding{
			Buffer: buf.NativeHandle(),
			Offset: r.Offset,
			Size:   r.Size,
		},
	}, nil
}

// TextureViewRef binds the default view of a texture.
type TextureViewRef struct {
	Binding uint32
	Texture TextureHandle
}

func (r TextureViewRef) entry(m *Manager) (gputypes.BindGroupEntry, error) {
	view, err := m.TextureView(r.Texture)
	if err != nil {
		return gputypes.BindGroupEntry{}, fmt.Errorf("binding %d: %w", r.Binding, err)
	}
	return gputypes.BindGroupEntry{
		Binding:  r.Binding,
		Resource: gputypes.TextureViewBinding{TextureView: view.NativeHandle()},
	}, nil
}

// SamplerRef binds the sampler created with a texture.
type SamplerRef struct {
	Binding uint32
	Texture TextureHandle
}

func (r SamplerRef) entry(m *Manager) (gputypes.BindGroupEntry, error) {
	s, err := m.Sampler(r.Texture)
	if err != nil {
		return gputypes.BindGroupEntry{}, fmt.Errorf("binding %d: %w", r.Binding, err)
	}
	return gputypes.BindGroupEntry{
		Binding:  r.Binding,
		Resource: gputypes.SamplerBinding{Sampler: s.NativeHandle()},
	}, nil
}

// CreateBindGroup resolves refs against the arena and creates a bind group
// for layout. A bind group must be released before the resources it
// references.
func (m *Manager) CreateBindGroup(label string, layout hal.BindGroupLayout, refs ...Ref) (BindGroupHandle, error) {
	entries := make([]gputypes.BindGroupEntry, 0, len(refs))
	for _, r := range refs {
		e, err := r.entry(m)
		if err != nil {
			return InvalidHandle, fmt.Errorf("create bind group %q: %w", label, err)
		}
		entries = append(entries, e)
	}
	group, err := m.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return InvalidHandle, fmt.Errorf("create bind group %q: %w", label, err)
	}
	h := BindGroupHandle(m.allocID())
	m.groups[h] = &bindGroupEntry{label: label, group: group}
	return h, nil
}
