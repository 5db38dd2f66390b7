// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package resource

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// alignBuffer rounds size up to the 4-byte alignment required by
// WriteBuffer and buffer bindings.
func alignBuffer(size uint64) uint64 {
	return (size + 3) &^ 3
}

// CreateBuffer creates a buffer holding data and queues the upload.
// The size is len(data) rounded up to 4 bytes. CopyDst is always added to
// usage so the content can be rewritten with WriteBuffer.
func (m *Manager) CreateBuffer(label string, data []byte, usage gputypes.BufferUsage) (BufferHandle, error) {
	if len(data) == 0 {
		return InvalidHandle, fmt.Errorf("create buffer %q: %w", label, ErrZeroSize)
	}
	h, buf, err := m.newBuffer(label, uint64(len(data)), usage)
	if err != nil {
		return InvalidHandle, err
	}
	upload := data
	if pad := alignBuffer(uint64(len(data))) - uint64(len(data)); pad > 0 {
		upload = make([]byte, len(data)+int(pad))
		copy(upload, data)
	}
	if err := m.queue.WriteBuffer(buf, 0, upload); err != nil {
		_ = m.Release(h)
		return InvalidHandle, fmt.Errorf("upload buffer %q: %w", label, err)
	}
	return h, nil
}

// CreateEmptyBuffer creates a zero-filled buffer of at least size bytes.
func (m *Manager) CreateEmptyBuffer(label string, size uint64, usage gputypes.BufferUsage) (BufferHandle, error) {
	if size == 0 {
		return InvalidHandle, fmt.Errorf("create buffer %q: %w", label, ErrZeroSize)
	}
	h, _, err := m.newBuffer(label, size, usage)
	return h, err
}

func (m *Manager) newBuffer(label string, size uint64, usage gputypes.BufferUsage) (BufferHandle, hal.Buffer, error) {
	size = alignBuffer(size)
	if err := m.reserve(size); err != nil {
		return InvalidHandle, nil, fmt.Errorf("create buffer %q: %w", label, err)
	}
	usage |= gputypes.BufferUsageCopyDst
	buf, err := m.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return InvalidHandle, nil, fmt.Errorf("create buffer %q: %w", label, err)
	}
	h := BufferHandle(m.allocID())
	m.buffers[h] = &bufferEntry{label: label, buffer: buf, size: size, usage: usage}
	m.bufferBytes += size
	return h, buf, nil
}

// WriteBuffer queues a write of data at offset into the buffer for h.
//
// A write that would end past the buffer size returns ErrSizeMismatch and
// leaves the content unchanged.
func (m *Manager) WriteBuffer(h BufferHandle, offset uint64, data []byte) error {
	e, ok := m.buffers[h]
	if !ok {
		return ErrInvalidHandle
	}
	end := offset + uint64(len(data))
	if end < offset || end > e.size {
		return fmt.Errorf("%w: %d bytes at offset %d into %q (%d bytes)",
			ErrSizeMismatch, len(data), offset, e.label, e.size)
	}
	if len(data) == 0 {
		return nil
	}
	if err := m.queue.WriteBuffer(e.buffer, offset, data); err != nil {
		return fmt.Errorf("write buffer %q: %w", e.label, err)
	}
	return nil
}
