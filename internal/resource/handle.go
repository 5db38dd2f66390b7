// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package resource owns the GPU buffers, textures and bind groups of the
// engine and hands out opaque handles to them.
//
// Handles are plain integers. Every allocation receives a fresh id from a
// single counter, so a handle is never reused: a released handle stays
// invalid forever, and lookups with it fail with ErrInvalidHandle.
//
// Raw HAL objects are reachable only through the lookup methods, which
// validate the handle first.
package resource

// InvalidHandle is the zero value of every handle type. No resource ever
// receives it.
const InvalidHandle = 0

// Handle is implemented by BufferHandle, TextureHandle and BindGroupHandle.
type Handle interface {
	id() uint64
}

// BufferHandle identifies a buffer owned by a Manager.
type BufferHandle uint64

// TextureHandle identifies a texture, its view and its sampler.
type TextureHandle uint64

// BindGroupHandle identifies a bind group.
type BindGroupHandle uint64

func (h BufferHandle) id() uint64    { return uint64(h) }
func (h TextureHandle) id() uint64   { return uint64(h) }
func (h BindGroupHandle) id() uint64 { return uint64(h) }

// Valid reports whether h is not the zero handle.
func (h BufferHandle) Valid() bool { return h != InvalidHandle }

// Valid reports whether h is not the zero handle.
func (h TextureHandle) Valid() bool { return h != InvalidHandle }

// Valid reports whether h is not the zero handle.
func (h BindGroupHandle) Valid() bool { return h != InvalidHandle }
