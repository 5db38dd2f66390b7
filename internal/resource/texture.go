// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package resource

import (
	"fmt"
	"image"
	"math/bits"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/image/draw"
)

// DepthFormat is the format of every depth texture the manager creates.
const DepthFormat = gputypes.TextureFormatDepth32Float

// TextureOptions controls mip generation and sampling of a color texture.
// The zero value gives a single level, repeat addressing, linear
// magnification and nearest minification.
type TextureOptions struct {
	// Mipmaps generates a full mip chain on the CPU.
	Mipmaps bool

	// AddressMode applies to U, V and W. Defaults to Repeat.
	AddressMode gputypes.AddressMode

	// MagFilter defaults to Linear. MinFilter and MipmapFilter default to Nearest.
	MagFilter    gputypes.FilterMode
	MinFilter    gputypes.FilterMode
	MipmapFilter gputypes.FilterMode
}

func (o TextureOptions) withDefaults() TextureOptions {
	if o.AddressMode == gputypes.AddressModeUndefined {
		o.AddressMode = gputypes.AddressModeRepeat
	}
	if o.MagFilter == gputypes.FilterModeUndefined {
		o.MagFilter = gputypes.FilterModeLinear
	}
	if o.MinFilter == gputypes.FilterModeUndefined {
		o.MinFilter = gputypes.FilterModeNearest
	}
	if o.MipmapFilter == gputypes.FilterModeUndefined {
		o.MipmapFilter = gputypes.FilterModeNearest
	}
	return o
}

// MipLevelCount returns the number of levels of a full chain for the extent.
func MipLevelCount(width, height uint32) uint32 {
	return uint32(bits.Len32(max(width, height)))
}

// CreateTexture creates a 2D color texture from tightly packed RGBA8 pixels,
// uploads it and creates its default view and sampler.
//
// format must be RGBA8Unorm or RGBA8UnormSrgb. len(pixels) must equal
// width*height*4.
func (m *Manager) CreateTexture(label string, pixels []byte, width, height uint32, format gputypes.TextureFormat, opts TextureOptions) (TextureHandle, error) {
	if width == 0 || height == 0 {
		return InvalidHandle, fmt.Errorf("create texture %q: %w", label, ErrZeroSize)
	}
	if format != gputypes.TextureFormatRGBA8Unorm && format != gputypes.TextureFormatRGBA8UnormSrgb {
		return InvalidHandle, fmt.Errorf("create texture %q: %w: %s", label, ErrUnsupportedFormat, format)
	}
	if want := int(width) * int(height) * 4; len(pixels) != want {
		return InvalidHandle, fmt.Errorf("create texture %q: %w: got %d bytes, want %d",
			label, ErrInvalidPixels, len(pixels), want)
	}
	opts = opts.withDefaults()

	levels := []*image.RGBA{{
		Pix:    pixels,
		Stride: int(width) * 4,
		Rect:   image.Rect(0, 0, int(width), int(height)),
	}}
	if opts.Mipmaps {
		levels = buildMipChain(levels[0])
	}
	var bytes uint64
	for _, l := range levels {
		bytes += uint64(len(l.Pix))
	}
	if err := m.reserve(bytes); err != nil {
		return InvalidHandle, fmt.Errorf("create texture %q: %w", label, err)
	}

	tex, err := m.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: uint32(len(levels)),
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return InvalidHandle, fmt.Errorf("create texture %q: %w", label, err)
	}
	for level, img := range levels {
		if err := m.writeLevel(tex, uint32(level), img); err != nil {
			m.device.DestroyTexture(tex)
			return InvalidHandle, fmt.Errorf("upload texture %q level %d: %w", label, level, err)
		}
	}

	e := &textureEntry{
		label:   label,
		texture: tex,
		format:  format,
		width:   width,
		height:  height,
		mips:    uint32(len(levels)),
		bytes:   bytes,
	}
	sampler := &hal.SamplerDescriptor{
		Label:        label + "_sampler",
		AddressModeU: opts.AddressMode,
		AddressModeV: opts.AddressMode,
		AddressModeW: opts.AddressMode,
		MagFilter:    opts.MagFilter,
		MinFilter:    opts.MinFilter,
		MipmapFilter: opts.MipmapFilter,
		LodMaxClamp:  float32(len(levels)),
		Anisotropy:   1,
	}
	if err := m.finishTexture(e, sampler); err != nil {
		return InvalidHandle, err
	}
	return m.addTexture(e), nil
}

// CreateDepthTexture creates a Depth32Float render target that can also be
// sampled with a LessEqual comparison sampler.
func (m *Manager) CreateDepthTexture(label string, width, height uint32) (TextureHandle, error) {
	if width == 0 || height == 0 {
		return InvalidHandle, fmt.Errorf("create depth texture %q: %w", label, ErrZeroSize)
	}
	bytes := uint64(width) * uint64(height) * 4
	if err := m.reserve(bytes); err != nil {
		return InvalidHandle, fmt.Errorf("create depth texture %q: %w", label, err)
	}
	tex, err := m.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        DepthFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding,
	})
	if err != nil {
		return InvalidHandle, fmt.Errorf("create depth texture %q: %w", label, err)
	}
	e := &textureEntry{
		label:   label,
		texture: tex,
		format:  DepthFormat,
		width:   width,
		height:  height,
		mips:    1,
		bytes:   bytes,
	}
	sampler := &hal.SamplerDescriptor{
		Label:        label + "_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeNearest,
		LodMaxClamp:  100,
		Compare:      gputypes.CompareFunctionLessEqual,
		Anisotropy:   1,
	}
	if err := m.finishTexture(e, sampler); err != nil {
		return InvalidHandle, err
	}
	return m.addTexture(e), nil
}

// finishTexture creates the view and sampler of e. On failure the texture
// is destroyed.
func (m *Manager) finishTexture(e *textureEntry, sampler *hal.SamplerDescriptor) error {
	view, err := m.device.CreateTextureView(e.texture, &hal.TextureViewDescriptor{
		Label:           e.label + "_view",
		Format:          e.format,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   e.mips,
		ArrayLayerCount: 1,
	})
	if err != nil {
		m.device.DestroyTexture(e.texture)
		return fmt.Errorf("create texture view %q: %w", e.label, err)
	}
	s, err := m.device.CreateSampler(sampler)
	if err != nil {
		m.device.DestroyTextureView(view)
		m.device.DestroyTexture(e.texture)
		return fmt.Errorf("create sampler %q: %w", e.label, err)
	}
	e.view = view
	e.sampler = s
	return nil
}

func (m *Manager) addTexture(e *textureEntry) TextureHandle {
	h := TextureHandle(m.allocID())
	m.textures[h] = e
	m.textureBytes += e.bytes
	return h
}

func (m *Manager) writeLevel(tex hal.Texture, level uint32, img *image.RGBA) error {
	b := img.Bounds()
	return m.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  tex,
			MipLevel: level,
			Aspect:   gputypes.TextureAspectAll,
		},
		img.Pix,
		&hal.ImageDataLayout{
			BytesPerRow:  uint32(img.Stride),
			RowsPerImage: uint32(b.Dy()),
		},
		&hal.Extent3D{Width: uint32(b.Dx()), Height: uint32(b.Dy()), DepthOrArrayLayers: 1},
	)
}

// buildMipChain returns base followed by successively halved levels down to
// 1x1, each resampled from the previous one with a bilinear filter.
func buildMipChain(base *image.RGBA) []*image.RGBA {
	levels := []*image.RGBA{base}
	w, h := base.Rect.Dx(), base.Rect.Dy()
	for w > 1 || h > 1 {
		w, h = max(w/2, 1), max(h/2, 1)
		prev := levels[len(levels)-1]
		next := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.BiLinear.Scale(next, next.Rect, prev, prev.Rect, draw.Src, nil)
		levels = append(levels, next)
	}
	return levels
}
