// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package resource

import (
	"errors"
	"image"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/g3d/internal/gputest"
)

func TestMipLevelCount(t *testing.T) {
	tests := []struct {
		w, h uint32
		want uint32
	}{
		{1, 1, 1},
		{2, 2, 2},
		{256, 256, 9},
		{256, 64, 9},
		{3, 5, 3},
		{1024, 1, 11},
	}
	for _, tt := range tests {
		if got := MipLevelCount(tt.w, tt.h); got != tt.want {
			t.Errorf("MipLevelCount(%d, %d) = %d, want %d", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestCreateTextureValidation(t *testing.T) {
	tests := []struct {
		name   string
		pixels []byte
		w, h   uint32
		format gputypes.TextureFormat
		want   error
	}{
		{"short", make([]byte, 15), 2, 2, gputypes.TextureFormatRGBA8Unorm, ErrInvalidPixels},
		{"long", make([]byte, 17), 2, 2, gputypes.TextureFormatRGBA8Unorm, ErrInvalidPixels},
		{"zero width", nil, 0, 2, gputypes.TextureFormatRGBA8Unorm, ErrZeroSize},
		{"depth format", make([]byte, 16), 2, 2, gputypes.TextureFormatDepth32Float, ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, device := newTestManager(t)
			_, err := m.CreateTexture(tt.name, tt.pixels, tt.w, tt.h, tt.format, TextureOptions{})
			if !errors.Is(err, tt.want) {
				t.Errorf("CreateTexture = %v, want %v", err, tt.want)
			}
			if n := len(device.Recorder().Created); n != 0 {
				t.Errorf("%d GPU objects created for invalid input", n)
			}
		})
	}
}

func TestCreateTextureSingleLevel(t *testing.T) {
	m, device := newTestManager(t)
	h, err := m.CreateTexture("diffuse", make([]byte, 8*4*4), 8, 4, gputypes.TextureFormatRGBA8UnormSrgb, TextureOptions{})
	if err != nil {
		t.Fatalf("CreateTexture failed: %v", err)
	}
	info, err := m.Texture(h)
	if err != nil {
		t.Fatal(err)
	}
	if info.MipLevels != 1 || info.Width != 8 || info.Height != 4 {
		t.Errorf("info = %+v", info)
	}
	writes := device.Recorder().TextureWrites
	if len(writes) != 1 {
		t.Fatalf("%d texture writes, want 1", len(writes))
	}
	if w := writes[0]; w.BytesPerRow != 32 || w.Width != 8 || w.Height != 4 || w.Bytes != 128 {
		t.Errorf("write = %+v", w)
	}
	if _, err := m.TextureView(h); err != nil {
		t.Errorf("TextureView = %v", err)
	}
	if _, err := m.Sampler(h); err != nil {
		t.Errorf("Sampler = %v", err)
	}
}

func TestCreateTextureMipmaps(t *testing.T) {
	m, device := newTestManager(t)
	h, err := m.CreateTexture("diffuse", make([]byte, 8*2*4), 8, 2, gputypes.TextureFormatRGBA8Unorm, TextureOptions{Mipmaps: true})
	if err != nil {
		t.Fatalf("CreateTexture failed: %v", err)
	}
	info, _ := m.Texture(h)
	if info.MipLevels != 4 {
		t.Fatalf("MipLevels = %d, want 4", info.MipLevels)
	}

	want := []gputest.TextureWrite{
		{MipLevel: 0, Width: 8, Height: 2, BytesPerRow: 32, Bytes: 64},
		{MipLevel: 1, Width: 4, Height: 1, BytesPerRow: 16, Bytes: 16},
		{MipLevel: 2, Width: 2, Height: 1, BytesPerRow: 8, Bytes: 8},
		{MipLevel: 3, Width: 1, Height: 1, BytesPerRow: 4, Bytes: 4},
	}
	got := device.Recorder().TextureWrites
	if len(got) != len(want) {
		t.Fatalf("%d texture writes, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("write %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if s := m.Stats(); s.TextureBytes != 64+16+8+4 {
		t.Errorf("TextureBytes = %d", s.TextureBytes)
	}
}

func TestBuildMipChainAveragesColor(t *testing.T) {
	base := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(base.Pix); i += 4 {
		base.Pix[i+0] = 200
		base.Pix[i+1] = 100
		base.Pix[i+2] = 50
		base.Pix[i+3] = 255
	}
	levels := buildMipChain(base)
	if len(levels) != 3 {
		t.Fatalf("%d levels, want 3", len(levels))
	}
	last := levels[2]
	if last.Rect.Dx() != 1 || last.Rect.Dy() != 1 {
		t.Fatalf("last level is %v", last.Rect)
	}
	c := last.RGBAAt(0, 0)
	near := func(got, want uint8) bool {
		d := int(got) - int(want)
		return d >= -1 && d <= 1
	}
	if !near(c.R, 200) || !near(c.G, 100) || !near(c.B, 50) || !near(c.A, 255) {
		t.Errorf("uniform image resampled to %v", c)
	}
}

func TestCreateDepthTexture(t *testing.T) {
	m, _ := newTestManager(t)
	h, err := m.CreateDepthTexture("depth", 800, 600)
	if err != nil {
		t.Fatalf("CreateDepthTexture failed: %v", err)
	}
	info, _ := m.Texture(h)
	if info.Format != gputypes.TextureFormatDepth32Float {
		t.Errorf("format = %v, want Depth32Float", info.Format)
	}
	if s := m.Stats(); s.TextureBytes != 800*600*4 {
		t.Errorf("TextureBytes = %d", s.TextureBytes)
	}
	if _, err := m.CreateDepthTexture("depth", 0, 600); !errors.Is(err, ErrZeroSize) {
		t.Errorf("zero-area depth texture = %v, want ErrZeroSize", err)
	}
}
