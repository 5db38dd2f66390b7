package asset

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg" // register JPEG
	_ "image/png"  // register PNG
	"io"
	"os"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"  // register BMP
	_ "golang.org/x/image/tiff" // register TIFF
	_ "golang.org/x/image/webp" // register WebP
)

// ErrInvalidPixels is returned when pixel data does not match its extent.
var ErrInvalidPixels = errors.New("asset: pixel data does not match size")

// Pixels is a decoded RGBA8 image, rows top to bottom, tightly packed.
//
// Key identifies the source (usually its path). Materials sharing a key
// share one GPU texture. An empty key falls back to pointer identity.
type Pixels struct {
	Key    string
	Width  uint32
	Height uint32
	RGBA   []byte
}

// Validate reports whether RGBA holds exactly Width*Height pixels.
func (p *Pixels) Validate() error {
	if p.Width == 0 || p.Height == 0 || len(p.RGBA) != int(p.Width)*int(p.Height)*4 {
		return fmt.Errorf("%w: %q is %dx%d with %d bytes", ErrInvalidPixels, p.Key, p.Width, p.Height, len(p.RGBA))
	}
	return nil
}

// PixelsFromImage converts img to tightly packed non-premultiplied RGBA8.
func PixelsFromImage(key string, img image.Image) *Pixels {
	b := img.Bounds()
	var dst *image.NRGBA
	if n, ok := img.(*image.NRGBA); ok && n.Stride == 4*b.Dx() && b.Min == (image.Point{}) {
		dst = n
	} else {
		dst = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	}
	return &Pixels{
		Key:    key,
		Width:  uint32(b.Dx()),
		Height: uint32(b.Dy()),
		RGBA:   dst.Pix,
	}
}

// DecodePixels decodes a PNG, JPEG, BMP, TIFF or WebP stream.
func DecodePixels(key string, r io.Reader) (*Pixels, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", key, err)
	}
	return PixelsFromImage(key, img), nil
}

// LoadPixels reads and decodes the image at path. The path is the key.
func LoadPixels(path string) (*Pixels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodePixels(path, f)
}

// Solid returns a 1x1 image of c.
func Solid(key string, c color.NRGBA) *Pixels {
	return &Pixels{Key: key, Width: 1, Height: 1, RGBA: []byte{c.R, c.G, c.B, c.A}}
}

// Checker returns a size x size checkerboard with square cells of cell pixels.
func Checker(key string, size, cell int, a, b color.NRGBA) *Pixels {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := range size {
		for x := range size {
			c := a
			if (x/cell+y/cell)%2 == 1 {
				c = b
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return PixelsFromImage(key, img)
}
