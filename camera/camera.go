// Package camera implements a first-person camera: a position with yaw
// and pitch, a perspective projection, and a controller turning keyboard,
// mouse and scroll input into camera motion.
//
// Matrices use github.com/go-gl/mathgl/mgl32 (column-major, right-handed).
// Clip-space depth follows the WebGPU convention of [0, 1].
package camera

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrInvalidProjectionParameters is returned for projections that cannot
// produce a finite matrix.
var ErrInvalidProjectionParameters = errors.New("camera: invalid projection parameters")

// OpenGLToWGPU maps OpenGL clip space (z in [-1, 1]) to WebGPU clip space
// (z in [0, 1]).
var OpenGLToWGPU = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// SafeFracPi2 bounds the pitch so the view direction never aligns with +Y.
const SafeFracPi2 = math32.Pi/2 - 0.0001

// Camera is a viewpoint. Yaw and Pitch are in radians; yaw 0 looks along +X,
// yaw -π/2 along -Z.
type Camera struct {
	Position mgl32.Vec3
	Yaw      float32
	Pitch    float32
}

// New returns a camera at position looking along the given yaw and pitch,
// in degrees.
func New(position mgl32.Vec3, yawDeg, pitchDeg float32) *Camera {
	return &Camera{
		Position: position,
		Yaw:      mgl32.DegToRad(yawDeg),
		Pitch:    mgl32.DegToRad(pitchDeg),
	}
}

// Forward returns the unit view direction.
func (c *Camera) Forward() mgl32.Vec3 {
	sinPitch, cosPitch := math32.Sincos(c.Pitch)
	sinYaw, cosYaw := math32.Sincos(c.Yaw)
	return mgl32.Vec3{cosPitch * cosYaw, sinPitch, cosPitch * sinYaw}.Normalize()
}

// View returns the right-handed world-to-view matrix.
func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Forward()), mgl32.Vec3{0, 1, 0})
}

// Projection is a perspective projection. FovY is in radians.
type Projection struct {
	FovY   float32
	Aspect float32
	Near   float32
	Far    float32
}

// NewProjection returns a projection for a width x height target with the
// vertical field of view in degrees.
func NewProjection(width, height uint32, fovYDeg, near, far float32) *Projection {
	p := &Projection{FovY: mgl32.DegToRad(fovYDeg), Aspect: 1, Near: near, Far: far}
	p.Resize(width, height)
	return p
}

// Resize updates the aspect ratio. A zero dimension leaves it unchanged.
func (p *Projection) Resize(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	p.Aspect = float32(width) / float32(height)
}

// Validate reports whether p yields a finite projection.
func (p *Projection) Validate() error {
	switch {
	case !finite(p.FovY, p.Aspect, p.Near, p.Far):
		return fmt.Errorf("%w: non-finite value in %+v", ErrInvalidProjectionParameters, *p)
	case p.Near <= 0:
		return fmt.Errorf("%w: near %v must be positive", ErrInvalidProjectionParameters, p.Near)
	case p.Near >= p.Far:
		return fmt.Errorf("%w: near %v must be less than far %v", ErrInvalidProjectionParameters, p.Near, p.Far)
	case p.FovY <= 0 || p.FovY >= math32.Pi:
		return fmt.Errorf("%w: fovy %v outside (0, π)", ErrInvalidProjectionParameters, p.FovY)
	case p.Aspect <= 0:
		return fmt.Errorf("%w: aspect %v must be positive", ErrInvalidProjectionParameters, p.Aspect)
	}
	return nil
}

// Matrix returns the OpenGL-convention perspective matrix.
// Callers should Validate first.
func (p *Projection) Matrix() mgl32.Mat4 {
	return mgl32.Perspective(p.FovY, p.Aspect, p.Near, p.Far)
}

// BuildViewProjection returns OpenGLToWGPU * projection * view.
//
// Invalid projections, and cameras whose matrix would contain NaN or Inf,
// fail with ErrInvalidProjectionParameters. Nothing is clamped.
func BuildViewProjection(cam *Camera, proj *Projection) (mgl32.Mat4, error) {
	if err := proj.Validate(); err != nil {
		return mgl32.Mat4{}, err
	}
	if !finite(cam.Position[0], cam.Position[1], cam.Position[2], cam.Yaw, cam.Pitch) {
		return mgl32.Mat4{}, fmt.Errorf("%w: non-finite camera %+v", ErrInvalidProjectionParameters, *cam)
	}
	m := OpenGLToWGPU.Mul4(proj.Matrix()).Mul4(cam.View())
	if !finite(m[:]...) {
		return mgl32.Mat4{}, fmt.Errorf("%w: matrix is not finite", ErrInvalidProjectionParameters)
	}
	return m, nil
}

func finite(vs ...float32) bool {
	for _, v := range vs {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return false
		}
	}
	return true
}
