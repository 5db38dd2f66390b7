package camera

import (
	"time"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gpucontext"
)

// Default controller tuning.
const (
	DefaultSpeed       = 4.0
	DefaultSensitivity = 0.4

	// ScrollLineScale converts one wheel line into zoom units.
	ScrollLineScale = 100.0
)

// Deltas is the input for one update.
//
// Forward, Right and Up are movement axes in [-1, 1]. Yaw and Pitch are
// mouse motion in pixels; positive Pitch looks up. Zoom moves along the
// view direction; positive zooms in.
type Deltas struct {
	Forward float32
	Right   float32
	Up      float32
	Yaw     float32
	Pitch   float32
	Zoom    float32
}

// Controller accumulates input events between frames and applies them to a
// camera once per frame.
type Controller struct {
	Speed       float32
	Sensitivity float32

	forward, backward float32
	left, right       float32
	up, down          float32
	rotateH, rotateV  float32
	scroll            float32
}

// NewController returns a controller with the given speed in units per
// second and mouse sensitivity.
func NewController(speed, sensitivity float32) *Controller {
	return &Controller{Speed: speed, Sensitivity: sensitivity}
}

// ProcessKey records a key transition and reports whether the key moves
// the camera. W/S and Up/Down move forward and back, A/D and Left/Right
// strafe, E rises and LeftShift sinks.
func (c *Controller) ProcessKey(key gpucontext.Key, pressed bool) bool {
	var amount float32
	if pressed {
		amount = 1
	}
	switch key {
	case gpucontext.KeyW, gpucontext.KeyUp:
		c.forward = amount
	case gpucontext.KeyS, gpucontext.KeyDown:
		c.backward = amount
	case gpucontext.KeyA, gpucontext.KeyLeft:
		c.left = amount
	case gpucontext.KeyD, gpucontext.KeyRight:
		c.right = amount
	case gpucontext.KeyE:
		c.up = amount
	case gpucontext.KeyLeftShift:
		c.down = amount
	default:
		return false
	}
	return true
}

// ProcessMouse accumulates mouse motion in pixels. Positive dy is downward.
func (c *Controller) ProcessMouse(dx, dy float64) {
	c.rotateH += float32(dx)
	c.rotateV += float32(dy)
}

// ProcessScroll accumulates wheel motion in lines. Positive dy zooms in.
func (c *Controller) ProcessScroll(dy float64) {
	c.scroll += float32(dy) * ScrollLineScale
}

// Deltas returns the input accumulated since the last Update.
func (c *Controller) Deltas() Deltas {
	return Deltas{
		Forward: c.forward - c.backward,
		Right:   c.right - c.left,
		Up:      c.up - c.down,
		Yaw:     c.rotateH,
		Pitch:   -c.rotateV,
		Zoom:    c.scroll,
	}
}

// Update applies the accumulated input to cam and clears mouse and scroll
// input. Held keys keep moving the camera on later updates.
func (c *Controller) Update(cam *Camera, dt time.Duration) {
	c.ApplyInput(cam, c.Deltas(), dt)
	c.rotateH, c.rotateV, c.scroll = 0, 0, 0
}

// ApplyInput moves and turns cam by d over dt.
//
// Forward and Right move in the horizontal plane of the yaw, Up moves along
// world Y, Zoom moves along the full view direction. Pitch is clamped to
// ±SafeFracPi2.
func (c *Controller) ApplyInput(cam *Camera, d Deltas, dt time.Duration) {
	secs := float32(dt.Seconds())
	sinYaw, cosYaw := math32.Sincos(cam.Yaw)
	forward := mgl32.Vec3{cosYaw, 0, sinYaw}
	right := mgl32.Vec3{-sinYaw, 0, cosYaw}

	step := c.Speed * secs
	cam.Position = cam.Position.
		Add(forward.Mul(d.Forward * step)).
		Add(right.Mul(d.Right * step)).
		Add(cam.Forward().Mul(d.Zoom * step * c.Sensitivity))
	cam.Position[1] += d.Up * step

	// One pixel of motion turns one radian per second at sensitivity 1.
	cam.Yaw += d.Yaw * c.Sensitivity * secs
	cam.Pitch += d.Pitch * c.Sensitivity * secs
	cam.Pitch = mgl32.Clamp(cam.Pitch, -SafeFracPi2, SafeFracPi2)
}
