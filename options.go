package g3d

import (
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/g3d/camera"
	"github.com/gogpu/g3d/internal/gpu"
	"github.com/gogpu/g3d/internal/render"
)

// Option configures an Engine during creation.
// Use functional options to customize Engine behavior.
//
// Example:
//
//	// Defaults: first available backend, Fifo, light marker on
//	e, err := g3d.New(target, 1280, 720)
//
//	// Vulkan only, mailbox presentation, no light marker
//	e, err := g3d.New(target, 1280, 720,
//	    g3d.WithBackends("vulkan"),
//	    g3d.WithPresentMode(gputypes.PresentModeMailbox),
//	    g3d.WithLightMarker(false))
type Option func(*options)

// options holds optional configuration for Engine creation.
type options struct {
	backend     hal.Backend
	backends    []string
	presentMode gputypes.PresentMode
	debug       bool

	clearColor       gputypes.Color
	instanceCapacity int
	validateShaders  bool
	modelShader      string
	lightShader      string
	mipmaps          bool
	budget           uint64

	lightOrbit  float32
	lightMarker bool

	speed       float32
	sensitivity float32

	logger *slog.Logger
}

// DefaultInstanceCapacity is the capacity AddToScene uses when given zero.
const DefaultInstanceCapacity = 100

// defaultOptions returns the default engine options.
func defaultOptions() options {
	return options{
		backends:         gpu.DefaultBackendPriority,
		presentMode:      gputypes.PresentModeFifo,
		clearColor:       render.DefaultClearColor,
		instanceCapacity: DefaultInstanceCapacity,
		validateShaders:  true,
		lightMarker:      true,
		speed:            camera.DefaultSpeed,
		sensitivity:      camera.DefaultSensitivity,
	}
}

// WithBackends sets the HAL backend names to try, most preferred first.
// Names are those of gputypes.Backend: "vulkan", "metal", "dx12", "gl",
// "empty". Backends must be registered, usually by importing
// github.com/gogpu/wgpu/hal/allbackends.
func WithBackends(names ...string) Option {
	return func(o *options) {
		if len(names) > 0 {
			o.backends = names
		}
	}
}

// WithPresentMode requests a present mode. Fifo is used when the surface
// does not support it.
func WithPresentMode(mode gputypes.PresentMode) Option {
	return func(o *options) {
		o.presentMode = mode
	}
}

// WithDebug enables backend validation layers where available.
func WithDebug(enabled bool) Option {
	return func(o *options) {
		o.debug = enabled
	}
}

// WithClearColor sets the color the frame is cleared to.
// The default is (0.1, 0.2, 0.3, 1).
func WithClearColor(c gputypes.Color) Option {
	return func(o *options) {
		o.clearColor = c
	}
}

// WithInstanceCapacity sets the capacity AddToScene uses when called with
// zero.
func WithInstanceCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.instanceCapacity = n
		}
	}
}

// WithShaderValidation toggles naga validation of shader sources before
// pipeline creation. Enabled by default.
func WithShaderValidation(enabled bool) Option {
	return func(o *options) {
		o.validateShaders = enabled
	}
}

// WithShaders replaces the WGSL sources of the model and light marker
// pipelines. An empty string keeps the built-in source. Both shaders must
// keep the built-in bind group and vertex layouts and name their entry
// points vs_main and fs_main.
func WithShaders(modelWGSL, lightWGSL string) Option {
	return func(o *options) {
		o.modelShader = modelWGSL
		o.lightShader = lightWGSL
	}
}

// WithMipmaps generates mip chains for material textures.
func WithMipmaps(enabled bool) Option {
	return func(o *options) {
		o.mipmaps = enabled
	}
}

// WithMemoryBudget caps the bytes of buffers and textures the engine may
// allocate. Allocations past the budget fail with ErrBudgetExceeded.
func WithMemoryBudget(bytes uint64) Option {
	return func(o *options) {
		o.budget = bytes
	}
}

// WithLightOrbit makes the light orbit at degPerSecond around +Y,
// independent of the frame rate. By default it turns one degree per frame.
func WithLightOrbit(degPerSecond float32) Option {
	return func(o *options) {
		o.lightOrbit = degPerSecond
	}
}

// WithLightMarker toggles drawing a small cube at the light position.
func WithLightMarker(enabled bool) Option {
	return func(o *options) {
		o.lightMarker = enabled
	}
}

// WithCameraSpeed sets the controller speed in units per second and the
// mouse sensitivity.
func WithCameraSpeed(speed, sensitivity float32) Option {
	return func(o *options) {
		o.speed = speed
		o.sensitivity = sensitivity
	}
}

// WithLogger is shorthand for calling SetLogger before New.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// withHALBackend forces a HAL backend instance, bypassing the registry.
func withHALBackend(b hal.Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}
