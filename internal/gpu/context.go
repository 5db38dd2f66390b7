// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// SurfaceTarget identifies the native window a surface is created for.
// Display is zero on platforms without a display connection.
type SurfaceTarget struct {
	Display uintptr
	Window  uintptr
}

// Config controls backend, device and surface setup.
type Config struct {
	// Backend forces a specific HAL backend. When nil the backend is
	// chosen from the registered ones using BackendPriority.
	Backend hal.Backend

	// BackendPriority lists backend names, most preferred first.
	// Defaults to DefaultBackendPriority.
	BackendPriority []string

	// PresentMode is used when the surface supports it, Fifo otherwise.
	PresentMode gputypes.PresentMode

	// Debug enables backend validation layers when available.
	Debug bool
}

// ResizeFunc is notified after the surface has been reconfigured.
type ResizeFunc func(width, height uint32) error

// Context owns every GPU handle of the engine: instance, surface, adapter,
// device and queue, plus the current surface configuration.
//
// All other GPU objects borrow the device and queue from Context and must be
// destroyed before Close is called.
//
// Context is not safe for concurrent use; the render loop owns it.
type Context struct {
	backendName string

	instance hal.Instance
	surface  hal.Surface
	adapter  hal.Adapter
	info     gputypes.AdapterInfo
	device   hal.Device
	queue    hal.Queue

	caps   *hal.SurfaceCapabilities
	config hal.SurfaceConfiguration

	subscribers []ResizeFunc
	closed      bool
}

// Initialize creates a context presenting to target with the given extent.
//
// The first adapter able to present to the surface is used. When no adapter
// qualifies the returned error wraps ErrNoSuitableAdapter. All failures are
// returned as *InitializationError and leave nothing allocated.
func Initialize(target SurfaceTarget, width, height uint32, cfg Config) (*Context, error) {
	if width == 0 || height == 0 {
		return nil, &InitializationError{Step: "surface size", Err: ErrZeroArea}
	}

	backend, name := cfg.Backend, ""
	if backend == nil {
		var err error
		backend, name, err = selectBackend(cfg.BackendPriority)
		if err != nil {
			return nil, &InitializationError{Step: "backend", Err: err}
		}
	} else {
		name = BackendName(backend.Variant())
	}

	c := &Context{backendName: name}
	if err := c.init(backend, target, width, height, cfg); err != nil {
		c.release()
		return nil, err
	}
	return c, nil
}

func (c *Context) init(backend hal.Backend, target SurfaceTarget, width, height uint32, cfg Config) error {
	desc := &hal.InstanceDescriptor{Backends: gputypes.BackendsAll}
	if cfg.Debug {
		desc.Flags = gputypes.InstanceFlagsDebug | gputypes.InstanceFlagsValidation
	}
	instance, err := backend.CreateInstance(desc)
	if err != nil {
		return &InitializationError{Step: "instance", Err: err}
	}
	c.instance = instance

	surface, err := instance.CreateSurface(target.Display, target.Window)
	if err != nil {
		return &InitializationError{Step: "surface", Err: err}
	}
	c.surface = surface

	exposed, caps, err := selectAdapter(instance.EnumerateAdapters(surface), surface)
	if err != nil {
		return &InitializationError{Step: "adapter", Err: err}
	}
	c.adapter = exposed.Adapter
	c.info = exposed.Info
	c.caps = caps
	slogger().Info("gpu: adapter selected",
		"backend", c.backendName,
		"name", exposed.Info.Name,
		"type", exposed.Info.DeviceType.String(),
	)

	opened, err := exposed.Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		return &InitializationError{Step: "device", Err: err}
	}
	c.device = opened.Device
	c.queue = opened.Queue

	c.config = hal.SurfaceConfiguration{
		Width:       width,
		Height:      height,
		Format:      chooseFormat(caps.Formats),
		Usage:       gputypes.TextureUsageRenderAttachment,
		PresentMode: choosePresentMode(caps.PresentModes, cfg.PresentMode),
		AlphaMode:   chooseAlphaMode(caps.AlphaModes),
	}
	if err := c.configure(); err != nil {
		return &InitializationError{Step: "configure surface", Err: err}
	}
	return nil
}

// selectAdapter returns the first adapter that can present to surface.
func selectAdapter(adapters []hal.ExposedAdapter, surface hal.Surface) (hal.ExposedAdapter, *hal.SurfaceCapabilities, error) {
	for _, a := range adapters {
		caps := a.Adapter.SurfaceCapabilities(surface)
		if caps == nil || len(caps.Formats) == 0 {
			slogger().Debug("gpu: adapter cannot present, skipping", "name", a.Info.Name)
			continue
		}
		return a, caps, nil
	}
	return hal.ExposedAdapter{}, nil, ErrNoSuitableAdapter
}

// chooseFormat prefers an sRGB surface format so shading happens in linear space.
func chooseFormat(formats []gputypes.TextureFormat) gputypes.TextureFormat {
	for _, f := range formats {
		if f.IsSrgb() {
			return f
		}
	}
	return formats[0]
}

func choosePresentMode(modes []gputypes.PresentMode, want gputypes.PresentMode) gputypes.PresentMode {
	for _, m := range modes {
		if m == want {
			return m
		}
	}
	// Fifo is the only mode every surface must support.
	return gputypes.PresentModeFifo
}

func chooseAlphaMode(modes []gputypes.CompositeAlphaMode) gputypes.CompositeAlphaMode {
	for _, m := range modes {
		if m == gputypes.CompositeAlphaModeOpaque {
			return m
		}
	}
	if len(modes) > 0 {
		return modes[0]
	}
	return gputypes.CompositeAlphaModeAuto
}

func (c *Context) configure() error {
	cfg := c.config
	if err := c.surface.Configure(c.device, &cfg); err != nil {
		return err
	}
	slogger().Info("gpu: surface configured",
		"width", cfg.Width,
		"height", cfg.Height,
		"format", cfg.Format.String(),
		"present_mode", cfg.PresentMode.String(),
	)
	return nil
}

// OnResize registers fn to be called after every successful surface
// reconfiguration. Subscribers run in registration order.
func (c *Context) OnResize(fn ResizeFunc) {
	c.subscribers = append(c.subscribers, fn)
}

// Resize reconfigures the surface, stores the new extent and notifies the
// resize subscribers. If configuration fails the stored extent is unchanged
// and no subscriber runs.
//
// A zero width or height means the window is minimized or hidden: the call is
// a no-op and the stored extent is left unchanged.
func (c *Context) Resize(width, height uint32) error {
	if c.closed {
		return ErrClosed
	}
	if width == 0 || height == 0 {
		slogger().Debug("gpu: ignoring zero-area resize", "width", width, "height", height)
		return nil
	}
	prev := c.config
	c.config.Width = width
	c.config.Height = height
	if err := c.configure(); err != nil {
		c.config = prev
		return fmt.Errorf("reconfigure surface: %w", err)
	}

	var errs []error
	for _, fn := range c.subscribers {
		if err := fn(width, height); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reconfigure repeats the last resize using the stored extent.
// Used to recover from outdated or lost surfaces.
func (c *Context) Reconfigure() error {
	return c.Resize(c.config.Width, c.config.Height)
}

// Frame is an acquired surface texture and a view to render into.
type Frame struct {
	Texture    hal.SurfaceTexture
	View       hal.TextureView
	Width      uint32
	Height     uint32
	Suboptimal bool
}

// AcquireFrame acquires the next surface texture and creates its view.
// Failures other than ErrClosed are returned as *SurfaceError.
func (c *Context) AcquireFrame() (*Frame, error) {
	if c.closed {
		return nil, ErrClosed
	}
	acquired, err := c.surface.AcquireTexture(nil)
	if err != nil {
		return nil, classifySurfaceError(OpAcquire, err)
	}
	view, err := c.device.CreateTextureView(acquired.Texture, &hal.TextureViewDescriptor{
		Label:           "surface_view",
		Format:          c.config.Format,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		c.surface.DiscardTexture(acquired.Texture)
		return nil, classifySurfaceError(OpView, err)
	}
	return &Frame{
		Texture:    acquired.Texture,
		View:       view,
		Width:      c.config.Width,
		Height:     c.config.Height,
		Suboptimal: acquired.Suboptimal,
	}, nil
}

// Present schedules f for presentation. Ordering relative to earlier
// submissions is guaranteed by the queue. Failures are returned as
// *SurfaceError; a surface resized since acquisition reports SurfaceOutdated.
func (c *Context) Present(f *Frame) error {
	defer c.device.DestroyTextureView(f.View)
	if err := c.queue.Present(c.surface, f.Texture, nil); err != nil {
		return classifySurfaceError(OpPresent, err)
	}
	return nil
}

// Discard releases an acquired frame without presenting it.
func (c *Context) Discard(f *Frame) {
	c.device.DestroyTextureView(f.View)
	c.surface.DiscardTexture(f.Texture)
}

// Device returns the logical device.
func (c *Context) Device() hal.Device { return c.device }

// Queue returns the command queue.
func (c *Context) Queue() hal.Queue { return c.queue }

// Format returns the configured surface format.
func (c *Context) Format() gputypes.TextureFormat { return c.config.Format }

// Size returns the stored surface extent.
func (c *Context) Size() (width, height uint32) { return c.config.Width, c.config.Height }

// Configuration returns a copy of the current surface configuration.
func (c *Context) Configuration() hal.SurfaceConfiguration { return c.config }

// BackendName returns the registry name of the backend in use.
func (c *Context) BackendName() string { return c.backendName }

// AdapterInfo describes the selected adapter.
func (c *Context) AdapterInfo() gpucontext.AdapterInfo {
	t := gpucontext.AdapterTypeUnknown
	switch c.info.DeviceType {
	case gputypes.DeviceTypeDiscreteGPU:
		t = gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		t = gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		t = gpucontext.AdapterTypeSoftware
	}
	return gpucontext.AdapterInfo{Name: c.info.Name, Type: t}
}

// Close waits for the device to go idle and releases every handle in
// reverse creation order. Close is idempotent.
func (c *Context) Close() {
	if c.closed {
		return
	}
	if c.device != nil {
		if err := c.device.WaitIdle(); err != nil {
			slogger().Warn("gpu: wait idle failed", "err", err)
		}
	}
	c.release()
	c.closed = true
	slogger().Info("gpu: context closed")
}

func (c *Context) release() {
	if c.surface != nil && c.device != nil {
		c.surface.Unconfigure(c.device)
	}
	if c.device != nil {
		c.device.Destroy()
		c.device = nil
		c.queue = nil
	}
	if c.adapter != nil {
		c.adapter.Destroy()
		c.adapter = nil
	}
	if c.surface != nil {
		c.surface.Destroy()
		c.surface = nil
	}
	if c.instance != nil {
		c.instance.Destroy()
		c.instance = nil
	}
	c.subscribers = nil
}
