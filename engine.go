package g3d

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gpucontext"

	"github.com/gogpu/g3d/asset"
	"github.com/gogpu/g3d/camera"
	"github.com/gogpu/g3d/internal/gpu"
	"github.com/gogpu/g3d/internal/instance"
	"github.com/gogpu/g3d/internal/model"
	"github.com/gogpu/g3d/internal/pipeline"
	"github.com/gogpu/g3d/internal/render"
	"github.com/gogpu/g3d/internal/resource"
	"github.com/gogpu/g3d/internal/uniform"
)

// SurfaceTarget identifies the native window to present to.
type SurfaceTarget = gpu.SurfaceTarget

// Model is an uploaded set of meshes and materials.
type Model = model.Model

// Material is a diffuse and normal map pair.
type Material = model.Material

// Instance places one copy of a model in the world.
type Instance = instance.Instance

// Light is the scene's point light.
type Light = uniform.Light

// Stats counts rendered and skipped frames.
type Stats = render.Stats

// MemoryStats reports the GPU memory held by the engine.
type MemoryStats = resource.Stats

// Grid returns perRow*perRow instances on the XZ plane centered at the
// origin, spacing units apart, each turned 45 degrees about the axis
// through its own position.
func Grid(perRow int, spacing float32) []Instance {
	return instance.Grid(perRow, spacing)
}

// DefaultCameraPosition is where a new engine's camera starts.
var DefaultCameraPosition = mgl32.Vec3{0, 5, 10}

// Default camera orientation in degrees and projection.
const (
	DefaultCameraYaw   = -90.0
	DefaultCameraPitch = -20.0
	DefaultFovY        = 45.0
	DefaultNear        = 0.1
	DefaultFar         = 100.0
)

// Instances is a model's place in the scene: the instance buffer drawn with
// the model each frame.
type Instances struct {
	set   *instance.Set
	model *Model
}

// Set replaces the instances drawn with the model. More instances than the
// capacity fail with ErrCapacityExceeded and leave the previous ones in place.
func (i *Instances) Set(instances []Instance) error { return i.set.Set(instances) }

// Count returns the number of instances drawn.
func (i *Instances) Count() int { return i.set.Count() }

// Capacity returns the maximum number of instances.
func (i *Instances) Capacity() int { return i.set.Capacity() }

// Model returns the model the instances draw.
func (i *Instances) Model() *Model { return i.model }

// Engine owns the GPU context and everything drawn with it.
//
// An Engine is not safe for concurrent use.
type Engine struct {
	opts options

	ctx       *gpu.Context
	mgr       *resource.Manager
	layouts   *pipeline.Layouts
	pipelines *pipeline.Set
	depth     *pipeline.DepthTarget
	camBuf    *uniform.CameraBuffer
	lightBuf  *uniform.LightBuffer
	camGroup  resource.BindGroupHandle
	litGroup  resource.BindGroupHandle
	loader    *model.Loader
	renderer  *render.FrameRenderer
	marker    *Model

	cam   *camera.Camera
	proj  *camera.Projection
	ctrl  *camera.Controller
	light Light

	models []*Model
	items  []*Instances
	scene  render.Scene

	debug        *Material
	debugToggled bool
	debugHeld    bool

	dragging     bool
	lastX, lastY float64

	// closers run in reverse order on Close.
	closers []func()
	closed  bool
}

// New creates an engine presenting to target at width x height pixels.
//
// New selects a backend and adapter, compiles the pipelines and uploads the
// camera and light uniforms. Failures are returned as *InitializationError
// or as the pipeline or resource error that stopped startup; nothing stays
// allocated.
func New(target SurfaceTarget, width, height uint32, opts ...Option) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger != nil {
		SetLogger(o.logger)
	}

	ctx, err := gpu.Initialize(target, width, height, gpu.Config{
		Backend:         o.backend,
		BackendPriority: o.backends,
		PresentMode:     o.presentMode,
		Debug:           o.debug,
	})
	if err != nil {
		return nil, err
	}
	e := &Engine{opts: o, ctx: ctx}
	e.onClose(ctx.Close)
	if err := e.init(); err != nil {
		e.Close()
		return nil, err
	}

	w, h := ctx.Size()
	Logger().Info("g3d: engine ready",
		"backend", ctx.BackendName(),
		"format", ctx.Format(),
		"width", w,
		"height", h,
	)
	return e, nil
}

func (e *Engine) onClose(fn func()) {
	e.closers = append(e.closers, fn)
}

func (e *Engine) init() error {
	var err error
	device := e.ctx.Device()

	var mgrOpts []resource.Option
	if e.opts.budget > 0 {
		mgrOpts = append(mgrOpts, resource.WithBudget(e.opts.budget))
	}
	e.mgr = resource.NewManager(device, e.ctx.Queue(), mgrOpts...)
	e.onClose(e.mgr.ReleaseAll)

	if e.layouts, err = pipeline.NewLayouts(device); err != nil {
		return err
	}
	e.onClose(e.layouts.Destroy)
	e.pipelines, err = pipeline.NewSet(device, e.layouts, e.ctx.Format(), pipeline.Options{
		ModelShader: e.opts.modelShader,
		LightShader: e.opts.lightShader,
		Validate:    e.opts.validateShaders,
	})
	if err != nil {
		return err
	}
	e.onClose(e.pipelines.Destroy)

	w, h := e.ctx.Size()
	if e.depth, err = pipeline.NewDepthTarget(e.mgr, w, h); err != nil {
		return err
	}
	e.onClose(e.depth.Release)
	e.ctx.OnResize(e.depth.Resize)

	e.cam = camera.New(DefaultCameraPosition, DefaultCameraYaw, DefaultCameraPitch)
	e.proj = camera.NewProjection(w, h, DefaultFovY, DefaultNear, DefaultFar)
	e.ctrl = camera.NewController(e.opts.speed, e.opts.sensitivity)
	e.light = uniform.DefaultLight()
	e.light.OrbitRate = e.opts.lightOrbit

	if e.camBuf, err = uniform.NewCamera(e.mgr); err != nil {
		return err
	}
	e.onClose(e.camBuf.Release)
	if err := e.camBuf.Update(e.cam, e.proj); err != nil {
		return err
	}
	if e.lightBuf, err = uniform.NewLight(e.mgr, &e.light); err != nil {
		return err
	}
	e.onClose(e.lightBuf.Release)

	e.camGroup, err = e.mgr.CreateBindGroup("camera_bind_group", e.layouts.Camera,
		resource.BufferRef{Binding: 0, Buffer: e.camBuf.Buffer()})
	if err != nil {
		return err
	}
	e.onClose(func() { _ = e.mgr.Release(e.camGroup) })
	e.litGroup, err = e.mgr.CreateBindGroup("light_bind_group", e.layouts.Light,
		resource.BufferRef{Binding: 0, Buffer: e.lightBuf.Buffer()})
	if err != nil {
		return err
	}
	e.onClose(func() { _ = e.mgr.Release(e.litGroup) })

	e.loader = model.NewLoader(e.mgr, e.layouts.Texture, model.Options{Mipmaps: e.opts.mipmaps})
	e.onClose(e.loader.Release)
	e.renderer = render.New(e.ctx, e.mgr)
	e.onClose(e.renderer.Release)

	if e.opts.lightMarker {
		e.marker, err = e.loader.Load(
			[]asset.MeshRecord{asset.Cube(0)},
			[]asset.MaterialRecord{{Name: "light_marker"}},
		)
		if err != nil {
			return fmt.Errorf("light marker: %w", err)
		}
		e.onClose(e.marker.Release)
	}
	return nil
}

// Close waits for the GPU and releases everything the engine created, in
// reverse creation order. Close is idempotent.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	if e.renderer != nil {
		e.renderer.Release()
	}
	for i := len(e.items) - 1; i >= 0; i-- {
		e.items[i].set.Release()
	}
	for i := len(e.models) - 1; i >= 0; i-- {
		e.models[i].Release()
	}
	e.items, e.models = nil, nil
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
}

// HandleResize reconfigures the surface and depth target for a new pixel
// size and updates the projection's aspect ratio. A zero dimension, as
// reported for minimized windows, is ignored.
func (e *Engine) HandleResize(width, height uint32) error {
	if e.closed {
		return ErrClosed
	}
	if width == 0 || height == 0 {
		return nil
	}
	err := e.ctx.Resize(width, height)
	// The surface may be configured even when a subscriber failed.
	if w, h := e.ctx.Size(); w == width && h == height {
		e.proj.Resize(width, height)
	}
	return err
}

// Render advances the camera and light by dt and draws one frame.
//
// Render returns after submission. Dropped frames return nil; see Stats
// for the count. An invalid projection returns
// ErrInvalidProjectionParameters without drawing and the camera uniform
// keeps its last valid matrix. Running out of GPU memory returns
// ErrFatalOutOfMemory.
func (e *Engine) Render(dt time.Duration) error {
	if e.closed {
		return ErrClosed
	}
	e.ctrl.Update(e.cam, dt)
	if err := e.camBuf.Update(e.cam, e.proj); err != nil {
		return err
	}
	e.light.Advance(dt)
	if err := e.lightBuf.Write(&e.light); err != nil {
		return err
	}
	return e.renderer.Render(e.buildScene())
}

func (e *Engine) buildScene() *render.Scene {
	s := &e.scene
	s.Items = s.Items[:0]
	for _, in := range e.items {
		s.Items = append(s.Items, render.Item{Model: in.model, Instances: in.set})
	}
	s.Pipelines = e.pipelines
	s.Depth = e.depth
	s.CameraGroup = e.camGroup
	s.LightGroup = e.litGroup
	s.ClearColor = e.opts.clearColor
	s.LightMarker = e.marker
	s.DebugMaterial = nil
	if e.debug != nil && (e.debugToggled || e.debugHeld) {
		s.DebugMaterial = e.debug
	}
	return s
}

// LoadModel uploads meshes and their materials. Degenerate UV triangles do
// not fail the load; they are listed in Model.Warnings.
//
// The engine releases the model on Close. Use ReleaseModel to free it
// earlier.
func (e *Engine) LoadModel(meshes []asset.MeshRecord, materials []asset.MaterialRecord) (*Model, error) {
	if e.closed {
		return nil, ErrClosed
	}
	m, err := e.loader.Load(meshes, materials)
	if err != nil {
		return nil, err
	}
	e.models = append(e.models, m)
	return m, nil
}

// LoadMaterial uploads a single material, typically for SetDebugMaterial.
func (e *Engine) LoadMaterial(rec asset.MaterialRecord) (*Material, error) {
	m, err := e.LoadModel(nil, []asset.MaterialRecord{rec})
	if err != nil {
		return nil, err
	}
	return &m.Materials[0], nil
}

// ReleaseModel removes m from the scene and frees its GPU resources.
func (e *Engine) ReleaseModel(m *Model) {
	if e.closed {
		return
	}
	e.items = slices.DeleteFunc(e.items, func(in *Instances) bool {
		if in.model == m {
			in.set.Release()
			return true
		}
		return false
	})
	if e.debug != nil && slices.ContainsFunc(m.Materials, func(mat Material) bool {
		return mat.BindGroup == e.debug.BindGroup
	}) {
		e.debug = nil
	}
	e.models = slices.DeleteFunc(e.models, func(x *Model) bool { return x == m })
	m.Release()
}

// AddToScene draws m once per instance of the returned set, which starts
// empty. A capacity of zero uses the engine default. Models are drawn in
// the order they were added.
func (e *Engine) AddToScene(m *Model, capacity int) (*Instances, error) {
	if e.closed {
		return nil, ErrClosed
	}
	if capacity <= 0 {
		capacity = e.opts.instanceCapacity
	}
	set, err := instance.New(e.mgr, capacity)
	if err != nil {
		return nil, err
	}
	in := &Instances{set: set, model: m}
	e.items = append(e.items, in)
	return in, nil
}

// RemoveFromScene stops drawing in and frees its instance buffer.
func (e *Engine) RemoveFromScene(in *Instances) error {
	i := slices.Index(e.items, in)
	if i < 0 {
		return ErrNotInScene
	}
	e.items = slices.Delete(e.items, i, i+1)
	in.set.Release()
	return nil
}

// SetDebugMaterial sets the material drawn in place of every mesh material
// while debug mode is on. Nil disables the override.
func (e *Engine) SetDebugMaterial(m *Material) { e.debug = m }

// ToggleDebugMaterial flips debug mode and reports the new state.
func (e *Engine) ToggleDebugMaterial() bool {
	e.debugToggled = !e.debugToggled
	return e.debugToggled
}

// DebugMaterialActive reports whether the next frame uses the debug material.
func (e *Engine) DebugMaterialActive() bool {
	return e.debug != nil && (e.debugToggled || e.debugHeld)
}

// Camera returns the camera. Changes apply on the next Render.
func (e *Engine) Camera() *camera.Camera { return e.cam }

// Projection returns the projection. Changes apply on the next Render.
func (e *Engine) Projection() *camera.Projection { return e.proj }

// Controller returns the camera controller.
func (e *Engine) Controller() *camera.Controller { return e.ctrl }

// Light returns the light. Changes apply on the next Render.
func (e *Engine) Light() *Light { return &e.light }

// Stats returns the frame counters.
func (e *Engine) Stats() Stats { return e.renderer.Stats() }

// MemoryStats returns the GPU memory held by models, textures and buffers.
func (e *Engine) MemoryStats() MemoryStats { return e.mgr.Stats() }

// Size returns the surface size in pixels.
func (e *Engine) Size() (width, height uint32) { return e.ctx.Size() }

// BackendName returns the name of the HAL backend in use.
func (e *Engine) BackendName() string { return e.ctx.BackendName() }

// AdapterInfo describes the GPU in use.
func (e *Engine) AdapterInfo() gpucontext.AdapterInfo { return e.ctx.AdapterInfo() }

// HandleKey feeds a key transition to the controller. Space shows the debug
// material while held. It reports whether the key was used.
func (e *Engine) HandleKey(key gpucontext.Key, pressed bool) bool {
	if key == gpucontext.KeySpace {
		e.debugHeld = pressed
		return true
	}
	return e.ctrl.ProcessKey(key, pressed)
}

// HandleMouseMotion turns the camera by a mouse motion in pixels.
func (e *Engine) HandleMouseMotion(dx, dy float64) { e.ctrl.ProcessMouse(dx, dy) }

// HandleScroll zooms by wheel lines. Positive dy scrolls down, away from
// the scene.
func (e *Engine) HandleScroll(dy float64) { e.ctrl.ProcessScroll(-dy) }

// AttachEvents drives the engine from a window's events: resizes, movement
// keys, left-button drags to look around and the wheel to zoom. Resize
// sizes are taken to be in pixels.
func (e *Engine) AttachEvents(src gpucontext.EventSource) {
	src.OnResize(func(width, height int) {
		if width <= 0 || height <= 0 {
			return
		}
		if err := e.HandleResize(uint32(width), uint32(height)); err != nil {
			Logger().Warn("g3d: resize failed", "width", width, "height", height, "err", err)
		}
	})
	src.OnKeyPress(func(key gpucontext.Key, _ gpucontext.Modifiers) { e.HandleKey(key, true) })
	src.OnKeyRelease(func(key gpucontext.Key, _ gpucontext.Modifiers) { e.HandleKey(key, false) })
	src.OnMousePress(func(button gpucontext.MouseButton, x, y float64) {
		if button == gpucontext.MouseButtonLeft {
			e.dragging = true
			e.lastX, e.lastY = x, y
		}
	})
	src.OnMouseRelease(func(button gpucontext.MouseButton, _, _ float64) {
		if button == gpucontext.MouseButtonLeft {
			e.dragging = false
		}
	})
	src.OnMouseMove(func(x, y float64) {
		if !e.dragging {
			return
		}
		e.HandleMouseMotion(x-e.lastX, y-e.lastY)
		e.lastX, e.lastY = x, y
	})
	src.OnScroll(func(_, dy float64) { e.HandleScroll(dy) })
}

// SizeFromWindow converts a window's logical size to pixels.
func SizeFromWindow(w gpucontext.WindowProvider) (width, height uint32) {
	lw, lh := w.Size()
	scale := w.ScaleFactor()
	return toPixels(lw, scale), toPixels(lh, scale)
}

func toPixels(logical int, scale float64) uint32 {
	if logical <= 0 {
		return 0
	}
	return uint32(math.Round(float64(logical) * scale))
}
