// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"errors"
	"image/color"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/g3d/asset"
	"github.com/gogpu/g3d/internal/gpu"
	"github.com/gogpu/g3d/internal/gputest"
	"github.com/gogpu/g3d/internal/instance"
	"github.com/gogpu/g3d/internal/model"
	"github.com/gogpu/g3d/internal/pipeline"
	"github.com/gogpu/g3d/internal/resource"
	"github.com/gogpu/g3d/internal/uniform"
)

type fixture struct {
	ctx      *gpu.Context
	rec      *gputest.Recorder
	mgr      *resource.Manager
	layouts  *pipeline.Layouts
	loader   *model.Loader
	cube     *model.Model
	renderer *FrameRenderer
	scene    *Scene
}

func newFixture(t *testing.T, instances int) *fixture {
	t.Helper()
	b := gputest.NewBackend()
	ctx, err := gpu.Initialize(gpu.SurfaceTarget{}, 800, 600, gpu.Config{Backend: b})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(ctx.Close)

	f := &fixture{ctx: ctx, rec: b.Rec, mgr: resource.NewManager(ctx.Device(), ctx.Queue())}
	t.Cleanup(f.mgr.ReleaseAll)

	if f.layouts, err = pipeline.NewLayouts(ctx.Device()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(f.layouts.Destroy)
	set, err := pipeline.NewSet(ctx.Device(), f.layouts, ctx.Format(), pipeline.Options{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(set.Destroy)
	depth, err := pipeline.NewDepthTarget(f.mgr, 800, 600)
	if err != nil {
		t.Fatal(err)
	}

	cam, err := uniform.NewCamera(f.mgr)
	if err != nil {
		t.Fatal(err)
	}
	light := uniform.DefaultLight()
	lb, err := uniform.NewLight(f.mgr, &light)
	if err != nil {
		t.Fatal(err)
	}
	camGroup, err := f.mgr.CreateBindGroup("camera_bind_group", f.layouts.Camera,
		resource.BufferRef{Binding: 0, Buffer: cam.Buffer()})
	if err != nil {
		t.Fatal(err)
	}
	lightGroup, err := f.mgr.CreateBindGroup("light_bind_group", f.layouts.Light,
		resource.BufferRef{Binding: 0, Buffer: lb.Buffer()})
	if err != nil {
		t.Fatal(err)
	}

	f.loader = model.NewLoader(f.mgr, f.layouts.Texture, model.Options{})
	f.cube, err = f.loader.Load([]asset.MeshRecord{asset.Cube(0)}, []asset.MaterialRecord{{Name: "cube"}})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	inst, err := instance.New(f.mgr, 16)
	if err != nil {
		t.Fatal(err)
	}
	in := make([]instance.Instance, instances)
	for i := range in {
		in[i] = instance.Instance{Position: mgl32.Vec3{float32(i), 0, 0}, Rotation: mgl32.QuatIdent()}
	}
	if err := inst.Set(in); err != nil {
		t.Fatal(err)
	}

	f.scene = &Scene{
		Items:       []Item{{Model: f.cube, Instances: inst}},
		Pipelines:   set,
		Depth:       depth,
		CameraGroup: camGroup,
		LightGroup:  lightGroup,
		ClearColor:  DefaultClearColor,
	}
	f.renderer = New(ctx, f.mgr)
	t.Cleanup(f.renderer.Release)
	return f
}

func bindIndices(p *gputest.PassRecord) []uint32 {
	out := make([]uint32, len(p.BindGroups))
	for i, c := range p.BindGroups {
		out[i] = c.Index
	}
	return out
}

func TestRenderCube(t *testing.T) {
	f := newFixture(t, 1)

	if err := f.renderer.Render(f.scene); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if len(f.rec.Passes) != 1 {
		t.Fatalf("recorded %d passes, want 1", len(f.rec.Passes))
	}
	pass := f.rec.Passes[0]
	want := []gputest.DrawIndexedCall{{IndexCount: 36, InstanceCount: 1}}
	if !slices.Equal(pass.Draws, want) {
		t.Errorf("draws = %+v, want %+v", pass.Draws, want)
	}
	if pass.ClearColor != DefaultClearColor {
		t.Errorf("clear color = %+v", pass.ClearColor)
	}
	if !pass.HasDepth || pass.DepthClear != 1 {
		t.Errorf("depth attachment = %v clear %v", pass.HasDepth, pass.DepthClear)
	}
	if got := bindIndices(pass); !slices.Equal(got, []uint32{1, 2, 0}) {
		t.Errorf("bind group order = %v, want [1 2 0]", got)
	}
	if !slices.Equal(pass.VertexSlots, []uint32{1, 0}) {
		t.Errorf("vertex slots = %v, want [1 0]", pass.VertexSlots)
	}
	if !pass.Ended {
		t.Error("pass not ended")
	}
	if f.rec.Submits != 1 || f.rec.Presents != 1 {
		t.Errorf("submits/presents = %d/%d, want 1/1", f.rec.Submits, f.rec.Presents)
	}
	st := f.renderer.Stats()
	if st.FramesRendered != 1 || st.FramesSkipped != 0 || st.LastDrawCount != 1 {
		t.Errorf("Stats() = %v", st)
	}
	if f.renderer.Phase() != PhaseIdle {
		t.Errorf("Phase() = %v after Render", f.renderer.Phase())
	}
}

func TestRenderLightMarker(t *testing.T) {
	f := newFixture(t, 1)
	f.scene.LightMarker = f.cube

	if err := f.renderer.Render(f.scene); err != nil {
		t.Fatal(err)
	}
	pass := f.rec.Passes[0]
	if pass.Pipelines != 2 {
		t.Errorf("SetPipeline called %d times, want 2", pass.Pipelines)
	}
	want := []gputest.DrawIndexedCall{
		{IndexCount: 36, InstanceCount: 1},
		{IndexCount: 36, InstanceCount: 1},
	}
	if !slices.Equal(pass.Draws, want) {
		t.Errorf("draws = %+v, want %+v", pass.Draws, want)
	}
	if got := bindIndices(pass); !slices.Equal(got, []uint32{0, 1, 1, 2, 0}) {
		t.Errorf("bind group order = %v, want [0 1 1 2 0]", got)
	}
	if n := f.renderer.Stats().LastDrawCount; n != 2 {
		t.Errorf("LastDrawCount = %d, want 2", n)
	}
}

func TestRenderInstances(t *testing.T) {
	f := newFixture(t, 9)

	empty, err := instance.New(f.mgr, 4)
	if err != nil {
		t.Fatal(err)
	}
	f.scene.Items = append(f.scene.Items, Item{Model: f.cube, Instances: empty})

	if err := f.renderer.Render(f.scene); err != nil {
		t.Fatal(err)
	}
	want := []gputest.DrawIndexedCall{{IndexCount: 36, InstanceCount: 9}}
	if got := f.rec.Draws(); !slices.Equal(got, want) {
		t.Errorf("draws = %+v, want %+v; empty sets draw nothing", got, want)
	}
}

func TestRenderDebugMaterial(t *testing.T) {
	f := newFixture(t, 1)
	checker := asset.Checker("debug", 4, 1, color.NRGBA{255, 0, 255, 255}, color.NRGBA{0, 0, 0, 255})
	debug, err := f.loader.Load(nil, []asset.MaterialRecord{{Name: "debug", Diffuse: checker}})
	if err != nil {
		t.Fatal(err)
	}
	f.scene.DebugMaterial = &debug.Materials[0]

	if err := f.renderer.Render(f.scene); err != nil {
		t.Fatalf("Render with debug material failed: %v", err)
	}
	if n := len(f.rec.Draws()); n != 1 {
		t.Errorf("draws = %d, want 1", n)
	}

	// A released debug material fails the frame, so it is the one in use.
	mat := debug.Materials[0]
	debug.Release()
	f.scene.DebugMaterial = &mat
	err = f.renderer.Render(f.scene)
	if !errors.Is(err, resource.ErrInvalidHandle) {
		t.Fatalf("Render error = %v, want ErrInvalidHandle", err)
	}
	if f.rec.Discards != 1 {
		t.Errorf("discards = %d, want 1", f.rec.Discards)
	}
	if f.rec.Submits != 1 {
		t.Errorf("submits = %d, want 1", f.rec.Submits)
	}
}

func TestRenderAcquireFailures(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		rendered  uint64
		skipped   uint64
		reconfigs int
		acquires  int
		fatal     bool
		submits   int
	}{
		{"outdated recovers", []error{hal.ErrSurfaceOutdated}, 1, 0, 1, 2, false, 1},
		{"lost recovers", []error{hal.ErrSurfaceLost}, 1, 0, 1, 2, false, 1},
		{"lost twice skips", []error{hal.ErrSurfaceLost, hal.ErrSurfaceLost}, 0, 1, 1, 2, false, 0},
		{"timeout skips", []error{hal.ErrTimeout}, 0, 1, 0, 1, false, 0},
		{"out of memory", []error{hal.ErrDeviceOutOfMemory}, 0, 0, 0, 1, true, 0},
		{"out of memory on retry", []error{hal.ErrSurfaceOutdated, hal.ErrDeviceOutOfMemory}, 0, 0, 1, 2, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 1)
			configures := len(f.rec.Configures)
			f.rec.AcquireErrors = tt.errs

			err := f.renderer.Render(f.scene)
			if tt.fatal {
				if !errors.Is(err, ErrFatalOutOfMemory) || !errors.Is(err, hal.ErrDeviceOutOfMemory) {
					t.Fatalf("error = %v, want ErrFatalOutOfMemory wrapping the cause", err)
				}
			} else if err != nil {
				t.Fatalf("Render = %v, want nil", err)
			}

			st := f.renderer.Stats()
			if st.FramesRendered != tt.rendered || st.FramesSkipped != tt.skipped {
				t.Errorf("Stats() = %v, want %d rendered %d skipped", st, tt.rendered, tt.skipped)
			}
			if got := len(f.rec.Configures) - configures; got != tt.reconfigs {
				t.Errorf("reconfigured %d times, want %d", got, tt.reconfigs)
			}
			if f.rec.Acquires != tt.acquires {
				t.Errorf("acquires = %d, want %d", f.rec.Acquires, tt.acquires)
			}
			if f.rec.Submits != tt.submits || len(f.rec.Passes) != tt.submits {
				t.Errorf("submits/passes = %d/%d, want %d", f.rec.Submits, len(f.rec.Passes), tt.submits)
			}
		})
	}
}

func TestRenderPresentFailures(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		reconfigs int
		fatal     bool
	}{
		{"outdated reconfigures", hal.ErrSurfaceOutdated, 1, false},
		{"lost reconfigures", hal.ErrSurfaceLost, 1, false},
		{"timeout skips", hal.ErrTimeout, 0, false},
		{"other skips", errors.New("present refused"), 0, false},
		{"out of memory", hal.ErrDeviceOutOfMemory, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 1)
			configures := len(f.rec.Configures)
			f.rec.PresentErrors = []error{tt.err}

			err := f.renderer.Render(f.scene)
			if tt.fatal {
				if !errors.Is(err, ErrFatalOutOfMemory) || !errors.Is(err, tt.err) {
					t.Fatalf("error = %v, want ErrFatalOutOfMemory wrapping the cause", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Render = %v, want nil", err)
			}

			st := f.renderer.Stats()
			if st.FramesRendered != 0 || st.FramesSkipped != 1 {
				t.Errorf("Stats() = %v, want 0 rendered 1 skipped", st)
			}
			if f.rec.Submits != 1 || f.rec.Presents != 1 {
				t.Errorf("submits/presents = %d/%d, want 1/1", f.rec.Submits, f.rec.Presents)
			}
			if got := len(f.rec.Configures) - configures; got != tt.reconfigs {
				t.Errorf("reconfigured %d times, want %d", got, tt.reconfigs)
			}

			// The next frame presents normally.
			if err := f.renderer.Render(f.scene); err != nil {
				t.Fatalf("second Render = %v", err)
			}
			if st := f.renderer.Stats(); st.FramesRendered != 1 {
				t.Errorf("Stats() after recovery = %v, want 1 rendered", st)
			}
		})
	}
}

// viewlessSurface fails every acquisition with an unclassified error.
type viewlessSurface struct {
	*gpu.Context
	err error
}

func (s viewlessSurface) AcquireFrame() (*gpu.Frame, error) { return nil, s.err }

func TestRenderSkipsUnclassifiedAcquireError(t *testing.T) {
	f := newFixture(t, 1)
	r := New(viewlessSurface{Context: f.ctx, err: errors.New("create surface view: device busy")}, f.mgr)
	defer r.Release()

	if err := r.Render(f.scene); err != nil {
		t.Fatalf("Render = %v, want nil", err)
	}
	if st := r.Stats(); st.FramesSkipped != 1 || st.FramesRendered != 0 {
		t.Errorf("Stats() = %v, want 1 skipped", st)
	}
	if f.rec.Submits != 0 {
		t.Errorf("submitted %d command buffers for a skipped frame", f.rec.Submits)
	}

	closed := New(viewlessSurface{Context: f.ctx, err: gpu.ErrClosed}, f.mgr)
	if err := closed.Render(f.scene); !errors.Is(err, gpu.ErrClosed) {
		t.Errorf("Render = %v, want ErrClosed", err)
	}
}

func TestRenderIncompleteScene(t *testing.T) {
	f := newFixture(t, 1)
	tests := []struct {
		name   string
		mutate func(s *Scene)
	}{
		{"no pipelines", func(s *Scene) { s.Pipelines = nil }},
		{"no depth", func(s *Scene) { s.Depth = nil }},
		{"no camera group", func(s *Scene) { s.CameraGroup = resource.InvalidHandle }},
		{"no instance set", func(s *Scene) { s.Items = []Item{{Model: s.Items[0].Model}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := *f.scene
			tt.mutate(&s)
			if err := f.renderer.Render(&s); !errors.Is(err, ErrIncompleteScene) {
				t.Errorf("error = %v, want ErrIncompleteScene", err)
			}
		})
	}
	if f.rec.Acquires != 0 {
		t.Errorf("acquired %d frames for incomplete scenes", f.rec.Acquires)
	}
}

func TestRenderReclaimsCommandBuffers(t *testing.T) {
	f := newFixture(t, 1)
	for range 3 {
		if err := f.renderer.Render(f.scene); err != nil {
			t.Fatal(err)
		}
	}
	// The noop queue completes work on submission; each frame frees the
	// buffers of earlier frames.
	if n := len(f.renderer.inflight); n != 1 {
		t.Errorf("%d command buffers in flight, want 1", n)
	}
	f.renderer.Release()
	if n := len(f.renderer.inflight); n != 0 {
		t.Errorf("%d command buffers in flight after Release", n)
	}
}
