// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package render records and submits one frame: acquire a surface texture,
// draw the light marker and every scene item in a single render pass,
// submit, present.
package render

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/g3d/internal/gpu"
	"github.com/gogpu/g3d/internal/model"
	"github.com/gogpu/g3d/internal/resource"
)

// Surface is the part of gpu.Context the renderer needs.
type Surface interface {
	AcquireFrame() (*gpu.Frame, error)
	Present(f *gpu.Frame) error
	Discard(f *gpu.Frame)
	Reconfigure() error
}

// Phase is the renderer's position in the frame state machine.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseAcquire
	PhaseFrameAcquired
	PhaseRecording
	PhaseRecorded
	PhaseSubmit
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseAcquire:
		return "Acquire"
	case PhaseFrameAcquired:
		return "FrameAcquired"
	case PhaseRecording:
		return "RecordCommands"
	case PhaseRecorded:
		return "Recorded"
	case PhaseSubmit:
		return "Submit"
	}
	return fmt.Sprintf("Phase(%d)", uint8(p))
}

// Stats counts frames since the renderer was created.
type Stats struct {
	FramesRendered uint64
	FramesSkipped  uint64
	// LastDrawCount is the number of DrawIndexed calls of the last
	// rendered frame, light marker included.
	LastDrawCount int
}

func (s Stats) String() string {
	return fmt.Sprintf("Frames[%d rendered, %d skipped, %d draws last]",
		s.FramesRendered, s.FramesSkipped, s.LastDrawCount)
}

type inflight struct {
	index uint64
	cmd   hal.CommandBuffer
}

// FrameRenderer renders scenes to a surface. It is not safe for concurrent
// use.
type FrameRenderer struct {
	surface Surface
	mgr     *resource.Manager
	device  hal.Device
	queue   hal.Queue

	phase    Phase
	stats    Stats
	inflight []inflight
}

// New returns a renderer drawing to surface with resources from mgr.
func New(surface Surface, mgr *resource.Manager) *FrameRenderer {
	return &FrameRenderer{
		surface: surface,
		mgr:     mgr,
		device:  mgr.Device(),
		queue:   mgr.Queue(),
	}
}

// Stats returns the frame counters.
func (r *FrameRenderer) Stats() Stats { return r.stats }

// Phase returns the current phase; PhaseIdle between frames.
func (r *FrameRenderer) Phase() Phase { return r.phase }

// skipped marks a surface failure that drops the frame.
type skipped struct{ err error }

func (s *skipped) Error() string { return "frame skipped: " + s.err.Error() }
func (s *skipped) Unwrap() error { return s.err }

// Render draws one frame of s.
//
// Outdated and lost surfaces are reconfigured and acquisition is retried
// once. Frames that still cannot be acquired, and other acquisition errors,
// are skipped: nothing is recorded or submitted and Render returns nil.
// A frame whose presentation fails is submitted but counted as skipped; an
// outdated or lost surface is reconfigured for the next frame. Running out
// of memory returns ErrFatalOutOfMemory.
func (r *FrameRenderer) Render(s *Scene) error {
	if err := s.validate(); err != nil {
		return err
	}
	r.reclaim()
	defer func() { r.phase = PhaseIdle }()

	r.phase = PhaseAcquire
	frame, err := r.acquire()
	if err != nil {
		var skip *skipped
		if errors.As(err, &skip) {
			r.stats.FramesSkipped++
			slogger().Warn("render: frame skipped", "err", skip.err, "skipped", r.stats.FramesSkipped)
			return nil
		}
		return err
	}
	r.phase = PhaseFrameAcquired

	r.phase = PhaseRecording
	cmd, draws, err := r.encode(frame, s)
	if err != nil {
		r.surface.Discard(frame)
		return err
	}
	r.phase = PhaseRecorded

	r.phase = PhaseSubmit
	index, err := r.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		r.device.FreeCommandBuffer(cmd)
		r.surface.Discard(frame)
		return fmt.Errorf("submit: %w", err)
	}
	r.inflight = append(r.inflight, inflight{index: index, cmd: cmd})
	if err := r.present(frame); err != nil {
		var skip *skipped
		if errors.As(err, &skip) {
			r.stats.FramesSkipped++
			slogger().Warn("render: frame not presented", "err", skip.err, "skipped", r.stats.FramesSkipped)
			return nil
		}
		return err
	}

	r.stats.FramesRendered++
	r.stats.LastDrawCount = draws
	slogger().Debug("render: frame", "draws", draws, "submission", index)
	return nil
}

func (r *FrameRenderer) acquire() (*gpu.Frame, error) {
	frame, err := r.surface.AcquireFrame()
	if err == nil {
		return frame, nil
	}
	var se *gpu.SurfaceError
	if !errors.As(err, &se) {
		if errors.Is(err, gpu.ErrClosed) {
			return nil, err
		}
		return nil, &skipped{err}
	}
	switch {
	case se.Fatal():
		return nil, fmt.Errorf("%w: %w", ErrFatalOutOfMemory, err)
	case !se.Recoverable():
		return nil, &skipped{err}
	}

	slogger().Info("render: reconfiguring surface", "kind", se.Kind)
	if rerr := r.surface.Reconfigure(); rerr != nil {
		return nil, &skipped{rerr}
	}
	frame, err = r.surface.AcquireFrame()
	if err == nil {
		return frame, nil
	}
	if errors.As(err, &se) && se.Fatal() {
		return nil, fmt.Errorf("%w: %w", ErrFatalOutOfMemory, err)
	}
	return nil, &skipped{err}
}

// present hands frame to the surface. Outdated and lost surfaces are
// reconfigured so the next acquisition matches the window.
func (r *FrameRenderer) present(frame *gpu.Frame) error {
	err := r.surface.Present(frame)
	if err == nil {
		return nil
	}
	var se *gpu.SurfaceError
	if !errors.As(err, &se) {
		return &skipped{err}
	}
	switch {
	case se.Fatal():
		return fmt.Errorf("%w: %w", ErrFatalOutOfMemory, err)
	case se.Recoverable():
		slogger().Info("render: reconfiguring surface", "kind", se.Kind, "op", se.Op)
		if rerr := r.surface.Reconfigure(); rerr != nil {
			return &skipped{errors.Join(err, rerr)}
		}
	}
	return &skipped{err}
}

// encode records the frame's single render pass.
func (r *FrameRenderer) encode(frame *gpu.Frame, s *Scene) (hal.CommandBuffer, int, error) {
	depthView, err := s.Depth.View()
	if err != nil {
		return nil, 0, fmt.Errorf("depth view: %w", err)
	}
	enc, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "Render Encoder"})
	if err != nil {
		return nil, 0, fmt.Errorf("create command encoder: %w", err)
	}
	if err := enc.BeginEncoding("frame"); err != nil {
		return nil, 0, fmt.Errorf("begin encoding: %w", err)
	}

	rp := enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "Render Pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       frame.View,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: s.ClearColor,
		}},
		DepthStencilAttachment: &hal.RenderPassDepthStencilAttachment{
			View:            depthView,
			DepthLoadOp:     gputypes.LoadOpClear,
			DepthStoreOp:    gputypes.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	draws, err := r.record(rp, s)
	rp.End()
	if err != nil {
		enc.DiscardEncoding()
		return nil, 0, err
	}
	cmd, err := enc.EndEncoding()
	if err != nil {
		return nil, 0, fmt.Errorf("end encoding: %w", err)
	}
	return cmd, draws, nil
}

func (r *FrameRenderer) record(rp hal.RenderPassEncoder, s *Scene) (int, error) {
	camera, err := r.mgr.BindGroup(s.CameraGroup)
	if err != nil {
		return 0, fmt.Errorf("camera bind group: %w", err)
	}
	light, err := r.mgr.BindGroup(s.LightGroup)
	if err != nil {
		return 0, fmt.Errorf("light bind group: %w", err)
	}
	draws := 0

	if s.LightMarker != nil {
		rp.SetPipeline(s.Pipelines.Light.Raw())
		rp.SetBindGroup(0, camera, nil)
		rp.SetBindGroup(1, light, nil)
		for i := range s.LightMarker.Meshes {
			if err := r.drawMesh(rp, &s.LightMarker.Meshes[i], 1); err != nil {
				return draws, err
			}
			draws++
		}
	}

	var debug hal.BindGroup
	if s.DebugMaterial != nil {
		if debug, err = r.mgr.BindGroup(s.DebugMaterial.BindGroup); err != nil {
			return draws, fmt.Errorf("debug material: %w", err)
		}
	}

	rp.SetPipeline(s.Pipelines.Model.Raw())
	rp.SetBindGroup(1, camera, nil)
	rp.SetBindGroup(2, light, nil)
	for _, item := range s.Items {
		n := item.Instances.Count()
		if n == 0 || item.Model == nil {
			continue
		}
		instances, err := r.mgr.Buffer(item.Instances.Buffer())
		if err != nil {
			return draws, fmt.Errorf("instance buffer: %w", err)
		}
		rp.SetVertexBuffer(1, instances, 0)
		for i := range item.Model.Meshes {
			mesh := &item.Model.Meshes[i]
			material := debug
			if material == nil {
				if material, err = r.mgr.BindGroup(item.Model.Materials[mesh.Material].BindGroup); err != nil {
					return draws, fmt.Errorf("mesh %q material: %w", mesh.Name, err)
				}
			}
			rp.SetBindGroup(0, material, nil)
			if err := r.drawMesh(rp, mesh, uint32(n)); err != nil {
				return draws, err
			}
			draws++
		}
	}
	return draws, nil
}

func (r *FrameRenderer) drawMesh(rp hal.RenderPassEncoder, mesh *model.Mesh, instances uint32) error {
	vb, err := r.mgr.Buffer(mesh.VertexBuffer)
	if err != nil {
		return fmt.Errorf("mesh %q vertices: %w", mesh.Name, err)
	}
	ib, err := r.mgr.Buffer(mesh.IndexBuffer)
	if err != nil {
		return fmt.Errorf("mesh %q indices: %w", mesh.Name, err)
	}
	rp.SetVertexBuffer(0, vb, 0)
	rp.SetIndexBuffer(ib, gputypes.IndexFormatUint32, 0)
	rp.DrawIndexed(mesh.IndexCount, instances, 0, 0, 0)
	return nil
}

// reclaim frees command buffers the GPU has finished with.
func (r *FrameRenderer) reclaim() {
	if len(r.inflight) == 0 {
		return
	}
	done := r.queue.PollCompleted()
	keep := r.inflight[:0]
	for _, f := range r.inflight {
		if f.index <= done {
			r.device.FreeCommandBuffer(f.cmd)
			continue
		}
		keep = append(keep, f)
	}
	r.inflight = keep
}

// Release waits for the GPU and frees every pending command buffer.
func (r *FrameRenderer) Release() {
	if len(r.inflight) == 0 {
		return
	}
	if err := r.device.WaitIdle(); err != nil {
		slogger().Warn("render: wait idle failed", "err", err)
	}
	for _, f := range r.inflight {
		r.device.FreeCommandBuffer(f.cmd)
	}
	r.inflight = nil
}

func (s *Scene) validate() error {
	switch {
	case s.Pipelines == nil || s.Pipelines.Model == nil || s.Pipelines.Light == nil:
		return fmt.Errorf("%w: no pipelines", ErrIncompleteScene)
	case s.Depth == nil:
		return fmt.Errorf("%w: no depth target", ErrIncompleteScene)
	case !s.CameraGroup.Valid() || !s.LightGroup.Valid():
		return fmt.Errorf("%w: camera or light bind group missing", ErrIncompleteScene)
	}
	for i, item := range s.Items {
		if item.Instances == nil {
			return fmt.Errorf("%w: item %d has no instance set", ErrIncompleteScene, i)
		}
	}
	return nil
}
