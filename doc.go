// Package g3d is a small real-time 3D engine core for Go.
//
// # Overview
//
// g3d renders textured, normal-mapped triangle meshes with a perspective
// camera, a point light and per-model instancing. It drives the GPU through
// the Pure Go gogpu/wgpu HAL and validates its WGSL shaders with gogpu/naga.
//
// Window creation, event loops and asset file formats stay outside: the
// host passes a native surface handle, resize notifications and a delta
// time per frame, and hands over decoded meshes and pixels.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/g3d"
//	    "github.com/gogpu/g3d/asset"
//	    _ "github.com/gogpu/wgpu/hal/allbackends"
//	)
//
//	e, err := g3d.New(g3d.SurfaceTarget{Display: d, Window: w}, 1280, 720)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer e.Close()
//
//	cube, _ := e.LoadModel([]asset.MeshRecord{asset.Cube(0)},
//	    []asset.MaterialRecord{{Name: "cube"}})
//	inst, _ := e.AddToScene(cube, 100)
//	_ = inst.Set(g3d.Grid(10, 3))
//
//	for running {
//	    if err := e.Render(dt); err != nil {
//	        log.Fatal(err)
//	    }
//	}
//
// # Frames
//
// Render returns once the frame is submitted, not when the GPU finishes it.
// Commands execute in submission order, so uploads made before Render are
// visible to its draws. Outdated or lost surfaces are reconfigured and the
// acquisition retried once; frames that still fail are dropped silently.
// Only running out of GPU memory stops the loop.
//
// # Coordinate System
//
// Right-handed world with +Y up. The default camera sits at (0, 5, 10)
// looking down -Z, tilted 20 degrees toward the origin. Clip-space depth is
// [0, 1] with near mapping to 0.
//
// # Concurrency
//
// An Engine belongs to the goroutine running the render loop. Event
// callbacks installed by AttachEvents must be delivered on that goroutine.
package g3d

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0-alpha.1"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0

	// VersionPrerelease is the prerelease identifier
	VersionPrerelease = "alpha.1"
)
