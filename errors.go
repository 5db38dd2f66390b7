package g3d

import (
	"errors"

	"github.com/gogpu/g3d/camera"
	"github.com/gogpu/g3d/internal/gpu"
	"github.com/gogpu/g3d/internal/instance"
	"github.com/gogpu/g3d/internal/model"
	"github.com/gogpu/g3d/internal/pipeline"
	"github.com/gogpu/g3d/internal/render"
	"github.com/gogpu/g3d/internal/resource"
)

// Errors returned by the engine, re-exported from the packages that produce
// them so callers can test with errors.Is without importing internals.
var (
	// ErrClosed is returned by operations on a closed engine.
	ErrClosed = errors.New("g3d: engine closed")

	// ErrNotInScene is returned when removing instances that were never added
	// or were already removed.
	ErrNotInScene = errors.New("g3d: instances not in scene")

	ErrNoBackend         = gpu.ErrNoBackend
	ErrNoSuitableAdapter = gpu.ErrNoSuitableAdapter
	ErrZeroArea          = gpu.ErrZeroArea

	ErrFatalOutOfMemory = render.ErrFatalOutOfMemory

	ErrInvalidHandle      = resource.ErrInvalidHandle
	ErrSizeMismatch       = resource.ErrSizeMismatch
	ErrBudgetExceeded     = resource.ErrBudgetExceeded
	ErrCapacityExceeded   = instance.ErrCapacityExceeded
	ErrShaderInvalid      = pipeline.ErrShaderInvalid
	ErrInvalidMesh        = model.ErrInvalidMesh
	ErrInvalidMaterial    = model.ErrInvalidMaterial
	ErrDegenerateTriangle = model.ErrDegenerateTriangle

	ErrInvalidProjectionParameters = camera.ErrInvalidProjectionParameters
)

// InitializationError reports which startup step failed.
type InitializationError = gpu.InitializationError

// SurfaceError classifies a failed surface acquisition.
type SurfaceError = gpu.SurfaceError

// DegenerateTriangleError is the soft error collected in Model.Warnings.
type DegenerateTriangleError = model.DegenerateTriangleError
