// Package gpu owns the GPU device and the presentable surface.
//
// Context is created once per window and lives for the whole process. It
// selects a HAL backend from the registered ones, picks the first adapter that
// can present to the window surface, opens the device and queue and configures
// the surface. Everything else in the engine borrows the device and queue from
// it and must be released before Context.Close.
//
// # Resize
//
// Resize ignores zero-area sizes (minimized or hidden windows). Any other size
// reconfigures the surface synchronously and then notifies the subscribers
// registered with OnResize, in registration order. Size-dependent resources
// such as the depth texture subscribe here instead of tracking the window.
//
// # Acquisition errors
//
// AcquireFrame reports failures as *SurfaceError. Outdated and Lost are
// recoverable by Reconfigure; OutOfMemory is fatal; Timeout and anything else
// should skip the frame.
package gpu
