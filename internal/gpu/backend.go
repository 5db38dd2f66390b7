// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"sort"
	"strings"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DefaultBackendPriority is used when Config.BackendPriority is empty.
// "empty" is the noop backend and only wins when nothing else is registered.
var DefaultBackendPriority = []string{"vulkan", "metal", "dx12", "gl", "empty"}

// BackendName returns the registry name of a HAL backend variant.
func BackendName(variant gputypes.Backend) string {
	return strings.ToLower(variant.String())
}

// newBackendRegistry snapshots the HAL backends registered at call time.
func newBackendRegistry(priority []string) *gpucontext.Registry[hal.Backend] {
	if len(priority) == 0 {
		priority = DefaultBackendPriority
	}
	reg := gpucontext.NewRegistry[hal.Backend](gpucontext.WithPriority(priority...))
	for _, variant := range hal.AvailableBackends() {
		backend, ok := hal.GetBackend(variant)
		if !ok {
			continue
		}
		reg.Register(BackendName(variant), func() hal.Backend { return backend })
	}
	return reg
}

// selectBackend returns the most preferred registered backend.
// Backends missing from the priority list are considered in name order.
func selectBackend(priority []string) (hal.Backend, string, error) {
	reg := newBackendRegistry(priority)
	if reg.Count() == 0 {
		return nil, "", ErrNoBackend
	}
	if len(priority) == 0 {
		priority = DefaultBackendPriority
	}
	for _, name := range priority {
		if reg.Has(name) {
			return reg.Get(name), name, nil
		}
	}
	names := reg.Available()
	sort.Strings(names)
	return reg.Get(names[0]), names[0], nil
}
