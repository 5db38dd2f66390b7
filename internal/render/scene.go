// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/g3d/internal/instance"
	"github.com/gogpu/g3d/internal/model"
	"github.com/gogpu/g3d/internal/pipeline"
	"github.com/gogpu/g3d/internal/resource"
)

// DefaultClearColor is the background of every frame unless overridden.
var DefaultClearColor = gputypes.Color{R: 0.1, G: 0.2, B: 0.3, A: 1.0}

// Item is one model drawn once per instance.
type Item struct {
	Model     *model.Model
	Instances *instance.Set
}

// Scene is everything one frame draws. Items are drawn in order.
type Scene struct {
	Items     []Item
	Pipelines *pipeline.Set
	Depth     *pipeline.DepthTarget

	CameraGroup resource.BindGroupHandle
	LightGroup  resource.BindGroupHandle

	// DebugMaterial replaces every mesh material when non-nil.
	DebugMaterial *model.Material

	// LightMarker is drawn once at the light position when non-nil.
	LightMarker *model.Model

	ClearColor gputypes.Color
}
