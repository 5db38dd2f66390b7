// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pipeline

import _ "embed"

// ModelShader is the lit, normal-mapped model shader.
//
//go:embed shaders/shader.wgsl
var ModelShader string

// LightShader draws the unlit light marker.
//
//go:embed shaders/light.wgsl
var LightShader string

// Shader entry points used by both shaders.
const (
	VertexEntry   = "vs_main"
	FragmentEntry = "fs_main"
)
