// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package render

import "errors"

// ErrFatalOutOfMemory is returned by Render when the device ran out of
// memory acquiring a frame. The render loop should stop.
var ErrFatalOutOfMemory = errors.New("render: out of memory")

// ErrIncompleteScene is returned for scenes missing pipelines, the depth
// target or the camera and light bind groups.
var ErrIncompleteScene = errors.New("render: incomplete scene")
