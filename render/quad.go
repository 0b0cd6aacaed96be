// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gputypes"
)

// quadVertexCount is the number of vertices in the triangle strip.
const quadVertexCount = 4

// quadPositions are the clip-space corners of the quad, in strip order:
// bottom-left, bottom-right, top-left, top-right.
var quadPositions = [quadVertexCount * 3]float32{
	-1, -1, 0,
	1, -1, 0,
	-1, 1, 0,
	1, 1, 0,
}

// quadTexCoords map image row 0 to the top of the quad.
var quadTexCoords = [quadVertexCount * 2]float32{
	0, 1,
	1, 1,
	0, 0,
	1, 0,
}

const (
	positionStride = 3 * 4
	texCoordStride = 2 * 4
)

// floatBytes encodes v as little-endian float32 values.
func floatBytes(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

// quadVertexLayout returns the two vertex buffer layouts matching vs_main:
//
//	slot 0, location 0: position  (vec3<f32>)
//	slot 1, location 1: tex_coord (vec2<f32>)
func quadVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: positionStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			},
		},
		{
			ArrayStride: texCoordStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 1},
			},
		},
	}
}
