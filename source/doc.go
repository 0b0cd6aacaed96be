// Package source produces camera-like YUV 4:2:0 frames without a camera.
//
// TestPattern synthesizes moving color bars with configurable chroma
// layout and row padding, mimicking what camera HALs hand out. RawFile
// replays frames stored back to back in I420, NV12 or NV21 layout.
//
// Both implement the frame source contract used by the pipeline: Next
// blocks until a frame is available and returns io.EOF when the stream
// ends. Frames must be released by the consumer.
package source
