// Package yuv converts planar camera frames into packed NV21 buffers.
//
// A camera frame arrives as three planes (Y, U and V). Each plane has its own
// row stride and pixel stride, so the same logical image may be delivered
// fully planar (I420), semi-planar (NV12/NV21 with pixel stride 2) or with
// padded rows. Convert produces a single contiguous buffer:
//
//	+---------------------------+
//	| Y  (width*height bytes)   |
//	+---------------------------+
//	| V U V U ... (width*height/2 bytes, one pair per 2x2 luma block)
//	+---------------------------+
//
// This layout is what the native processing routine expects. Only 4:2:0
// subsampling with even dimensions is supported; Validate rejects anything
// else with a *FormatError.
//
// # Buffer reuse
//
// ConvertInto writes into a caller-owned buffer, and BufferPool recycles
// buffers of identical size so that steady-state conversion does not allocate.
//
// # Lifetime
//
// A Frame is a view over memory owned by its producer. The converter reads it
// synchronously and never retains it, so the caller may Release the frame as
// soon as ConvertInto returns.
package yuv
