// Package filter provides the built-in processing routines run by the
// bridge.
//
// Every routine decodes the packed NV21 buffer, transforms the image and
// scales the result into the texture-sized destination:
//   - passthrough: color conversion only
//   - grayscale: luma only
//   - edges: Gaussian blur, Sobel gradient and a binary threshold
//
// WithOverlay adds a one-line HUD on top of any routine.
package filter
