// Package imop implements the low level image operations used to segment
// an iris inside an eye region: edge preserving smoothing, morphological
// erosion, luma binarization, boundary tracing of dark blobs and the
// spatial moments of the traced polygons.
//
// Every operation returns a newly allocated image and never modifies its input.
package imop
