// Package imaging renders manipulation sets into pixels.
//
// The raster work is delegated to a Backend. Two are bundled:
//   - ImagingBackend, built on github.com/disintegration/imaging, selected by
//     the "imaging" and "gd" driver names. It is the default.
//   - BildBackend, built on github.com/anthonynsimon/bild, selected by the
//     "bild" and "imagick" driver names.
//
// Pipeline applies the groups of a manipulation set in a fixed order using
// a backend. ImageCache decodes source files once and bounds their decoded
// size by a pixel budget.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based and relative to the
// image's top-left corner, with X increasing rightward and Y downward.
// Rectangles are inclusive at Min and exclusive at Max.
//
// # Dithering
//
// Both backends implement Atkinson error diffusion over a greyscale copy of
// the image in raster order. Each pixel is thresholded to black or white and
// 1/8 of the error is pushed to each of six forward neighbours; the last
// 2/8 is dropped. The backends keep different buffers:
//   - ImagingBackend: an [x][y] lattice of 24-bit packed grey, white above
//     half of 0xFFFFFF.
//   - BildBackend: a row-major [grey, alpha] buffer, black at or below 128.
//
// The two differ only at the exact midpoint. Alpha is carried through.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Backends and pipelines hold
// no mutable state and never modify their input images.
package imaging
