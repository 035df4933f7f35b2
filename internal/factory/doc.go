// Package factory turns source images into cached, manipulated artifacts.
//
// A Factory holds the configuration, the raster backend and the external
// tools shared by every request. Create returns an Image handle for one
// source file; manipulations are recorded on the handle and nothing is
// rendered until a path, URL or srcset is asked for.
//
// Artifacts are written under the cache path, keyed by a hash of the
// manipulations and the source path relative to the source root, so an
// identical request is served from disk without rendering. Srcset requests
// can be batched: each call renders at most a configured number of missing
// widths, largest first, and later calls fill in the rest.
//
// Image handles are not safe for concurrent use. A Factory is, and two
// processes rendering the same artifact serialize on a per-artifact lock.
package factory
