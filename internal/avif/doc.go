// Package avif encodes AVIF artifacts with an external cavif binary when
// the active image backend cannot write AVIF itself.
//
// The manipulated image is first saved in an intermediate format the
// encoder can read (JPEG for JPEG sources, PNG for everything else). The
// encoder then writes the AVIF file next to the artifact under a temporary
// name, which is renamed into place on success, and the intermediate is
// removed. A failed encode leaves the intermediate on disk for diagnosis
// and no artifact.
//
// Binaries are looked up under a bin directory keyed by OS family and,
// optionally, architecture:
//
//	bin/linux/amd64/cavif
//	bin/linux/cavif
//	bin/macos/cavif
//	bin/windows/cavif.exe
package avif
