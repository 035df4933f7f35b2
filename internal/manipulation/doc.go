// Package manipulation models the ordered set of image operations applied to
// a source image before a derived artifact is written to the cache.
//
// A Set is a sequence of groups. Each group maps an operation Name to a single
// argument and represents one pass over the image; later groups see the output
// of earlier ones. Names form a closed enumeration: anything outside it is
// rejected with ErrUnknownManipulation, so callers that receive operations from
// untyped input (tool arguments, config files) go through FromMap rather than
// building names by hand.
//
// # Arguments
//
// Arguments are stored in their canonical string form so that two sets built
// through different call orders serialize identically. The typed constructors
// (Width, Crop, Blur, ...) produce that form; the typed accessors
// (IntArgument) read it back.
//
// # Validation
//
// Set.Add validates every manipulation before touching the set. A failed Add
// leaves the set unchanged.
package manipulation
