// Package cachekey derives the content-addressed name of a cached artifact
// from its manipulation set and the source image's relative path.
//
// The hash covers the manipulations, not the pixels of the source: two
// handles on the same relative path with equivalent manipulations map to the
// same file no matter which order the operations were added in or how many
// times optimization was toggled.
package cachekey

import (
	"encoding/hex"
	"encoding/json"
	"path"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/ironsheep/image-factory/internal/manipulation"
)

// HashLength is the number of hex characters kept from the digest.
const HashLength = 8

// Key identifies a cached artifact.
type Key struct {
	Hash      string
	Extension string
}

// Derive computes the key for set applied to the image at relPath. optimize
// is the effective optimization flag for this artifact.
//
// When the set requests the format the source already has, the format
// manipulation is left out of the hash.
func Derive(set *manipulation.Set, relPath string, optimize bool) Key {
	ext, hashed := resolveFormat(set, relPath)
	sum := blake3.Sum256(append(canonicalJSON(hashed, optimize), relPath...))
	return Key{
		Hash:      hex.EncodeToString(sum[:])[:HashLength],
		Extension: ext,
	}
}

// Extension returns the output extension for set applied to relPath.
func Extension(set *manipulation.Set, relPath string) string {
	ext, _ := resolveFormat(set, relPath)
	return ext
}

func resolveFormat(set *manipulation.Set, relPath string) (string, *manipulation.Set) {
	ext := manipulation.DefaultOutput(manipulation.NormalizeExtension(path.Ext(relPath)))
	target, ok := set.Argument(manipulation.NameFormat)
	if !ok {
		return ext, set
	}
	if target == ext {
		c := set.Clone()
		c.Remove(manipulation.NameFormat)
		return ext, c
	}
	return target, set
}

// canonicalJSON serializes the non-empty groups with optimize removed. Go's
// encoder writes map keys in sorted order, which gives the key ordering the
// hash depends on.
func canonicalJSON(set *manipulation.Set, optimize bool) []byte {
	doc := make(map[string]any)
	i := 0
	for _, g := range set.Groups() {
		m := g.Map()
		delete(m, string(manipulation.NameOptimize))
		if len(m) == 0 {
			continue
		}
		doc[strconv.Itoa(i)] = m
		i++
	}
	doc["optimize"] = optimize

	// map[string]string and bool values cannot fail to marshal
	data, _ := json.Marshal(doc)
	return data
}

// Stem returns the file name of relPath without directory or extension.
func Stem(relPath string) string {
	base := path.Base(relPath)
	return strings.TrimSuffix(base, path.Ext(base))
}
