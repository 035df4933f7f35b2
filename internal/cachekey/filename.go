package cachekey

import (
	"fmt"
	"strings"

	"github.com/ironsheep/image-factory/internal/manipulation"
)

// CustomFunc names an artifact. Returning false falls back to the default
// name.
type CustomFunc func(relPath, stem, hash string, set *manipulation.Set) (string, bool)

// FilenameFormat overrides the default artifact name. The zero value uses
// the default.
type FilenameFormat struct {
	template string
	custom   CustomFunc
}

// Template formats names by replacing {name} with the source stem and
// {hash} with the key hash.
func Template(t string) FilenameFormat {
	return FilenameFormat{template: t}
}

// Custom formats names with fn.
func Custom(fn CustomFunc) FilenameFormat {
	return FilenameFormat{custom: fn}
}

// IsZero reports whether the format falls back to the default name.
func (f FilenameFormat) IsZero() bool {
	return f.template == "" && f.custom == nil
}

// Filename returns the artifact file name, extension included, for key.
//
// The default is {stem}[-{W}x{H}]-{hash}.{ext}, where the size suffix is
// present only when the set has a width or height; a missing side is
// written as 0.
func Filename(set *manipulation.Set, relPath string, key Key, format FilenameFormat) string {
	stem := Stem(relPath)

	var name string
	var ok bool
	switch {
	case format.custom != nil:
		name, ok = format.custom(relPath, stem, key.Hash, set)
	case format.template != "":
		name = strings.NewReplacer("{name}", stem, "{hash}", key.Hash).Replace(format.template)
		ok = name != ""
	}
	if !ok {
		name = defaultName(set, stem, key.Hash)
	}
	return name + "." + key.Extension
}

func defaultName(set *manipulation.Set, stem, hash string) string {
	parts := make([]string, 0, 3)
	if stem != "" {
		parts = append(parts, stem)
	}
	if set.Has(manipulation.NameWidth) || set.Has(manipulation.NameHeight) {
		w, _ := set.IntArgument(manipulation.NameWidth)
		h, _ := set.IntArgument(manipulation.NameHeight)
		parts = append(parts, fmt.Sprintf("%dx%d", w, h))
	}
	parts = append(parts, hash)
	return strings.Join(parts, "-")
}
