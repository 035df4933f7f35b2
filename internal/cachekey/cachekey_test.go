package cachekey

import (
	"regexp"
	"testing"

	"github.com/ironsheep/image-factory/internal/manipulation"
)

func newSet(t *testing.T, ms ...manipulation.Manipulation) *manipulation.Set {
	t.Helper()
	s := manipulation.NewSet()
	if err := s.Add(ms...); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	return s
}

func TestDerive_OrderIndependent(t *testing.T) {
	a := newSet(t, manipulation.Width(100), manipulation.Blur(5))
	b := newSet(t, manipulation.Blur(5), manipulation.Width(100))

	ka := Derive(a, "photos/cat.jpg", false)
	kb := Derive(b, "photos/cat.jpg", false)
	if ka != kb {
		t.Errorf("keys differ: %+v vs %+v", ka, kb)
	}

	fa := Filename(a, "photos/cat.jpg", ka, FilenameFormat{})
	fb := Filename(b, "photos/cat.jpg", kb, FilenameFormat{})
	if fa != fb {
		t.Errorf("filenames differ: %s vs %s", fa, fb)
	}
}

func TestDerive_OptimizeExcludedFromGroups(t *testing.T) {
	plain := newSet(t, manipulation.Width(300))

	toggled := newSet(t, manipulation.Width(300), manipulation.Optimize(nil))
	toggled.Remove(manipulation.NameOptimize)

	repeated := newSet(t, manipulation.Width(300), manipulation.Optimize(nil))
	repeated.Apply()
	if err := repeated.Add(manipulation.Optimize(map[string][]string{"jpegoptim": {"--strip-all"}})); err != nil {
		t.Fatal(err)
	}

	want := Derive(plain, "cat.jpg", true)
	if got := Derive(toggled, "cat.jpg", true); got != want {
		t.Errorf("add then remove: got %+v, want %+v", got, want)
	}
	if got := Derive(repeated, "cat.jpg", true); got != want {
		t.Errorf("optimize in several groups: got %+v, want %+v", got, want)
	}
	if got := Derive(plain, "cat.jpg", false); got.Hash == want.Hash {
		t.Error("optimize flag should change the hash")
	}
}

func TestDerive_PathAndGroupsMatter(t *testing.T) {
	s := newSet(t, manipulation.Width(300))
	base := Derive(s, "a/cat.jpg", false)

	if k := Derive(s, "b/cat.jpg", false); k.Hash == base.Hash {
		t.Error("relative path should change the hash")
	}

	twoPass := newSet(t, manipulation.Width(300))
	twoPass.Apply()
	if err := twoPass.Add(manipulation.Blur(2)); err != nil {
		t.Fatal(err)
	}
	onePass := newSet(t, manipulation.Width(300), manipulation.Blur(2))
	if Derive(twoPass, "a/cat.jpg", false).Hash == Derive(onePass, "a/cat.jpg", false).Hash {
		t.Error("group structure should change the hash")
	}
}

func TestDerive_Deterministic(t *testing.T) {
	s := newSet(t, manipulation.Width(300), manipulation.Sepia())
	first := Derive(s, "cat.png", false)
	for i := 0; i < 5; i++ {
		if k := Derive(s, "cat.png", false); k != first {
			t.Fatalf("run %d: %+v != %+v", i, k, first)
		}
	}
	if !regexp.MustCompile(`^[0-9a-f]{8}$`).MatchString(first.Hash) {
		t.Errorf("hash %q is not 8 hex characters", first.Hash)
	}

	empty := Derive(manipulation.NewSet(), "", false)
	if len(empty.Hash) != HashLength || empty != Derive(manipulation.NewSet(), "", false) {
		t.Errorf("empty path should still hash deterministically: %+v", empty)
	}
}

func TestDerive_Extension(t *testing.T) {
	tests := []struct {
		name    string
		relPath string
		ms      []manipulation.Manipulation
		wantExt string
	}{
		{"source jpeg normalized", "cat.JPEG", nil, "jpg"},
		{"format wins", "cat.jpg", []manipulation.Manipulation{manipulation.Format("webp")}, "webp"},
		{"same format", "cat.png", []manipulation.Manipulation{manipulation.Format("png")}, "png"},
		{"webp source written as png", "cat.webp", nil, "png"},
		{"webp source with png format", "cat.webp", []manipulation.Manipulation{manipulation.Format("png")}, "png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := Derive(newSet(t, tt.ms...), tt.relPath, false)
			if k.Extension != tt.wantExt {
				t.Errorf("got %s, want %s", k.Extension, tt.wantExt)
			}
		})
	}
}

func TestDerive_SameFormatNotHashed(t *testing.T) {
	withFormat := newSet(t, manipulation.Width(200), manipulation.Format("jpeg"))
	without := newSet(t, manipulation.Width(200))

	if a, b := Derive(withFormat, "cat.jpg", false), Derive(without, "cat.jpg", false); a != b {
		t.Errorf("got %+v and %+v, want equal", a, b)
	}
	if !withFormat.Has(manipulation.NameFormat) {
		t.Error("Derive must not modify the caller's set")
	}
}

func TestFilename(t *testing.T) {
	key := Key{Hash: "abcd1234", Extension: "jpg"}

	tests := []struct {
		name   string
		ms     []manipulation.Manipulation
		format FilenameFormat
		want   string
	}{
		{"no size", []manipulation.Manipulation{manipulation.Blur(3)}, FilenameFormat{}, "cat-abcd1234.jpg"},
		{"width only", []manipulation.Manipulation{manipulation.Width(300)}, FilenameFormat{}, "cat-300x0-abcd1234.jpg"},
		{"both sides", manipulation.Crop(300, 200, manipulation.CropCenter), FilenameFormat{}, "cat-300x200-abcd1234.jpg"},
		{"template", []manipulation.Manipulation{manipulation.Width(300)}, Template("{hash}_{name}"), "abcd1234_cat.jpg"},
		{
			"custom",
			nil,
			Custom(func(relPath, stem, hash string, _ *manipulation.Set) (string, bool) {
				return "img/" + stem + "." + hash, true
			}),
			"img/cat.abcd1234.jpg",
		},
		{
			"custom falls back",
			[]manipulation.Manipulation{manipulation.Height(50)},
			Custom(func(string, string, string, *manipulation.Set) (string, bool) { return "", false }),
			"cat-0x50-abcd1234.jpg",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filename(newSet(t, tt.ms...), "animals/cat.jpg", key, tt.format)
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}
