package manipulation

import (
	"errors"
	"reflect"
	"testing"
)

func mustAdd(t *testing.T, s *Set, ms ...Manipulation) {
	t.Helper()
	if err := s.Add(ms...); err != nil {
		t.Fatalf("Add(%v) failed: %v", ms, err)
	}
}

func TestSet_AddReplacesWithinGroup(t *testing.T) {
	s := NewSet()
	mustAdd(t, s, Width(100), Blur(5))
	mustAdd(t, s, Width(200))

	got, ok := s.IntArgument(NameWidth)
	if !ok || got != 200 {
		t.Errorf("width: got %d (ok=%v), want 200", got, ok)
	}

	groups := s.Groups()
	if len(groups) != 1 {
		t.Fatalf("groups: got %d, want 1", len(groups))
	}
	want := []Name{NameWidth, NameBlur}
	if !reflect.DeepEqual(groups[0].Names(), want) {
		t.Errorf("names: got %v, want %v", groups[0].Names(), want)
	}
}

func TestSet_ApplyStartsNewGroup(t *testing.T) {
	s := NewSet()
	mustAdd(t, s, Width(100))
	s.Apply()
	s.Apply() // empty trailing group is reused
	mustAdd(t, s, Width(50), Greyscale())

	if n := len(s.Groups()); n != 2 {
		t.Fatalf("groups: got %d, want 2", n)
	}

	first, _ := s.FirstArgument(NameWidth)
	last, _ := s.Argument(NameWidth)
	if first != "100" || last != "50" {
		t.Errorf("first/last width: got %s/%s, want 100/50", first, last)
	}
}

func TestSet_RemoveFromEveryGroup(t *testing.T) {
	s := NewSet()
	mustAdd(t, s, Width(100), Optimize(nil))
	s.Apply()
	mustAdd(t, s, Optimize(nil), Height(40))

	s.Remove(NameOptimize)

	if s.Has(NameOptimize) {
		t.Error("optimize still present after Remove")
	}
	if !s.Has(NameWidth) || !s.Has(NameHeight) {
		t.Error("Remove dropped unrelated manipulations")
	}
}

func TestSet_FailedAddLeavesSetUnchanged(t *testing.T) {
	s := NewSet()
	mustAdd(t, s, Width(100))

	err := s.Add(Height(50), Brightness(500))
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("got %v, want ErrInvalidArgument", err)
	}
	if s.Has(NameHeight) {
		t.Error("height was stored despite the failed Add")
	}
}

func TestSet_CloneIsIndependent(t *testing.T) {
	s := NewSet()
	mustAdd(t, s, Width(100))

	c := s.Clone()
	mustAdd(t, c, Width(300))
	c.Remove(NameWidth)

	if w, _ := s.IntArgument(NameWidth); w != 100 {
		t.Errorf("original width changed to %d", w)
	}
}

func TestSet_IsEmpty(t *testing.T) {
	s := NewSet()
	if !s.IsEmpty() {
		t.Error("new set should be empty")
	}
	mustAdd(t, s, Sepia())
	if s.IsEmpty() {
		t.Error("set with a filter should not be empty")
	}
	s.Remove(NameFilter)
	if !s.IsEmpty() {
		t.Error("set should be empty after removing its only manipulation")
	}
}

func TestSet_StatePersistsAcrossReads(t *testing.T) {
	s := NewSet()
	mustAdd(t, s, Width(120))
	for i := 0; i < 3; i++ {
		if w, ok := s.IntArgument(NameWidth); !ok || w != 120 {
			t.Fatalf("read %d: got %d (ok=%v)", i, w, ok)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		m       Manipulation
		wantErr error
	}{
		{"width", Width(300), nil},
		{"negative width", Width(-1), ErrInvalidArgument},
		{"brightness low bound", Brightness(-100), nil},
		{"brightness out of range", Brightness(101), ErrInvalidArgument},
		{"blur", Blur(100), nil},
		{"blur out of range", Blur(101), ErrInvalidArgument},
		{"quality", Quality(0), nil},
		{"gamma", Gamma(2.2), nil},
		{"gamma too small", Gamma(0.01), ErrInvalidArgument},
		{"dpr", DevicePixelRatio(2), nil},
		{"dpr too large", DevicePixelRatio(9), ErrInvalidArgument},
		{"orientation", Orientation("90"), nil},
		{"bad orientation", Orientation("45"), ErrInvalidArgument},
		{"flip", Flip("both"), nil},
		{"bad flip", Flip("x"), ErrInvalidArgument},
		{"manual crop", ManualCrop(10, 10, 0, 5), nil},
		{"manual crop zero size", ManualCrop(0, 10, 0, 0), ErrInvalidArgument},
		{"background", Background("#FFF"), nil},
		{"background with alpha", Background("#ff000080"), nil},
		{"bad background", Background("red"), ErrInvalidArgument},
		{"border", Border(5, "#000000", BorderExpand), nil},
		{"bad border type", Border(5, "#000000", "inset"), ErrInvalidArgument},
		{"format jpeg alias", Format("jpeg"), nil},
		{"format avif", Format("avif"), nil},
		{"bad format", Format("psd"), ErrInvalidArgument},
		{"dither", Dither(), nil},
		{"dithering filter", Dithering(), nil},
		{"unknown name", Manipulation{Name: "watermark", Argument: "x"}, ErrUnknownManipulation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCropConstructors(t *testing.T) {
	ms := FocalCrop(400, 300, 25, 75)
	if len(ms) != 3 {
		t.Fatalf("got %d manipulations, want 3", len(ms))
	}
	if ms[2].Argument != "crop-25-75" {
		t.Errorf("focal crop method: got %s", ms[2].Argument)
	}
	for _, m := range ms {
		if err := m.Validate(); err != nil {
			t.Errorf("%s: %v", m, err)
		}
	}

	x, y, zoom, ok := FocalPoint("crop-10-90-1.5")
	if !ok || x != 10 || y != 90 || zoom != 1.5 {
		t.Errorf("FocalPoint: got (%d,%d,%g,%v)", x, y, zoom, ok)
	}
	if _, _, _, ok := FocalPoint(CropCenter); ok {
		t.Error("crop-center is not a focal crop")
	}
}

func TestNormalizeExtension(t *testing.T) {
	tests := map[string]string{
		"JPEG": "jpg",
		".jpg": "jpg",
		"Png":  "png",
		"tif":  "tiff",
		"webp": "webp",
	}
	for in, want := range tests {
		if got := NormalizeExtension(in); got != want {
			t.Errorf("NormalizeExtension(%q): got %q, want %q", in, got, want)
		}
	}
}

func TestParseName(t *testing.T) {
	if _, err := ParseName("blur"); err != nil {
		t.Errorf("blur: %v", err)
	}
	if _, err := ParseName("watermark"); !errors.Is(err, ErrUnknownManipulation) {
		t.Errorf("watermark: got %v, want ErrUnknownManipulation", err)
	}
}
