package manipulation

import (
	"encoding/json"
	"errors"
	"testing"
)

func decodeMap(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("invalid test JSON: %v", err)
	}
	return m
}

func TestFromMap(t *testing.T) {
	ms, err := FromMap(decodeMap(t, `{
		"width": 400,
		"crop": [400, 300, "crop-center"],
		"to": "jpeg",
		"greyscale": true,
		"dither": false,
		"blur": "5"
	}`))
	if err != nil {
		t.Fatalf("FromMap failed: %v", err)
	}

	s := NewSet()
	mustAdd(t, s, ms...)

	checks := map[Name]string{
		NameWidth:  "400",
		NameHeight: "300",
		NameCrop:   CropCenter,
		NameFormat: "jpg",
		NameFilter: FilterGreyscale,
		NameBlur:   "5",
	}
	for name, want := range checks {
		got, ok := s.Argument(name)
		if !ok || got != want {
			t.Errorf("%s: got %q (ok=%v), want %q", name, got, ok, want)
		}
	}
	if s.Has(NameDither) {
		t.Error("dither=false should not add a manipulation")
	}
}

func TestFromMap_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"unknown name", `{"watermark": "logo.png"}`, ErrUnknownManipulation},
		{"fractional width", `{"width": 10.5}`, ErrInvalidArgument},
		{"out of range", `{"contrast": 300}`, ErrInvalidArgument},
		{"short crop list", `{"crop": [10, "crop-top"]}`, ErrInvalidArgument},
		{"bad optimize", `{"optimize": "yes please"}`, ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromMap(decodeMap(t, tt.input))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}
