package manipulation

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// FromMap converts untyped input, as decoded from JSON or YAML, into
// manipulations. Keys are processed in sorted order so errors are
// reproducible. Besides the operation names it accepts the aliases "to"
// (format), "dpr" (devicePixelRatio), "focalCrop", and the boolean filter
// switches "greyscale", "sepia" and "dithering".
//
// A disabled boolean switch ("dither": false) produces nothing.
func FromMap(m map[string]any) ([]Manipulation, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []Manipulation
	for _, k := range keys {
		ms, err := fromEntry(k, m[k])
		if err != nil {
			return nil, err
		}
		out = append(out, ms...)
	}
	for _, mm := range out {
		if err := mm.Validate(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func fromEntry(key string, v any) ([]Manipulation, error) {
	switch key {
	case "width", "height", "brightness", "contrast", "sharpen", "blur", "pixelate", "quality":
		n, err := toInt(key, v)
		if err != nil {
			return nil, err
		}
		return []Manipulation{{Name(key), itoa(n)}}, nil

	case "gamma", "devicePixelRatio", "dpr":
		f, err := toFloat(key, v)
		if err != nil {
			return nil, err
		}
		name := Name(key)
		if key == "dpr" {
			name = NameDevicePixelRatio
		}
		return []Manipulation{{name, ftoa(f)}}, nil

	case "crop", "fit":
		return sizedMethod(key, v)

	case "focalCrop":
		vals, err := intList(key, v, 4)
		if err != nil {
			return nil, err
		}
		return FocalCrop(vals[0], vals[1], vals[2], vals[3]), nil

	case "manualCrop":
		if s, ok := v.(string); ok {
			return []Manipulation{{NameManualCrop, s}}, nil
		}
		vals, err := intList(key, v, 4)
		if err != nil {
			return nil, err
		}
		return []Manipulation{ManualCrop(vals[0], vals[1], vals[2], vals[3])}, nil

	case "orientation":
		switch t := v.(type) {
		case string:
			return []Manipulation{Orientation(t)}, nil
		default:
			n, err := toInt(key, v)
			if err != nil {
				return nil, err
			}
			return []Manipulation{Orientation(itoa(n))}, nil
		}

	case "flip", "filter":
		s, err := toString(key, v)
		if err != nil {
			return nil, err
		}
		return []Manipulation{{Name(key), s}}, nil

	case "greyscale", "grayscale", "sepia", "dithering":
		on, err := toBool(key, v)
		if err != nil || !on {
			return nil, err
		}
		filter := key
		if key == "grayscale" {
			filter = FilterGreyscale
		}
		return []Manipulation{{NameFilter, filter}}, nil

	case "dither":
		on, err := toBool(key, v)
		if err != nil || !on {
			return nil, err
		}
		return []Manipulation{Dither()}, nil

	case "background":
		s, err := toString(key, v)
		if err != nil {
			return nil, err
		}
		return []Manipulation{Background(s)}, nil

	case "border":
		if s, ok := v.(string); ok {
			parts := strings.Split(s, ",")
			if len(parts) == 3 {
				w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
				if err != nil {
					return nil, fmt.Errorf("%w: border: %v", ErrInvalidArgument, err)
				}
				return []Manipulation{Border(w, strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2]))}, nil
			}
			return nil, fmt.Errorf("%w: border: expected width,colour,type", ErrInvalidArgument)
		}
		list, ok := v.([]any)
		if !ok || len(list) != 3 {
			return nil, fmt.Errorf("%w: border: expected [width, colour, type]", ErrInvalidArgument)
		}
		w, err := toInt(key, list[0])
		if err != nil {
			return nil, err
		}
		colour, err := toString(key, list[1])
		if err != nil {
			return nil, err
		}
		kind, err := toString(key, list[2])
		if err != nil {
			return nil, err
		}
		return []Manipulation{Border(w, colour, kind)}, nil

	case "format", "to":
		s, err := toString(key, v)
		if err != nil {
			return nil, err
		}
		return []Manipulation{Format(s)}, nil

	case "optimize":
		switch t := v.(type) {
		case bool:
			if !t {
				return nil, nil
			}
			return []Manipulation{Optimize(nil)}, nil
		case map[string]any:
			opts := make(map[string][]string, len(t))
			for tool, args := range t {
				list, ok := args.([]any)
				if !ok {
					return nil, fmt.Errorf("%w: optimize: arguments for %s must be a list", ErrInvalidArgument, tool)
				}
				for _, a := range list {
					s, err := toString(key, a)
					if err != nil {
						return nil, err
					}
					opts[tool] = append(opts[tool], s)
				}
			}
			return []Manipulation{Optimize(opts)}, nil
		}
		return nil, fmt.Errorf("%w: optimize: expected a boolean or an options object", ErrInvalidArgument)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownManipulation, key)
}

// sizedMethod accepts either a bare method string or [width, height, method]
// / {"width", "height", "method"}.
func sizedMethod(key string, v any) ([]Manipulation, error) {
	ctor := Crop
	if key == "fit" {
		ctor = Fit
	}
	switch t := v.(type) {
	case string:
		return []Manipulation{{Name(key), t}}, nil
	case []any:
		if len(t) != 3 {
			return nil, fmt.Errorf("%w: %s: expected [width, height, method]", ErrInvalidArgument, key)
		}
		w, err := toInt(key, t[0])
		if err != nil {
			return nil, err
		}
		h, err := toInt(key, t[1])
		if err != nil {
			return nil, err
		}
		method, err := toString(key, t[2])
		if err != nil {
			return nil, err
		}
		return ctor(w, h, method), nil
	case map[string]any:
		w, err := toInt(key, t["width"])
		if err != nil {
			return nil, err
		}
		h, err := toInt(key, t["height"])
		if err != nil {
			return nil, err
		}
		method, err := toString(key, t["method"])
		if err != nil {
			return nil, err
		}
		return ctor(w, h, method), nil
	}
	return nil, fmt.Errorf("%w: %s: unexpected %T", ErrInvalidArgument, key, v)
}

func intList(key string, v any, n int) ([]int, error) {
	list, ok := v.([]any)
	if !ok || len(list) != n {
		return nil, fmt.Errorf("%w: %s: expected a list of %d integers", ErrInvalidArgument, key, n)
	}
	out := make([]int, n)
	for i, item := range list {
		iv, err := toInt(key, item)
		if err != nil {
			return nil, err
		}
		out[i] = iv
	}
	return out, nil
}

func toInt(key string, v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		if t != math.Trunc(t) {
			return 0, fmt.Errorf("%w: %s: %v is not an integer", ErrInvalidArgument, key, t)
		}
		return int(t), nil
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %q is not an integer", ErrInvalidArgument, key, t)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w: %s: expected an integer, got %T", ErrInvalidArgument, key, v)
}

func toFloat(key string, v any) (float64, error) {
	switch t := v.(type) {
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case float64:
		return t, nil
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %q is not a number", ErrInvalidArgument, key, t)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: %s: expected a number, got %T", ErrInvalidArgument, key, v)
}

func toString(key string, v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case int, int64, float64:
		return fmt.Sprint(t), nil
	}
	return "", fmt.Errorf("%w: %s: expected a string, got %T", ErrInvalidArgument, key, v)
}

func toBool(key string, v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return false, fmt.Errorf("%w: %s: %q is not a boolean", ErrInvalidArgument, key, t)
		}
		return b, nil
	}
	return false, fmt.Errorf("%w: %s: expected a boolean, got %T", ErrInvalidArgument, key, v)
}
