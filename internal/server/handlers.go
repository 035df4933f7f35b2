package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ironsheep/image-factory/internal/cachefs"
	"github.com/ironsheep/image-factory/internal/factory"
	"github.com/ironsheep/image-factory/internal/imaging"
)

// maxDominantColors bounds the colors argument of image_info.
const maxDominantColors = 32

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_src", "image_srcset").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	out, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return result(req.ID, map[string]interface{}{
		"content": []map[string]interface{}{
			{"type": "text", "text": mustMarshalJSON(out)},
		},
	})
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "image_info":
		return s.handleImageInfo(args)
	case "image_src":
		return s.handleImageSrc(ctx, args)
	case "image_srcset":
		return s.handleImageSrcset(ctx, args)
	case "image_cache_key":
		return s.handleImageCacheKey(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
// An empty data is omitted.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	e := &MCPError{Code: code, Message: message}
	if data != "" {
		e.Data = data
	}
	return &MCPResponse{JSONRPC: "2.0", ID: id, Error: e}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Source Image Handlers ===

type imageInfoArgs struct {
	Path   string `json:"path"`
	Colors int    `json:"colors"`
}

type imageInfoResult struct {
	*imaging.ImageInfo
	DominantColors []imaging.ColorFrequency `json:"dominant_colors,omitempty"`
}

func (s *Server) handleImageInfo(args json.RawMessage) (interface{}, error) {
	var a imageInfoArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.factory.Create(a.Path)
	if err != nil {
		return nil, err
	}
	info, err := imaging.LoadImageInfo(img.Path())
	if err != nil {
		return nil, err
	}
	res := imageInfoResult{ImageInfo: info}

	if a.Colors > 0 {
		if a.Colors > maxDominantColors {
			a.Colors = maxDominantColors
		}
		decoded, err := s.factory.Load(img.Path())
		if err != nil {
			return nil, err
		}
		res.DominantColors = imaging.DominantColors(decoded, a.Colors)
	}
	return res, nil
}

// === Artifact Handlers ===

type imageRequestArgs struct {
	Path          string           `json:"path"`
	Manipulations []map[string]any `json:"manipulations"`
}

// newImage creates a handle for a and applies its manipulation groups.
func (s *Server) newImage(a imageRequestArgs) (*factory.Image, error) {
	img, err := s.factory.Create(a.Path)
	if err != nil {
		return nil, err
	}
	for i, group := range a.Manipulations {
		if i > 0 {
			img.Apply()
		}
		if err := img.Manipulate(group); err != nil {
			return nil, fmt.Errorf("manipulation group %d: %w", i, err)
		}
	}
	return img, nil
}

type imageSrcArgs struct {
	imageRequestArgs
	DataURI bool `json:"data_uri"`
}

type imageSrcResult struct {
	Path     string `json:"path"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
}

func (s *Server) handleImageSrc(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageSrcArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.newImage(a.imageRequestArgs)
	if err != nil {
		return nil, err
	}
	img.DataURI(a.DataURI)

	path, err := img.SrcPath(ctx)
	if err != nil {
		return nil, err
	}
	src, err := img.Src(ctx)
	if err != nil {
		return nil, err
	}
	return imageSrcResult{Path: path, URL: src, MimeType: img.TargetMime()}, nil
}

type imageSrcsetArgs struct {
	imageRequestArgs
	Widths any  `json:"widths"`
	Batch  *int `json:"batch"`
}

type imageSrcsetResult struct {
	Sources map[int]string `json:"sources"`
	Srcset  string         `json:"srcset"`
	Errors  map[int]string `json:"errors,omitempty"`
}

func (s *Server) handleImageSrcset(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageSrcsetArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.newImage(a.imageRequestArgs)
	if err != nil {
		return nil, err
	}
	if a.Widths != nil {
		if err := img.Manipulate(map[string]any{"widths": a.Widths}); err != nil {
			return nil, err
		}
	} else {
		img.Responsive()
	}
	if a.Batch != nil {
		img.Batch(*a.Batch)
	}

	sources, genErr := img.SrcsetSources(ctx)
	res := imageSrcsetResult{Sources: make(map[int]string, len(sources))}
	for w, p := range sources {
		res.Sources[w] = s.factory.URL(p)
	}
	if genErr != nil {
		var failed []error
		if joined, ok := genErr.(interface{ Unwrap() []error }); ok {
			failed = joined.Unwrap()
		} else {
			failed = []error{genErr}
		}
		res.Errors = make(map[int]string, len(failed))
		for _, err := range failed {
			var we *factory.WidthError
			if !errors.As(err, &we) {
				// not tied to a width, such as cancellation
				return nil, genErr
			}
			res.Errors[we.Width] = we.Err.Error()
		}
	}

	res.Srcset = s.factory.FormatSrcset(sources)
	return res, nil
}

type imageCacheKeyResult struct {
	Hash      string `json:"hash"`
	Extension string `json:"extension"`
	Filename  string `json:"filename"`
	Path      string `json:"path"`
	Exists    bool   `json:"exists"`
}

func (s *Server) handleImageCacheKey(args json.RawMessage) (interface{}, error) {
	var a imageRequestArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.newImage(a)
	if err != nil {
		return nil, err
	}
	key := img.Key()
	path := img.CachePath()
	return imageCacheKeyResult{
		Hash:      key.Hash,
		Extension: key.Extension,
		Filename:  filepath.Base(path),
		Path:      path,
		Exists:    cachefs.Exists(path),
	}, nil
}
