package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Path to the source image, absolute or relative to the configured source path",
}

var manipulationsProperty = map[string]interface{}{
	"type": "array",
	"items": map[string]interface{}{
		"type": "object",
	},
	"description": "Manipulation groups applied in order, e.g. " +
		`[{"width": 400, "crop": "crop-center", "height": 300}, {"filter": "greyscale"}]. ` +
		"Names: width, height, crop, manualCrop, fit, orientation, flip, devicePixelRatio, " +
		"brightness, contrast, gamma, sharpen, blur, pixelate, filter, background, border, " +
		"quality, format, optimize, dither.",
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "image_info",
			Description: "Get the dimensions, format, colour depth and file size of a source image, and optionally its dominant colours.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"colors": map[string]interface{}{
						"type":        "integer",
						"description": "Number of dominant colours to report (default 0, max 32)",
						"default":     0,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_src",
			Description: "Render a manipulated copy of an image into the cache, or reuse the cached one, and return its path and public URL.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":          pathProperty,
					"manipulations": manipulationsProperty,
					"data_uri": map[string]interface{}{
						"type":        "boolean",
						"description": "Return the artifact as a base64 data URI",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_srcset",
			Description: "Render a responsive set of widths and return the srcset attribute. Large sets are rendered in batches; call again to fill in skipped widths.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":          pathProperty,
					"manipulations": manipulationsProperty,
					"widths": map[string]interface{}{
						"description": `A list of widths, or {"min", "max", "step"}. Defaults to the configured scaler.`,
						"oneOf": []interface{}{
							map[string]interface{}{
								"type":  "array",
								"items": map[string]interface{}{"type": "integer"},
							},
							map[string]interface{}{
								"type": "object",
								"properties": map[string]interface{}{
									"min":  map[string]interface{}{"type": "integer"},
									"max":  map[string]interface{}{"type": "integer"},
									"step": map[string]interface{}{"type": "integer"},
								},
								"required": []string{"min", "max"},
							},
						},
					},
					"batch": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of missing widths to render in this call (0 renders all). Defaults to the configured batch.",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_cache_key",
			Description: "Compute the cache key and artifact path for a request without rendering it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":          pathProperty,
					"manipulations": manipulationsProperty,
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return result(req.ID, map[string]interface{}{"tools": GetToolDefinitions()})
}
