package imaging

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// mimeTypes maps normalized extensions to MIME types.
var mimeTypes = map[string]string{
	"jpg":  "image/jpeg",
	"pjpg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"avif": "image/avif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"svg":  "image/svg+xml",
}

// MimeType returns the MIME type for a normalized extension, or
// "application/octet-stream" when it is unknown.
func MimeType(ext string) string {
	if m, ok := mimeTypes[strings.ToLower(strings.TrimPrefix(ext, "."))]; ok {
		return m
	}
	return "application/octet-stream"
}

// DataURIResult contains an encoded image file
type DataURIResult struct {
	URI      string `json:"uri"`
	MimeType string `json:"mime_type"`
	Bytes    int    `json:"bytes"`
}

// EncodeDataURI returns data as a base64 data URI of the given MIME type.
func EncodeDataURI(data []byte, mimeType string) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DataURI reads the file at path and encodes it as a data URI. The MIME
// type is taken from the file extension.
func DataURI(path string) (*DataURIResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	mime := MimeType(filepath.Ext(path))

	return &DataURIResult{
		URI:      EncodeDataURI(data, mime),
		MimeType: mime,
		Bytes:    len(data),
	}, nil
}
