package storage

import (
	"mime"
	"path/filepath"
	"strings"
)

// photoContentTypes are the MIME types accepted for ticket photos.
var photoContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// DetectContentType resolves a MIME type from an explicit value or the file
// extension, falling back to application/octet-stream.
func DetectContentType(providedType, filename string) string {
	if providedType != "" {
		return providedType
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// IsAllowedPhotoType reports whether the content type is accepted for
// evidence photos.
func IsAllowedPhotoType(contentType string) bool {
	// Strip any parameters like charset
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return photoContentTypes[strings.TrimSpace(strings.ToLower(contentType))]
}
