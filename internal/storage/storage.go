// Package storage provides file storage for ticket photos and generated
// exports.
//
// Two implementations are provided:
// - LocalStorage: filesystem storage for development
// - R2Storage: Cloudflare R2 (S3-compatible) for production
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
)

// Storage is the file storage abstraction. All methods are context-aware.
type Storage interface {
	// Put stores data at the specified key. Returns ErrKeyExists if the key
	// is taken and opts.Overwrite is false.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get retrieves the object at the key. The caller must close the reader.
	// Returns ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes the object at the key. Idempotent.
	Delete(ctx context.Context, key string) error

	// URL returns an access URL for the object, presigned for the given
	// duration where the backend supports it.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)

	// Exists reports whether an object exists at the key.
	Exists(ctx context.Context, key string) (bool, error)
}

// PutOptions configures how an object is stored.
type PutOptions struct {
	ContentType string // MIME type; auto-detected when empty
	MaxSize     int64  // Max bytes, 0 for no limit
	Overwrite   bool   // Allow replacing an existing object
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// MaxPhotoSize is the largest ticket photo accepted (10MB).
const MaxPhotoSize = 10 * 1024 * 1024

// PhotoKey builds the canonical key for an evidence photo.
func PhotoKey(evidenceID uuid.UUID, filename string) string {
	ext := path.Ext(filename)
	if ext == "" {
		ext = ".jpg"
	}
	return fmt.Sprintf("evidence/%s%s", evidenceID, ext)
}

// ThumbnailKey builds the key for an evidence photo thumbnail.
func ThumbnailKey(evidenceID uuid.UUID) string {
	return fmt.Sprintf("evidence/thumbs/%s.jpg", evidenceID)
}

// ExportKey builds the key for a generated monthly report workbook.
func ExportKey(vehicleID uuid.UUID, year int, month time.Month) string {
	return fmt.Sprintf("exports/%s/%04d-%02d.xlsx", vehicleID, year, month)
}
