// Package storage publishes converted images to a destination store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"
)

// ErrObjectNotFound is returned by GetObjectMetadata for missing objects
var ErrObjectNotFound = errors.New("object not found")

// Storage defines the operations publishing needs
type Storage interface {
	// UploadObject uploads a local file under the given key
	UploadObject(ctx context.Context, localPath, key string) error

	// GetObjectMetadata returns metadata for a key, or an error wrapping
	// ErrObjectNotFound
	GetObjectMetadata(ctx context.Context, key string) (*Object, error)

	// Close releases any resources held by the implementation
	Close() error
}

// Object represents a storage object
type Object struct {
	Key      string            `json:"key"`
	Size     int64             `json:"size"`
	Modified time.Time         `json:"modified"`
	ETag     string            `json:"etag,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// StorageBackend represents the type of storage backend
type StorageBackend string

const (
	StorageBackendAWS    StorageBackend = "aws"
	StorageBackendLocal  StorageBackend = "local"
	StorageBackendRclone StorageBackend = "rclone"
)

// String returns the string representation of StorageBackend
func (s StorageBackend) String() string {
	return string(s)
}

// StorageConfig represents configuration for storage backends
type StorageConfig struct {
	Backend   StorageBackend `json:"backend"`
	Bucket    string         `json:"bucket"`    // Bucket name, or base directory for local
	Directory string         `json:"directory"` // Key prefix inside the bucket

	// AWS SDK specific settings
	AWSRegion   string `json:"aws_region,omitempty"`
	AWSProfile  string `json:"aws_profile,omitempty"`
	AWSEndpoint string `json:"aws_endpoint,omitempty"`

	// Rclone specific settings
	Remote       string `json:"remote,omitempty"`
	RcloneBinary string `json:"rclone_binary,omitempty"`
	RcloneConfig string `json:"rclone_config,omitempty"`

	Timeout time.Duration `json:"timeout"`
}

// StorageError represents a storage operation error
type StorageError struct {
	Operation string
	Path      string
	Backend   StorageBackend
	Err       error
}

// Error implements the error interface
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [%s] during %s operation on %s: %v",
		e.Backend, e.Operation, e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a new storage error
func NewStorageError(operation, path string, backend StorageBackend, err error) *StorageError {
	return &StorageError{
		Operation: operation,
		Path:      path,
		Backend:   backend,
		Err:       err,
	}
}

// JoinKey joins a directory prefix and a key with single slashes
func JoinKey(directory, key string) string {
	directory = strings.Trim(directory, "/")
	key = strings.TrimLeft(key, "/")
	if directory == "" {
		return key
	}
	return directory + "/" + key
}

// ContentType guesses the MIME type of a key from its extension
func ContentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".heic", ".heif":
		return "image/heic"
	case ".csv":
		return "text/csv; charset=utf-8"
	}
	if t := mime.TypeByExtension(path.Ext(key)); t != "" {
		return t
	}
	return "application/octet-stream"
}
