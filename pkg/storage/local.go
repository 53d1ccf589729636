package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// LocalStorage implements Storage on a local directory tree
type LocalStorage struct {
	config   StorageConfig
	logger   *zap.Logger
	basePath string
}

// NewLocalStorage creates a new local storage instance. The bucket is the
// base directory.
func NewLocalStorage(config StorageConfig, logger *zap.Logger) (*LocalStorage, error) {
	if config.Bucket == "" {
		return nil, NewStorageError("init", "", StorageBackendLocal, fmt.Errorf("base directory is required"))
	}

	basePath := config.Bucket
	if config.Directory != "" {
		basePath = filepath.Join(basePath, filepath.FromSlash(config.Directory))
	}

	return &LocalStorage{
		config:   config,
		logger:   logger,
		basePath: basePath,
	}, nil
}

// resolve maps a key onto a path below basePath
func (l *LocalStorage) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(strings.TrimLeft(key, "/")))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("key %q escapes the storage directory", key)
	}
	return filepath.Join(l.basePath, clean), nil
}

// UploadObject copies a local file into the storage directory. The copy is
// renamed into place once complete.
func (l *LocalStorage) UploadObject(ctx context.Context, localPath, key string) error {
	if err := ctx.Err(); err != nil {
		return NewStorageError("upload_object", key, StorageBackendLocal, err)
	}

	destPath, err := l.resolve(key)
	if err != nil {
		return NewStorageError("upload_object", key, StorageBackendLocal, err)
	}

	// Ensure destination directory exists
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return NewStorageError("upload_object", destPath, StorageBackendLocal, err)
	}

	l.logger.Debug("Copying to local storage",
		zap.String("source", localPath),
		zap.String("destination", destPath))

	sourceFile, err := os.Open(localPath)
	if err != nil {
		return NewStorageError("upload_object", localPath, StorageBackendLocal, err)
	}
	defer sourceFile.Close()

	tmp, err := os.CreateTemp(filepath.Dir(destPath), "."+filepath.Base(destPath)+".*.part")
	if err != nil {
		return NewStorageError("upload_object", destPath, StorageBackendLocal, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, sourceFile); err != nil {
		tmp.Close()
		return NewStorageError("upload_object", localPath, StorageBackendLocal, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return NewStorageError("upload_object", destPath, StorageBackendLocal, err)
	}
	if err := tmp.Close(); err != nil {
		return NewStorageError("upload_object", destPath, StorageBackendLocal, err)
	}
	if err := os.Rename(tmp.Name(), destPath); err != nil {
		return NewStorageError("upload_object", destPath, StorageBackendLocal, err)
	}

	l.logger.Debug("Copied to local storage",
		zap.String("source", localPath),
		zap.String("destination", destPath))

	return nil
}

// GetObjectMetadata gets metadata for a single object
func (l *LocalStorage) GetObjectMetadata(ctx context.Context, key string) (*Object, error) {
	fullPath, err := l.resolve(key)
	if err != nil {
		return nil, NewStorageError("get_object_metadata", key, StorageBackendLocal, err)
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			err = fmt.Errorf("%w: %v", ErrObjectNotFound, err)
		}
		return nil, NewStorageError("get_object_metadata", key, StorageBackendLocal, err)
	}

	return &Object{
		Key:      key,
		Size:     info.Size(),
		Modified: info.ModTime(),
		Metadata: map[string]string{
			"mode": info.Mode().String(),
		},
	}, nil
}

// Close closes any resources used by the storage implementation
func (l *LocalStorage) Close() error {
	l.logger.Debug("Closing local storage")
	return nil
}
