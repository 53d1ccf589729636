package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
)

// rclone exits with 3 when the directory being listed does not exist
const rcloneExitDirNotFound = 3

// RcloneStorage implements Storage by shelling out to rclone
type RcloneStorage struct {
	config StorageConfig
	logger *zap.Logger
}

// NewRcloneStorage creates a new rclone storage instance
func NewRcloneStorage(config StorageConfig, logger *zap.Logger) (*RcloneStorage, error) {
	if config.Remote == "" {
		return nil, NewStorageError("init", "", StorageBackendRclone, fmt.Errorf("rclone remote is required"))
	}
	if config.RcloneBinary == "" {
		config.RcloneBinary = "rclone"
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Minute
	}

	return &RcloneStorage{
		config: config,
		logger: logger,
	}, nil
}

// remotePath builds "remote:bucket/directory/key"
func (r *RcloneStorage) remotePath(key string) string {
	return fmt.Sprintf("%s:%s", r.config.Remote, path.Join(r.config.Bucket, JoinKey(r.config.Directory, key)))
}

func (r *RcloneStorage) command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, r.config.RcloneBinary, args...)
	if r.config.RcloneConfig != "" {
		cmd.Args = append(cmd.Args, "--config", r.config.RcloneConfig)
	}
	return cmd
}

// UploadObject uploads a local file to remote storage
func (r *RcloneStorage) UploadObject(ctx context.Context, localPath, key string) error {
	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	remote := r.remotePath(key)
	cmd := r.command(ctx, "copyto", localPath, remote)

	r.logger.Debug("Uploading object",
		zap.String("local", localPath),
		zap.String("remote", remote))

	if output, err := cmd.CombinedOutput(); err != nil {
		return NewStorageError("upload_object", localPath, StorageBackendRclone,
			fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output))))
	}

	r.logger.Debug("Uploaded object",
		zap.String("local", localPath),
		zap.String("remote", remote))

	return nil
}

// GetObjectMetadata lists the key's parent directory and picks the key out
func (r *RcloneStorage) GetObjectMetadata(ctx context.Context, key string) (*Object, error) {
	remote := r.remotePath(key)
	dir, name := path.Split(remote)

	cmd := r.command(ctx, "lsjson", "--files-only", strings.TrimSuffix(dir, "/"))

	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == rcloneExitDirNotFound {
			err = fmt.Errorf("%w: %s", ErrObjectNotFound, remote)
		}
		return nil, NewStorageError("get_object_metadata", key, StorageBackendRclone, err)
	}

	var fileInfos []struct {
		Name     string    `json:"Name"`
		Path     string    `json:"Path"`
		Size     int64     `json:"Size"`
		ModTime  time.Time `json:"ModTime"`
		MimeType string    `json:"MimeType"`
	}

	if err := json.Unmarshal(output, &fileInfos); err != nil {
		return nil, NewStorageError("get_object_metadata", key, StorageBackendRclone,
			fmt.Errorf("failed to parse JSON: %w", err))
	}

	for _, info := range fileInfos {
		if info.Name == name {
			return &Object{
				Key:      key,
				Size:     info.Size,
				Modified: info.ModTime,
				Metadata: map[string]string{
					"mime_type": info.MimeType,
				},
			}, nil
		}
	}

	return nil, NewStorageError("get_object_metadata", key, StorageBackendRclone,
		fmt.Errorf("%w: %s", ErrObjectNotFound, remote))
}

// Close closes any resources used by the storage implementation
func (r *RcloneStorage) Close() error {
	r.logger.Debug("Closing rclone storage")
	return nil
}
