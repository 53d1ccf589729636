package storage

import (
	"fmt"

	"go.uber.org/zap"
)

// NewStorage creates a storage client based on configuration
func NewStorage(storageConfig *StorageConfig, logger *zap.Logger) (Storage, error) {
	if storageConfig == nil {
		return nil, fmt.Errorf("storage config cannot be nil")
	}

	switch storageConfig.Backend {
	case StorageBackendAWS:
		return NewAWSStorage(*storageConfig, logger)
	case StorageBackendLocal:
		return NewLocalStorage(*storageConfig, logger)
	case StorageBackendRclone:
		return NewRcloneStorage(*storageConfig, logger)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", storageConfig.Backend)
	}
}
