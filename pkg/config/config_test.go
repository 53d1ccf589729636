package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"heic-toolkit-go/pkg/codec"
)

func loadWith(t *testing.T, values map[string]interface{}) *Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	for key, value := range values {
		viper.Set(key, value)
	}

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	return cfg
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := loadWith(t, map[string]interface{}{"source": "/photos"})

	assert.Equal(t, FormatJPEG, cfg.Format)
	assert.Equal(t, DefaultQuality, cfg.Quality)
	assert.Equal(t, DefaultWorkers(), cfg.Workers)
	assert.Equal(t, DefaultPrefix, cfg.Prefix)
	assert.Equal(t, codec.BackendAuto, cfg.Backend)
	assert.Equal(t, []string{".heic", ".heif"}, cfg.Extensions)
	assert.Equal(t, DefaultMappingFile, cfg.MappingFile)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.NoError(t, ValidateConfig(cfg))
}

func TestDefaultWorkersBounded(t *testing.T) {
	n := DefaultWorkers()
	assert.GreaterOrEqual(t, n, 1)
	assert.LessOrEqual(t, n, DefaultMaxWorkers)
}

func TestFormatModes(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		expected FormatMode
		targets  []codec.Target
	}{
		{name: "jpeg", format: "jpeg", expected: FormatJPEG, targets: []codec.Target{codec.TargetJPEG}},
		{name: "webp", format: "WEBP", expected: FormatWebP, targets: []codec.Target{codec.TargetWebP}},
		{name: "both", format: "both", expected: FormatBoth, targets: []codec.Target{codec.TargetJPEG, codec.TargetWebP}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadWith(t, map[string]interface{}{"source": "/photos", "format": tt.format})
			assert.Equal(t, tt.expected, cfg.Format)
			assert.Equal(t, tt.targets, cfg.Format.Targets())
			assert.NoError(t, ValidateConfig(cfg))
		})
	}
}

func TestPrefixNormalization(t *testing.T) {
	cfg := loadWith(t, map[string]interface{}{"source": "/photos", "prefix": "media/heic//"})
	assert.Equal(t, "media/heic/", cfg.Prefix)

	cfg = loadWith(t, map[string]interface{}{"source": "/photos", "prefix": ""})
	assert.Equal(t, "", cfg.Prefix)
}

func TestExtensionsNormalization(t *testing.T) {
	cfg := loadWith(t, map[string]interface{}{
		"source":     "/photos",
		"extensions": []string{"HEIC, .Heif", "avif"},
	})
	assert.Equal(t, []string{".heic", ".heif", ".avif"}, cfg.Extensions)
}

func TestValidateConfigRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]interface{}
		problem string
	}{
		{name: "quality too low", values: map[string]interface{}{"quality": 0}, problem: "quality"},
		{name: "quality too high", values: map[string]interface{}{"quality": 101}, problem: "quality"},
		{name: "zero workers", values: map[string]interface{}{"workers": 0}, problem: "workers"},
		{name: "negative workers", values: map[string]interface{}{"workers": -2}, problem: "workers"},
		{name: "unknown format", values: map[string]interface{}{"format": "png"}, problem: "invalid format"},
		{name: "unknown backend", values: map[string]interface{}{"backend": "gimp"}, problem: "backend"},
		{name: "negative timeout", values: map[string]interface{}{"codec-timeout": -1}, problem: "codec-timeout"},
		{name: "missing source", values: map[string]interface{}{"source": ""}, problem: "source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := map[string]interface{}{"source": "/photos"}
			for k, v := range tt.values {
				values[k] = v
			}
			cfg := loadWith(t, values)

			err := ValidateConfig(cfg)
			require.Error(t, err)

			var validationErr *ValidationError
			require.True(t, errors.As(err, &validationErr))
			assert.Contains(t, err.Error(), tt.problem)
		})
	}
}

func TestValidateStorageConfig(t *testing.T) {
	cfg := loadWith(t, map[string]interface{}{
		"source":         "/photos",
		"storage.bucket": "/srv/www",
	})
	assert.NoError(t, ValidateStorageConfig(cfg))

	cfg = loadWith(t, map[string]interface{}{
		"source":          "/photos",
		"storage.backend": "ftp",
	})
	err := ValidateStorageConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage backend")
	assert.Contains(t, err.Error(), "bucket")

	cfg = loadWith(t, map[string]interface{}{
		"source":          "/photos",
		"storage.backend": "rclone",
		"storage.bucket":  "photos",
	})
	err = ValidateStorageConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remote")
	assert.Equal(t, "rclone", cfg.Storage.RcloneBinary)
}

func TestLoadConfigFromFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "heic.yaml")
	content := "source: /data/photos\nformat: both\nquality: 75\nstorage:\n  backend: aws\n  bucket: photos\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/photos", cfg.Source)
	assert.Equal(t, FormatBoth, cfg.Format)
	assert.Equal(t, 75, cfg.Quality)
	assert.Equal(t, "aws", cfg.Storage.Backend)
	assert.Equal(t, "photos", cfg.Storage.Bucket)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoggerContext(t *testing.T) {
	assert.NotNil(t, LoggerFrom(context.Background()))

	logger := zap.NewExample()
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, LoggerFrom(ctx))
}
