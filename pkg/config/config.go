package config

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"heic-toolkit-go/pkg/codec"
	"heic-toolkit-go/pkg/utils"
)

// Default values
const (
	DefaultFormat         = "jpeg"
	DefaultQuality        = 90
	DefaultMaxWorkers     = 4
	DefaultPrefix         = "uploads/images/"
	DefaultCodecTimeout   = 300
	DefaultMappingFile    = "conversion_mapping.csv"
	DefaultUploadWorkers  = 8
	DefaultDebounceMillis = 2000
	MinQuality            = 1
	MaxQuality            = 100
)

// DefaultExtensions are the source extensions accepted when none are configured
var DefaultExtensions = []string{".heic", ".heif"}

// DefaultWorkers derives the worker count from available parallelism
func DefaultWorkers() int {
	n := runtime.NumCPU()
	if n > DefaultMaxWorkers {
		return DefaultMaxWorkers
	}
	if n < 1 {
		return 1
	}
	return n
}

// SetDefaults sets default values for the configuration
func SetDefaults() {
	viper.SetDefault("format", DefaultFormat)
	viper.SetDefault("quality", DefaultQuality)
	viper.SetDefault("workers", DefaultWorkers())
	viper.SetDefault("prefix", DefaultPrefix)
	viper.SetDefault("backend", codec.BackendAuto)
	viper.SetDefault("codec-timeout", DefaultCodecTimeout)
	viper.SetDefault("extensions", DefaultExtensions)

	viper.SetDefault("mapping-file", DefaultMappingFile)
	viper.SetDefault("summary-output", "")

	viper.SetDefault("storage.backend", "local")
	viper.SetDefault("storage.upload-workers", DefaultUploadWorkers)
	viper.SetDefault("storage.rclone-binary", "rclone")

	viper.SetDefault("watch.debounce-ms", DefaultDebounceMillis)
}

// LoadConfig loads configuration from defaults, an optional config file,
// the environment and bound command line flags
func LoadConfig(configFile string) (*Config, error) {
	SetDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.heic-toolkit")
		viper.AddConfigPath("/etc/heic-toolkit/")
	}

	viper.SetEnvPrefix("HEIC_TOOLKIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	postProcessConfig(&config)
	return &config, nil
}

// postProcessConfig normalizes values that may arrive from flags, env or files
// in slightly different shapes
func postProcessConfig(config *Config) {
	if mode, err := ParseFormatMode(config.FormatString); err == nil {
		config.Format = mode
	}

	config.Prefix = utils.NormalizePrefix(config.Prefix)
	config.Backend = strings.ToLower(strings.TrimSpace(config.Backend))
	config.Storage.Backend = strings.ToLower(strings.TrimSpace(config.Storage.Backend))

	// Env vars and flags can deliver "a,b" as a single element
	var exts []string
	for _, raw := range config.Extensions {
		for _, part := range utils.SplitAndTrim(raw, ",") {
			exts = append(exts, utils.NormalizeExtension(part))
		}
	}
	if len(exts) == 0 {
		exts = append(exts, DefaultExtensions...)
	}
	config.Extensions = exts

	if config.MappingFile == "" {
		config.MappingFile = DefaultMappingFile
	}
}

// CodecTimeoutDuration returns the per-call codec timeout
func (c *Config) CodecTimeoutDuration() time.Duration {
	return time.Duration(c.CodecTimeout) * time.Second
}

// ValidateConfig performs the pre-flight checks a conversion run requires
func ValidateConfig(config *Config) error {
	var problems []string

	if err := utils.ValidateNonEmpty(config.Source, "source"); err != nil {
		problems = append(problems, err.Error())
	}

	if _, err := ParseFormatMode(config.FormatString); err != nil {
		problems = append(problems, err.Error())
	}

	if err := utils.ValidateRange(config.Quality, MinQuality, MaxQuality, "quality"); err != nil {
		problems = append(problems, err.Error())
	}

	if err := utils.ValidatePositiveInt(config.Workers, "workers"); err != nil {
		problems = append(problems, err.Error())
	}

	if err := utils.ValidateOneOf(config.Backend, codec.BackendNames(), "backend"); err != nil {
		problems = append(problems, err.Error())
	}

	if config.CodecTimeout < 0 {
		problems = append(problems, fmt.Sprintf("codec-timeout cannot be negative, got: %d", config.CodecTimeout))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// ValidateStorageConfig performs the checks publishing requires
func ValidateStorageConfig(config *Config) error {
	var problems []string

	if err := utils.ValidateNonEmpty(config.Source, "source"); err != nil {
		problems = append(problems, err.Error())
	}

	if err := utils.ValidateOneOf(config.Storage.Backend, []string{"local", "aws", "rclone"}, "storage backend"); err != nil {
		problems = append(problems, err.Error())
	}

	if err := utils.ValidateNonEmpty(config.Storage.Bucket, "bucket"); err != nil {
		problems = append(problems, err.Error())
	}

	if err := utils.ValidatePositiveInt(config.Storage.UploadWorkers, "upload-workers"); err != nil {
		problems = append(problems, err.Error())
	}

	if config.Storage.Backend == "rclone" {
		if err := utils.ValidateNonEmpty(config.Storage.Remote, "remote"); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// SetupLogging configures logging based on the configuration
func SetupLogging(verbose bool, logFile string) (*zap.Logger, error) {
	var config zap.Config

	if verbose {
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.LevelKey = "level"
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.EncoderConfig.CallerKey = "caller"
	config.EncoderConfig.MessageKey = "message"

	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}
	if logFile != "" {
		config.OutputPaths = append(config.OutputPaths, logFile)
		config.ErrorOutputPaths = append(config.ErrorOutputPaths, logFile)
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Debug("Logging initialized",
		zap.String("level", config.Level.String()),
		zap.String("log_file", logFile),
	)

	return logger, nil
}

type loggerKey struct{}

// WithLogger stores the logger in the context
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFrom returns the logger stored in ctx, or a no-op logger
func LoggerFrom(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && logger != nil {
			return logger
		}
	}
	return zap.NewNop()
}
