package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

// AWSStorage implements Storage on S3 or an S3-compatible service
type AWSStorage struct {
	client *s3.Client
	config StorageConfig
	logger *zap.Logger
}

// NewAWSStorage creates a new AWS storage instance
func NewAWSStorage(storageConfig StorageConfig, logger *zap.Logger) (*AWSStorage, error) {
	if storageConfig.Bucket == "" {
		return nil, NewStorageError("aws_config", "", StorageBackendAWS, fmt.Errorf("bucket is required"))
	}
	if storageConfig.Timeout == 0 {
		storageConfig.Timeout = 5 * time.Minute
	}

	opts := []func(*config.LoadOptions) error{}
	if storageConfig.AWSRegion != "" {
		opts = append(opts, config.WithRegion(storageConfig.AWSRegion))
	}
	if storageConfig.AWSProfile != "" {
		opts = append(opts, config.WithSharedConfigProfile(storageConfig.AWSProfile))
	}

	awsConfig, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, NewStorageError("aws_config", "", StorageBackendAWS, err)
	}

	// Override endpoint if specified (for S3-compatible services like R2)
	s3Options := []func(*s3.Options){}
	if storageConfig.AWSEndpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(storageConfig.AWSEndpoint)
			o.UsePathStyle = true // Required for custom endpoints
		})
	}

	client := s3.NewFromConfig(awsConfig, s3Options...)

	logger.Info("AWS storage initialized",
		zap.String("bucket", storageConfig.Bucket),
		zap.String("region", awsConfig.Region),
		zap.String("profile", storageConfig.AWSProfile),
		zap.String("endpoint", storageConfig.AWSEndpoint))

	return &AWSStorage{
		client: client,
		config: storageConfig,
		logger: logger,
	}, nil
}

// UploadObject uploads a local file to S3
func (a *AWSStorage) UploadObject(ctx context.Context, localPath, key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return NewStorageError("upload_object", localPath, StorageBackendAWS, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return NewStorageError("upload_object", localPath, StorageBackendAWS, err)
	}

	fullKey := JoinKey(a.config.Directory, key)

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	input := &s3.PutObjectInput{
		Bucket:        aws.String(a.config.Bucket),
		Key:           aws.String(fullKey),
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(ContentType(key)),
	}

	a.logger.Debug("Uploading to S3",
		zap.String("local", localPath),
		zap.String("bucket", a.config.Bucket),
		zap.String("key", fullKey))

	if _, err := a.client.PutObject(ctx, input); err != nil {
		return NewStorageError("upload_object", fullKey, StorageBackendAWS, err)
	}

	a.logger.Debug("Uploaded to S3",
		zap.String("bucket", a.config.Bucket),
		zap.String("key", fullKey),
		zap.Int64("size", info.Size()))

	return nil
}

// GetObjectMetadata gets metadata for a single object
func (a *AWSStorage) GetObjectMetadata(ctx context.Context, key string) (*Object, error) {
	fullKey := JoinKey(a.config.Directory, key)

	input := &s3.HeadObjectInput{
		Bucket: aws.String(a.config.Bucket),
		Key:    aws.String(fullKey),
	}

	output, err := a.client.HeadObject(ctx, input)
	if err != nil {
		if isNotFound(err) {
			err = fmt.Errorf("%w: %v", ErrObjectNotFound, err)
		}
		return nil, NewStorageError("get_object_metadata", fullKey, StorageBackendAWS, err)
	}

	obj := &Object{
		Key:  key,
		Size: aws.ToInt64(output.ContentLength),
	}

	if output.LastModified != nil {
		obj.Modified = *output.LastModified
	}

	if output.ETag != nil {
		obj.ETag = strings.Trim(*output.ETag, `"`)
	}

	if output.Metadata != nil {
		obj.Metadata = make(map[string]string)
		for k, v := range output.Metadata {
			obj.Metadata[k] = v
		}
	}

	return obj, nil
}

// Close closes any resources used by the storage implementation
func (a *AWSStorage) Close() error {
	a.logger.Debug("Closing AWS storage")
	return nil
}

// isNotFound recognizes the shapes a missing key takes in SDK errors
func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}

	var apiErr interface{ ErrorCode() string }
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}

	var respErr interface{ HTTPStatusCode() int }
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound {
		return true
	}
	return false
}
