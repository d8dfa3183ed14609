package block

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client used by S3FS
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3FS implements the Storage interface for Amazon S3 and compatible stores
type S3FS struct {
	client S3API
	bucket string
	prefix string
}

// NewS3FS creates a new S3 storage. Options: bucket, region, prefix, endpoint.
func NewS3FS(ctx context.Context, cfg Config) (*S3FS, error) {
	bucket := cfg.Options["bucket"]
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required for S3 storage")
	}

	region := cfg.Options["region"]
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := cfg.Options["endpoint"]
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3FSWithClient(client, bucket, cfg.Options["prefix"]), nil
}

// NewS3FSWithClient wraps an existing S3 client
func NewS3FSWithClient(client S3API, bucket, prefix string) *S3FS {
	return &S3FS{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// Reader returns a reader for the specified path
func (s3fs *S3FS) Reader(ctx context.Context, path string) (io.ReadCloser, error) {
	output, err := s3fs.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s3fs.bucket),
		Key:    aws.String(s3fs.getKey(path)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, &StorageError{Op: "get", Path: path, Err: ErrNotFound.Err}
		}
		return nil, &StorageError{Op: "get", Path: path, Err: err}
	}

	return output.Body, nil
}

// Writer returns a writer that uploads the object on Close
func (s3fs *S3FS) Writer(ctx context.Context, path string) (io.WriteCloser, error) {
	return &s3Writer{
		s3fs: s3fs,
		key:  s3fs.getKey(path),
		path: path,
		ctx:  ctx,
	}, nil
}

// Delete removes the object at the specified path
func (s3fs *S3FS) Delete(ctx context.Context, path string) error {
	_, err := s3fs.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s3fs.bucket),
		Key:    aws.String(s3fs.getKey(path)),
	})
	if err != nil {
		return &StorageError{Op: "delete", Path: path, Err: err}
	}

	return nil
}

// Health checks that the bucket is reachable
func (s3fs *S3FS) Health(ctx context.Context) error {
	_, err := s3fs.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s3fs.bucket),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return fmt.Errorf("S3 health check failed: %w", err)
	}

	return nil
}

func (s3fs *S3FS) getKey(path string) string {
	path = strings.TrimPrefix(path, "/")
	if s3fs.prefix == "" {
		return path
	}
	return s3fs.prefix + "/" + path
}

func isS3NotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return true
	}
	return strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "NotFound")
}

// s3Writer buffers writes and uploads the object on Close
type s3Writer struct {
	s3fs   *S3FS
	key    string
	path   string
	ctx    context.Context
	buffer bytes.Buffer
}

func (s3w *s3Writer) Write(p []byte) (n int, err error) {
	return s3w.buffer.Write(p)
}

func (s3w *s3Writer) Close() error {
	_, err := s3w.s3fs.client.PutObject(s3w.ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s3w.s3fs.bucket),
		Key:         aws.String(s3w.key),
		Body:        bytes.NewReader(s3w.buffer.Bytes()),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return &StorageError{Op: "put", Path: s3w.path, Err: err}
	}
	return nil
}
