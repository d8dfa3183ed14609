package block

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Storage defines the object operations the session store relies on
type Storage interface {
	// Reader operations
	Reader(ctx context.Context, path string) (io.ReadCloser, error)

	// Writer operations
	Writer(ctx context.Context, path string) (io.WriteCloser, error)

	// Management operations
	Delete(ctx context.Context, path string) error

	// Health and diagnostics
	Health(ctx context.Context) error
}

// Config holds configuration for block storage
type Config struct {
	Type    string            `yaml:"type" json:"type"` // local, s3
	BaseDir string            `yaml:"base_dir" json:"base_dir"`
	Options map[string]string `yaml:"options" json:"options"`
}

// Factory creates storage instances based on configuration
type Factory struct{}

// NewFactory creates a new storage factory
func NewFactory() *Factory {
	return &Factory{}
}

// Create creates a new storage instance based on the configuration
func (f *Factory) Create(ctx context.Context, config Config) (Storage, error) {
	switch config.Type {
	case "local":
		return NewLocalFS(config)
	case "s3":
		return NewS3FS(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", config.Type)
	}
}

// StorageError represents storage-specific errors
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Common error variables
var (
	ErrNotFound    = &StorageError{Op: "stat", Err: fmt.Errorf("file not found")}
	ErrInvalidPath = &StorageError{Op: "validate", Err: fmt.Errorf("invalid path")}
)

// IsNotFound checks if an error indicates a file was not found
func IsNotFound(err error) bool {
	var storageErr *StorageError
	if errors.As(err, &storageErr) {
		return errors.Is(storageErr.Err, ErrNotFound.Err)
	}
	return false
}
