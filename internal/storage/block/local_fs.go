package block

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalFS implements the Storage interface for the local filesystem
type LocalFS struct {
	baseDir string
}

// NewLocalFS creates a new local filesystem storage
func NewLocalFS(config Config) (*LocalFS, error) {
	baseDir := config.BaseDir
	if baseDir == "" {
		return nil, fmt.Errorf("base_dir is required for local filesystem storage")
	}

	// Session data is private to the user
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &LocalFS{
		baseDir: baseDir,
	}, nil
}

// Reader returns a reader for the specified path
func (lfs *LocalFS) Reader(ctx context.Context, path string) (io.ReadCloser, error) {
	fullPath, err := lfs.getFullPath(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &StorageError{Op: "open", Path: path, Err: ErrNotFound.Err}
		}
		return nil, &StorageError{Op: "open", Path: path, Err: err}
	}

	return file, nil
}

// Writer returns a writer for the specified path. The content becomes
// visible atomically when the writer is closed.
func (lfs *LocalFS) Writer(ctx context.Context, path string) (io.WriteCloser, error) {
	fullPath, err := lfs.getFullPath(path)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, &StorageError{Op: "mkdir", Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(fullPath)+"-*")
	if err != nil {
		return nil, &StorageError{Op: "create", Path: path, Err: err}
	}

	return &atomicFile{File: tmp, target: fullPath, path: path}, nil
}

// Delete removes the file at the specified path
func (lfs *LocalFS) Delete(ctx context.Context, path string) error {
	fullPath, err := lfs.getFullPath(path)
	if err != nil {
		return err
	}

	err = os.Remove(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &StorageError{Op: "delete", Path: path, Err: ErrNotFound.Err}
		}
		return &StorageError{Op: "delete", Path: path, Err: err}
	}

	return nil
}

// Health checks the health of the storage
func (lfs *LocalFS) Health(ctx context.Context) error {
	info, err := os.Stat(lfs.baseDir)
	if err != nil {
		return fmt.Errorf("base directory not accessible: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("base path is not a directory")
	}

	tempFile := filepath.Join(lfs.baseDir, ".health_check_temp")
	file, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("cannot write to storage: %w", err)
	}
	file.Close()
	os.Remove(tempFile)

	return nil
}

// getFullPath converts a relative path to a full path within the base directory
func (lfs *LocalFS) getFullPath(path string) (string, error) {
	cleanPath := filepath.Clean("/" + path)
	cleanPath = strings.TrimPrefix(cleanPath, "/")
	if cleanPath == "" || cleanPath == "." {
		return "", &StorageError{Op: "validate", Path: path, Err: ErrInvalidPath.Err}
	}

	return filepath.Join(lfs.baseDir, cleanPath), nil
}

// atomicFile renames a temp file over its target on Close
type atomicFile struct {
	*os.File
	target string
	path   string
}

func (f *atomicFile) Close() error {
	if err := f.File.Close(); err != nil {
		os.Remove(f.Name())
		return &StorageError{Op: "close", Path: f.path, Err: err}
	}
	if err := os.Chmod(f.Name(), 0600); err != nil {
		os.Remove(f.Name())
		return &StorageError{Op: "chmod", Path: f.path, Err: err}
	}
	if err := os.Rename(f.Name(), f.target); err != nil {
		os.Remove(f.Name())
		return &StorageError{Op: "rename", Path: f.path, Err: err}
	}
	return nil
}
