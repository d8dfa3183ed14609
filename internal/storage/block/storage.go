package block

import (
	"context"
	"io"
)

// ReadAll reads the whole object at path
func ReadAll(ctx context.Context, s Storage, path string) ([]byte, error) {
	r, err := s.Reader(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &StorageError{Op: "read", Path: path, Err: err}
	}
	return data, nil
}

// WriteAll replaces the object at path with data
func WriteAll(ctx context.Context, s Storage, path string, data []byte) error {
	w, err := s.Writer(ctx, path)
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		w.Close()
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	return w.Close()
}

