package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sibeo/internal/common"
	"sibeo/internal/config"
	"sibeo/internal/storage/block"
)

// Store is a key/value session store in the spirit of browser local storage
type Store struct {
	storage block.Storage
	logger  *zap.Logger
}

// NewStore wraps a block storage backend
func NewStore(storage block.Storage, logger *zap.Logger) *Store {
	return &Store{
		storage: storage,
		logger:  logger,
	}
}

// Open creates the store for the configured backend
func Open(ctx context.Context, cfg config.SessionConfig, logger *zap.Logger) (*Store, error) {
	storage, err := block.NewFactory().Create(ctx, block.Config{
		Type:    cfg.Backend,
		BaseDir: cfg.Dir,
		Options: map[string]string{
			"bucket":   cfg.S3.Bucket,
			"region":   cfg.S3.Region,
			"prefix":   cfg.S3.Prefix,
			"endpoint": cfg.S3.Endpoint,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open session storage: %w", err)
	}

	logger.Debug("Opened session storage", zap.String("backend", cfg.Backend))
	return NewStore(storage, logger), nil
}

// Get returns the stored value; ok is false when the key is absent
func (s *Store) Get(ctx context.Context, key common.StorageKey) (value []byte, ok bool, err error) {
	data, err := block.ReadAll(ctx, s.storage, key.Path())
	if err != nil {
		if block.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, common.ErrStorageError("failed to read session", err)
	}
	return data, true, nil
}

// Set stores value verbatim under key
func (s *Store) Set(ctx context.Context, key common.StorageKey, value []byte) error {
	if err := block.WriteAll(ctx, s.storage, key.Path(), value); err != nil {
		return common.ErrStorageError("failed to write session", err)
	}
	return nil
}

// Remove deletes key; removing an absent key is not an error
func (s *Store) Remove(ctx context.Context, key common.StorageKey) error {
	if err := s.storage.Delete(ctx, key.Path()); err != nil && !block.IsNotFound(err) {
		return common.ErrStorageError("failed to clear session", err)
	}
	return nil
}

// Health checks the backing storage
func (s *Store) Health(ctx context.Context) error {
	return s.storage.Health(ctx)
}
