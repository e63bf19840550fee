package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/notekeep/apiserver/config"
)

// Backend is an object store holding note exports.
type Backend interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Bucket() string
	Close() error
}

// Storage wraps a Backend. The zero backend is rejected by Open; callers
// receive a nil *Storage when exports are disabled.
type Storage struct {
	backend Backend
	name    string
}

func New(name string, backend Backend) *Storage {
	return &Storage{backend: backend, name: name}
}

// Open builds the backend selected by cfg and makes sure its bucket exists.
// It returns nil, nil when no backend is configured.
func Open(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	var (
		backend Backend
		err     error
	)
	switch cfg.Backend {
	case "", config.StorageNone:
		return nil, nil
	case config.StorageMinio:
		backend, err = newMinioBackend(cfg.Minio)
	case config.StorageGCS:
		backend, err = newGCSBackend(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("%s storage: %w", cfg.Backend, err)
	}

	if err := backend.EnsureBucket(ctx); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("%s storage: ensure bucket %q: %w", cfg.Backend, backend.Bucket(), err)
	}
	return New(cfg.Backend, backend), nil
}

func (s *Storage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return s.backend.Put(ctx, key, r, size, contentType)
}

func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}

// Name reports which backend is in use, e.g. "minio".
func (s *Storage) Name() string {
	return s.name
}

func (s *Storage) Close() error {
	if s == nil {
		return nil
	}
	return s.backend.Close()
}
