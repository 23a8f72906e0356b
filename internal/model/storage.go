package model

import (
	"context"
	"io"
)

// Storage is the object store holding profile images.
type Storage interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// Stat returns ErrNotFound for a missing object.
	Stat(ctx context.Context, key string) (ObjectInfo, error)
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
}
