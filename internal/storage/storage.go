// Package storage uploads case attachments to object storage.
package storage

//go:generate mockgen -source=storage.go -destination=mocks/mocks.go -package=mocks ObjectStore

import (
	"context"
	"io"
	"time"
)

// Object describes a stored file.
type Object struct {
	Key string
	URL string
}

// ObjectStore is the object storage collaborator.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (Object, error)
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}
