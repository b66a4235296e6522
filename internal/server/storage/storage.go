// Package storage abstracts the blob backend used for avatar binaries.
package storage

import "context"

// BlobStore is the object storage capability consumed by the avatar service.
// Keys are generated by the caller; Exists supports the probe-before-write
// loop used to avoid key collisions.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}
