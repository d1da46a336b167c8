// Package storage keeps uploaded bytes in an object store. Metadata lives in
// the files repository; the two are joined by a storage key.
package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/server/config"
	"github.com/google/uuid"
)

// Store is the blob backend used by uploads and downloads.
type Store interface {
	// Put stores size bytes from r under key.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Open streams the blob. Returns common.ErrorNotFound for unknown keys.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the blob. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Presigner is implemented by stores that can hand out time-limited direct
// download URLs.
type Presigner interface {
	PresignGet(ctx context.Context, key, filename string, ttl time.Duration) (string, error)
}

// NewKey returns a fresh storage key namespaced by owner and upload date.
func NewKey(ownerID string, now time.Time) string {
	return fmt.Sprintf("users/%s/%d/%d/%d/%v", ownerID, now.Year(), now.Month(), now.Day(), uuid.New())
}

// New builds the store selected by cfg.StorageBackend and makes sure its
// bucket exists.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StorageBackend {
	case config.StorageMemory:
		return NewMemoryStore(), nil
	case config.StorageS3:
		s, err := NewS3Store(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, s.EnsureBucket(ctx)
	case config.StorageMinio:
		s, err := NewMinioStore(cfg)
		if err != nil {
			return nil, err
		}
		return s, s.EnsureBucket(ctx)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func attachment(filename string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}
