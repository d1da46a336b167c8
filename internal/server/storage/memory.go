package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/fileshare/internal/common"
)

type blob struct {
	data        []byte
	contentType string
}

// MemoryStore keeps blobs in process memory. For dev runs and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]blob
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]blob)}
}

func (s *MemoryStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(io.LimitReader(r, size+1))
	if err != nil {
		return fmt.Errorf("read blob: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("blob %s: expected %d bytes, got %d", key, size, len(data))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = blob{data: data, contentType: contentType}
	return nil
}

func (s *MemoryStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.blobs[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return io.NopCloser(bytes.NewReader(b.data)), nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

// Len reports how many blobs are stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
