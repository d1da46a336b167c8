package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_PutOpenDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "k1", strings.NewReader("hello"), 5, "text/plain"))
	assert.Equal(t, 1, s.Len())

	rc, err := s.Open(ctx, "k1")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello", string(data))

	require.NoError(t, s.Delete(ctx, "k1"))
	require.NoError(t, s.Delete(ctx, "k1"))

	_, err = s.Open(ctx, "k1")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemoryStore_SizeMismatch(t *testing.T) {
	s := NewMemoryStore()
	err := s.Put(context.Background(), "k", strings.NewReader("hello world"), 5, "text/plain")
	require.Error(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.Put(ctx, "k", strings.NewReader("x"), 1, ""), context.Canceled)
}

func TestNewKey(t *testing.T) {
	now := time.Date(2025, 4, 9, 0, 0, 0, 0, time.UTC)
	a := NewKey("u1", now)
	b := NewKey("u1", now)

	assert.True(t, strings.HasPrefix(a, "users/u1/2025/4/9/"), a)
	assert.NotEqual(t, a, b)
}

func TestNew_Memory(t *testing.T) {
	cfg := &config.Config{StorageBackend: config.StorageMemory}
	s, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
}

func TestNew_Unknown(t *testing.T) {
	_, err := New(context.Background(), &config.Config{StorageBackend: "tape"})
	require.Error(t, err)
}
