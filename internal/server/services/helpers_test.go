package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/logging"
	"github.com/dmitrijs2005/fileshare/internal/server/config"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/memory"
	"github.com/dmitrijs2005/fileshare/internal/server/storage"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type recordingSink struct {
	mu   sync.Mutex
	recs []*models.LinkRedemption
	err  error
}

func (r *recordingSink) RecordRedemption(_ context.Context, rec *models.LinkRedemption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec)
	return r.err
}

func (r *recordingSink) outcomes() []models.RedemptionOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.RedemptionOutcome, 0, len(r.recs))
	for _, rec := range r.recs {
		out = append(out, rec.Outcome)
	}
	return out
}

type spyCache struct {
	mu          sync.Mutex
	data        map[string][]*models.File
	gens        map[string]int64
	invalidated []string
	// beforeSet runs once, ahead of the next Set, to interleave a write with
	// a cache fill.
	beforeSet func()
}

func newSpyCache() *spyCache {
	return &spyCache{data: map[string][]*models.File{}, gens: map[string]int64{}}
}

func (c *spyCache) Get(_ context.Context, userID string) ([]*models.File, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.data[userID]
	return f, ok
}

func (c *spyCache) Generation(_ context.Context, userID string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[userID], true
}

func (c *spyCache) Set(_ context.Context, userID string, gen int64, files []*models.File) {
	c.mu.Lock()
	hook := c.beforeSet
	c.beforeSet = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[userID] != gen {
		return
	}
	c.data[userID] = files
}

func (c *spyCache) Invalidate(_ context.Context, userIDs ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range userIDs {
		delete(c.data, id)
		c.gens[id]++
		c.invalidated = append(c.invalidated, id)
	}
}

type fixture struct {
	store  *memory.Store
	blobs  *storage.MemoryStore
	cache  *spyCache
	sink   *recordingSink
	users  *UserService
	files  *FileService
	grants *GrantService
	links  *ShareLinkService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}
	st := memory.New()
	blobs := storage.NewMemoryStore()
	c := newSpyCache()
	sink := &recordingSink{}
	log := logging.Discard()

	us := NewUserService(st, st, cfg)
	us.bcryptCost = bcrypt.MinCost
	fs := NewFileService(st, st, blobs, c, log)

	return &fixture{
		store:  st,
		blobs:  blobs,
		cache:  c,
		sink:   sink,
		users:  us,
		files:  fs,
		grants: NewGrantService(st, st, us, c, log),
		links:  NewShareLinkService(st, st, fs, sink, log),
	}
}

func (fx *fixture) user(t *testing.T, email string) string {
	t.Helper()
	u, err := fx.users.Register(context.Background(), "Test", email, "password1")
	require.NoError(t, err)
	return u.ID
}

func (fx *fixture) file(t *testing.T, ownerID, id, body string) *models.File {
	t.Helper()
	f := &models.File{
		ID:          id,
		OwnerID:     ownerID,
		Name:        id + ".pdf",
		ContentType: "application/pdf",
		Size:        int64(len(body)),
		StorageKey:  "k/" + id,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, fx.blobs.Put(context.Background(), f.StorageKey, strings.NewReader(body), f.Size, f.ContentType))
	_, err := fx.files.Create(context.Background(), f)
	require.NoError(t, err)
	return f
}
