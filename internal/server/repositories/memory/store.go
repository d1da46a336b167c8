// Package memory is an in-process backend for every repository. It serves
// single-node dev runs and service tests: one Store is at the same time the
// RepositoryManager and the dbx.TxRunner.
//
// A transaction holds the store's write lock for its whole duration and
// restores a snapshot when the unit of work fails, so it is serializable.
// Taking that snapshot copies every row, and all writers queue on one lock,
// so a write costs O(total rows) and unrelated files never commit in
// parallel. Use the Postgres backend for anything beyond dev and tests.
package memory

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"

	"github.com/dmitrijs2005/fileshare/internal/dbx"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
)

var errNoSQL = errors.New("memory backend does not execute SQL")

type grantKey struct {
	fileID    string
	granteeID string
}

type state struct {
	users       map[string]models.User
	emails      map[string]string
	refresh     map[string]models.RefreshToken
	files       map[string]models.File
	grants      map[grantKey]models.Grant
	links       map[string]models.ShareLink
	redemptions []models.LinkRedemption
	seq         int64
}

func newState() *state {
	return &state{
		users:   make(map[string]models.User),
		emails:  make(map[string]string),
		refresh: make(map[string]models.RefreshToken),
		files:   make(map[string]models.File),
		grants:  make(map[grantKey]models.Grant),
		links:   make(map[string]models.ShareLink),
	}
}

func (s *state) clone() *state {
	c := &state{
		users:       make(map[string]models.User, len(s.users)),
		emails:      make(map[string]string, len(s.emails)),
		refresh:     make(map[string]models.RefreshToken, len(s.refresh)),
		files:       make(map[string]models.File, len(s.files)),
		grants:      make(map[grantKey]models.Grant, len(s.grants)),
		links:       make(map[string]models.ShareLink, len(s.links)),
		redemptions: append([]models.LinkRedemption(nil), s.redemptions...),
		seq:         s.seq,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.emails {
		c.emails[k] = v
	}
	for k, v := range s.refresh {
		c.refresh[k] = v
	}
	for k, v := range s.files {
		c.files[k] = v
	}
	for k, v := range s.grants {
		c.grants[k] = v
	}
	for k, v := range s.links {
		c.links[k] = v
	}
	return c
}

func (s *state) nextID() int64 {
	s.seq++
	return s.seq
}

// Store keeps all rows in maps guarded by one RWMutex.
type Store struct {
	mu   sync.RWMutex
	data *state
}

func New() *Store {
	return &Store{data: newState()}
}

// handle is the DBTX the store hands out. Its SQL methods are never used by
// the memory repositories; they only look at which store and mode it carries.
type handle struct {
	store *Store
	inTx  bool
}

func (h *handle) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errNoSQL
}

func (h *handle) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errNoSQL
}

func (h *handle) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

func (s *Store) DB() dbx.DBTX {
	return &handle{store: s}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	defer func() {
		if p := recover(); p != nil {
			s.data = snapshot
			panic(p)
		}
		if err != nil {
			s.data = snapshot
		}
	}()

	return fn(ctx, &handle{store: s, inTx: true})
}

// RunMigrations is a no-op; the memory schema is the Go types.
func (s *Store) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

// base is embedded by every repository. Operations bound to a transaction
// handle already run under the store's write lock.
type base struct {
	store *Store
	inTx  bool
}

func (s *Store) bind(db dbx.DBTX) base {
	h, ok := db.(*handle)
	return base{store: s, inTx: ok && h.inTx && h.store == s}
}

func (b base) read(fn func(st *state) error) error {
	if !b.inTx {
		b.store.mu.RLock()
		defer b.store.mu.RUnlock()
	}
	return fn(b.store.data)
}

func (b base) write(fn func(st *state) error) error {
	if !b.inTx {
		b.store.mu.Lock()
		defer b.store.mu.Unlock()
	}
	return fn(b.store.data)
}

func sortFiles(list []*models.File) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}
