package memory

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/dbx"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/sharelinks"
)

type shareLinkRepo struct{ base }

func (s *Store) ShareLinks(db dbx.DBTX) sharelinks.Repository {
	return &shareLinkRepo{s.bind(db)}
}

func (r *shareLinkRepo) Create(_ context.Context, l *models.ShareLink) error {
	return r.write(func(st *state) error {
		if _, dup := st.links[l.Token]; dup {
			return common.ErrorAlreadyExists
		}
		if _, ok := st.files[l.FileID]; !ok {
			return common.ErrorNotFound
		}
		for _, other := range st.links {
			if other.FileID == l.FileID && !other.Revoked {
				return common.ErrorAlreadyExists
			}
		}
		st.links[l.Token] = *l
		return nil
	})
}

func (r *shareLinkRepo) Find(_ context.Context, token string) (*models.ShareLink, error) {
	var out *models.ShareLink
	err := r.read(func(st *state) error {
		l, ok := st.links[token]
		if !ok {
			return common.ErrorNotFound
		}
		out = &l
		return nil
	})
	return out, err
}

func (r *shareLinkRepo) FindActive(_ context.Context, fileID string) (*models.ShareLink, error) {
	var out *models.ShareLink
	err := r.read(func(st *state) error {
		for _, l := range st.links {
			if l.FileID == fileID && !l.Revoked {
				l := l
				out = &l
				return nil
			}
		}
		return common.ErrorNotFound
	})
	return out, err
}

func (r *shareLinkRepo) RevokeActive(_ context.Context, fileID string, at time.Time) (int64, error) {
	var n int64
	err := r.write(func(st *state) error {
		for token, l := range st.links {
			if l.FileID == fileID && !l.Revoked {
				revokedAt := at
				l.Revoked = true
				l.RevokedAt = &revokedAt
				st.links[token] = l
				n++
			}
		}
		return nil
	})
	return n, err
}
