package memory

import (
	"context"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/dbx"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/files"
)

type fileRepo struct{ base }

func (s *Store) Files(db dbx.DBTX) files.Repository {
	return &fileRepo{s.bind(db)}
}

func (r *fileRepo) Create(_ context.Context, f *models.File) error {
	return r.write(func(st *state) error {
		if _, dup := st.files[f.ID]; dup {
			return common.ErrorAlreadyExists
		}
		if _, ok := st.users[f.OwnerID]; !ok {
			return common.ErrorNotFound
		}
		st.files[f.ID] = *f
		return nil
	})
}

func (r *fileRepo) Get(_ context.Context, id string) (*models.File, error) {
	var out *models.File
	err := r.read(func(st *state) error {
		f, ok := st.files[id]
		if !ok {
			return common.ErrorNotFound
		}
		out = &f
		return nil
	})
	return out, err
}

// Lock is Get: inside a transaction the whole store is already locked.
func (r *fileRepo) Lock(ctx context.Context, id string) (*models.File, error) {
	return r.Get(ctx, id)
}

func (r *fileRepo) ListVisible(_ context.Context, userID string) ([]*models.File, error) {
	out := make([]*models.File, 0)
	err := r.read(func(st *state) error {
		for id, f := range st.files {
			if f.OwnerID == userID {
				f := f
				out = append(out, &f)
				continue
			}
			if _, ok := st.grants[grantKey{fileID: id, granteeID: userID}]; ok {
				f := f
				out = append(out, &f)
			}
		}
		return nil
	})
	sortFiles(out)
	return out, err
}
