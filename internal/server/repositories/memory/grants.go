package memory

import (
	"context"
	"sort"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/dbx"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/grants"
)

type grantRepo struct{ base }

func (s *Store) Grants(db dbx.DBTX) grants.Repository {
	return &grantRepo{s.bind(db)}
}

func (r *grantRepo) Upsert(_ context.Context, g *models.Grant) (bool, error) {
	var created bool
	err := r.write(func(st *state) error {
		if _, ok := st.files[g.FileID]; !ok {
			return common.ErrorNotFound
		}
		if _, ok := st.users[g.GranteeID]; !ok {
			return common.ErrorNotFound
		}
		key := grantKey{fileID: g.FileID, granteeID: g.GranteeID}
		if _, exists := st.grants[key]; exists {
			return nil
		}
		st.grants[key] = *g
		created = true
		return nil
	})
	return created, err
}

func (r *grantRepo) Exists(_ context.Context, fileID, granteeID string) (bool, error) {
	var ok bool
	err := r.read(func(st *state) error {
		_, ok = st.grants[grantKey{fileID: fileID, granteeID: granteeID}]
		return nil
	})
	return ok, err
}

func (r *grantRepo) Delete(_ context.Context, fileID, granteeID string) error {
	return r.write(func(st *state) error {
		delete(st.grants, grantKey{fileID: fileID, granteeID: granteeID})
		return nil
	})
}

func (r *grantRepo) ListByFile(_ context.Context, fileID string) ([]*models.Grant, error) {
	out := make([]*models.Grant, 0)
	err := r.read(func(st *state) error {
		for k, g := range st.grants {
			if k.fileID == fileID {
				g := g
				out = append(out, &g)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].GranteeID < out[j].GranteeID
	})
	return out, err
}
