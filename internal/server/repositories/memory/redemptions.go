package memory

import (
	"context"

	"github.com/dmitrijs2005/fileshare/internal/dbx"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/redemptions"
)

type redemptionRepo struct{ base }

func (s *Store) Redemptions(db dbx.DBTX) redemptions.Repository {
	return &redemptionRepo{s.bind(db)}
}

func (r *redemptionRepo) Create(_ context.Context, rec *models.LinkRedemption) error {
	return r.write(func(st *state) error {
		rec.ID = st.nextID()
		st.redemptions = append(st.redemptions, *rec)
		return nil
	})
}

func (r *redemptionRepo) ListByFile(_ context.Context, fileID string, limit int) ([]*models.LinkRedemption, error) {
	out := make([]*models.LinkRedemption, 0)
	err := r.read(func(st *state) error {
		for i := len(st.redemptions) - 1; i >= 0 && len(out) < limit; i-- {
			if st.redemptions[i].FileID == fileID {
				rec := st.redemptions[i]
				out = append(out, &rec)
			}
		}
		return nil
	})
	return out, err
}
