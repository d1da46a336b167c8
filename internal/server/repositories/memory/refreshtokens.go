package memory

import (
	"context"
	"strconv"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/dbx"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/refreshtokens"
)

type refreshTokenRepo struct{ base }

func (s *Store) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return &refreshTokenRepo{s.bind(db)}
}

func (r *refreshTokenRepo) Create(_ context.Context, userID string, token string, expiresAt time.Time) error {
	return r.write(func(st *state) error {
		if _, dup := st.refresh[token]; dup {
			return common.ErrorAlreadyExists
		}
		st.refresh[token] = models.RefreshToken{
			ID:        strconv.FormatInt(st.nextID(), 10),
			UserID:    userID,
			Token:     token,
			Expires:   expiresAt,
			CreatedAt: time.Now().UTC(),
		}
		return nil
	})
}

func (r *refreshTokenRepo) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	var out *models.RefreshToken
	err := r.read(func(st *state) error {
		rt, ok := st.refresh[token]
		if !ok {
			return common.ErrorNotFound
		}
		out = &rt
		return nil
	})
	return out, err
}

func (r *refreshTokenRepo) Delete(_ context.Context, token string) error {
	return r.write(func(st *state) error {
		delete(st.refresh, token)
		return nil
	})
}

func (r *refreshTokenRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.write(func(st *state) error {
		for k, rt := range st.refresh {
			if rt.Expires.Before(now) {
				delete(st.refresh, k)
				n++
			}
		}
		return nil
	})
	return n, err
}
