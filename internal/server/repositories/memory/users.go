package memory

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/dbx"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/users"
	"github.com/google/uuid"
)

type userRepo struct{ base }

func (s *Store) Users(db dbx.DBTX) users.Repository {
	return &userRepo{s.bind(db)}
}

func (r *userRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	err := r.write(func(st *state) error {
		key := strings.ToLower(u.Email)
		if _, taken := st.emails[key]; taken {
			return common.ErrorAlreadyExists
		}
		u.ID = uuid.NewString()
		if u.CreatedAt.IsZero() {
			u.CreatedAt = time.Now().UTC()
		}
		st.users[u.ID] = *u
		st.emails[key] = u.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	var out *models.User
	err := r.read(func(st *state) error {
		id, ok := st.emails[strings.ToLower(email)]
		if !ok {
			return common.ErrorNotFound
		}
		u := st.users[id]
		out = &u
		return nil
	})
	return out, err
}

func (r *userRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	var out *models.User
	err := r.read(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return common.ErrorNotFound
		}
		out = &u
		return nil
	})
	return out, err
}
