package sharelinks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/dbx"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const linkColumns = `token, file_id, created_by, created_at, revoked, revoked_at, expires_at`

func (r *PostgresRepository) Create(ctx context.Context, l *models.ShareLink) error {
	query := `
		INSERT INTO share_links (token, file_id, created_by, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query, l.Token, l.FileID, l.CreatedBy, l.CreatedAt, l.ExpiresAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, token string) (*models.ShareLink, error) {
	query := `SELECT ` + linkColumns + ` FROM share_links WHERE token = $1`
	return r.getOne(ctx, query, token)
}

func (r *PostgresRepository) FindActive(ctx context.Context, fileID string) (*models.ShareLink, error) {
	if !dbx.IsValidID(fileID) {
		return nil, common.ErrorNotFound
	}
	query := `SELECT ` + linkColumns + ` FROM share_links WHERE file_id = $1 AND NOT revoked`
	return r.getOne(ctx, query, fileID)
}

func (r *PostgresRepository) RevokeActive(ctx context.Context, fileID string, at time.Time) (int64, error) {
	query := `
		UPDATE share_links
		SET revoked = TRUE, revoked_at = $2
		WHERE file_id = $1 AND NOT revoked
	`
	if !dbx.IsValidID(fileID) {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, query, fileID, at)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (*models.ShareLink, error) {
	l := &models.ShareLink{}
	var revokedAt, expiresAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&l.Token, &l.FileID, &l.CreatedBy, &l.CreatedAt, &l.Revoked, &revokedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if revokedAt.Valid {
		l.RevokedAt = &revokedAt.Time
	}
	if expiresAt.Valid {
		l.ExpiresAt = &expiresAt.Time
	}
	return l, nil
}
