package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

const fileColumns = `id, owner_id, name, content_type, size, storage_key, created_at`

func (r *PostgresRepository) Create(ctx context.Context, f *models.File) error {
	query := `
		INSERT INTO files (id, owner_id, name, content_type, size, storage_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		f.ID, f.OwnerID, f.Name, f.ContentType, f.Size, f.StorageKey, f.CreatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.File, error) {
	if !dbx.IsValidID(id) {
		return nil, common.ErrorNotFound
	}
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) Lock(ctx context.Context, id string) (*models.File, error) {
	if !dbx.IsValidID(id) {
		return nil, common.ErrorNotFound
	}
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) ListVisible(ctx context.Context, userID string) ([]*models.File, error) {
	query := `
		SELECT f.id, f.owner_id, f.name, f.content_type, f.size, f.storage_key, f.created_at
		FROM files f
		WHERE f.owner_id = $1
		   OR EXISTS (
				SELECT 1 FROM file_grants g
				WHERE g.file_id = f.id AND g.grantee_id = $1
		   )
		ORDER BY f.created_at DESC, f.id
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.File, 0)
	for rows.Next() {
		f := &models.File{}
		if err := rows.Scan(&f.ID, &f.OwnerID, &f.Name, &f.ContentType, &f.Size, &f.StorageKey, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, id string) (*models.File, error) {
	f := &models.File{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&f.ID, &f.OwnerID, &f.Name, &f.ContentType, &f.Size, &f.StorageKey, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}
