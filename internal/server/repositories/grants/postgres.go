package grants

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/fileshare/internal/dbx"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, g *models.Grant) (bool, error) {
	query := `
		INSERT INTO file_grants (file_id, grantee_id, granted_by, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (file_id, grantee_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, g.FileID, g.GranteeID, g.GrantedBy, g.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, fileID, granteeID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM file_grants WHERE file_id = $1 AND grantee_id = $2
		)
	`
	if !dbx.IsValidID(fileID) || !dbx.IsValidID(granteeID) {
		return false, nil
	}
	var ok bool
	if err := r.db.QueryRowContext(ctx, query, fileID, granteeID).Scan(&ok); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, fileID, granteeID string) error {
	if !dbx.IsValidID(fileID) || !dbx.IsValidID(granteeID) {
		return nil
	}
	query := `DELETE FROM file_grants WHERE file_id = $1 AND grantee_id = $2`
	if _, err := r.db.ExecContext(ctx, query, fileID, granteeID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByFile(ctx context.Context, fileID string) ([]*models.Grant, error) {
	query := `
		SELECT file_id, grantee_id, granted_by, created_at
		FROM file_grants
		WHERE file_id = $1
		ORDER BY created_at, grantee_id
	`
	if !dbx.IsValidID(fileID) {
		return []*models.Grant{}, nil
	}
	rows, err := r.db.QueryContext(ctx, query, fileID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Grant, 0)
	for rows.Next() {
		g := &models.Grant{}
		if err := rows.Scan(&g.FileID, &g.GranteeID, &g.GrantedBy, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
