package redemptions

import (
	"context"
	"database/sql"
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

func (r *PostgresRepository) Create(ctx context.Context, rec *models.LinkRedemption) error {
	query := `
		INSERT INTO link_redemptions (token_hash, file_id, user_id, outcome, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		rec.TokenHash, nullable(rec.FileID), nullable(rec.UserID), string(rec.Outcome), rec.CreatedAt).
		Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByFile(ctx context.Context, fileID string, limit int) ([]*models.LinkRedemption, error) {
	query := `
		SELECT id, token_hash, file_id, user_id, outcome, created_at
		FROM link_redemptions
		WHERE file_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	if !dbx.IsValidID(fileID) {
		return []*models.LinkRedemption{}, nil
	}
	rows, err := r.db.QueryContext(ctx, query, fileID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.LinkRedemption, 0)
	for rows.Next() {
		rec := &models.LinkRedemption{}
		var file, user sql.NullString
		var outcome string
		if err := rows.Scan(&rec.ID, &rec.TokenHash, &file, &user, &outcome, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		rec.FileID = file.String
		rec.UserID = user.String
		rec.Outcome = models.RedemptionOutcome(outcome)
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
