package redemptions

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock, db
}

const testFileID = "3f0b6c2e-8d1a-4c57-9e2b-5a7d1f4c9b01"

const insertQ = `(?s)^INSERT\s+INTO\s+link_redemptions\s*\(token_hash,\s*file_id,\s*user_id,\s*outcome,\s*created_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)\s*RETURNING\s+id$`

func TestCreate_Granted(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	at := time.Now()

	mock.ExpectQuery(insertQ).
		WithArgs("tok", sql.NullString{String: testFileID, Valid: true}, sql.NullString{String: "u2", Valid: true}, "granted", at).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	rec := &models.LinkRedemption{TokenHash: "tok", FileID: testFileID, UserID: "u2", Outcome: models.RedemptionGranted, CreatedAt: at}
	require.NoError(t, repo.Create(context.Background(), rec))
	assert.EqualValues(t, 11, rec.ID)
}

func TestCreate_UnknownTokenStoresNulls(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(insertQ).
		WithArgs("bogus", sql.NullString{}, sql.NullString{String: "u2", Valid: true}, "token_not_found", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))

	rec := &models.LinkRedemption{TokenHash: "bogus", UserID: "u2", Outcome: models.RedemptionTokenNotFound, CreatedAt: time.Now()}
	require.NoError(t, repo.Create(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(insertQ).WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &models.LinkRedemption{TokenHash: "t"})
	require.ErrorContains(t, err, "db error: db down")
}

func TestListByFile(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	at := time.Now()

	mock.ExpectQuery(`(?s)^SELECT\s+id,\s*token_hash,\s*file_id,\s*user_id,\s*outcome,\s*created_at\s+FROM\s+link_redemptions\s+WHERE\s+file_id\s*=\s*\$1\s+ORDER\s+BY.*LIMIT\s+\$2$`).
		WithArgs(testFileID, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "token_hash", "file_id", "user_id", "outcome", "created_at"}).
			AddRow(int64(2), "tok", testFileID, "u2", "granted", at).
			AddRow(int64(1), "tok", testFileID, nil, "unauthenticated", at))

	got, err := repo.ListByFile(context.Background(), testFileID, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.RedemptionGranted, got[0].Outcome)
	assert.Equal(t, "", got[1].UserID)
	assert.Equal(t, models.RedemptionUnauthenticated, got[1].Outcome)
}

func TestListByFile_MalformedID(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	got, err := repo.ListByFile(context.Background(), "abc", 10)
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}
