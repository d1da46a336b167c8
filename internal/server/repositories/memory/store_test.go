package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/dbx"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ repomanager.RepositoryManager = (*Store)(nil)
	_ dbx.TxRunner                  = (*Store)(nil)
)

func seedUser(t *testing.T, s *Store, email string) *models.User {
	t.Helper()
	u, err := s.Users(s.DB()).Create(context.Background(), &models.User{Email: email, PasswordHash: []byte("h")})
	require.NoError(t, err)
	return u
}

func seedFile(t *testing.T, s *Store, id, owner string, at time.Time) *models.File {
	t.Helper()
	f := &models.File{ID: id, OwnerID: owner, Name: id + ".pdf", ContentType: "application/pdf", Size: 1, StorageKey: "k/" + id, CreatedAt: at}
	require.NoError(t, s.Files(s.DB()).Create(context.Background(), f))
	return f
}

func TestUsers_EmailUniqueCaseInsensitive(t *testing.T) {
	s := New()
	ctx := context.Background()
	u := seedUser(t, s, "Alice@Example.com")
	require.NotEmpty(t, u.ID)

	_, err := s.Users(s.DB()).Create(ctx, &models.User{Email: "alice@example.com"})
	require.ErrorIs(t, err, common.ErrorAlreadyExists)

	got, err := s.Users(s.DB()).GetByEmail(ctx, "ALICE@example.COM")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.Users(s.DB()).GetByID(ctx, "nope")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestFiles_ListVisible_OwnedAndGranted(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := seedUser(t, s, "alice@example.com")
	bob := seedUser(t, s, "bob@example.com")

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	seedFile(t, s, "a1", alice.ID, base)
	seedFile(t, s, "b1", bob.ID, base.Add(time.Hour))
	seedFile(t, s, "b2", bob.ID, base.Add(2*time.Hour))

	_, err := s.Grants(s.DB()).Upsert(ctx, &models.Grant{FileID: "b1", GranteeID: alice.ID, GrantedBy: bob.ID})
	require.NoError(t, err)

	list, err := s.Files(s.DB()).ListVisible(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b1", list[0].ID)
	assert.Equal(t, "a1", list[1].ID)
}

func TestFiles_ReturnsCopies(t *testing.T) {
	s := New()
	alice := seedUser(t, s, "alice@example.com")
	seedFile(t, s, "a1", alice.ID, time.Now())

	got, err := s.Files(s.DB()).Get(context.Background(), "a1")
	require.NoError(t, err)
	got.Name = "changed"

	again, err := s.Files(s.DB()).Get(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, "a1.pdf", again.Name)
}

func TestGrants_UpsertIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := seedUser(t, s, "alice@example.com")
	bob := seedUser(t, s, "bob@example.com")
	seedFile(t, s, "a1", alice.ID, time.Now())

	g := &models.Grant{FileID: "a1", GranteeID: bob.ID, GrantedBy: alice.ID}
	created, err := s.Grants(s.DB()).Upsert(ctx, g)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.Grants(s.DB()).Upsert(ctx, g)
	require.NoError(t, err)
	assert.False(t, created)

	list, err := s.Grants(s.DB()).ListByFile(ctx, "a1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.Grants(s.DB()).Delete(ctx, "a1", bob.ID))
	ok, err := s.Grants(s.DB()).Exists(ctx, "a1", bob.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestShareLinks_OneActivePerFile(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := seedUser(t, s, "alice@example.com")
	seedFile(t, s, "a1", alice.ID, time.Now())
	links := s.ShareLinks(s.DB())

	require.NoError(t, links.Create(ctx, &models.ShareLink{Token: "t1", FileID: "a1", CreatedBy: alice.ID}))
	err := links.Create(ctx, &models.ShareLink{Token: "t2", FileID: "a1", CreatedBy: alice.ID})
	require.ErrorIs(t, err, common.ErrorAlreadyExists)

	n, err := links.RevokeActive(ctx, "a1", time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, links.Create(ctx, &models.ShareLink{Token: "t2", FileID: "a1", CreatedBy: alice.ID}))

	old, err := links.Find(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, old.Revoked)
	assert.NotNil(t, old.RevokedAt)

	active, err := links.FindActive(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "t2", active.Token)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := seedUser(t, s, "alice@example.com")

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		f := &models.File{ID: "x", OwnerID: alice.ID, CreatedAt: time.Now()}
		if err := s.Files(tx).Create(ctx, f); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Files(s.DB()).Get(ctx, "x")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := seedUser(t, s, "alice@example.com")

	func() {
		defer func() {
			require.NotNil(t, recover())
		}()
		_ = s.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
			_ = s.Files(tx).Create(ctx, &models.File{ID: "x", OwnerID: alice.ID})
			panic("kaput")
		})
	}()

	_, err := s.Files(s.DB()).Get(ctx, "x")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestWithTx_CanceledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.WithTx(ctx, func(context.Context, dbx.DBTX) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestWithTx_SerializesWriters(t *testing.T) {
	s := New()
	ctx := context.Background()
	alice := seedUser(t, s, "alice@example.com")
	seedFile(t, s, "a1", alice.ID, time.Now())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
				links := s.ShareLinks(tx)
				if _, err := links.RevokeActive(ctx, "a1", time.Now()); err != nil {
					return err
				}
				return links.Create(ctx, &models.ShareLink{Token: string(rune('A' + i)), FileID: "a1", CreatedBy: alice.ID})
			})
		}(i)
	}
	wg.Wait()

	active := 0
	for i := 0; i < 20; i++ {
		l, err := s.ShareLinks(s.DB()).Find(ctx, string(rune('A'+i)))
		require.NoError(t, err)
		if !l.Revoked {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestRefreshTokens_Lifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()
	repo := s.RefreshTokens(s.DB())
	now := time.Now()

	require.NoError(t, repo.Create(ctx, "u1", "live", now.Add(time.Hour)))
	require.NoError(t, repo.Create(ctx, "u1", "dead", now.Add(-time.Hour)))

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	rt, err := repo.Find(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, "u1", rt.UserID)

	require.NoError(t, repo.Delete(ctx, "live"))
	_, err = repo.Find(ctx, "live")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestRedemptions_ListNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	repo := s.Redemptions(s.DB())

	require.NoError(t, repo.Create(ctx, &models.LinkRedemption{TokenHash: "t", FileID: "f1", Outcome: models.RedemptionGranted}))
	require.NoError(t, repo.Create(ctx, &models.LinkRedemption{TokenHash: "t", FileID: "f2", Outcome: models.RedemptionGranted}))
	require.NoError(t, repo.Create(ctx, &models.LinkRedemption{TokenHash: "t", FileID: "f1", Outcome: models.RedemptionTokenRevoked}))

	list, err := repo.ListByFile(ctx, "f1", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, models.RedemptionTokenRevoked, list[0].Outcome)
	assert.Greater(t, list[0].ID, list[1].ID)
}
