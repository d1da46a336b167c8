package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/dbx"
	"github.com/dmitrijs2005/fileshare/internal/logging"
	"github.com/dmitrijs2005/fileshare/internal/server/access"
	"github.com/dmitrijs2005/fileshare/internal/server/cache"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/repomanager"
)

// EmailResolver maps an account email to its user id, returning
// common.ErrorNotFound for unknown addresses.
type EmailResolver interface {
	ResolveEmail(ctx context.Context, email string) (string, error)
}

// GrantOutcome is the partial result of sharing with several recipients.
// NotFound lists emails without an account; it is not an error.
type GrantOutcome struct {
	Granted  []string
	NotFound []string
	Denied   bool
}

type GrantService struct {
	runner      dbx.TxRunner
	repomanager repomanager.RepositoryManager
	resolver    EmailResolver
	cache       cache.FileListCache
	logger      logging.Logger
	now         func() time.Time
}

func NewGrantService(runner dbx.TxRunner, m repomanager.RepositoryManager, resolver EmailResolver, c cache.FileListCache, logger logging.Logger) *GrantService {
	if c == nil {
		c = cache.Noop{}
	}
	return &GrantService{
		runner:      runner,
		repomanager: m,
		resolver:    resolver,
		cache:       c,
		logger:      logger.With("module", "grants"),
		now:         time.Now,
	}
}

// GrantTo gives every resolvable recipient read access to the file. Only the
// owner may share; anyone else gets an outcome with Denied set together with
// common.ErrorDenied and nothing is written. Granting twice is a no-op and
// the owner's own address is skipped.
func (s *GrantService) GrantTo(ctx context.Context, userID, fileID string, emails []string) (*GrantOutcome, error) {
	emails = normalizeEmails(emails)
	if len(emails) == 0 {
		return nil, fmt.Errorf("%w: no recipients", common.ErrorValidation)
	}

	f, err := s.repomanager.Files(s.runner.DB()).Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !access.CanShare(userID, f) {
		return &GrantOutcome{Denied: true}, common.ErrorDenied
	}

	out := &GrantOutcome{}
	var grantees []string
	for _, email := range emails {
		id, err := s.resolver.ResolveEmail(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				out.NotFound = append(out.NotFound, email)
				continue
			}
			return nil, fmt.Errorf("error resolving %s: %w", email, err)
		}
		if id == f.OwnerID {
			continue
		}
		grantees = append(grantees, id)
	}
	if len(grantees) == 0 {
		return out, nil
	}

	now := s.now().UTC()
	err = s.runner.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Grants(tx)
		for _, id := range grantees {
			created, err := repo.Upsert(ctx, &models.Grant{FileID: f.ID, GranteeID: id, GrantedBy: userID, CreatedAt: now})
			if err != nil {
				return fmt.Errorf("error granting access: %w", err)
			}
			if !created {
				s.logger.Debug(ctx, "grant already present", "file_id", f.ID, "grantee_id", id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out.Granted = grantees
	s.cache.Invalidate(context.WithoutCancel(ctx), grantees...)
	s.logger.Info(ctx, "file shared", "file_id", f.ID, "granted", len(grantees), "not_found", len(out.NotFound))
	return out, nil
}

// Revoke removes granteeID's grant. Only the owner may revoke; revoking a
// grant that does not exist succeeds.
func (s *GrantService) Revoke(ctx context.Context, userID, fileID, granteeID string) error {
	f, err := s.repomanager.Files(s.runner.DB()).Get(ctx, fileID)
	if err != nil {
		return err
	}
	if !access.CanShare(userID, f) {
		return common.ErrorDenied
	}
	if err := s.repomanager.Grants(s.runner.DB()).Delete(ctx, fileID, granteeID); err != nil {
		return fmt.Errorf("error revoking grant: %w", err)
	}
	s.cache.Invalidate(context.WithoutCancel(ctx), granteeID)
	return nil
}

// List returns the file's grants to its owner.
func (s *GrantService) List(ctx context.Context, userID, fileID string) ([]*models.Grant, error) {
	f, err := s.repomanager.Files(s.runner.DB()).Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !access.CanShare(userID, f) {
		return nil, common.ErrorDenied
	}
	return s.repomanager.Grants(s.runner.DB()).ListByFile(ctx, fileID)
}

func normalizeEmails(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, e := range in {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}
