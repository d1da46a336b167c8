package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/dbx"
	"github.com/dmitrijs2005/fileshare/internal/logging"
	"github.com/dmitrijs2005/fileshare/internal/server/access"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/repomanager"
)

// AuditSink receives one record per redemption attempt.
type AuditSink interface {
	RecordRedemption(ctx context.Context, rec *models.LinkRedemption) error
}

var newLinkToken = func() (string, error) {
	return common.MakeURLToken(common.LinkTokenBytes)
}

// ShareLinkService manages bearer share links. A file has at most one active
// link; regenerating revokes the previous one in the same transaction.
type ShareLinkService struct {
	runner      dbx.TxRunner
	repomanager repomanager.RepositoryManager
	files       *FileService
	audit       AuditSink
	logger      logging.Logger
	now         func() time.Time
}

func NewShareLinkService(runner dbx.TxRunner, m repomanager.RepositoryManager, files *FileService, audit AuditSink, logger logging.Logger) *ShareLinkService {
	return &ShareLinkService{
		runner:      runner,
		repomanager: m,
		files:       files,
		audit:       audit,
		logger:      logger.With("module", "sharelinks"),
		now:         time.Now,
	}
}

// CreateOrRegenerate issues a fresh token for the file and revokes any
// previous one. The file row is locked for the duration so concurrent
// regenerations serialize and never leave two active links.
func (s *ShareLinkService) CreateOrRegenerate(ctx context.Context, userID, fileID string) (*models.ShareLink, error) {
	token, err := newLinkToken()
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	var link *models.ShareLink
	err = s.runner.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		f, err := s.repomanager.Files(tx).Lock(ctx, fileID)
		if err != nil {
			return err
		}
		if !access.CanShare(userID, f) {
			return common.ErrorDenied
		}

		now := s.now().UTC()
		links := s.repomanager.ShareLinks(tx)
		if _, err := links.RevokeActive(ctx, f.ID, now); err != nil {
			return fmt.Errorf("error revoking previous link: %w", err)
		}

		link = &models.ShareLink{Token: token, FileID: f.ID, CreatedBy: userID, CreatedAt: now}
		if err := links.Create(ctx, link); err != nil {
			return fmt.Errorf("error creating link: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "share link issued", "file_id", fileID)
	return link, nil
}

// Revoke disables the file's active link. Only the owner may revoke; a file
// without an active link is not an error.
func (s *ShareLinkService) Revoke(ctx context.Context, userID, fileID string) error {
	return s.runner.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		f, err := s.repomanager.Files(tx).Lock(ctx, fileID)
		if err != nil {
			return err
		}
		if !access.CanShare(userID, f) {
			return common.ErrorDenied
		}
		n, err := s.repomanager.ShareLinks(tx).RevokeActive(ctx, f.ID, s.now().UTC())
		if err != nil {
			return fmt.Errorf("error revoking link: %w", err)
		}
		s.logger.Info(ctx, "share link revoked", "file_id", f.ID, "revoked", n)
		return nil
	})
}

// Active returns the file's current link to its owner, or
// common.ErrorNotFound when there is none.
func (s *ShareLinkService) Active(ctx context.Context, userID, fileID string) (*models.ShareLink, error) {
	f, err := s.files.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if !access.CanShare(userID, f) {
		return nil, common.ErrorDenied
	}
	return s.repomanager.ShareLinks(s.runner.DB()).FindActive(ctx, fileID)
}

// Redeem returns the file unlocked by token. Any authenticated user may
// redeem an active token; grants are not consulted. The token itself is not
// changed, so it stays usable until revoked.
func (s *ShareLinkService) Redeem(ctx context.Context, token, userID string) (string, error) {
	var link *models.ShareLink
	if userID != "" {
		l, err := s.repomanager.ShareLinks(s.runner.DB()).Find(ctx, token)
		switch {
		case err == nil:
			link = l
		case errors.Is(err, common.ErrorNotFound):
		default:
			return "", fmt.Errorf("error looking up link: %w", err)
		}
	}

	fileID, err := access.Redeem(link, userID, s.now())
	s.record(ctx, token, link, userID, err)
	if err != nil {
		s.logger.Warn(ctx, "share link redemption denied", "user_id", userID, "reason", err)
		return "", err
	}
	return fileID, nil
}

// Download redeems token and opens the file's bytes.
func (s *ShareLinkService) Download(ctx context.Context, token, userID string) (*models.File, io.ReadCloser, error) {
	fileID, err := s.Redeem(ctx, token, userID)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.files.Get(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.files.open(ctx, f)
	if err != nil {
		return nil, nil, err
	}
	return f, rc, nil
}

func (s *ShareLinkService) record(ctx context.Context, token string, link *models.ShareLink, userID string, err error) {
	if s.audit == nil || token == "" {
		return
	}

	rec := &models.LinkRedemption{
		TokenHash: models.HashLinkToken(token),
		UserID:    userID,
		Outcome:   outcomeOf(err),
		CreatedAt: s.now().UTC(),
	}
	if link != nil {
		rec.FileID = link.FileID
	}
	if aerr := s.audit.RecordRedemption(ctx, rec); aerr != nil {
		s.logger.Warn(ctx, "redemption audit failed", "error", aerr)
	}
}

func outcomeOf(err error) models.RedemptionOutcome {
	switch {
	case err == nil:
		return models.RedemptionGranted
	case errors.Is(err, common.ErrUnauthenticated):
		return models.RedemptionUnauthenticated
	case errors.Is(err, common.ErrLinkTokenRevoked):
		return models.RedemptionTokenRevoked
	default:
		return models.RedemptionTokenNotFound
	}
}
