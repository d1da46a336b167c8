package services

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/dbx"
	"github.com/dmitrijs2005/fileshare/internal/logging"
	"github.com/dmitrijs2005/fileshare/internal/server/access"
	"github.com/dmitrijs2005/fileshare/internal/server/cache"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/fileshare/internal/server/storage"
)

// FileService is the file registry: it owns file rows and answers who may
// read them.
type FileService struct {
	runner      dbx.TxRunner
	repomanager repomanager.RepositoryManager
	store       storage.Store
	cache       cache.FileListCache
	logger      logging.Logger
}

func NewFileService(runner dbx.TxRunner, m repomanager.RepositoryManager, store storage.Store, c cache.FileListCache, logger logging.Logger) *FileService {
	if c == nil {
		c = cache.Noop{}
	}
	return &FileService{
		runner:      runner,
		repomanager: m,
		store:       store,
		cache:       c,
		logger:      logger.With("module", "files"),
	}
}

// CreateBatch inserts all files in one transaction. It is the only way new
// files enter the registry.
func (s *FileService) CreateBatch(ctx context.Context, files []*models.File) error {
	err := s.runner.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Files(tx)
		for _, f := range files {
			if err := repo.Create(ctx, f); err != nil {
				return fmt.Errorf("error creating file %s: %w", f.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	owners := make([]string, 0, 1)
	seen := map[string]bool{}
	for _, f := range files {
		if !seen[f.OwnerID] {
			seen[f.OwnerID] = true
			owners = append(owners, f.OwnerID)
		}
	}
	s.cache.Invalidate(context.WithoutCancel(ctx), owners...)
	return nil
}

// Create registers a single file.
func (s *FileService) Create(ctx context.Context, f *models.File) (string, error) {
	if err := s.CreateBatch(ctx, []*models.File{f}); err != nil {
		return "", err
	}
	return f.ID, nil
}

// Get returns the file or common.ErrorNotFound. It does not check access.
func (s *FileService) Get(ctx context.Context, id string) (*models.File, error) {
	return s.repomanager.Files(s.runner.DB()).Get(ctx, id)
}

// ListFiles returns the files userID owns or was granted. Files reachable
// only through a share link are never listed.
func (s *FileService) ListFiles(ctx context.Context, userID string) ([]*models.File, error) {
	if files, ok := s.cache.Get(ctx, userID); ok {
		return files, nil
	}

	gen, cacheable := s.cache.Generation(ctx, userID)
	files, err := s.repomanager.Files(s.runner.DB()).ListVisible(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing files: %w", err)
	}
	if cacheable {
		s.cache.Set(ctx, userID, gen, files)
	}
	return files, nil
}

// Permission evaluates userID against f, loading the grant only when needed.
func (s *FileService) Permission(ctx context.Context, userID string, f *models.File) (access.Permission, error) {
	if p := access.Evaluate(userID, f, false); p != access.PermissionNone || userID == "" {
		return p, nil
	}
	granted, err := s.repomanager.Grants(s.runner.DB()).Exists(ctx, f.ID, userID)
	if err != nil {
		return access.PermissionNone, fmt.Errorf("error checking grant: %w", err)
	}
	return access.Evaluate(userID, f, granted), nil
}

// Describe returns file metadata to its owner or a grantee.
func (s *FileService) Describe(ctx context.Context, userID, fileID string) (*models.File, error) {
	f, err := s.Get(ctx, fileID)
	if err != nil {
		return nil, err
	}
	p, err := s.Permission(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	if p == access.PermissionNone {
		return nil, common.ErrorDenied
	}
	return f, nil
}

// Download opens the file's bytes for an owner or grantee. The caller closes
// the reader.
func (s *FileService) Download(ctx context.Context, userID, fileID string) (*models.File, io.ReadCloser, error) {
	f, err := s.Describe(ctx, userID, fileID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.open(ctx, f)
	if err != nil {
		return nil, nil, err
	}
	return f, rc, nil
}

// Presigner exposes the store's direct-URL support, if it has any.
func (s *FileService) Presigner() (storage.Presigner, bool) {
	p, ok := s.store.(storage.Presigner)
	return p, ok
}

func (s *FileService) open(ctx context.Context, f *models.File) (io.ReadCloser, error) {
	rc, err := s.store.Open(ctx, f.StorageKey)
	if err != nil {
		s.logger.Error(ctx, "blob open failed", "file_id", f.ID, "key", f.StorageKey, "error", err)
		return nil, fmt.Errorf("error opening blob: %w", err)
	}
	return rc, nil
}
