package admission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/logging"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/dmitrijs2005/fileshare/internal/server/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// BatchState tracks a batch through admission.
type BatchState int

const (
	Received BatchState = iota
	Validated
	Rejected
	Committed
)

func (s BatchState) String() string {
	switch s {
	case Received:
		return "received"
	case Validated:
		return "validated"
	case Rejected:
		return "rejected"
	case Committed:
		return "committed"
	default:
		return fmt.Sprintf("BatchState(%d)", int(s))
	}
}

// ErrBatchState is returned when a batch is driven out of order.
var ErrBatchState = errors.New("batch is not in the expected state")

// Batch is one upload request. State only moves forward.
type Batch struct {
	OwnerID    string
	Candidates []Candidate
	State      BatchState
	Files      []*models.File
}

func NewBatch(ownerID string, cands []Candidate) *Batch {
	return &Batch{OwnerID: ownerID, Candidates: cands, State: Received}
}

// Validate moves a received batch to Validated or Rejected.
func (b *Batch) Validate(p Policy) error {
	if b.State != Received {
		return ErrBatchState
	}
	if err := p.Check(b.Candidates); err != nil {
		b.State = Rejected
		return err
	}
	b.State = Validated
	return nil
}

// Registry persists admitted files. All rows of a batch go in together.
type Registry interface {
	CreateBatch(ctx context.Context, files []*models.File) error
}

const putConcurrency = 4

// Controller validates batches and commits them to storage and the registry.
type Controller struct {
	policy   Policy
	store    storage.Store
	registry Registry
	logger   logging.Logger
	newID    func() string
	now      func() time.Time
}

func NewController(p Policy, store storage.Store, registry Registry, logger logging.Logger) *Controller {
	return &Controller{
		policy:   p,
		store:    store,
		registry: registry,
		logger:   logger.With("module", "admission"),
		newID:    func() string { return uuid.NewString() },
		now:      time.Now,
	}
}

func (c *Controller) Policy() Policy { return c.policy }

// Admit validates the batch and, only if every rule passes, stores all blobs
// and registers the files owned by ownerID. On any failure nothing is
// registered and blobs already written are removed.
func (c *Controller) Admit(ctx context.Context, ownerID string, cands []Candidate) ([]*models.File, error) {
	b := NewBatch(ownerID, cands)
	if err := b.Validate(c.policy); err != nil {
		c.logger.Info(ctx, "upload rejected", "owner_id", ownerID, "error", err)
		return nil, err
	}
	if err := c.commit(ctx, b); err != nil {
		return nil, err
	}
	return b.Files, nil
}

func (c *Controller) commit(ctx context.Context, b *Batch) error {
	if b.State != Validated {
		return ErrBatchState
	}

	now := c.now().UTC()
	files := make([]*models.File, len(b.Candidates))
	for i, cand := range b.Candidates {
		files[i] = &models.File{
			ID:          c.newID(),
			OwnerID:     b.OwnerID,
			Name:        cand.Name,
			ContentType: cand.ContentType,
			Size:        cand.Size,
			StorageKey:  storage.NewKey(b.OwnerID, now),
			CreatedAt:   now,
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(putConcurrency)
	for i, cand := range b.Candidates {
		f := files[i]
		g.Go(func() error {
			rc, err := cand.Open()
			if err != nil {
				return fmt.Errorf("open %s: %w", cand.Name, err)
			}
			defer rc.Close()
			if err := c.store.Put(gctx, f.StorageKey, rc, f.Size, f.ContentType); err != nil {
				return fmt.Errorf("store %s: %w", cand.Name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.cleanup(ctx, files)
		return err
	}

	if err := c.registry.CreateBatch(ctx, files); err != nil {
		c.cleanup(ctx, files)
		return err
	}

	b.Files = files
	b.State = Committed
	c.logger.Info(ctx, "upload committed", "owner_id", b.OwnerID, "count", len(files))
	return nil
}

func (c *Controller) cleanup(ctx context.Context, files []*models.File) {
	ctx = context.WithoutCancel(ctx)
	for _, f := range files {
		if err := c.store.Delete(ctx, f.StorageKey); err != nil {
			c.logger.Warn(ctx, "blob cleanup failed", "key", f.StorageKey, "error", err)
		}
	}
}
