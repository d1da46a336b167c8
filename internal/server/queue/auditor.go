package queue

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/fileshare/internal/dbx"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/repomanager"
	"github.com/hibiken/asynq"
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqAuditor hands redemption records to the worker.
type AsynqAuditor struct {
	client Enqueuer
}

func NewAsynqAuditor(client Enqueuer) *AsynqAuditor {
	return &AsynqAuditor{client: client}
}

func (a *AsynqAuditor) RecordRedemption(ctx context.Context, rec *models.LinkRedemption) error {
	task, err := NewRedemptionTask(rec)
	if err != nil {
		return err
	}
	if _, err := a.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue redemption: %w", err)
	}
	return nil
}

// InlineAuditor writes redemption records straight to the repository. Used
// when no Redis is configured and by the worker itself.
type InlineAuditor struct {
	runner dbx.TxRunner
	repos  repomanager.RepositoryManager
}

func NewInlineAuditor(runner dbx.TxRunner, repos repomanager.RepositoryManager) *InlineAuditor {
	return &InlineAuditor{runner: runner, repos: repos}
}

func (a *InlineAuditor) RecordRedemption(ctx context.Context, rec *models.LinkRedemption) error {
	return a.repos.Redemptions(a.runner.DB()).Create(ctx, rec)
}
