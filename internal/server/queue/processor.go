package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/dbx"
	"github.com/dmitrijs2005/fileshare/internal/logging"
	"github.com/dmitrijs2005/fileshare/internal/server/repositories/repomanager"
	"github.com/hibiken/asynq"
)

// Processor is plugged into the asynq worker loop.
type Processor struct {
	runner dbx.TxRunner
	repos  repomanager.RepositoryManager
	audit  *InlineAuditor
	logger logging.Logger
	now    func() time.Time
}

func NewProcessor(runner dbx.TxRunner, repos repomanager.RepositoryManager, logger logging.Logger) *Processor {
	return &Processor{
		runner: runner,
		repos:  repos,
		audit:  NewInlineAuditor(runner, repos),
		logger: logger,
		now:    time.Now,
	}
}

// Handler registers the task handlers.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeLinkRedeemed, p.handleRedemption)
	mux.HandleFunc(TypePurgeRefreshTokens, p.handlePurge)
	return mux
}

func (p *Processor) handleRedemption(ctx context.Context, task *asynq.Task) error {
	var payload RedemptionPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w: %w", err, asynq.SkipRetry)
	}
	if err := p.audit.RecordRedemption(ctx, payload.record()); err != nil {
		p.logger.Error(ctx, "redemption audit failed", "file_id", payload.FileID, "error", err)
		return err
	}
	p.logger.Debug(ctx, "redemption recorded", "file_id", payload.FileID, "outcome", payload.Outcome)
	return nil
}

func (p *Processor) handlePurge(ctx context.Context, _ *asynq.Task) error {
	n, err := p.repos.RefreshTokens(p.runner.DB()).DeleteExpired(ctx, p.now())
	if err != nil {
		p.logger.Error(ctx, "refresh token purge failed", "error", err)
		return err
	}
	p.logger.Info(ctx, "expired refresh tokens purged", "count", n)
	return nil
}

// RegisterPeriodic schedules the refresh-token purge with cron spec.
func RegisterPeriodic(s *asynq.Scheduler, spec string) error {
	if spec == "" {
		return nil
	}
	if _, err := s.Register(spec, NewPurgeRefreshTokensTask()); err != nil {
		return fmt.Errorf("register purge task: %w", err)
	}
	return nil
}
