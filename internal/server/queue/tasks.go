// Package queue moves side work off the request path with asynq: share-link
// redemption auditing and periodic refresh-token cleanup.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fileshare/internal/server/models"
	"github.com/hibiken/asynq"
)

const (
	// TypeLinkRedeemed is enqueued once per redemption attempt.
	TypeLinkRedeemed = "link:redeemed"
	// TypePurgeRefreshTokens is registered with the scheduler.
	TypePurgeRefreshTokens = "refresh_tokens:purge"
)

// RedemptionPayload is the JSON body of a TypeLinkRedeemed task.
type RedemptionPayload struct {
	TokenHash string    `json:"token_hash"`
	FileID    string    `json:"file_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Outcome   string    `json:"outcome"`
	At        time.Time `json:"at"`
}

func NewRedemptionTask(rec *models.LinkRedemption) (*asynq.Task, error) {
	data, err := json.Marshal(RedemptionPayload{
		TokenHash: rec.TokenHash,
		FileID:    rec.FileID,
		UserID:    rec.UserID,
		Outcome:   string(rec.Outcome),
		At:        rec.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(TypeLinkRedeemed, data, asynq.MaxRetry(5)), nil
}

func (p RedemptionPayload) record() *models.LinkRedemption {
	return &models.LinkRedemption{
		TokenHash: p.TokenHash,
		FileID:    p.FileID,
		UserID:    p.UserID,
		Outcome:   models.RedemptionOutcome(p.Outcome),
		CreatedAt: p.At,
	}
}

func NewPurgeRefreshTokensTask() *asynq.Task {
	return asynq.NewTask(TypePurgeRefreshTokens, nil, asynq.MaxRetry(1))
}
