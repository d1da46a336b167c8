package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

type RedemptionOutcome string

const (
	RedemptionGranted         RedemptionOutcome = "granted"
	RedemptionTokenNotFound   RedemptionOutcome = "token_not_found"
	RedemptionTokenRevoked    RedemptionOutcome = "token_revoked"
	RedemptionUnauthenticated RedemptionOutcome = "unauthenticated"
)

// LinkRedemption is one audit record of a share-link redemption attempt.
// FileID and UserID are empty when the attempt failed before they were known.
// Only a digest of the presented token is kept, never the token itself.
type LinkRedemption struct {
	ID        int64
	TokenHash string
	FileID    string
	UserID    string
	Outcome   RedemptionOutcome
	CreatedAt time.Time
}

// HashLinkToken returns the hex SHA-256 digest stored in place of a token.
func HashLinkToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
