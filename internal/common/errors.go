// Package common defines shared constants and sentinel errors used across
// client and server layers of fileshare. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// ErrorDenied means the caller is authenticated but lacks the permission
	// the operation needs (not an owner, not a grantee).
	ErrorDenied = errors.New("access denied")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Share-link redemption errors.
	ErrLinkTokenNotFound = errors.New("share link not found")
	ErrLinkTokenRevoked  = errors.New("share link revoked")
	ErrUnauthenticated   = errors.New("authentication required")
)
