// Package common contains shared constants and sentinel errors used across
// fileshare components.
package common

const (
	// AccessTokenQueryName is the query parameter that may carry the access
	// token when the Authorization header cannot be set (browser link opens).
	AccessTokenQueryName = "access_token"

	// AuthorizationHeaderName carries "Bearer <jwt>" on API requests.
	AuthorizationHeaderName = "Authorization"
	BearerPrefix            = "Bearer "

	// LinkTokenBytes is the entropy of a share-link token before encoding.
	LinkTokenBytes = 32
)
