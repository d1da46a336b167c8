// Package access decides what a user may do with a file. It is pure: callers
// load the file, the grant and the link and pass them in.
package access

import (
	"time"

	"github.com/dmitrijs2005/fileshare/internal/common"
	"github.com/dmitrijs2005/fileshare/internal/server/models"
)

type Permission int

const (
	PermissionNone Permission = iota
	PermissionGrantee
	PermissionOwner
)

func (p Permission) String() string {
	switch p {
	case PermissionOwner:
		return "owner"
	case PermissionGrantee:
		return "grantee"
	default:
		return "none"
	}
}

// Evaluate returns the user's permission on f. granted tells whether an
// explicit grant row exists for (f, userID).
func Evaluate(userID string, f *models.File, granted bool) Permission {
	if userID == "" || f == nil {
		return PermissionNone
	}
	if f.OwnerID == userID {
		return PermissionOwner
	}
	if granted {
		return PermissionGrantee
	}
	return PermissionNone
}

// CanRead allows owners and explicit grantees. Share links are not
// considered here; see Redeem.
func CanRead(userID string, f *models.File, granted bool) bool {
	return Evaluate(userID, f, granted) != PermissionNone
}

// CanShare allows only the owner. Grantees cannot re-share.
func CanShare(userID string, f *models.File) bool {
	return Evaluate(userID, f, false) == PermissionOwner
}

// Redeem checks a share-link redemption and returns the file it unlocks.
// An anonymous caller is rejected before the link is looked at; otherwise
// any authenticated user holding an active token may read the file.
func Redeem(link *models.ShareLink, userID string, now time.Time) (string, error) {
	if userID == "" {
		return "", common.ErrUnauthenticated
	}
	if link == nil {
		return "", common.ErrLinkTokenNotFound
	}
	if !link.Active(now) {
		return "", common.ErrLinkTokenRevoked
	}
	return link.FileID, nil
}
