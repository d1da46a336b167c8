package models

import "time"

// Grant gives GranteeID read access to FileID. At most one grant exists per
// (FileID, GranteeID) pair.
type Grant struct {
	FileID    string
	GranteeID string
	GrantedBy string
	CreatedAt time.Time
}
