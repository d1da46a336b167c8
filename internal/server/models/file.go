// Package models defines server-side data models persisted in the database.
package models

import "time"

// File is the metadata of one uploaded blob. The bytes live in object
// storage under StorageKey. Owner, name, type and size never change after
// creation.
type File struct {
	ID          string
	OwnerID     string
	Name        string
	ContentType string
	Size        int64
	StorageKey  string
	CreatedAt   time.Time
}
