package domain

import "time"

// LibraryType identifies the kind of source library.
type LibraryType string

// Available library types.
const (
	// LibraryTypePersonal is a user's private library.
	LibraryTypePersonal LibraryType = "personal"

	// LibraryTypeShared is a group library shared between users.
	LibraryTypeShared LibraryType = "shared"
)

// IsValid returns true if the library type is recognised.
func (t LibraryType) IsValid() bool {
	switch t {
	case LibraryTypePersonal, LibraryTypeShared:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t LibraryType) String() string {
	return string(t)
}

// Library represents an imported source library.
// Created on first import and kept stable across reimports.
type Library struct {
	// ID is the unique identifier, e.g. "group_5140532".
	// Stable across reimports of the same source library.
	ID string

	// Name is the human-readable display name.
	Name string

	// Type is the source library kind (personal or shared).
	Type LibraryType

	// SourceID is the source system's native identifier.
	SourceID string

	// Description is an optional free-form description.
	Description string

	// AutoUpdate marks the library for automatic re-sync.
	AutoUpdate bool

	// LastSyncAt is when the library was last synchronised.
	// Zero when the library has never been synced.
	LastSyncAt time.Time
}
