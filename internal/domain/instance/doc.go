// Package instance contains the domain model for installed instances.
//
// An Instance ties a pack version to a directory on disk, tracks its
// installation status and user-added content, and carries the metadata
// shown in listings.
package instance
