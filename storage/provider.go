// Package storage wraps the cloud storage collaborator the intake service writes to.
//
// The service only needs three capabilities: find a folder by name, create a folder
// and upload a file into a folder. Implementations must be safe for concurrent use.
package storage

import (
	"context"
	"io"
)

// FolderMimeType marks folders in Google Drive.
const FolderMimeType = "application/vnd.google-apps.folder"

// Provider is the opaque folder/file capability of the storage backend.
type Provider interface {
	// FindFolder returns the ID of a non-trashed folder with exactly this name.
	// An empty parentID searches without a parent constraint.
	FindFolder(ctx context.Context, name, parentID string) (id string, found bool, err error)

	// CreateFolder creates a folder and returns its ID. An empty parentID
	// creates it at the provider's top level.
	CreateFolder(ctx context.Context, name, parentID string) (string, error)

	// UploadFile streams body into parentID under name and returns the file ID.
	UploadFile(ctx context.Context, body io.Reader, name, mimeType, parentID string) (string, error)
}
