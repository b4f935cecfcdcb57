package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DriveProvider stores folders and files in Google Drive.
type DriveProvider struct {
	files  *drive.FilesService
	logger *zap.Logger
}

// NewDriveProviderFromFile authenticates with a service account key file.
func NewDriveProviderFromFile(ctx context.Context, credentialsFile string, logger *zap.Logger) (*DriveProvider, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials %s: %w", credentialsFile, err)
	}
	return NewDriveProvider(ctx, data, logger)
}

// NewDriveProvider builds a long-lived Drive client from credentials JSON.
func NewDriveProvider(ctx context.Context, credentialsJSON []byte, logger *zap.Logger) (*DriveProvider, error) {
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("parse drive credentials: %w", err)
	}
	svc, err := drive.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return NewDriveProviderWithService(svc, logger), nil
}

// NewDriveProviderWithService wraps an already configured Drive service.
func NewDriveProviderWithService(svc *drive.Service, logger *zap.Logger) *DriveProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DriveProvider{files: svc.Files, logger: logger.Named("drive")}
}

func (d *DriveProvider) FindFolder(ctx context.Context, name, parentID string) (string, bool, error) {
	q := folderQuery(name, parentID)
	res, err := d.files.List().
		Q(q).
		Fields("files(id, name)").
		PageSize(1).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		d.logger.Error("find folder failed", zap.String("name", name), zap.String("parent", parentID), zap.Error(err))
		return "", false, err
	}
	if len(res.Files) == 0 {
		return "", false, nil
	}
	return res.Files[0].Id, true, nil
}

func (d *DriveProvider) CreateFolder(ctx context.Context, name, parentID string) (string, error) {
	meta := &drive.File{Name: name, MimeType: FolderMimeType}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}
	f, err := d.files.Create(meta).
		Fields("id").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		d.logger.Error("create folder failed", zap.String("name", name), zap.String("parent", parentID), zap.Error(err))
		return "", err
	}
	return f.Id, nil
}

func (d *DriveProvider) UploadFile(ctx context.Context, body io.Reader, name, mimeType, parentID string) (string, error) {
	meta := &drive.File{Name: name, Parents: []string{parentID}}
	call := d.files.Create(meta).Fields("id").SupportsAllDrives(true).Context(ctx)
	if mimeType != "" {
		call = call.Media(body, googleapi.ContentType(mimeType))
	} else {
		call = call.Media(body)
	}
	f, err := call.Do()
	if err != nil {
		d.logger.Error("upload file failed", zap.String("name", name), zap.String("parent", parentID), zap.Error(err))
		return "", err
	}
	return f.Id, nil
}

// folderQuery builds the Drive search expression for a folder name.
func folderQuery(name, parentID string) string {
	q := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", escapeQuery(name), FolderMimeType)
	if parentID != "" {
		q += fmt.Sprintf(" and '%s' in parents", escapeQuery(parentID))
	}
	return q
}

var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}
