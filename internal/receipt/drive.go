package receipt

import (
	"bytes"
	"context"
	"fmt"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Uploader stores a receipt image externally and returns a reference URL.
type Uploader interface {
	Upload(ctx context.Context, filename string, data []byte, contentType string) (string, error)
}

// DriveUploader implements Uploader against a Google Drive folder.
type DriveUploader struct {
	svc      *drive.Service
	folderID string
}

// NewDriveUploader creates an uploader that places files in the given folder.
func NewDriveUploader(ctx context.Context, credentialsFile string, folderID string) (*DriveUploader, error) {
	if folderID == "" {
		return nil, fmt.Errorf("drive folder id is required")
	}

	svc, err := drive.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(drive.DriveFileScope),
	)
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}

	return &DriveUploader{svc: svc, folderID: folderID}, nil
}

// Upload stores the image and makes it readable to anyone with the link,
// returning the webViewLink as the reference URL.
func (d *DriveUploader) Upload(ctx context.Context, filename string, data []byte, contentType string) (string, error) {
	file, err := d.svc.Files.Create(&drive.File{
		Name:    filename,
		Parents: []string{d.folderID},
	}).Media(bytes.NewReader(data), googleapi.ContentType(contentType)).
		Fields("id", "webViewLink").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("creating drive file: %w", err)
	}

	_, err = d.svc.Permissions.Create(file.Id, &drive.Permission{
		Type: "anyone",
		Role: "reader",
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("sharing drive file: %w", err)
	}

	return file.WebViewLink, nil
}
