// Package gdrive publishes artifacts to a Google Drive folder.
package gdrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"scenecast/internal/ports"
)

// Client implements ports.StorageProvider. Uploads are named after the
// object key; the returned key is the Drive file id used by Get and Delete.
type Client struct {
	srv      *drive.Service
	folderID string
}

func NewClient(srv *drive.Service, folderID string) *Client {
	return &Client{srv: srv, folderID: folderID}
}

func (c *Client) Provider() string { return "gdrive" }

func (c *Client) PutObject(ctx context.Context, in ports.PutObjectInput) (ports.PutObjectOutput, error) {
	if in.ObjectKey == "" {
		return ports.PutObjectOutput{}, fmt.Errorf("object key is required")
	}

	file := &drive.File{Name: in.ObjectKey}
	if c.folderID != "" {
		file.Parents = []string{c.folderID}
	}

	call := c.srv.Files.Create(file).SupportsAllDrives(true).Fields("id", "size")
	if in.ContentType != "" {
		call = call.Media(in.Reader, googleapi.ContentType(in.ContentType))
	} else {
		call = call.Media(in.Reader)
	}

	created, err := call.Context(ctx).Do()
	if err != nil {
		return ports.PutObjectOutput{}, fmt.Errorf("gdrive upload %s: %w", in.ObjectKey, err)
	}
	size := created.Size
	if size == 0 {
		size = in.Size
	}
	return ports.PutObjectOutput{ObjectKey: created.Id, Size: size}, nil
}

func (c *Client) GetObject(ctx context.Context, objectKey string) (rc io.ReadCloser, contentType string, size int64, err error) {
	resp, err := c.srv.Files.Get(objectKey).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return nil, "", 0, mapErr(err)
	}
	return resp.Body, resp.Header.Get("Content-Type"), resp.ContentLength, nil
}

func (c *Client) DeleteObject(ctx context.Context, objectKey string) error {
	return mapErr(c.srv.Files.Delete(objectKey).SupportsAllDrives(true).Context(ctx).Do())
}

// GetSignedURL returns the Drive download link. Drive links do not expire,
// ExpiresAt only echoes the requested lifetime.
func (c *Client) GetSignedURL(ctx context.Context, objectKey string, expiresIn time.Duration) (ports.SignedURLOutput, error) {
	f, err := c.srv.Files.Get(objectKey).SupportsAllDrives(true).Fields("webContentLink").Context(ctx).Do()
	if err != nil {
		return ports.SignedURLOutput{}, mapErr(err)
	}
	return ports.SignedURLOutput{URL: f.WebContentLink, ExpiresAt: time.Now().UTC().Add(expiresIn)}, nil
}

func mapErr(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return ports.ErrObjectNotFound
	}
	return err
}
