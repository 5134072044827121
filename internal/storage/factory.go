// Package storage builds the configured artifact storage provider.
package storage

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"scenecast/internal/adapters/storage/gdrive"
	"scenecast/internal/adapters/storage/localfs"
	"scenecast/internal/config"
	"scenecast/internal/ports"
)

// ArtifactURLPrefix is the API path that streams stored objects.
const ArtifactURLPrefix = "/artifacts"

// Provider aliases ports.StorageProvider for call sites outside adapters.
type Provider = ports.StorageProvider

// NewProvider returns the provider named by cfg.StorageProvider.
func NewProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.StorageProvider {
	case "", "localfs":
		return localfs.New(cfg.StorageLocalRoot, ArtifactURLPrefix), nil
	case "gdrive":
		return newGDriveProvider(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.StorageProvider)
	}
}

// newGDriveProvider authenticates with a stored refresh token.
func newGDriveProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	conf := &oauth2.Config{
		ClientID:     cfg.GDriveClientID,
		ClientSecret: cfg.GDriveClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
	}
	httpClient := conf.Client(ctx, &oauth2.Token{RefreshToken: cfg.GDriveRefreshToken})

	srv, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	return gdrive.NewClient(srv, cfg.GDriveFolderID), nil
}
