// Package storage writes uploaded objects such as profile pictures.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/cas-gradtrack/gradtrack/internal/config"
)

// ErrObjectExists is returned by Upload when name is taken and upsert is false.
var ErrObjectExists = errors.New("object already exists")

type Connector interface {
	// Upload stores data under name and returns its public URL.
	Upload(ctx context.Context, name, contentType string, data []byte, upsert bool) (string, error)
	Delete(ctx context.Context, name string) error
}

// NewConnector builds the connector selected by settings.Provider.
func NewConnector(ctx context.Context, settings config.StorageSettings) (Connector, error) {
	switch settings.Provider {
	case config.StorageProviderLocal:
		return NewLocalConnector(settings.LocalDir, settings.PublicBaseURL)
	case config.StorageProviderAzure:
		return NewAzureBlobConnector(ctx, settings.ConnectionString, settings.Container)
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", settings.Provider)
	}
}
