package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
)

// AzureBlobConnector stores objects in one Azure Blob Storage container.
type AzureBlobConnector struct {
	client    *azblob.Client
	container *container.Client
	name      string
}

func NewAzureBlobConnector(ctx context.Context, connectionString, containerName string) (*AzureBlobConnector, error) {
	if connectionString == "" || containerName == "" {
		return nil, errors.New("azure storage requires a connection string and a container")
	}

	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure Blob client: %w", err)
	}

	if _, err := client.CreateContainer(ctx, containerName, nil); err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return nil, fmt.Errorf("failed to create container %s: %w", containerName, err)
	}

	return &AzureBlobConnector{
		client:    client,
		container: client.ServiceClient().NewContainerClient(containerName),
		name:      containerName,
	}, nil
}

func (c *AzureBlobConnector) Upload(ctx context.Context, name, contentType string, data []byte, upsert bool) (string, error) {
	blobClient := c.container.NewBlobClient(name)

	if !upsert {
		_, err := blobClient.GetProperties(ctx, nil)
		if err == nil {
			return "", ErrObjectExists
		}
		if !bloberror.HasCode(err, bloberror.BlobNotFound) {
			return "", fmt.Errorf("failed to check blob %s: %w", name, err)
		}
	}

	_, err := c.client.UploadStream(ctx, c.name, name, bytes.NewReader(data), &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload blob %s: %w", name, err)
	}

	return blobClient.URL(), nil
}

func (c *AzureBlobConnector) Delete(ctx context.Context, name string) error {
	if _, err := c.client.DeleteBlob(ctx, c.name, name, nil); err != nil && !bloberror.HasCode(err, bloberror.BlobNotFound) {
		return fmt.Errorf("failed to delete blob %s: %w", name, err)
	}
	return nil
}
