package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// BlobPublisher uploads files to a storage account container with the
// service principal's credential.
type BlobPublisher struct {
	Account   string
	Container string
	// Endpoint overrides the blob service URL, mostly for tests
	Endpoint string
	options  azblob.ClientOptions
}

// NewBlobPublisher creates a publisher for the given storage account and
// container. The Azure client's transport settings are reused.
func (c *Client) NewBlobPublisher(account, container string) *BlobPublisher {
	return &BlobPublisher{
		Account:   account,
		Container: container,
		options:   azblob.ClientOptions{ClientOptions: c.options.ClientOptions},
	}
}

func (p *BlobPublisher) serviceURL() string {
	if p.Endpoint != "" {
		return p.Endpoint
	}
	return fmt.Sprintf("https://%s.blob.core.windows.net/", p.Account)
}

// Publish uploads data as blobName, creating the container when it does not exist yet
func (p *BlobPublisher) Publish(ctx context.Context, cred azcore.TokenCredential, blobName string, data []byte) error {
	client, err := azblob.NewClient(p.serviceURL(), cred, &p.options)
	if err != nil {
		return fmt.Errorf("failed to create storage client: %w", err)
	}

	if _, err := client.CreateContainer(ctx, p.Container, nil); err != nil &&
		!bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("failed to create container: %w", err)
	}

	if _, err := client.UploadBuffer(ctx, p.Container, blobName, data, nil); err != nil {
		return fmt.Errorf("failed to upload %s: %w", blobName, err)
	}

	return nil
}
