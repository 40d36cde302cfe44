package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice/v2"
)

// NameAvailable reports whether name is still free for the given web app resource type
func (c *Client) NameAvailable(ctx context.Context, session Session, name, resourceType string) (bool, error) {
	client, err := armappservice.NewWebSiteManagementClient(session.SubscriptionID, session.Credential, c.options)
	if err != nil {
		return false, fmt.Errorf("creating WebSiteManagement client: %w", err)
	}

	resourceTypeValue := armappservice.CheckNameResourceTypes(resourceType)
	response, err := client.CheckNameAvailability(ctx, armappservice.ResourceNameAvailabilityRequest{
		Name: to.Ptr(name),
		Type: &resourceTypeValue,
	}, nil)
	if err != nil {
		return false, err
	}

	return response.NameAvailable != nil && *response.NameAvailable, nil
}

// CreateOrUpdateWebApp submits the site definition and waits for the
// long-running operation to finish
func (c *Client) CreateOrUpdateWebApp(
	ctx context.Context,
	session Session,
	resourceGroup string,
	name string,
	site armappservice.Site,
) error {
	client, err := c.createWebAppsClient(session)
	if err != nil {
		return err
	}

	poller, err := client.BeginCreateOrUpdate(ctx, resourceGroup, name, site, nil)
	if err != nil {
		return err
	}

	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return err
	}

	return nil
}

// DeleteWebApp deletes the web app together with its metrics. The app service
// plan is left in place.
func (c *Client) DeleteWebApp(ctx context.Context, session Session, resourceGroup, name string) error {
	client, err := c.createWebAppsClient(session)
	if err != nil {
		return err
	}

	_, err = client.Delete(ctx, resourceGroup, name, &armappservice.WebAppsClientDeleteOptions{
		DeleteMetrics:         to.Ptr(true),
		DeleteEmptyServerFarm: to.Ptr(false),
	})
	return err
}

func (c *Client) createWebAppsClient(session Session) (*armappservice.WebAppsClient, error) {
	client, err := armappservice.NewWebAppsClient(session.SubscriptionID, session.Credential, c.options)
	if err != nil {
		return nil, fmt.Errorf("creating WebApps client: %w", err)
	}
	return client, nil
}
