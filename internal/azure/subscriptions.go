package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
)

// ListSubscriptions returns the ids of the subscriptions visible to the
// credential, in the order the API lists them. Entries without an id are kept
// as empty strings so callers can tell a blank first entry apart.
func (c *Client) ListSubscriptions(ctx context.Context, cred azcore.TokenCredential) ([]string, error) {
	client, err := armsubscriptions.NewClient(cred, c.options)
	if err != nil {
		return nil, fmt.Errorf("creating subscriptions client: %w", err)
	}

	var ids []string
	pager := client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, subscription := range page.Value {
			id := ""
			if subscription != nil && subscription.SubscriptionID != nil {
				id = *subscription.SubscriptionID
			}
			ids = append(ids, id)
		}
	}

	return ids, nil
}

// ListResourceGroups returns the names of the resource groups in the session's subscription
func (c *Client) ListResourceGroups(ctx context.Context, session Session) ([]string, error) {
	client, err := armresources.NewResourceGroupsClient(session.SubscriptionID, session.Credential, c.options)
	if err != nil {
		return nil, fmt.Errorf("creating ResourceGroup client: %w", err)
	}

	var names []string
	pager := client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, group := range page.Value {
			if group != nil && group.Name != nil {
				names = append(names, *group.Name)
			}
		}
	}

	return names, nil
}
