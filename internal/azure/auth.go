package azure

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/cloud"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// Login authenticates a service principal and returns its credential.
//
// Building a client secret credential never contacts the identity provider, so
// a management token is requested up front: bad secrets and unknown tenants
// fail here rather than on the first resource call.
func (c *Client) Login(ctx context.Context, clientID, clientSecret, tenantID string) (azcore.TokenCredential, error) {
	cred, err := azidentity.NewClientSecretCredential(tenantID, clientID, clientSecret,
		&azidentity.ClientSecretCredentialOptions{ClientOptions: c.options.ClientOptions})
	if err != nil {
		return nil, err
	}

	if _, err := cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{c.managementScope()}}); err != nil {
		return nil, err
	}

	return cred, nil
}

func (c *Client) managementScope() string {
	configuration := c.options.Cloud
	if configuration.Services == nil {
		configuration = cloud.AzurePublic
	}
	audience := configuration.Services[cloud.ResourceManager].Audience
	return fmt.Sprintf("%s/.default", strings.TrimSuffix(audience, "/"))
}
