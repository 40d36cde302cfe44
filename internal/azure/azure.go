package azure

import (
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
)

// Session carries the credentials and subscription resolved at the start of
// a run. Every resource-scoped call needs both.
type Session struct {
	Credential     azcore.TokenCredential
	SubscriptionID string
}

// Client talks to the Azure management plane
type Client struct {
	options *arm.ClientOptions
}

// NewClient creates a new Azure client. options may be nil.
func NewClient(options *arm.ClientOptions) *Client {
	if options == nil {
		options = &arm.ClientOptions{}
	}
	return &Client{options: options}
}
