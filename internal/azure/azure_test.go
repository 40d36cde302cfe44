package azure

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice/v2"
	"github.com/davoodharun/qaenv/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() (*Client, *testutil.Transport) {
	transport := &testutil.Transport{}
	return NewClient(transport.ClientOptions()), transport
}

func testSession() Session {
	return Session{Credential: testutil.Credential{}, SubscriptionID: "sub-1"}
}

func TestListSubscriptions(t *testing.T) {
	client, transport := newTestClient()
	transport.Handle(http.MethodGet, "/subscriptions", http.StatusOK,
		`{"value":[{"subscriptionId":"sub-1","displayName":"QA"},{"displayName":"no id"},{"subscriptionId":"sub-2"}]}`)

	ids, err := client.ListSubscriptions(context.Background(), testutil.Credential{})
	require.NoError(t, err)
	assert.Equal(t, []string{"sub-1", "", "sub-2"}, ids)
}

func TestListSubscriptionsError(t *testing.T) {
	client, transport := newTestClient()
	transport.Handle(http.MethodGet, "/subscriptions", http.StatusForbidden,
		`{"error":{"code":"AuthorizationFailed","message":"nope"}}`)

	_, err := client.ListSubscriptions(context.Background(), testutil.Credential{})
	require.Error(t, err)

	var respErr *azcore.ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, http.StatusForbidden, respErr.StatusCode)
}

func TestListResourceGroups(t *testing.T) {
	client, transport := newTestClient()
	transport.Handle(http.MethodGet, "/subscriptions/sub-1/resourcegroups", http.StatusOK,
		`{"value":[{"name":"rg-qa","location":"westeurope"},{"name":"rg-prod","location":"westeurope"}]}`)

	names, err := client.ListResourceGroups(context.Background(), testSession())
	require.NoError(t, err)
	assert.Equal(t, []string{"rg-qa", "rg-prod"}, names)
}

func TestNameAvailable(t *testing.T) {
	testCases := []struct {
		name     string
		response string
		want     bool
	}{
		{name: "Available", response: `{"nameAvailable":true}`, want: true},
		{name: "Taken", response: `{"nameAvailable":false,"reason":"AlreadyExists"}`, want: false},
		{name: "Missing flag", response: `{}`, want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client, transport := newTestClient()
			transport.Handle(http.MethodPost, "/providers/Microsoft.Web/checknameavailability", http.StatusOK, tc.response)

			available, err := client.NameAvailable(context.Background(), testSession(), "app-proj-42-qa", "Site")
			require.NoError(t, err)
			assert.Equal(t, tc.want, available)

			requests := transport.Requests()
			require.Len(t, requests, 1)
			assert.True(t, strings.HasPrefix(requests[0].Path, "/subscriptions/sub-1/"))

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(requests[0].Body), &body))
			assert.Equal(t, "app-proj-42-qa", body["name"])
			assert.Equal(t, "Site", body["type"])
		})
	}
}

func TestCreateOrUpdateWebApp(t *testing.T) {
	client, transport := newTestClient()
	transport.Handle(http.MethodPut, "/resourcegroups/rg-qa/providers/microsoft.web/sites/app-qa", http.StatusOK,
		`{"name":"app-qa","location":"westeurope"}`)

	site := armappservice.Site{
		Location: to.Ptr("westeurope"),
		Properties: &armappservice.SiteProperties{
			ServerFarmID: to.Ptr("/plan"),
		},
	}
	err := client.CreateOrUpdateWebApp(context.Background(), testSession(), "rg-qa", "app-qa", site)
	require.NoError(t, err)

	requests := transport.Requests()
	require.NotEmpty(t, requests)
	assert.Equal(t, http.MethodPut, requests[0].Method)
	assert.Contains(t, requests[0].Body, `"serverFarmId":"/plan"`)
}

func TestCreateOrUpdateWebAppFailure(t *testing.T) {
	client, transport := newTestClient()
	transport.Handle(http.MethodPut, "/sites/app-qa", http.StatusBadRequest,
		`{"error":{"code":"BadRequest","message":"invalid site config"}}`)

	err := client.CreateOrUpdateWebApp(context.Background(), testSession(), "rg-qa", "app-qa", armappservice.Site{})
	require.Error(t, err)

	var respErr *azcore.ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, "BadRequest", respErr.ErrorCode)
}

func TestDeleteWebApp(t *testing.T) {
	client, transport := newTestClient()
	transport.Handle(http.MethodDelete, "/sites/app-qa", http.StatusOK, ``)

	require.NoError(t, client.DeleteWebApp(context.Background(), testSession(), "rg-qa", "app-qa"))

	requests := transport.Requests()
	require.Len(t, requests, 1)
	assert.Contains(t, requests[0].Query, "deleteMetrics=true")
}

func TestDeleteWebAppNotFound(t *testing.T) {
	client, _ := newTestClient()

	err := client.DeleteWebApp(context.Background(), testSession(), "rg-qa", "missing")
	require.Error(t, err)
}

func TestBlobPublisher(t *testing.T) {
	client, transport := newTestClient()
	transport.Handle(http.MethodPut, "/qa-variables", http.StatusConflict,
		`{"error":{"code":"ContainerAlreadyExists"}}`)
	transport.Handle(http.MethodPut, "/qa-variables/app-qa/azureWebappVariables.txt", http.StatusCreated, ``)

	publisher := client.NewBlobPublisher("stqa", "qa-variables")
	err := publisher.Publish(context.Background(), testutil.Credential{}, "app-qa/azureWebappVariables.txt",
		[]byte("webappPort=443\n"))
	require.NoError(t, err)

	requests := transport.Requests()
	require.Len(t, requests, 2)
	assert.Equal(t, "webappPort=443\n", requests[1].Body)
}
