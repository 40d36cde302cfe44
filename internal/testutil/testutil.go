package testutil

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/davoodharun/qaenv/internal/logger"
)

// Chdir switches into dir for the rest of the test and silences the logger
func Chdir(t *testing.T, dir string) {
	t.Helper()

	currentDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get current directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change to %s: %v", dir, err)
	}

	logger.SetTestMode(true)
	t.Cleanup(func() {
		logger.Reset()
		os.Chdir(currentDir)
	})
}

// WriteFile writes content to path, creating parent directories
func WriteFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

// Credential is a TokenCredential that hands out a fixed token
type Credential struct{}

func (Credential) GetToken(context.Context, policy.TokenRequestOptions) (azcore.AccessToken, error) {
	return azcore.AccessToken{Token: "fake-token", ExpiresOn: time.Now().Add(time.Hour)}, nil
}

// Request is a request seen by Transport
type Request struct {
	Method string
	Path   string
	Query  string
	Body   string
}

type route struct {
	method string
	path   string
	status int
	body   string
}

// Transport answers Azure SDK requests from canned responses, matched by
// method and URL path suffix (case-insensitive). Unmatched requests get a 404.
type Transport struct {
	mu       sync.Mutex
	routes   []route
	requests []Request
}

// Handle registers a canned response
func (tr *Transport) Handle(method, pathSuffix string, status int, body string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.routes = append(tr.routes, route{method: method, path: strings.ToLower(pathSuffix), status: status, body: body})
}

// Requests returns the requests received so far
func (tr *Transport) Requests() []Request {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]Request(nil), tr.requests...)
}

func (tr *Transport) Do(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()

	tr.requests = append(tr.requests, Request{
		Method: req.Method,
		Path:   req.URL.Path,
		Query:  req.URL.RawQuery,
		Body:   string(body),
	})

	status, payload := http.StatusNotFound, `{"error":{"code":"NotFound","message":"no canned response"}}`
	path := strings.ToLower(req.URL.Path)
	for _, r := range tr.routes {
		if r.method == req.Method && strings.HasSuffix(path, r.path) {
			status, payload = r.status, r.body
			break
		}
	}

	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(payload)),
		Request:    req,
	}, nil
}

// ClientOptions returns ARM client options routed through the transport with retries disabled
func (tr *Transport) ClientOptions() *arm.ClientOptions {
	return &arm.ClientOptions{
		ClientOptions: policy.ClientOptions{
			Transport: tr,
			Retry:     policy.RetryOptions{MaxRetries: -1},
		},
	}
}
