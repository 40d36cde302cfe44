package schema

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/sql/armsql/v2"
	"github.com/davoodharun/qaenv/internal/azure"
	"github.com/davoodharun/qaenv/internal/config"
	"github.com/davoodharun/qaenv/internal/logger"
	"github.com/drone/envsubst"
)

// Target identifies the environment whose schema is being managed
type Target struct {
	EnvironmentName string
	IssueKey        string
}

// Name returns the database schema name for the target
func (t Target) Name() string {
	return strings.ReplaceAll(t.EnvironmentName, "-", "_")
}

func (t Target) expand(template string) (string, error) {
	return envsubst.Eval(template, func(name string) string {
		switch name {
		case "schema":
			return t.Name()
		case "environment":
			return t.EnvironmentName
		case "issue_key":
			return t.IssueKey
		}
		return ""
	})
}

// Manager derives per-environment connection strings and drops the
// environment's databases from an Azure SQL server.
type Manager struct {
	config  config.Database
	options *arm.ClientOptions
}

// NewManager creates a schema manager. options may be nil.
func NewManager(cfg config.Database, options *arm.ClientOptions) *Manager {
	return &Manager{config: cfg, options: options}
}

// PrimaryConnectionString returns the primary connection string at index
func (m *Manager) PrimaryConnectionString(target Target, index int) (string, error) {
	return m.connectionString("primary", m.config.Primary, target, index)
}

// BackupConnectionString returns the backup connection string at index
func (m *Manager) BackupConnectionString(target Target, index int) (string, error) {
	return m.connectionString("backup", m.config.Backup, target, index)
}

func (m *Manager) connectionString(kind string, templates []string, target Target, index int) (string, error) {
	if index < 0 || index >= len(templates) {
		return "", fmt.Errorf("no %s connection string configured at index %d", kind, index)
	}
	value, err := target.expand(templates[index])
	if err != nil {
		return "", fmt.Errorf("failed to expand %s connection string %d: %w", kind, index, err)
	}
	return value, nil
}

// BackupSchema returns the name of the schema holding the environment's backup data
func (m *Manager) BackupSchema(target Target) (string, error) {
	value, err := target.expand(m.config.BackupSchema)
	if err != nil {
		return "", fmt.Errorf("failed to expand backup schema: %w", err)
	}
	return value, nil
}

// DeleteAll drops every configured database of the target. Databases that are
// already gone count as deleted.
func (m *Manager) DeleteAll(ctx context.Context, session azure.Session, target Target) error {
	if m.config.Server == "" || m.config.ResourceGroup == "" {
		return fmt.Errorf("database server and resource_group must be configured to delete %s", target.Name())
	}

	subscriptionID := m.config.SubscriptionID
	if subscriptionID == "" {
		subscriptionID = session.SubscriptionID
	}

	client, err := armsql.NewDatabasesClient(subscriptionID, session.Credential, m.options)
	if err != nil {
		return fmt.Errorf("creating Databases client: %w", err)
	}

	for _, template := range m.config.Databases {
		database, err := target.expand(template)
		if err != nil {
			return fmt.Errorf("failed to expand database name %q: %w", template, err)
		}

		logger.Info("Deleting database %s on %s", database, m.config.Server)
		poller, err := client.BeginDelete(ctx, m.config.ResourceGroup, m.config.Server, database, nil)
		if err == nil {
			_, err = poller.PollUntilDone(ctx, nil)
		}
		if err != nil {
			if isNotFound(err) {
				logger.Debug("Database %s does not exist", database)
				continue
			}
			return fmt.Errorf("failed to delete database %s: %w", database, err)
		}
		logger.Success("Deleted database %s", database)
	}

	return nil
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}
