package provisioner

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/appservice/armappservice/v2"
	"github.com/davoodharun/qaenv/internal/azure"
	"github.com/davoodharun/qaenv/internal/config"
	"github.com/davoodharun/qaenv/internal/logger"
	"github.com/davoodharun/qaenv/internal/path"
	"github.com/davoodharun/qaenv/internal/schema"
)

// Cloud is the Azure management API used to provision environments
type Cloud interface {
	Login(ctx context.Context, clientID, clientSecret, tenantID string) (azcore.TokenCredential, error)
	ListSubscriptions(ctx context.Context, cred azcore.TokenCredential) ([]string, error)
	ListResourceGroups(ctx context.Context, session azure.Session) ([]string, error)
	NameAvailable(ctx context.Context, session azure.Session, name, resourceType string) (bool, error)
	CreateOrUpdateWebApp(ctx context.Context, session azure.Session, resourceGroup, name string, site armappservice.Site) error
	DeleteWebApp(ctx context.Context, session azure.Session, resourceGroup, name string) error
}

// SchemaManager owns the database side of an environment
type SchemaManager interface {
	PrimaryConnectionString(target schema.Target, index int) (string, error)
	BackupConnectionString(target schema.Target, index int) (string, error)
	BackupSchema(target schema.Target) (string, error)
	DeleteAll(ctx context.Context, session azure.Session, target schema.Target) error
}

// IssueKeySource reports the Jira issue key of the branch being built
type IssueKeySource interface {
	IssueKey() string
}

// Cloner clones a git repository into target, relative to workDir
type Cloner interface {
	Clone(ctx context.Context, url, target, workDir string) error
}

// Publisher stores a copy of the variables file somewhere other pipelines can reach
type Publisher interface {
	Publish(ctx context.Context, cred azcore.TokenCredential, blobName string, data []byte) error
}

// Options wires the provisioner's collaborators
type Options struct {
	Cloud   Cloud
	Schemas SchemaManager
	Issues  IssueKeySource
	Cloner  Cloner
	// Publisher is optional
	Publisher Publisher
	// TemplatePath locates the web app template
	TemplatePath string
	// WorkDir holds the Temp directory, the working directory when empty
	WorkDir string
	// IntN returns a random int in [0, n), math/rand when nil
	IntN func(n int) int
}

// Provisioner creates, updates and deletes the web app environment of the
// current branch
type Provisioner struct {
	config       *config.Azure
	cloud        Cloud
	schemas      SchemaManager
	issues       IssueKeySource
	cloner       Cloner
	publisher    Publisher
	templatePath string
	workDir      string
	intN         func(n int) int
}

// New creates a provisioner for the selected provider configuration
func New(cfg *config.Azure, opts Options) *Provisioner {
	intN := opts.IntN
	if intN == nil {
		intN = rand.IntN
	}
	return &Provisioner{
		config:       cfg,
		cloud:        opts.Cloud,
		schemas:      opts.Schemas,
		issues:       opts.Issues,
		cloner:       opts.Cloner,
		publisher:    opts.Publisher,
		templatePath: opts.TemplatePath,
		workDir:      opts.WorkDir,
		intN:         intN,
	}
}

// Result describes a deployed environment
type Result struct {
	Target        schema.Target
	Created       bool
	WebAppURL     string
	DeploymentURL string
	VariablesPath string
}

// Authenticate logs in with the configured service principal
func (p *Provisioner) Authenticate(ctx context.Context) (azcore.TokenCredential, error) {
	logger.Info("Authenticating service principal %s", p.config.ClientID)
	cred, err := p.cloud.Login(ctx, p.config.ClientID, p.config.ClientSecret, p.config.TenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	return cred, nil
}

// ResolveSubscription picks the first subscription visible to the credential
func (p *Provisioner) ResolveSubscription(ctx context.Context, cred azcore.TokenCredential) (azure.Session, error) {
	ids, err := p.cloud.ListSubscriptions(ctx, cred)
	if err != nil {
		return azure.Session{}, err
	}
	if len(ids) == 0 || strings.TrimSpace(ids[0]) == "" {
		return azure.Session{}, ErrNoSubscription
	}

	logger.Debug("Using subscription %s", ids[0])
	return azure.Session{Credential: cred, SubscriptionID: ids[0]}, nil
}

// ValidateGroupAccess checks that the configured resource group is listed for
// the session and hands the session back unchanged
func (p *Provisioner) ValidateGroupAccess(ctx context.Context, session azure.Session) (azure.Session, error) {
	group := p.config.ResourceGroup
	if strings.TrimSpace(group) == "" {
		return azure.Session{}, fmt.Errorf("%w: resource_group is not set", ErrConfig)
	}

	groups, err := p.cloud.ListResourceGroups(ctx, session)
	if err != nil {
		return azure.Session{}, err
	}
	if len(groups) == 0 {
		return azure.Session{}, fmt.Errorf("%w: no resource groups listed in subscription %s", ErrAccess, session.SubscriptionID)
	}
	if !slices.Contains(groups, group) {
		return azure.Session{}, fmt.Errorf("%w: %s is not listed in subscription %s", ErrAccess, group, session.SubscriptionID)
	}

	return session, nil
}

// Connect authenticates, resolves the subscription and checks group access
func (p *Provisioner) Connect(ctx context.Context) (azure.Session, error) {
	cred, err := p.Authenticate(ctx)
	if err != nil {
		return azure.Session{}, err
	}
	session, err := p.ResolveSubscription(ctx, cred)
	if err != nil {
		return azure.Session{}, err
	}
	return p.ValidateGroupAccess(ctx, session)
}

// Target returns the environment of the current branch
func (p *Provisioner) Target() schema.Target {
	key := p.issues.IssueKey()
	return schema.Target{
		EnvironmentName: DeriveEnvironmentName(p.config.Prefix, key),
		IssueKey:        key,
	}
}

// EnvironmentName returns the name of the current branch's environment
func (p *Provisioner) EnvironmentName() string {
	return p.Target().EnvironmentName
}

// Exists reports whether a web app called name already exists
func (p *Provisioner) Exists(ctx context.Context, session azure.Session, name string) (bool, error) {
	available, err := p.cloud.NameAvailable(ctx, session, name, p.config.ResourceType)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrNameAvailability, err)
	}
	return !available, nil
}

// Create provisions a new environment and clones its git endpoint into Temp
func (p *Provisioner) Create(ctx context.Context, session azure.Session, target schema.Target) error {
	return p.createOrUpdate(ctx, session, target, false)
}

// Update re-applies the template to an existing environment
func (p *Provisioner) Update(ctx context.Context, session azure.Session, target schema.Target) error {
	return p.createOrUpdate(ctx, session, target, true)
}

// BuildSite renders the web app definition submitted for target
func (p *Provisioner) BuildSite(target schema.Target) (armappservice.Site, error) {
	template, err := LoadTemplate(p.templatePath)
	if err != nil {
		return armappservice.Site{}, err
	}
	if err := template.Apply(p.config.WebApp); err != nil {
		return armappservice.Site{}, err
	}
	slots, err := template.Slots()
	if err != nil {
		return armappservice.Site{}, err
	}

	primary0, err := p.schemas.PrimaryConnectionString(target, 0)
	if err != nil {
		return armappservice.Site{}, err
	}
	primary1, err := p.schemas.PrimaryConnectionString(target, 1)
	if err != nil {
		return armappservice.Site{}, err
	}
	backupSchema, err := p.schemas.BackupSchema(target)
	if err != nil {
		return armappservice.Site{}, err
	}

	defaultName := DeriveEnvironmentName(p.config.Prefix, "")
	database := RedisDatabaseIndex(target.EnvironmentName, defaultName, p.intN)
	redis, err := RedisConnectionString(p.config.Redis.ConnectionString, database)
	if err != nil {
		return armappservice.Site{}, fmt.Errorf("%w: redis.connection_string: %w", ErrConfig, err)
	}
	logger.Debug("Using redis database %d for %s", database, target.EnvironmentName)

	slots.PrimaryConnString0.ConnectionString = to.Ptr(primary0)
	slots.PrimaryConnString1.ConnectionString = to.Ptr(primary1)
	slots.HostSetting.Value = to.Ptr(WebAppURL(target.EnvironmentName))
	slots.BackupSchemaSetting.Value = to.Ptr(backupSchema)
	slots.RedisSetting.Value = to.Ptr(redis)

	return template.Site, nil
}

func (p *Provisioner) createOrUpdate(ctx context.Context, session azure.Session, target schema.Target, updateMode bool) error {
	op := "create"
	if updateMode {
		op = "update"
	}
	name := target.EnvironmentName

	site, err := p.BuildSite(target)
	if err != nil {
		return err
	}

	logger.Info("Submitting %s of %s in %s", op, name, p.config.ResourceGroup)
	spinner := logger.StartSpinner(fmt.Sprintf("Waiting for %s to %s", name, op))
	err = p.cloud.CreateOrUpdateWebApp(ctx, session, p.config.ResourceGroup, name, site)
	spinner.Stop()
	if err != nil {
		logger.Error("Failed to %s %s: %v", op, name, err)
		return &ProvisioningError{Op: op, Environment: name, Err: err}
	}
	logger.Success("Environment %s is available at %s", name, WebAppURL(name))

	if updateMode {
		return nil
	}

	p.cloneRepository(ctx, name)
	return nil
}

// cloneRepository clones the new environment's git endpoint into Temp/{name}.
// The clone is a convenience for later steps; failures are only logged.
func (p *Provisioner) cloneRepository(ctx context.Context, name string) {
	if p.cloner == nil {
		return
	}

	workDir, err := p.baseDir()
	if err != nil {
		logger.Warning("Skipping clone of %s: %v", name, err)
		return
	}

	url := CloneURL(name, p.config.SCM.User, p.config.SCM.Password)
	target := filepath.Join(path.TempDir, name)
	logger.Info("Cloning %s into %s", DeploymentURL(name, p.config.SCM.User), target)
	if err := p.cloner.Clone(ctx, url, target, workDir); err != nil {
		logger.Warning("Clone of %s failed: %v", name, err)
		return
	}
	logger.Success("Cloned %s into %s", name, target)
}

// Delete removes the environment's web app and then its database schema. The
// schema is left alone when the web app cannot be deleted.
func (p *Provisioner) Delete(ctx context.Context, session azure.Session, target schema.Target) error {
	name := target.EnvironmentName

	logger.Info("Deleting %s from %s", name, p.config.ResourceGroup)
	if err := p.cloud.DeleteWebApp(ctx, session, p.config.ResourceGroup, name); err != nil {
		logger.Error("Failed to delete %s: %v", name, err)
		return &ProvisioningError{Op: "delete", Environment: name, Err: err}
	}
	logger.Success("Deleted web app %s", name)

	if err := p.schemas.DeleteAll(ctx, session, target); err != nil {
		return err
	}
	logger.Success("Deleted schema of %s", name)
	return nil
}

// Deploy runs the full pipeline for the current branch: connect, create or
// update the environment, then write (and optionally publish) the variables file.
func (p *Provisioner) Deploy(ctx context.Context) (*Result, error) {
	session, err := p.Connect(ctx)
	if err != nil {
		return nil, err
	}

	target := p.Target()
	logger.Info("Environment: %s", target.EnvironmentName)

	exists, err := p.Exists(ctx, session, target.EnvironmentName)
	if err != nil {
		return nil, err
	}

	if exists {
		err = p.Update(ctx, session, target)
	} else {
		err = p.Create(ctx, session, target)
	}
	if err != nil {
		return nil, err
	}

	variablesPath, err := p.WriteVariables(target)
	if err != nil {
		return nil, err
	}
	logger.Success("Variables written to %s", variablesPath)

	if p.publisher != nil {
		data, err := os.ReadFile(variablesPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFileWrite, err)
		}
		blobName := target.EnvironmentName + "/" + path.VariablesFile
		if err := p.publisher.Publish(ctx, session.Credential, blobName, data); err != nil {
			return nil, err
		}
		logger.Success("Published variables as %s", blobName)
	}

	return &Result{
		Target:        target,
		Created:       !exists,
		WebAppURL:     WebAppURL(target.EnvironmentName),
		DeploymentURL: DeploymentURL(target.EnvironmentName, p.config.SCM.User),
		VariablesPath: variablesPath,
	}, nil
}

// Teardown deletes the current branch's environment
func (p *Provisioner) Teardown(ctx context.Context) (schema.Target, error) {
	session, err := p.Connect(ctx)
	if err != nil {
		return schema.Target{}, err
	}

	target := p.Target()
	return target, p.Delete(ctx, session, target)
}

func (p *Provisioner) baseDir() (string, error) {
	if p.workDir != "" {
		return p.workDir, nil
	}
	return os.Getwd()
}

func (p *Provisioner) variablesPath() string {
	if p.workDir != "" {
		return filepath.Join(p.workDir, path.TempDir, path.VariablesFile)
	}
	return path.VariablesPath()
}
