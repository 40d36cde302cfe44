package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"dario.cat/mergo"
	"github.com/drone/envsubst"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is where the configuration file is looked up when no path is given
	DefaultPath = ".qaenv/qaenv.yaml"
	// DefaultCode is the config code used when none is selected
	DefaultCode = "default"
)

// Placeholders are expanded later, per environment, and survive loading untouched.
var Placeholders = []string{"database", "schema", "environment", "issue_key"}

// Config represents the qaenv configuration file
type Config struct {
	TemplatesDir string           `yaml:"templates_dir"`
	Azure        map[string]Azure `yaml:"azure"`
}

// Azure is the provider configuration selected by a config code
type Azure struct {
	ClientID      string    `yaml:"client_id"`
	ClientSecret  string    `yaml:"client_secret"`
	TenantID      string    `yaml:"tenant_id"`
	ResourceGroup string    `yaml:"resource_group"`
	ResourceType  string    `yaml:"resource_type"`
	Prefix        string    `yaml:"prefix"`
	SCM           SCM       `yaml:"scm"`
	WebApp        WebApp    `yaml:"webapp"`
	Redis         Redis     `yaml:"redis"`
	Database      Database  `yaml:"database"`
	Variables     Variables `yaml:"variables"`
}

// SCM holds the deployment credentials of the web app's git endpoint
type SCM struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// WebApp holds the overrides applied on top of the web app template
type WebApp struct {
	Location     string                 `yaml:"location"`
	ServerFarmID string                 `yaml:"server_farm_id"`
	SiteConfig   map[string]interface{} `yaml:"site_config"`
}

// Redis holds the cache connection string. ${database} is replaced with the
// database index picked for the environment.
type Redis struct {
	ConnectionString string `yaml:"connection_string"`
}

// Database describes the Azure SQL server backing the environments
type Database struct {
	SubscriptionID string   `yaml:"subscription_id"`
	ResourceGroup  string   `yaml:"resource_group"`
	Server         string   `yaml:"server"`
	Primary        []string `yaml:"primary"`
	Backup         []string `yaml:"backup"`
	BackupSchema   string   `yaml:"backup_schema"`
	Databases      []string `yaml:"databases"`
}

// Variables optionally publishes the variables file to blob storage
type Variables struct {
	StorageAccount string `yaml:"storage_account"`
	Container      string `yaml:"container"`
}

var defaultConfig = Config{
	TemplatesDir: "templates",
}

var defaultAzure = Azure{
	ResourceType: "Site",
	Database: Database{
		BackupSchema: "${schema}_backup",
		Databases:    []string{"${schema}"},
	},
	Variables: Variables{
		Container: "qa-variables",
	},
}

// Load reads the configuration file at path, expanding ${VAR} references from
// the environment. A .env file in the working directory is loaded first.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return Parse(data)
}

// Parse decodes raw configuration content and expands ${VAR} references in
// its string values. Expansion happens after parsing so that substituted
// values are never read as YAML.
func Parse(data []byte) (*Config, error) {
	var document yaml.Node
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := expandNode(&document); err != nil {
		return nil, fmt.Errorf("failed to expand environment references in config: %w", err)
	}

	var config Config
	if document.Kind != 0 {
		if err := document.Decode(&config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := mergo.Merge(&config, defaultConfig); err != nil {
		return nil, fmt.Errorf("failed to apply config defaults: %w", err)
	}

	for code, azure := range config.Azure {
		if err := mergo.Merge(&azure, defaultAzure); err != nil {
			return nil, fmt.Errorf("failed to apply defaults to %q: %w", code, err)
		}
		config.Azure[code] = azure
	}

	return &config, nil
}

// expandNode substitutes environment references in every string scalar below
// node. Mapping keys are left alone.
func expandNode(node *yaml.Node) error {
	switch node.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, child := range node.Content {
			if err := expandNode(child); err != nil {
				return err
			}
		}
	case yaml.MappingNode:
		for i := 1; i < len(node.Content); i += 2 {
			if err := expandNode(node.Content[i]); err != nil {
				return err
			}
		}
	case yaml.ScalarNode:
		if node.ShortTag() != "!!str" {
			return nil
		}
		value, err := envsubst.Eval(node.Value, lookup)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		node.Value = value
	}
	return nil
}

func lookup(name string) string {
	for _, placeholder := range Placeholders {
		if name == placeholder {
			return "${" + name + "}"
		}
	}
	return os.Getenv(name)
}

// Select returns the provider configuration for the given config code
func (c *Config) Select(code string) (*Azure, error) {
	if code == "" {
		code = DefaultCode
	}

	azure, ok := c.Azure[code]
	if !ok {
		return nil, fmt.Errorf("config code %q not found (available: %s)", code, strings.Join(c.Codes(), ", "))
	}
	return &azure, nil
}

// Codes lists the configured config codes in sorted order
func (c *Config) Codes() []string {
	codes := make([]string, 0, len(c.Azure))
	for code := range c.Azure {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// TemplatePath returns the location of the web app template
func (c *Config) TemplatePath() string {
	return filepath.Join(c.TemplatesDir, "azure-specs", "webapp.json")
}
