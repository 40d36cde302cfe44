package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `templates_dir: build/templates
azure:
  default:
    client_id: ${QAENV_TEST_CLIENT_ID}
    client_secret: ${QAENV_TEST_SECRET}
    tenant_id: tenant-1
    resource_group: rg-qa
    prefix: APP
    scm:
      user: deployer
      password: ${QAENV_TEST_SCM_PASSWORD}
    webapp:
      location: westeurope
      server_farm_id: /subscriptions/sub-1/resourceGroups/rg-qa/providers/Microsoft.Web/serverfarms/plan-qa
      site_config:
        alwaysOn: true
        phpVersion: "7.4"
    redis:
      connection_string: cache.redis.cache.windows.net:6380,password=${QAENV_TEST_REDIS},ssl=True,defaultDatabase=${database}
    database:
      server: sql-qa
      primary:
        - Server=sql-qa;Database=${schema}
        - Server=sql-qa-ro;Database=${schema}
  staging:
    client_id: other
    resource_type: Microsoft.Web/sites
    database:
      backup_schema: ${schema}_bak
      databases: [a, b]
`

func TestParse(t *testing.T) {
	t.Setenv("QAENV_TEST_CLIENT_ID", "client-1")
	t.Setenv("QAENV_TEST_SECRET", "s3cret")
	t.Setenv("QAENV_TEST_SCM_PASSWORD", "scm-pass")
	t.Setenv("QAENV_TEST_REDIS", "redis-pass")

	cfg, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "build/templates", cfg.TemplatesDir)
	assert.Equal(t, filepath.Join("build/templates", "azure-specs", "webapp.json"), cfg.TemplatePath())
	assert.Equal(t, []string{"default", "staging"}, cfg.Codes())

	azure, err := cfg.Select("")
	require.NoError(t, err)
	assert.Equal(t, "client-1", azure.ClientID)
	assert.Equal(t, "s3cret", azure.ClientSecret)
	assert.Equal(t, "scm-pass", azure.SCM.Password)
	assert.Equal(t, "westeurope", azure.WebApp.Location)
	assert.Equal(t, true, azure.WebApp.SiteConfig["alwaysOn"])
	assert.Equal(t, "7.4", azure.WebApp.SiteConfig["phpVersion"])

	// placeholders survive for per-environment expansion
	assert.Equal(t, "cache.redis.cache.windows.net:6380,password=redis-pass,ssl=True,defaultDatabase=${database}",
		azure.Redis.ConnectionString)
	assert.Equal(t, []string{"Server=sql-qa;Database=${schema}", "Server=sql-qa-ro;Database=${schema}"},
		azure.Database.Primary)

	// defaults
	assert.Equal(t, "Site", azure.ResourceType)
	assert.Equal(t, "${schema}_backup", azure.Database.BackupSchema)
	assert.Equal(t, []string{"${schema}"}, azure.Database.Databases)
	assert.Equal(t, "qa-variables", azure.Variables.Container)

	staging, err := cfg.Select("staging")
	require.NoError(t, err)
	assert.Equal(t, "Microsoft.Web/sites", staging.ResourceType)
	assert.Equal(t, "${schema}_bak", staging.Database.BackupSchema)
	assert.Equal(t, []string{"a", "b"}, staging.Database.Databases)
}

func TestParseKeepsSubstitutedValuesVerbatim(t *testing.T) {
	testCases := []struct {
		name  string
		value string
	}{
		{name: "Comment marker", value: "abc #def"},
		{name: "Alias marker", value: "*Zx9!q"},
		{name: "Anchor marker", value: "&anchor"},
		{name: "Flow mapping", value: "{not: a map}"},
		{name: "Flow sequence", value: "[1, 2]"},
		{name: "Key separator", value: "user: pass"},
		{name: "Null literal", value: "null"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("QAENV_TEST_SECRET", tc.value)
			t.Setenv("QAENV_TEST_SCM_PASSWORD", tc.value)

			cfg, err := Parse([]byte(`azure:
  default:
    client_secret: ${QAENV_TEST_SECRET}
    scm:
      user: deployer
      password: ${QAENV_TEST_SCM_PASSWORD} # from the pipeline
    redis:
      connection_string: cache:6380,password=${QAENV_TEST_SECRET},defaultDatabase=${database}
`))
			require.NoError(t, err)

			azure, err := cfg.Select(DefaultCode)
			require.NoError(t, err)
			assert.Equal(t, tc.value, azure.ClientSecret)
			assert.Equal(t, tc.value, azure.SCM.Password)
			assert.Equal(t, "deployer", azure.SCM.User)
			assert.Equal(t, "cache:6380,password="+tc.value+",defaultDatabase=${database}", azure.Redis.ConnectionString)
		})
	}
}

func TestParseEmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, "templates", cfg.TemplatesDir)
	assert.Empty(t, cfg.Codes())
}

func TestParseDefaultsTemplatesDir(t *testing.T) {
	cfg, err := Parse([]byte("azure:\n  default:\n    prefix: app\n"))
	require.NoError(t, err)
	assert.Equal(t, "templates", cfg.TemplatesDir)
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("azure: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestSelectUnknownCode(t *testing.T) {
	cfg, err := Parse([]byte("azure:\n  default:\n    prefix: app\n  prod:\n    prefix: app\n"))
	require.NoError(t, err)

	_, err = cfg.Select("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `config code "missing" not found`)
	assert.Contains(t, err.Error(), "default, prod")
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	currentDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmpDir))
	defer os.Chdir(currentDir)

	require.NoError(t, os.WriteFile(".env", []byte("QAENV_TEST_DOTENV_PREFIX=FromDotenv\n"), 0644))
	require.NoError(t, os.MkdirAll(".qaenv", 0755))
	require.NoError(t, os.WriteFile(DefaultPath,
		[]byte("azure:\n  default:\n    prefix: ${QAENV_TEST_DOTENV_PREFIX}\n"), 0644))
	defer os.Unsetenv("QAENV_TEST_DOTENV_PREFIX")

	cfg, err := Load("")
	require.NoError(t, err)

	azure, err := cfg.Select(DefaultCode)
	require.NoError(t, err)
	assert.Equal(t, "FromDotenv", azure.Prefix)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}
