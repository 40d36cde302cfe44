package provisioner

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/drone/envsubst"
)

const (
	environmentSuffix = "qa"
	webAppDomain      = "azurewebsites.net"
	scmPort           = 443

	defaultRedisDatabase = 1
	minRedisDatabase     = 2
	maxRedisDatabase     = 9
)

// DeriveEnvironmentName builds the lower-cased environment name
// {prefix}-{issueKey}-qa, or {prefix}-qa without an issue key.
func DeriveEnvironmentName(prefix, issueKey string) string {
	parts := []string{prefix}
	if issueKey != "" {
		parts = append(parts, issueKey)
	}
	parts = append(parts, environmentSuffix)
	return strings.ToLower(strings.Join(parts, "-"))
}

// WebAppURL returns the public URL of the environment
func WebAppURL(name string) string {
	return fmt.Sprintf("https://%s.%s", name, webAppDomain)
}

// DeploymentURL returns the git endpoint of the environment with only the SCM user embedded
func DeploymentURL(name, user string) string {
	return scmURL(name, url.User(user))
}

// CloneURL returns the git endpoint with both SCM user and password embedded
func CloneURL(name, user, password string) string {
	return scmURL(name, url.UserPassword(user, password))
}

func scmURL(name string, user *url.Userinfo) string {
	u := url.URL{
		Scheme: "https",
		User:   user,
		Host:   fmt.Sprintf("%s.scm.%s:%d", name, webAppDomain, scmPort),
		Path:   "/" + name + ".git",
	}
	return u.String()
}

// RedisDatabaseIndex picks the cache database for an environment. The default
// environment always uses database 1; feature environments share databases
// 2 to 9, chosen with intN (which must return a value in [0, n)).
func RedisDatabaseIndex(name, defaultName string, intN func(n int) int) int {
	if name == defaultName {
		return defaultRedisDatabase
	}
	return minRedisDatabase + intN(maxRedisDatabase-minRedisDatabase+1)
}

// RedisConnectionString fills ${database} in template with index. Templates
// without the placeholder get a defaultDatabase option appended. A blank
// template is an error.
func RedisConnectionString(template string, index int) (string, error) {
	if strings.TrimSpace(template) == "" {
		return "", errors.New("connection string is empty")
	}
	db := strconv.Itoa(index)
	if !strings.Contains(template, "${database}") {
		return template + ",defaultDatabase=" + db, nil
	}
	return envsubst.Eval(template, func(name string) string {
		if name == "database" {
			return db
		}
		return "${" + name + "}"
	})
}
