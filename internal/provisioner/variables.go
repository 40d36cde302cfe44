package provisioner

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/davoodharun/qaenv/internal/schema"
)

// Variable is one key=value line of the variables file
type Variable struct {
	Key   string
	Value string
}

// Variables derives the values later pipeline steps read from the variables file
func (p *Provisioner) Variables(target schema.Target) ([]Variable, error) {
	variables := []Variable{
		{Key: "deploymentUrl", Value: DeploymentURL(target.EnvironmentName, p.config.SCM.User)},
		{Key: "webappUrl", Value: WebAppURL(target.EnvironmentName)},
		{Key: "webappPort", Value: strconv.Itoa(scmPort)},
		{Key: "jiraIssueKey", Value: target.IssueKey},
	}

	for i := 0; i < connectionStringSlots; i++ {
		value, err := p.schemas.PrimaryConnectionString(target, i)
		if err != nil {
			return nil, err
		}
		variables = append(variables, Variable{Key: fmt.Sprintf("webappDbPrimaryConnString%d", i), Value: value})
	}
	for i := 0; i < connectionStringSlots; i++ {
		value, err := p.schemas.BackupConnectionString(target, i)
		if err != nil {
			return nil, err
		}
		variables = append(variables, Variable{Key: fmt.Sprintf("webappDbBackupConnString%d", i), Value: value})
	}

	return variables, nil
}

// FormatVariables renders variables as key=value lines
func FormatVariables(variables []Variable) []byte {
	var b strings.Builder
	for _, v := range variables {
		b.WriteString(v.Key)
		b.WriteByte('=')
		b.WriteString(v.Value)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// WriteVariables writes the variables file for target, replacing any
// previous one, and returns its path
func (p *Provisioner) WriteVariables(target schema.Target) (string, error) {
	variables, err := p.Variables(target)
	if err != nil {
		return "", err
	}

	path := p.variablesPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("%w: %w", ErrFileWrite, err)
	}
	if err := os.WriteFile(path, FormatVariables(variables), 0644); err != nil {
		return "", fmt.Errorf("%w: %w", ErrFileWrite, err)
	}

	return path, nil
}
