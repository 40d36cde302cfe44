// Package template writes the starter files of a qaenv project
package template

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/davoodharun/qaenv/internal/config"
	"github.com/davoodharun/qaenv/internal/logger"
	"github.com/davoodharun/qaenv/internal/path"
	"github.com/davoodharun/qaenv/internal/templates"
)

// GitignoreTemplate keeps generated and secret files out of the repository
const GitignoreTemplate = `# qaenv working files
` + path.TempDir + `/

# Local secrets loaded by qaenv
.env
`

// ErrFileExists is returned when a starter file is already present
var ErrFileExists = errors.New("file already exists")

// CreateFileIfNotExists creates a file with the given content if it doesn't exist
func CreateFileIfNotExists(filename string, content []byte) error {
	return CreateFileIfNotExistsWithOverwrite(filename, content, false)
}

// CreateFileIfNotExistsWithOverwrite creates a file with the given content if it doesn't exist
// If overwriteIfExists is true, it will overwrite the file if it already exists
func CreateFileIfNotExistsWithOverwrite(filename string, content []byte, overwriteIfExists bool) error {
	if _, err := os.Stat(filename); err == nil && !overwriteIfExists {
		return fmt.Errorf("%w: %s", ErrFileExists, filename)
	}

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	return os.WriteFile(filename, content, 0644)
}

// InitProject writes the sample config, the default web app template and a
// .gitignore under root. Existing files are left untouched unless overwrite is set.
func InitProject(root string, overwrite bool) error {
	logger.Section("Initializing qaenv project")

	webApp, err := templates.WebApp()
	if err != nil {
		return err
	}
	sample, err := templates.Config()
	if err != nil {
		return err
	}

	cfg, err := config.Parse(sample)
	if err != nil {
		return err
	}

	files := []struct {
		path    string
		content []byte
	}{
		{filepath.Join(root, config.DefaultPath), sample},
		{filepath.Join(root, cfg.TemplatePath()), webApp},
		{filepath.Join(root, ".gitignore"), []byte(GitignoreTemplate)},
	}

	for _, file := range files {
		err := CreateFileIfNotExistsWithOverwrite(file.path, file.content, overwrite)
		switch {
		case errors.Is(err, ErrFileExists):
			logger.Warning("File %s already exists, skipping...", file.path)
		case err != nil:
			return fmt.Errorf("failed to create %s: %w", file.path, err)
		default:
			logger.Success("Created %s", file.path)
		}
	}

	logger.Success("Project initialization complete!")
	return nil
}
