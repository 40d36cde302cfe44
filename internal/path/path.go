package path

import (
	"os"
	"path/filepath"

	"github.com/davoodharun/qaenv/internal/logger"
)

// TempDir is the working-directory-relative folder holding run artifacts
const TempDir = "Temp"

// VariablesFile is the name of the file consumed by later pipeline steps
const VariablesFile = "azureWebappVariables.txt"

// GetTempPath returns the path to the Temp directory under the current
// working directory. The directory is not created.
func GetTempPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		logger.Warning("Failed to get current working directory: %v", err)
		return TempDir
	}
	return filepath.Join(cwd, TempDir)
}

// JoinTempPath joins the Temp path with the given elements.
func JoinTempPath(elem ...string) string {
	return filepath.Join(append([]string{GetTempPath()}, elem...)...)
}

// VariablesPath returns the location of the variables file
func VariablesPath() string {
	return JoinTempPath(VariablesFile)
}
