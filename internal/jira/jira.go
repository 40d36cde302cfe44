package jira

import (
	"context"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/davoodharun/qaenv/internal/logger"
)

// An issue key is an upper-case project key anywhere in the branch, or a
// lower-case one right after a / or _ separator. Plain names such as
// release-1.2 or hotfix-3 are not keys.
var issueKeyPattern = regexp.MustCompile(`(?:^|[^A-Za-z0-9])([A-Z][A-Z0-9]+-[0-9]+)|[/_]([A-Za-z][A-Za-z0-9]+-[0-9]+)`)

// BranchVariables are the CI variables checked for the current branch, in order
var BranchVariables = []string{
	"BRANCH_NAME",
	"GIT_BRANCH",
	"BUILD_SOURCEBRANCHNAME",
	"CI_COMMIT_REF_NAME",
	"GITHUB_HEAD_REF",
	"GITHUB_REF_NAME",
}

// OverrideVariable forces the issue key regardless of the branch
const OverrideVariable = "JIRA_ISSUE_KEY"

// ParseIssueKey extracts the first Jira issue key from a branch name,
// upper-cased. It returns an empty string when there is none.
func ParseIssueKey(branch string) string {
	match := issueKeyPattern.FindStringSubmatch(branch)
	if match == nil {
		return ""
	}
	if match[1] != "" {
		return match[1]
	}
	return strings.ToUpper(match[2])
}

// Extractor finds the issue key of the branch being built
type Extractor struct {
	// Getenv looks up environment variables, os.Getenv when nil
	Getenv func(string) string
	// CurrentBranch asks git for the checked out branch when no CI variable is set
	CurrentBranch func() (string, error)
}

// NewExtractor returns an extractor reading the process environment and the
// git checkout in the working directory
func NewExtractor() *Extractor {
	return &Extractor{Getenv: os.Getenv, CurrentBranch: gitBranch}
}

// IssueKey returns the issue key of the current branch, or an empty string
func (e *Extractor) IssueKey() string {
	getenv := e.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	if key := strings.TrimSpace(getenv(OverrideVariable)); key != "" {
		return strings.ToUpper(key)
	}

	for _, variable := range BranchVariables {
		if branch := getenv(variable); branch != "" {
			logger.Debug("Reading branch from %s: %s", variable, branch)
			return ParseIssueKey(branch)
		}
	}

	if e.CurrentBranch == nil {
		return ""
	}
	branch, err := e.CurrentBranch()
	if err != nil {
		logger.Debug("Failed to read current branch: %v", err)
		return ""
	}
	return ParseIssueKey(branch)
}

func gitBranch() (string, error) {
	out, err := exec.CommandContext(context.Background(), "git", "rev-parse", "--abbrev-ref", "HEAD").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
