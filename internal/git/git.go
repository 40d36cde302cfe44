package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Cloner runs git clone through the git binary on PATH
type Cloner struct {
	// Binary is the git executable, "git" when empty
	Binary string
}

// Clone clones url into target, resolving target against workDir
func (c *Cloner) Clone(ctx context.Context, url, target, workDir string) error {
	binary := c.Binary
	if binary == "" {
		binary = "git"
	}

	cmd := exec.CommandContext(ctx, binary, "clone", "--quiet", url, target)
	cmd.Dir = workDir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git clone into %s failed: %w: %s", target, err, Redact(strings.TrimSpace(stderr.String()), url))
	}
	return nil
}

// Redact masks the password embedded in url wherever it appears in text
func Redact(text, url string) string {
	scheme := strings.Index(url, "://")
	at := strings.LastIndex(url, "@")
	if scheme < 0 || at < 0 || at < scheme {
		return text
	}

	userinfo := url[scheme+3 : at]
	colon := strings.Index(userinfo, ":")
	if colon < 0 || colon == len(userinfo)-1 {
		return text
	}
	return strings.ReplaceAll(text, userinfo[colon+1:], "****")
}
