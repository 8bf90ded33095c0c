package config

import (
	"os"
	"os/exec"
	"strings"
)

const baseVersion = "0.3.0"

// GetVersion returns the version from APP_VERSION (set by CI/CD) or derives
// one from the git tree for local development builds.
func GetVersion() string {
	if envVersion := os.Getenv("APP_VERSION"); envVersion != "" {
		return envVersion
	}
	if rev := gitShortRev(); rev != "" {
		return baseVersion + "+" + rev
	}
	return baseVersion
}

func gitShortRev() string {
	cmd := exec.Command("git", "rev-parse", "--short", "HEAD")
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}
