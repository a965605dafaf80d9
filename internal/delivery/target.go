package delivery

import (
	"fmt"
	"strings"
)

// Target selects how artifacts reach the user.
type Target string

const (
	// TargetBrowser opens the retrieval URL with the system opener.
	TargetBrowser Target = "browser"
	// TargetScopedStorage saves into the configured download directory.
	TargetScopedStorage Target = "scoped"
	// TargetUnscopedStorage fetches to a temp file and shares it.
	TargetUnscopedStorage Target = "unscoped"
)

// ParseTarget converts a configuration string into a Target.
func ParseTarget(value string) (Target, error) {
	switch Target(strings.ToLower(strings.TrimSpace(value))) {
	case TargetBrowser:
		return TargetBrowser, nil
	case TargetScopedStorage:
		return TargetScopedStorage, nil
	case TargetUnscopedStorage:
		return TargetUnscopedStorage, nil
	default:
		return "", fmt.Errorf("unknown delivery target %q", value)
	}
}
