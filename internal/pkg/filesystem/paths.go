// Package filesystem holds small path helpers shared by the storage adapters.
package filesystem

import (
	"os"
	"path/filepath"
)

// UserHome returns the home directory, falling back to the working directory.
func UserHome() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

// DataDir returns the aibridge data directory (~/.aibridge by default,
// overridable via AIBRIDGE_HOME).
func DataDir() string {
	if custom := os.Getenv("AIBRIDGE_HOME"); custom != "" {
		return custom
	}
	return filepath.Join(UserHome(), ".aibridge")
}

// maxFilenameLength caps sanitized names to keep archive paths portable.
const maxFilenameLength = 100

// SanitizeFilename strips characters that are illegal in filenames on
// Windows or Unix, replacing them with underscores, and truncates overly
// long names. Control characters are stripped as well.
func SanitizeFilename(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r < 32:
			out = append(out, '_')
		case r == '<', r == '>', r == ':', r == '"', r == '/', r == '\\', r == '|', r == '?', r == '*':
			out = append(out, '_')
		default:
			out = append(out, r)
		}
	}
	if len(out) > maxFilenameLength {
		out = out[:maxFilenameLength]
	}
	return string(out)
}
