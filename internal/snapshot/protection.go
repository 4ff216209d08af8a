package snapshot

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	invalidPatternTemplateConstant = "invalid protected pattern %q"
	pathSeparatorConstant          = "/"
	currentDirectoryPrefixConstant = "./"
)

// ProtectedFilePolicy identifies local packaging and ownership files that an import must leave alone.
type ProtectedFilePolicy struct {
	patterns []string
}

// NewProtectedFilePolicy validates patterns using doublestar syntax.
func NewProtectedFilePolicy(patterns []string) (ProtectedFilePolicy, error) {
	validated := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		normalizedPattern := filepath.ToSlash(strings.TrimSpace(pattern))
		if len(normalizedPattern) == 0 {
			continue
		}
		if !doublestar.ValidatePattern(normalizedPattern) {
			return ProtectedFilePolicy{}, fmt.Errorf(invalidPatternTemplateConstant, pattern)
		}
		validated = append(validated, normalizedPattern)
	}
	return ProtectedFilePolicy{patterns: validated}, nil
}

// Patterns returns the validated patterns.
func (policy ProtectedFilePolicy) Patterns() []string {
	return append([]string{}, policy.patterns...)
}

// IsProtected reports whether relativePath matches any pattern. Patterns without a slash also match the base name,
// so METADATA protects a METADATA file at any depth.
func (policy ProtectedFilePolicy) IsProtected(relativePath string) bool {
	normalizedPath := strings.TrimPrefix(filepath.ToSlash(relativePath), currentDirectoryPrefixConstant)
	baseName := path.Base(normalizedPath)

	for _, pattern := range policy.patterns {
		if matched, _ := doublestar.Match(pattern, normalizedPath); matched {
			return true
		}
		if strings.Contains(pattern, pathSeparatorConstant) {
			continue
		}
		if matched, _ := doublestar.Match(pattern, baseName); matched {
			return true
		}
	}
	return false
}
