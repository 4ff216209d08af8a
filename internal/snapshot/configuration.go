package snapshot

import (
	"path/filepath"
	"strings"
)

const (
	defaultScratchDirectoryConstant = ".import"
	defaultMetadataFileNameConstant = "METADATA"
	defaultCommitTrailerConstant    = "Test: Builds"
)

// DefaultProtectedPatterns lists the paths an import never overwrites or deletes.
func DefaultProtectedPatterns() []string {
	return []string{
		"METADATA",
		"MODULE_LICENSE_*",
		"**/OWNERS",
		"**/Android.bp",
	}
}

// Configuration captures persistent settings for the import command.
type Configuration struct {
	Root              string   `mapstructure:"root"`
	ScratchDirectory  string   `mapstructure:"scratch_directory"`
	MetadataFileName  string   `mapstructure:"metadata_file_name"`
	ProtectedPatterns []string `mapstructure:"protected_patterns"`
	CommitTrailer     string   `mapstructure:"commit_trailer"`
	ForceClean        bool     `mapstructure:"force_clean"`
	RemoveOldFiles    bool     `mapstructure:"remove_old_files"`
}

// DefaultConfiguration returns baseline configuration values for the import command.
func DefaultConfiguration() Configuration {
	return Configuration{
		ScratchDirectory:  defaultScratchDirectoryConstant,
		MetadataFileName:  defaultMetadataFileNameConstant,
		ProtectedPatterns: DefaultProtectedPatterns(),
		CommitTrailer:     defaultCommitTrailerConstant,
		ForceClean:        true,
		RemoveOldFiles:    true,
	}
}

// DefaultConfigurationValues exposes the defaults as viper keys rooted at prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultConfiguration()
	return map[string]any{
		prefix + ".root":               defaults.Root,
		prefix + ".scratch_directory":  defaults.ScratchDirectory,
		prefix + ".metadata_file_name": defaults.MetadataFileName,
		prefix + ".protected_patterns": defaults.ProtectedPatterns,
		prefix + ".commit_trailer":     defaults.CommitTrailer,
		prefix + ".force_clean":        defaults.ForceClean,
		prefix + ".remove_old_files":   defaults.RemoveOldFiles,
	}
}

// Sanitize trims whitespace and restores defaults for unset values.
func (configuration Configuration) Sanitize() Configuration {
	defaults := DefaultConfiguration()
	sanitized := configuration

	sanitized.Root = strings.TrimSpace(configuration.Root)
	if len(sanitized.Root) > 0 {
		sanitized.Root = filepath.Clean(sanitized.Root)
	}

	sanitized.ScratchDirectory = strings.TrimSpace(configuration.ScratchDirectory)
	if len(sanitized.ScratchDirectory) == 0 {
		sanitized.ScratchDirectory = defaults.ScratchDirectory
	}

	sanitized.MetadataFileName = strings.TrimSpace(configuration.MetadataFileName)
	if len(sanitized.MetadataFileName) == 0 {
		sanitized.MetadataFileName = defaults.MetadataFileName
	}

	sanitized.CommitTrailer = strings.TrimSpace(configuration.CommitTrailer)
	if len(sanitized.CommitTrailer) == 0 {
		sanitized.CommitTrailer = defaults.CommitTrailer
	}

	sanitized.ProtectedPatterns = sanitizePatterns(configuration.ProtectedPatterns)
	if configuration.ProtectedPatterns == nil {
		sanitized.ProtectedPatterns = defaults.ProtectedPatterns
	}

	return sanitized
}

func sanitizePatterns(raw []string) []string {
	sanitized := make([]string, 0, len(raw))
	for index := range raw {
		trimmed := strings.TrimSpace(raw[index])
		if len(trimmed) == 0 {
			continue
		}
		sanitized = append(sanitized, trimmed)
	}
	return sanitized
}
