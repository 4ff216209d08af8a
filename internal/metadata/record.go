package metadata

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"time"
)

const (
	versionFieldReplacementTemplate  = `version: "%s"`
	upgradeDateReplacementTemplate   = "last_upgrade_date { year: %d month: %d day: %d }"
	readRecordErrorTemplateConstant  = "unable to read %s: %w"
	writeRecordErrorTemplateConstant = "unable to write %s: %w"
	recordPathErrorTemplateConstant  = "%w in %s"
	inconsistentURLTemplateConstant  = "inconsistent git URLs in %s (%s vs %s)"
	versionQuoteCharacterConstant    = `"`
	invalidVersionTemplateConstant   = "version %q cannot contain a double quote"
	requiredPathMessageConstant      = "metadata path must be provided"
	requiredFileSystemMessage        = "filesystem not configured"
	versionNotFoundMessageConstant   = "unable to determine current version"
	urlNotFoundMessageConstant       = "no GIT url entry found"
)

var (
	versionFieldPattern     = regexp.MustCompile(`version: "([^"]*)"`)
	gitURLFieldPattern      = regexp.MustCompile(`url\s*{\s*type:\s*GIT\s*value:\s*"([^"]*)"\s*}`)
	upgradeDateFieldPattern = regexp.MustCompile(`last_upgrade_date\s*{[^}]*}`)
)

var (
	// ErrMetadataPathRequired indicates Load was called without a path.
	ErrMetadataPathRequired = errors.New(requiredPathMessageConstant)
	// ErrFileSystemNotConfigured indicates Load was called without a filesystem.
	ErrFileSystemNotConfigured = errors.New(requiredFileSystemMessage)
	// ErrVersionNotFound indicates the record has no version field.
	ErrVersionNotFound = errors.New(versionNotFoundMessageConstant)
	// ErrURLNotFound indicates the record has no GIT url entry.
	ErrURLNotFound = errors.New(urlNotFoundMessageConstant)
)

// InconsistentURLError reports url entries that point at different upstream repositories.
type InconsistentURLError struct {
	RecordPath         string
	FirstBaseURL       string
	ConflictingBaseURL string
}

// Error describes the conflicting base URLs.
func (inconsistent InconsistentURLError) Error() string {
	return fmt.Sprintf(inconsistentURLTemplateConstant, inconsistent.RecordPath, inconsistent.FirstBaseURL, inconsistent.ConflictingBaseURL)
}

// FileSystem exposes the file operations needed to load and persist a record.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, permissions fs.FileMode) error
}

// Record is the text of a METADATA file describing a vendored dependency.
// Only the version and last_upgrade_date fields are ever rewritten; every other byte is kept as read.
type Record struct {
	path        string
	fileSystem  FileSystem
	permissions fs.FileMode
	content     string

	upstreamParsed bool
	baseURL        string
	subpaths       []string
	upstreamError  error
}

// Load reads the record stored at recordPath.
func Load(fileSystem FileSystem, recordPath string) (*Record, error) {
	if fileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	if len(strings.TrimSpace(recordPath)) == 0 {
		return nil, ErrMetadataPathRequired
	}

	recordInfo, statError := fileSystem.Stat(recordPath)
	if statError != nil {
		return nil, fmt.Errorf(readRecordErrorTemplateConstant, recordPath, statError)
	}
	content, readError := fileSystem.ReadFile(recordPath)
	if readError != nil {
		return nil, fmt.Errorf(readRecordErrorTemplateConstant, recordPath, readError)
	}

	return &Record{
		path:        recordPath,
		fileSystem:  fileSystem,
		permissions: recordInfo.Mode().Perm(),
		content:     string(content),
	}, nil
}

// Path returns the location the record was loaded from.
func (record *Record) Path() string {
	return record.path
}

// Content returns the current record text.
func (record *Record) Content() string {
	return record.content
}

// CurrentVersion returns the value of the first version field.
func (record *Record) CurrentVersion() (string, error) {
	match := versionFieldPattern.FindStringSubmatch(record.content)
	if match == nil {
		return "", fmt.Errorf(recordPathErrorTemplateConstant, ErrVersionNotFound, record.path)
	}
	return match[1], nil
}

// GitURL returns the upstream repository location shared by every GIT url entry.
func (record *Record) GitURL() (string, error) {
	record.parseUpstream()
	if record.upstreamError != nil {
		return "", record.upstreamError
	}
	return record.baseURL, nil
}

// GitPaths returns the vendored upstream subdirectories in record order.
// An empty result means the whole repository is vendored.
func (record *Record) GitPaths() ([]string, error) {
	record.parseUpstream()
	if record.upstreamError != nil {
		return nil, record.upstreamError
	}
	return append([]string{}, record.subpaths...), nil
}

// UpdateVersionAndDate rewrites every version field to version and every last_upgrade_date block to the
// calendar date of now, then persists the record with its original permissions.
func (record *Record) UpdateVersionAndDate(version string, now time.Time) error {
	if strings.Contains(version, versionQuoteCharacterConstant) {
		return fmt.Errorf(invalidVersionTemplateConstant, version)
	}

	updatedContent := versionFieldPattern.ReplaceAllLiteralString(record.content, fmt.Sprintf(versionFieldReplacementTemplate, version))
	updatedContent = upgradeDateFieldPattern.ReplaceAllLiteralString(updatedContent, fmt.Sprintf(upgradeDateReplacementTemplate, now.Year(), int(now.Month()), now.Day()))

	if writeError := record.fileSystem.WriteFile(record.path, []byte(updatedContent), record.permissions); writeError != nil {
		return fmt.Errorf(writeRecordErrorTemplateConstant, record.path, writeError)
	}
	record.content = updatedContent
	return nil
}

func (record *Record) parseUpstream() {
	if record.upstreamParsed {
		return
	}
	record.upstreamParsed = true

	matches := gitURLFieldPattern.FindAllStringSubmatch(record.content, -1)
	if len(matches) == 0 {
		record.upstreamError = fmt.Errorf(recordPathErrorTemplateConstant, ErrURLNotFound, record.path)
		return
	}

	subpaths := make([]string, 0, len(matches))
	baseURL := ""
	for _, match := range matches {
		upstreamURL := ParseUpstreamURL(match[1])
		if len(baseURL) > 0 && baseURL != upstreamURL.BaseURL {
			record.upstreamError = InconsistentURLError{RecordPath: record.path, FirstBaseURL: baseURL, ConflictingBaseURL: upstreamURL.BaseURL}
			return
		}
		baseURL = upstreamURL.BaseURL
		if len(upstreamURL.Subpath) > 0 {
			subpaths = append(subpaths, upstreamURL.Subpath)
		}
	}

	record.baseURL = baseURL
	record.subpaths = subpaths
}
