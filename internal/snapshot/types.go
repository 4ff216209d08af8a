package snapshot

import (
	"context"
	"io/fs"
	"time"

	"github.com/temirov/vendorsync/internal/gitrepo"
)

// VersionedRepository exposes the git operations the import workflow performs against one working tree.
type VersionedRepository interface {
	Path() string
	ResolveCommit(executionContext context.Context, revision string) (string, error)
	ResolveRefName(executionContext context.Context, revision string) (string, bool, error)
	ListFiles(executionContext context.Context, revision string, subpaths []string) ([]string, error)
	AssertClean(executionContext context.Context) error
	SparseShallowClone(executionContext context.Context, options gitrepo.CloneOptions) error
	Stage(executionContext context.Context, path string) error
	Commit(executionContext context.Context, options gitrepo.CommitOptions) error
}

// RepositoryFactory binds a VersionedRepository to a working tree path.
type RepositoryFactory func(repositoryPath string) (VersionedRepository, error)

// FileSystem provides the file operations applied to the vendored directory and its METADATA record.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, permissions fs.FileMode) error
	Remove(path string) error
	CopyFile(sourcePath string, destinationPath string) error
}

// Notifier prints maintainer-facing progress notices.
type Notifier interface {
	Progress(format string, arguments ...any)
	Skipped(format string, arguments ...any)
	Success(format string, arguments ...any)
}

// Clock abstracts time acquisition for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time source.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Options describes one import request.
type Options struct {
	Group string
	// Version is the upstream branch or tag to import. Empty means HEAD.
	Version        string
	ForceClean     bool
	RemoveOldFiles bool
	DryRun         bool
}

// Result summarizes an import. In dry-run mode it is the plan that would have been applied.
type Result struct {
	Group            string   `yaml:"group"`
	UpstreamURL      string   `yaml:"upstream_url"`
	Subpaths         []string `yaml:"subpaths,omitempty"`
	RequestedVersion string   `yaml:"requested_version"`
	Commit           string   `yaml:"commit"`
	RefName          string   `yaml:"ref_name,omitempty"`
	RecordedVersion  string   `yaml:"recorded_version,omitempty"`
	PriorCommit      string   `yaml:"prior_commit,omitempty"`
	NewVersion       string   `yaml:"new_version"`
	RemovedFiles     []string `yaml:"removed_files"`
	CopiedFiles      []string `yaml:"copied_files"`
	SkippedFiles     []string `yaml:"skipped_files"`
	Committed        bool     `yaml:"committed"`
	DryRun           bool     `yaml:"dry_run"`
}
