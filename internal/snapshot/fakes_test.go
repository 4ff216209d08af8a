package snapshot_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/vendorsync/internal/gitrepo"
	"github.com/temirov/vendorsync/internal/snapshot"
)

type upstreamRevision struct {
	commit  string
	refName string
	files   map[string]string
}

type recordedClone struct {
	path    string
	options gitrepo.CloneOptions
}

// fakeWorkspace stands in for git: clones materialize upstream revisions on disk and
// stage/commit calls against the working tree are recorded.
type fakeWorkspace struct {
	testInstance *testing.T
	rootPath     string
	upstream     map[string]upstreamRevision
	cleanError   error
	clones       []recordedClone
	staged       []string
	commits      []gitrepo.CommitOptions
}

func newFakeWorkspace(testInstance *testing.T, rootPath string, revisions map[string]upstreamRevision) *fakeWorkspace {
	return &fakeWorkspace{testInstance: testInstance, rootPath: rootPath, upstream: revisions}
}

func (workspace *fakeWorkspace) factory() snapshot.RepositoryFactory {
	return func(repositoryPath string) (snapshot.VersionedRepository, error) {
		return &fakeRepository{path: repositoryPath, workspace: workspace}, nil
	}
}

func (workspace *fakeWorkspace) revisionByCommit(commit string) (upstreamRevision, bool) {
	for _, revision := range workspace.upstream {
		if revision.commit == commit {
			return revision, true
		}
	}
	return upstreamRevision{}, false
}

type fakeRepository struct {
	path      string
	workspace *fakeWorkspace
}

func (repository *fakeRepository) Path() string {
	return repository.path
}

func (repository *fakeRepository) ResolveCommit(_ context.Context, revision string) (string, error) {
	upstream, exists := repository.workspace.upstream[revision]
	if !exists {
		return "", gitrepo.RevisionNotFoundError{RepositoryPath: repository.path, Revision: revision}
	}
	return upstream.commit, nil
}

func (repository *fakeRepository) ResolveRefName(_ context.Context, revision string) (string, bool, error) {
	upstream, exists := repository.workspace.upstream[revision]
	if !exists || len(upstream.refName) == 0 {
		return "", false, nil
	}
	return upstream.refName, true, nil
}

func (repository *fakeRepository) ListFiles(_ context.Context, commit string, subpaths []string) ([]string, error) {
	upstream, exists := repository.workspace.revisionByCommit(commit)
	if !exists {
		return nil, fmt.Errorf("unknown commit %s", commit)
	}
	files := make([]string, 0, len(upstream.files))
	for filePath := range upstream.files {
		if !withinSubpaths(filePath, subpaths) {
			continue
		}
		files = append(files, filePath)
	}
	sort.Strings(files)
	return files, nil
}

func (repository *fakeRepository) AssertClean(context.Context) error {
	return repository.workspace.cleanError
}

func (repository *fakeRepository) SparseShallowClone(_ context.Context, options gitrepo.CloneOptions) error {
	repository.workspace.clones = append(repository.workspace.clones, recordedClone{path: repository.path, options: options})

	revision := options.Revision
	if len(revision) == 0 {
		revision = "HEAD"
	}
	upstream, exists := repository.workspace.upstream[revision]
	if !exists {
		return fmt.Errorf("remote branch %s not found", revision)
	}

	if options.ForceClean {
		if removeError := os.RemoveAll(repository.path); removeError != nil {
			return removeError
		}
	}
	if _, statError := os.Stat(repository.path); statError == nil {
		return nil
	}

	for filePath, content := range upstream.files {
		if !withinSubpaths(filePath, options.Subpaths) {
			continue
		}
		writeTestFile(repository.workspace.testInstance, filepath.Join(repository.path, filePath), content)
	}
	return os.MkdirAll(repository.path, 0o755)
}

func (repository *fakeRepository) Stage(_ context.Context, path string) error {
	repository.workspace.staged = append(repository.workspace.staged, path)
	return nil
}

func (repository *fakeRepository) Commit(_ context.Context, options gitrepo.CommitOptions) error {
	repository.workspace.commits = append(repository.workspace.commits, options)
	return nil
}

func withinSubpaths(filePath string, subpaths []string) bool {
	if len(subpaths) == 0 {
		return true
	}
	for _, subpath := range subpaths {
		if filePath == subpath || strings.HasPrefix(filePath, subpath+"/") {
			return true
		}
	}
	return false
}

type recordingNotifier struct {
	progress []string
	skipped  []string
	success  []string
}

func (notifier *recordingNotifier) Progress(format string, arguments ...any) {
	notifier.progress = append(notifier.progress, fmt.Sprintf(format, arguments...))
}

func (notifier *recordingNotifier) Skipped(format string, arguments ...any) {
	notifier.skipped = append(notifier.skipped, fmt.Sprintf(format, arguments...))
}

func (notifier *recordingNotifier) Success(format string, arguments ...any) {
	notifier.success = append(notifier.success, fmt.Sprintf(format, arguments...))
}

type fixedClock struct {
	now time.Time
}

func (clock fixedClock) Now() time.Time {
	return clock.now
}

func writeTestFile(testInstance *testing.T, filePath string, content string) {
	require.NoError(testInstance, os.MkdirAll(filepath.Dir(filePath), 0o755))
	require.NoError(testInstance, os.WriteFile(filePath, []byte(content), 0o644))
}

func readTestFile(testInstance *testing.T, filePath string) string {
	content, readError := os.ReadFile(filePath)
	require.NoError(testInstance, readError)
	return string(content)
}

// snapshotTree returns every regular file under directory keyed by slash-separated relative path.
func snapshotTree(testInstance *testing.T, directory string) map[string]string {
	tree := map[string]string{}
	walkError := filepath.WalkDir(directory, func(entryPath string, entry os.DirEntry, walkError error) error {
		if walkError != nil {
			return walkError
		}
		if entry.IsDir() {
			return nil
		}
		relativePath, relativeError := filepath.Rel(directory, entryPath)
		if relativeError != nil {
			return relativeError
		}
		content, readError := os.ReadFile(entryPath)
		if readError != nil {
			return readError
		}
		tree[filepath.ToSlash(relativePath)] = string(content)
		return nil
	})
	require.NoError(testInstance, walkError)
	return tree
}
