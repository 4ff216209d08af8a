package gitrepo_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/vendorsync/internal/execshell"
	"github.com/temirov/vendorsync/internal/filesystem"
	"github.com/temirov/vendorsync/internal/gitrepo"
)

const (
	testRepositoryPathConstant = "/workspace/third_party/wayland-protocols"
	testUpstreamURLConstant    = "https://gitlab.freedesktop.org/wayland/wayland-protocols"
	testCommitHashConstant     = "8d3a2c1f0b9e7d6c5a4b3c2d1e0f9a8b7c6d5e4f"
	testTagNameConstant        = "1.32"
)

type stubResponse struct {
	result execshell.ExecutionResult
	err    error
}

type recordingGitExecutor struct {
	responses map[string]stubResponse
	recorded  []execshell.CommandDetails
}

func (executor *recordingGitExecutor) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recorded = append(executor.recorded, details)
	if len(details.Arguments) == 0 {
		return execshell.ExecutionResult{}, nil
	}
	response, exists := executor.responses[details.Arguments[0]]
	if !exists {
		return execshell.ExecutionResult{}, nil
	}
	return response.result, response.err
}

func commandFailure(arguments []string, exitCode int, standardError string) error {
	return execshell.CommandFailedError{
		Command: execshell.ShellCommand{Name: execshell.CommandGit, Details: execshell.CommandDetails{Arguments: arguments}},
		Result:  execshell.ExecutionResult{ExitCode: exitCode, StandardError: standardError},
	}
}

func newTestRepository(testInstance *testing.T, repositoryPath string, executor *recordingGitExecutor) *gitrepo.Repository {
	repository, creationError := gitrepo.NewRepository(repositoryPath, executor, filesystem.OSFileSystem{})
	require.NoError(testInstance, creationError)
	return repository
}

func TestNewRepositoryValidatesDependencies(testInstance *testing.T) {
	executor := &recordingGitExecutor{}

	_, pathError := gitrepo.NewRepository("  ", executor, filesystem.OSFileSystem{})
	require.ErrorIs(testInstance, pathError, gitrepo.ErrRepositoryPathRequired)

	_, executorError := gitrepo.NewRepository(testRepositoryPathConstant, nil, filesystem.OSFileSystem{})
	require.ErrorIs(testInstance, executorError, gitrepo.ErrGitExecutorNotConfigured)

	_, fileSystemError := gitrepo.NewRepository(testRepositoryPathConstant, executor, nil)
	require.ErrorIs(testInstance, fileSystemError, gitrepo.ErrFileSystemNotConfigured)

	repository, creationError := gitrepo.NewRepository(testRepositoryPathConstant+"/", executor, filesystem.OSFileSystem{})
	require.NoError(testInstance, creationError)
	require.Equal(testInstance, testRepositoryPathConstant, repository.Path())
}

func TestRepositoryResolveCommit(testInstance *testing.T) {
	testCases := []struct {
		name           string
		response       stubResponse
		expectedCommit string
		expectNotFound bool
		expectError    bool
	}{
		{
			name:           "resolves_tag",
			response:       stubResponse{result: execshell.ExecutionResult{StandardOutput: testCommitHashConstant + "\n"}},
			expectedCommit: testCommitHashConstant,
		},
		{
			name:           "unknown_revision",
			response:       stubResponse{err: commandFailure([]string{"rev-parse"}, 1, "")},
			expectNotFound: true,
		},
		{
			name:           "empty_output",
			response:       stubResponse{},
			expectNotFound: true,
		},
		{
			name:        "git_unavailable",
			response:    stubResponse{err: execshell.CommandExecutionError{Cause: errors.New("executable file not found")}},
			expectError: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &recordingGitExecutor{responses: map[string]stubResponse{"rev-parse": testCase.response}}
			repository := newTestRepository(testInstance, testRepositoryPathConstant, executor)

			commit, resolveError := repository.ResolveCommit(context.Background(), testTagNameConstant)

			require.Len(testInstance, executor.recorded, 1)
			require.Equal(testInstance, []string{"rev-parse", "--verify", "--quiet", testTagNameConstant + "^{commit}"}, executor.recorded[0].Arguments)
			require.Equal(testInstance, testRepositoryPathConstant, executor.recorded[0].WorkingDirectory)

			var notFound gitrepo.RevisionNotFoundError
			switch {
			case testCase.expectNotFound:
				require.ErrorAs(testInstance, resolveError, &notFound)
				require.Equal(testInstance, testTagNameConstant, notFound.Revision)
			case testCase.expectError:
				require.Error(testInstance, resolveError)
				require.False(testInstance, errors.As(resolveError, &notFound))
			default:
				require.NoError(testInstance, resolveError)
				require.Equal(testInstance, testCase.expectedCommit, commit)
			}
		})
	}
}

func TestRepositoryResolveRefName(testInstance *testing.T) {
	testCases := []struct {
		name          string
		response      stubResponse
		expectedName  string
		expectedFound bool
		expectError   bool
	}{
		{
			name:          "tag",
			response:      stubResponse{result: execshell.ExecutionResult{StandardOutput: "tags/1.32\n"}},
			expectedName:  "1.32",
			expectedFound: true,
		},
		{
			name:          "branch",
			response:      stubResponse{result: execshell.ExecutionResult{StandardOutput: "heads/main\n"}},
			expectedName:  "main",
			expectedFound: true,
		},
		{
			name:     "remote_tracking_reference",
			response: stubResponse{result: execshell.ExecutionResult{StandardOutput: "remotes/origin/main\n"}},
		},
		{
			name:     "anonymous_commit",
			response: stubResponse{err: commandFailure([]string{"describe"}, 128, "fatal: no tag exactly matches")},
		},
		{
			name:        "git_unavailable",
			response:    stubResponse{err: execshell.CommandExecutionError{Cause: errors.New("executable file not found")}},
			expectError: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &recordingGitExecutor{responses: map[string]stubResponse{"describe": testCase.response}}
			repository := newTestRepository(testInstance, testRepositoryPathConstant, executor)

			name, found, describeError := repository.ResolveRefName(context.Background(), "HEAD")
			require.Equal(testInstance, []string{"describe", "--all", "--exact-match", "HEAD"}, executor.recorded[0].Arguments)

			if testCase.expectError {
				require.Error(testInstance, describeError)
				return
			}
			require.NoError(testInstance, describeError)
			require.Equal(testInstance, testCase.expectedFound, found)
			require.Equal(testInstance, testCase.expectedName, name)
		})
	}
}

func TestRepositoryListFiles(testInstance *testing.T) {
	executor := &recordingGitExecutor{responses: map[string]stubResponse{
		"ls-tree": {result: execshell.ExecutionResult{StandardOutput: "stable/xdg-shell/xdg-shell.xml\x00staging/drm-lease/drm-lease-v1.xml\x00"}},
	}}
	repository := newTestRepository(testInstance, testRepositoryPathConstant, executor)

	files, listError := repository.ListFiles(context.Background(), testCommitHashConstant, []string{"stable", "staging"})
	require.NoError(testInstance, listError)
	require.Equal(testInstance, []string{"stable/xdg-shell/xdg-shell.xml", "staging/drm-lease/drm-lease-v1.xml"}, files)
	require.Equal(testInstance, []string{"ls-tree", "-r", "--name-only", "-z", testCommitHashConstant + "^{tree}", "stable", "staging"}, executor.recorded[0].Arguments)

	wholeTreeFiles, wholeTreeError := repository.ListFiles(context.Background(), testCommitHashConstant, nil)
	require.NoError(testInstance, wholeTreeError)
	require.Len(testInstance, wholeTreeFiles, 2)
	require.Equal(testInstance, []string{"ls-tree", "-r", "--name-only", "-z", testCommitHashConstant + "^{tree}"}, executor.recorded[1].Arguments)
}

func TestRepositoryListFilesKeepsNamesVerbatim(testInstance *testing.T) {
	executor := &recordingGitExecutor{responses: map[string]stubResponse{
		"ls-tree": {result: execshell.ExecutionResult{StandardOutput: "café.txt\x00trailing \x00 leading.txt\x00line\nbreak.txt\x00"}},
	}}
	repository := newTestRepository(testInstance, testRepositoryPathConstant, executor)

	files, listError := repository.ListFiles(context.Background(), testCommitHashConstant, nil)
	require.NoError(testInstance, listError)
	require.Equal(testInstance, []string{"café.txt", "trailing ", " leading.txt", "line\nbreak.txt"}, files)
}

func TestRepositoryListFilesAgainstGit(testInstance *testing.T) {
	if _, lookupError := exec.LookPath("git"); lookupError != nil {
		testInstance.Skip("git executable not available")
	}
	testInstance.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	testInstance.Setenv("GIT_CONFIG_GLOBAL", filepath.Join(testInstance.TempDir(), "gitconfig"))
	testInstance.Setenv("GIT_AUTHOR_NAME", "List Tester")
	testInstance.Setenv("GIT_AUTHOR_EMAIL", "list@example.com")
	testInstance.Setenv("GIT_COMMITTER_NAME", "List Tester")
	testInstance.Setenv("GIT_COMMITTER_EMAIL", "list@example.com")

	repositoryPath := testInstance.TempDir()
	fileNames := []string{"café.txt", "trailing "}
	for _, fileName := range fileNames {
		require.NoError(testInstance, os.WriteFile(filepath.Join(repositoryPath, fileName), []byte(fileName), 0o644))
	}
	for _, arguments := range [][]string{{"init", "--quiet"}, {"add", "--all"}, {"commit", "--quiet", "-m", "names"}} {
		command := exec.Command("git", arguments...)
		command.Dir = repositoryPath
		output, runError := command.CombinedOutput()
		require.NoError(testInstance, runError, string(output))
	}

	shellExecutor, executorError := execshell.NewShellExecutor(zap.NewNop(), execshell.NewOSCommandRunner())
	require.NoError(testInstance, executorError)
	repository, creationError := gitrepo.NewRepository(repositoryPath, shellExecutor, filesystem.OSFileSystem{})
	require.NoError(testInstance, creationError)

	files, listError := repository.ListFiles(context.Background(), "HEAD", nil)
	require.NoError(testInstance, listError)
	require.ElementsMatch(testInstance, fileNames, files)
	for _, file := range files {
		_, statError := os.Stat(filepath.Join(repositoryPath, file))
		require.NoError(testInstance, statError)
	}
}

func TestRepositoryListFilesPropagatesFailures(testInstance *testing.T) {
	executor := &recordingGitExecutor{responses: map[string]stubResponse{
		"ls-tree": {err: commandFailure([]string{"ls-tree"}, 128, "fatal: not a tree object")},
	}}
	repository := newTestRepository(testInstance, testRepositoryPathConstant, executor)

	_, listError := repository.ListFiles(context.Background(), "missing", nil)
	var failure execshell.CommandFailedError
	require.ErrorAs(testInstance, listError, &failure)
	require.Equal(testInstance, 128, failure.Result.ExitCode)
}

func TestRepositoryAssertClean(testInstance *testing.T) {
	testCases := []struct {
		name          string
		responses     map[string]stubResponse
		expectedError error
		expectedCalls int
		expectFailure bool
	}{
		{
			name:          "clean",
			responses:     map[string]stubResponse{},
			expectedCalls: 2,
		},
		{
			name: "unstaged_modifications",
			responses: map[string]stubResponse{
				"diff-files": {err: commandFailure([]string{"diff-files"}, 1, "")},
			},
			expectedError: gitrepo.ErrWorkingTreeDirty,
			expectedCalls: 1,
		},
		{
			name: "staged_changes",
			responses: map[string]stubResponse{
				"diff-index": {err: commandFailure([]string{"diff-index"}, 1, "")},
			},
			expectedError: gitrepo.ErrStagedChanges,
			expectedCalls: 2,
		},
		{
			name: "not_a_repository",
			responses: map[string]stubResponse{
				"diff-files": {err: commandFailure([]string{"diff-files"}, 128, "fatal: not a git repository")},
			},
			expectedCalls: 1,
			expectFailure: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &recordingGitExecutor{responses: testCase.responses}
			repository := newTestRepository(testInstance, testRepositoryPathConstant, executor)

			cleanError := repository.AssertClean(context.Background())
			require.Len(testInstance, executor.recorded, testCase.expectedCalls)

			switch {
			case testCase.expectedError != nil:
				require.ErrorIs(testInstance, cleanError, testCase.expectedError)
			case testCase.expectFailure:
				require.Error(testInstance, cleanError)
				require.False(testInstance, errors.Is(cleanError, gitrepo.ErrWorkingTreeDirty))
			default:
				require.NoError(testInstance, cleanError)
				require.Equal(testInstance, []string{"diff-index", "--quiet", "--ignore-submodules", "--cached", "HEAD"}, executor.recorded[1].Arguments)
			}
		})
	}
}

func TestRepositorySparseShallowClone(testInstance *testing.T) {
	testCases := []struct {
		name              string
		revision          string
		subpaths          []string
		forceClean        bool
		existingCheckout  bool
		expectedArguments [][]string
		expectMarkerGone  bool
	}{
		{
			name:     "sparse_tag_clone",
			revision: testTagNameConstant,
			subpaths: []string{"stable", "staging"},
			expectedArguments: [][]string{
				{"clone", "--filter=blob:none", "--depth=1", "--sparse", "-b", testTagNameConstant, testUpstreamURLConstant},
				{"sparse-checkout", "add", "stable", "staging"},
			},
		},
		{
			name:     "whole_tree_default_branch",
			revision: "HEAD",
			expectedArguments: [][]string{
				{"clone", "--filter=blob:none", "--depth=1", testUpstreamURLConstant},
			},
		},
		{
			name: "empty_revision_uses_default_branch",
			expectedArguments: [][]string{
				{"clone", "--filter=blob:none", "--depth=1", testUpstreamURLConstant},
			},
		},
		{
			name:             "reuses_existing_checkout",
			revision:         testTagNameConstant,
			existingCheckout: true,
		},
		{
			name:             "force_clean_replaces_existing_checkout",
			revision:         testTagNameConstant,
			forceClean:       true,
			existingCheckout: true,
			expectedArguments: [][]string{
				{"clone", "--filter=blob:none", "--depth=1", "-b", testTagNameConstant, testUpstreamURLConstant},
			},
			expectMarkerGone: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			scratchRoot := testInstance.TempDir()
			clonePath := filepath.Join(scratchRoot, ".import", "freedesktop.org", "1.32")
			markerPath := filepath.Join(clonePath, "marker")
			if testCase.existingCheckout {
				require.NoError(testInstance, os.MkdirAll(clonePath, 0o755))
				require.NoError(testInstance, os.WriteFile(markerPath, []byte("stale"), 0o644))
			}

			executor := &recordingGitExecutor{}
			repository := newTestRepository(testInstance, clonePath, executor)

			cloneError := repository.SparseShallowClone(context.Background(), gitrepo.CloneOptions{
				URL:        testUpstreamURLConstant,
				Revision:   testCase.revision,
				Subpaths:   testCase.subpaths,
				ForceClean: testCase.forceClean,
			})
			require.NoError(testInstance, cloneError)

			parentInfo, statError := os.Stat(filepath.Dir(clonePath))
			require.NoError(testInstance, statError)
			require.True(testInstance, parentInfo.IsDir())

			require.Len(testInstance, executor.recorded, len(testCase.expectedArguments))
			for commandIndex, expectedArguments := range testCase.expectedArguments {
				recordedCommand := executor.recorded[commandIndex]
				if expectedArguments[0] == "clone" {
					require.Equal(testInstance, append(append([]string{}, expectedArguments...), clonePath), recordedCommand.Arguments)
					require.Equal(testInstance, filepath.Dir(clonePath), recordedCommand.WorkingDirectory)
					require.Equal(testInstance, map[string]string{"GIT_TERMINAL_PROMPT": "0"}, recordedCommand.EnvironmentVariables)
					continue
				}
				require.Equal(testInstance, expectedArguments, recordedCommand.Arguments)
				require.Equal(testInstance, clonePath, recordedCommand.WorkingDirectory)
				require.Empty(testInstance, recordedCommand.EnvironmentVariables)
			}

			if testCase.expectMarkerGone {
				_, markerError := os.Stat(markerPath)
				require.ErrorIs(testInstance, markerError, os.ErrNotExist)
			}
		})
	}
}

func TestRepositorySparseShallowCloneRequiresURL(testInstance *testing.T) {
	executor := &recordingGitExecutor{}
	repository := newTestRepository(testInstance, filepath.Join(testInstance.TempDir(), "clone"), executor)

	require.ErrorIs(testInstance, repository.SparseShallowClone(context.Background(), gitrepo.CloneOptions{}), gitrepo.ErrCloneURLRequired)
	require.Empty(testInstance, executor.recorded)
}

func TestRepositoryStageAndCommit(testInstance *testing.T) {
	executor := &recordingGitExecutor{}
	repository := newTestRepository(testInstance, testRepositoryPathConstant, executor)

	stagedPath := filepath.Join(testRepositoryPathConstant, "freedesktop.org", "METADATA")
	require.NoError(testInstance, repository.Stage(context.Background(), stagedPath))
	require.NoError(testInstance, repository.Commit(context.Background(), gitrepo.CommitOptions{
		Message:    "Update to freedesktop.org 1.32",
		AllowEmpty: true,
		AutoAdd:    true,
	}))
	require.NoError(testInstance, repository.Commit(context.Background(), gitrepo.CommitOptions{Message: "plain"}))

	require.Equal(testInstance, []string{"add", stagedPath}, executor.recorded[0].Arguments)
	require.Empty(testInstance, executor.recorded[0].StandardInput)
	require.Equal(testInstance, []string{"commit", "-F", "-", "--allow-empty", "-a"}, executor.recorded[1].Arguments)
	require.Equal(testInstance, []byte("Update to freedesktop.org 1.32"), executor.recorded[1].StandardInput)
	require.Equal(testInstance, testRepositoryPathConstant, executor.recorded[1].WorkingDirectory)
	require.Equal(testInstance, []string{"commit", "-F", "-"}, executor.recorded[2].Arguments)
	require.Equal(testInstance, []byte("plain"), executor.recorded[2].StandardInput)

	require.ErrorIs(testInstance, repository.Commit(context.Background(), gitrepo.CommitOptions{}), gitrepo.ErrCommitMessageRequired)
	require.Len(testInstance, executor.recorded, 3)
}
