package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/temirov/vendorsync/internal/execshell"
)

const (
	gitRevParseSubcommandConstant       = "rev-parse"
	gitVerifyFlagConstant               = "--verify"
	gitQuietFlagConstant                = "--quiet"
	gitCommitPeelSuffixConstant         = "^{commit}"
	gitTreePeelSuffixConstant           = "^{tree}"
	gitDescribeSubcommandConstant       = "describe"
	gitAllFlagConstant                  = "--all"
	gitExactMatchFlagConstant           = "--exact-match"
	gitLSTreeSubcommandConstant         = "ls-tree"
	gitRecursiveFlagConstant            = "-r"
	gitNameOnlyFlagConstant             = "--name-only"
	gitNullTerminatedFlagConstant       = "-z"
	gitDiffFilesSubcommandConstant      = "diff-files"
	gitDiffIndexSubcommandConstant      = "diff-index"
	gitIgnoreSubmodulesFlagConstant     = "--ignore-submodules"
	gitCachedFlagConstant               = "--cached"
	gitHeadReferenceConstant            = "HEAD"
	gitCloneSubcommandConstant          = "clone"
	gitBlobFilterFlagConstant           = "--filter=blob:none"
	gitShallowDepthFlagConstant         = "--depth=1"
	gitSparseFlagConstant               = "--sparse"
	gitBranchFlagConstant               = "-b"
	gitSparseCheckoutSubcommandConstant = "sparse-checkout"
	gitSparseCheckoutAddConstant        = "add"
	gitAddSubcommandConstant            = "add"
	gitCommitSubcommandConstant         = "commit"
	gitMessageFileFlagConstant          = "-F"
	gitStandardInputPathConstant        = "-"
	gitAllowEmptyFlagConstant           = "--allow-empty"
	gitAutoAddFlagConstant              = "-a"
	tagReferencePrefixConstant          = "tags/"
	branchReferencePrefixConstant       = "heads/"
	outputLineSeparatorConstant         = "\n"
	outputEntryTerminatorConstant       = "\x00"
	differenceExitCodeConstant          = 1
	cloneDirectoryPermissionsConstant   = fs.FileMode(0o755)
	terminalPromptEnvironmentConstant   = "GIT_TERMINAL_PROMPT"
	terminalPromptDisabledConstant      = "0"
)

const (
	revisionNotFoundTemplateConstant      = "revision %s not found in %s"
	resolveFailedTemplateConstant         = "unable to resolve %s in %s: %w"
	describeFailedTemplateConstant        = "unable to describe %s in %s: %w"
	listFilesFailedTemplateConstant       = "unable to list files of %s in %s: %w"
	cleanCheckFailedTemplateConstant      = "unable to check %s for local changes: %w"
	workingTreeStateTemplateConstant      = "%w: %s"
	cloneParentFailedTemplateConstant     = "unable to prepare %s for cloning: %w"
	cloneCleanupFailedTemplateConstant    = "unable to remove existing checkout %s: %w"
	cloneInspectFailedTemplateConstant    = "unable to inspect %s: %w"
	cloneFailedTemplateConstant           = "unable to clone %s into %s: %w"
	sparseCheckoutFailedTemplateConstant  = "unable to restrict %s to %s: %w"
	stageFailedTemplateConstant           = "unable to stage %s in %s: %w"
	commitFailedTemplateConstant          = "unable to commit in %s: %w"
	requiredRepositoryPathMessageConstant = "repository path must be provided"
	requiredExecutorMessageConstant       = "git executor not configured"
	requiredFileSystemMessageConstant     = "filesystem not configured"
	requiredCloneURLMessageConstant       = "clone url must be provided"
	requiredCommitMessageMessageConstant  = "commit message must be provided"
	subpathJoinSeparatorConstant          = " "
)

var (
	// ErrRepositoryPathRequired indicates the repository path was empty.
	ErrRepositoryPathRequired = errors.New(requiredRepositoryPathMessageConstant)
	// ErrGitExecutorNotConfigured indicates no git executor was supplied.
	ErrGitExecutorNotConfigured = errors.New(requiredExecutorMessageConstant)
	// ErrFileSystemNotConfigured indicates no filesystem was supplied.
	ErrFileSystemNotConfigured = errors.New(requiredFileSystemMessageConstant)
	// ErrCloneURLRequired indicates a clone was requested without a source URL.
	ErrCloneURLRequired = errors.New(requiredCloneURLMessageConstant)
	// ErrCommitMessageRequired indicates a commit was requested without a message.
	ErrCommitMessageRequired = errors.New(requiredCommitMessageMessageConstant)
	// ErrWorkingTreeDirty indicates tracked files carry unstaged modifications.
	ErrWorkingTreeDirty = errors.New("your tree is dirty")
	// ErrStagedChanges indicates the index holds changes that are not committed.
	ErrStagedChanges = errors.New("you have staged changes")
)

// GitExecutor exposes the subset of shell execution used by Repository.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// FileSystem exposes the directory operations needed to manage scratch clones.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	MkdirAll(path string, permissions fs.FileMode) error
	RemoveAll(path string) error
}

// RevisionNotFoundError reports a revision that does not resolve to a commit.
type RevisionNotFoundError struct {
	RepositoryPath string
	Revision       string
	Cause          error
}

// Error describes the missing revision.
func (notFound RevisionNotFoundError) Error() string {
	return fmt.Sprintf(revisionNotFoundTemplateConstant, notFound.Revision, notFound.RepositoryPath)
}

// Unwrap exposes the underlying command failure.
func (notFound RevisionNotFoundError) Unwrap() error {
	return notFound.Cause
}

// CloneOptions configures SparseShallowClone.
type CloneOptions struct {
	URL string
	// Revision names the branch or tag to check out. Empty or HEAD selects the default branch.
	Revision string
	// Subpaths restricts the checkout. Empty means the whole tree.
	Subpaths   []string
	ForceClean bool
}

// CommitOptions configures Commit.
type CommitOptions struct {
	Message    string
	AllowEmpty bool
	// AutoAdd stages modifications of tracked files before committing. Untracked files still require Stage.
	AutoAdd bool
}

// Repository issues git commands against the working tree located at a fixed path.
type Repository struct {
	path       string
	executor   GitExecutor
	fileSystem FileSystem
}

// NewRepository validates its collaborators and binds them to repositoryPath.
func NewRepository(repositoryPath string, executor GitExecutor, fileSystem FileSystem) (*Repository, error) {
	trimmedPath := strings.TrimSpace(repositoryPath)
	if len(trimmedPath) == 0 {
		return nil, ErrRepositoryPathRequired
	}
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	if fileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	return &Repository{path: filepath.Clean(trimmedPath), executor: executor, fileSystem: fileSystem}, nil
}

// Path returns the working tree location.
func (repository *Repository) Path() string {
	return repository.path
}

// ResolveCommit returns the commit identifier revision points at.
func (repository *Repository) ResolveCommit(executionContext context.Context, revision string) (string, error) {
	result, executionError := repository.runGit(executionContext, gitRevParseSubcommandConstant, gitVerifyFlagConstant, gitQuietFlagConstant, revision+gitCommitPeelSuffixConstant)
	if executionError != nil {
		var commandFailure execshell.CommandFailedError
		if errors.As(executionError, &commandFailure) {
			return "", RevisionNotFoundError{RepositoryPath: repository.path, Revision: revision, Cause: executionError}
		}
		return "", fmt.Errorf(resolveFailedTemplateConstant, revision, repository.path, executionError)
	}

	commitIdentifier := firstOutputLine(result.StandardOutput)
	if len(commitIdentifier) == 0 {
		return "", RevisionNotFoundError{RepositoryPath: repository.path, Revision: revision}
	}
	return commitIdentifier, nil
}

// ResolveRefName returns the tag or branch name pointing exactly at revision.
// The boolean is false when the commit is anonymous, which is not an error.
func (repository *Repository) ResolveRefName(executionContext context.Context, revision string) (string, bool, error) {
	result, executionError := repository.runGit(executionContext, gitDescribeSubcommandConstant, gitAllFlagConstant, gitExactMatchFlagConstant, revision)
	if executionError != nil {
		var commandFailure execshell.CommandFailedError
		if errors.As(executionError, &commandFailure) {
			return "", false, nil
		}
		return "", false, fmt.Errorf(describeFailedTemplateConstant, revision, repository.path, executionError)
	}

	describedReference := firstOutputLine(result.StandardOutput)
	for _, prefix := range []string{tagReferencePrefixConstant, branchReferencePrefixConstant} {
		if strings.HasPrefix(describedReference, prefix) {
			referenceName := strings.TrimPrefix(describedReference, prefix)
			return referenceName, len(referenceName) > 0, nil
		}
	}
	return "", false, nil
}

// ListFiles returns every blob path in the tree of revision under subpaths, in git's output order.
// Empty subpaths lists the whole tree. Paths are read NUL-terminated so names are neither quoted nor trimmed.
func (repository *Repository) ListFiles(executionContext context.Context, revision string, subpaths []string) ([]string, error) {
	arguments := []string{gitLSTreeSubcommandConstant, gitRecursiveFlagConstant, gitNameOnlyFlagConstant, gitNullTerminatedFlagConstant, revision + gitTreePeelSuffixConstant}
	arguments = append(arguments, subpaths...)

	result, executionError := repository.runGit(executionContext, arguments...)
	if executionError != nil {
		return nil, fmt.Errorf(listFilesFailedTemplateConstant, revision, repository.path, executionError)
	}

	files := make([]string, 0)
	for _, entry := range strings.Split(result.StandardOutput, outputEntryTerminatorConstant) {
		if len(entry) == 0 {
			continue
		}
		files = append(files, entry)
	}
	return files, nil
}

// AssertClean fails with ErrWorkingTreeDirty or ErrStagedChanges unless the working tree matches HEAD.
func (repository *Repository) AssertClean(executionContext context.Context) error {
	_, unstagedError := repository.runGit(executionContext, gitDiffFilesSubcommandConstant, gitQuietFlagConstant, gitIgnoreSubmodulesFlagConstant)
	if stateError := repository.classifyDifference(unstagedError, ErrWorkingTreeDirty); stateError != nil {
		return stateError
	}

	_, stagedError := repository.runGit(executionContext, gitDiffIndexSubcommandConstant, gitQuietFlagConstant, gitIgnoreSubmodulesFlagConstant, gitCachedFlagConstant, gitHeadReferenceConstant)
	return repository.classifyDifference(stagedError, ErrStagedChanges)
}

// SparseShallowClone checks out options.URL at options.Revision into the repository path with depth one and
// blob filtering, limited to options.Subpaths when present. An existing checkout is destroyed first when
// options.ForceClean is set and reused otherwise.
func (repository *Repository) SparseShallowClone(executionContext context.Context, options CloneOptions) error {
	if len(strings.TrimSpace(options.URL)) == 0 {
		return ErrCloneURLRequired
	}

	parentDirectory := filepath.Dir(repository.path)
	if mkdirError := repository.fileSystem.MkdirAll(parentDirectory, cloneDirectoryPermissionsConstant); mkdirError != nil {
		return fmt.Errorf(cloneParentFailedTemplateConstant, parentDirectory, mkdirError)
	}

	checkoutExists, inspectError := repository.checkoutExists()
	if inspectError != nil {
		return inspectError
	}

	if checkoutExists && options.ForceClean {
		if removeError := repository.fileSystem.RemoveAll(repository.path); removeError != nil {
			return fmt.Errorf(cloneCleanupFailedTemplateConstant, repository.path, removeError)
		}
		checkoutExists = false
	}

	if checkoutExists {
		return nil
	}

	cloneArguments := []string{gitCloneSubcommandConstant, gitBlobFilterFlagConstant, gitShallowDepthFlagConstant}
	if len(options.Subpaths) > 0 {
		cloneArguments = append(cloneArguments, gitSparseFlagConstant)
	}
	trimmedRevision := strings.TrimSpace(options.Revision)
	if len(trimmedRevision) > 0 && trimmedRevision != gitHeadReferenceConstant {
		cloneArguments = append(cloneArguments, gitBranchFlagConstant, trimmedRevision)
	}
	cloneArguments = append(cloneArguments, options.URL, repository.path)

	_, cloneError := repository.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            cloneArguments,
		WorkingDirectory:     parentDirectory,
		EnvironmentVariables: map[string]string{terminalPromptEnvironmentConstant: terminalPromptDisabledConstant},
	})
	if cloneError != nil {
		return fmt.Errorf(cloneFailedTemplateConstant, options.URL, repository.path, cloneError)
	}

	if len(options.Subpaths) == 0 {
		return nil
	}

	sparseArguments := append([]string{gitSparseCheckoutSubcommandConstant, gitSparseCheckoutAddConstant}, options.Subpaths...)
	if _, sparseError := repository.runGit(executionContext, sparseArguments...); sparseError != nil {
		return fmt.Errorf(sparseCheckoutFailedTemplateConstant, repository.path, strings.Join(options.Subpaths, subpathJoinSeparatorConstant), sparseError)
	}
	return nil
}

// Stage adds path to the index.
func (repository *Repository) Stage(executionContext context.Context, path string) error {
	if _, stageError := repository.runGit(executionContext, gitAddSubcommandConstant, path); stageError != nil {
		return fmt.Errorf(stageFailedTemplateConstant, path, repository.path, stageError)
	}
	return nil
}

// Commit records the index as a new commit. The message is passed on standard input.
func (repository *Repository) Commit(executionContext context.Context, options CommitOptions) error {
	if len(strings.TrimSpace(options.Message)) == 0 {
		return ErrCommitMessageRequired
	}

	arguments := []string{gitCommitSubcommandConstant, gitMessageFileFlagConstant, gitStandardInputPathConstant}
	if options.AllowEmpty {
		arguments = append(arguments, gitAllowEmptyFlagConstant)
	}
	if options.AutoAdd {
		arguments = append(arguments, gitAutoAddFlagConstant)
	}

	_, commitError := repository.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: repository.path,
		StandardInput:    []byte(options.Message),
	})
	if commitError != nil {
		return fmt.Errorf(commitFailedTemplateConstant, repository.path, commitError)
	}
	return nil
}

func (repository *Repository) runGit(executionContext context.Context, arguments ...string) (execshell.ExecutionResult, error) {
	return repository.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: repository.path,
	})
}

func (repository *Repository) checkoutExists() (bool, error) {
	_, statError := repository.fileSystem.Stat(repository.path)
	if statError == nil {
		return true, nil
	}
	if errors.Is(statError, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf(cloneInspectFailedTemplateConstant, repository.path, statError)
}

// classifyDifference maps the exit status 1 of a --quiet diff onto stateError.
func (repository *Repository) classifyDifference(executionError error, stateError error) error {
	if executionError == nil {
		return nil
	}
	var commandFailure execshell.CommandFailedError
	if errors.As(executionError, &commandFailure) && commandFailure.Result.ExitCode == differenceExitCodeConstant {
		return fmt.Errorf(workingTreeStateTemplateConstant, stateError, repository.path)
	}
	return fmt.Errorf(cleanCheckFailedTemplateConstant, repository.path, executionError)
}

func firstOutputLine(output string) string {
	trimmedOutput := strings.TrimSpace(output)
	if separatorIndex := strings.Index(trimmedOutput, outputLineSeparatorConstant); separatorIndex >= 0 {
		return strings.TrimSpace(trimmedOutput[:separatorIndex])
	}
	return trimmedOutput
}
