package snapshot

import (
	"go.uber.org/zap"

	"github.com/temirov/vendorsync/internal/execshell"
	"github.com/temirov/vendorsync/internal/filesystem"
	"github.com/temirov/vendorsync/internal/gitrepo"
	"github.com/temirov/vendorsync/internal/ui"
)

// WorkspaceFileSystem covers both the vendored directory operations and scratch clone management.
type WorkspaceFileSystem interface {
	FileSystem
	gitrepo.FileSystem
}

// ResolveFileSystem returns the provided filesystem or an OS-backed default.
func ResolveFileSystem(existing WorkspaceFileSystem) WorkspaceFileSystem {
	if existing != nil {
		return existing
	}
	return filesystem.OSFileSystem{}
}

// ResolveGitExecutor returns the provided executor or constructs a shell-backed default.
// Human-readable logging routes command events through the console event logger instead of structured fields.
func ResolveGitExecutor(existing gitrepo.GitExecutor, logger *zap.Logger, humanReadableLogging bool) (gitrepo.GitExecutor, error) {
	if existing != nil {
		return existing, nil
	}

	executorOptions := make([]execshell.ShellExecutorOption, 0, 1)
	if humanReadableLogging {
		executorOptions = append(executorOptions, execshell.WithCommandEventObserver(ui.NewConsoleCommandEventLogger(logger)))
	}

	shellExecutor, creationError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner(), executorOptions...)
	if creationError != nil {
		return nil, creationError
	}
	return shellExecutor, nil
}

// ResolveRepositoryFactory returns the provided factory or one producing git-backed repositories.
func ResolveRepositoryFactory(existing RepositoryFactory, executor gitrepo.GitExecutor, fileSystem gitrepo.FileSystem) RepositoryFactory {
	if existing != nil {
		return existing
	}
	return func(repositoryPath string) (VersionedRepository, error) {
		repository, creationError := gitrepo.NewRepository(repositoryPath, executor, fileSystem)
		if creationError != nil {
			return nil, creationError
		}
		return repository, nil
	}
}
