package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/temirov/vendorsync/internal/gitrepo"
	"github.com/temirov/vendorsync/internal/metadata"
)

const (
	defaultRevisionConstant = "HEAD"

	importingNoticeTemplateConstant   = "Importing %s at %s"
	cloningNoticeTemplateConstant     = "Cloning %s [sparse/limited] at %s"
	cloningPriorNoticeTemplate        = "Cloning %s [sparse/limited] at prior %s"
	syncedNamedNoticeTemplateConstant = "Synced \"%s (%s)\""
	syncedNoticeTemplateConstant      = "Synced \"%s\""
	ignoringNoticeTemplateConstant    = "Ignoring source %s"
	importedNoticeTemplateConstant    = "Imported %s %s (%d copied, %d removed, %d skipped)"
	commitMessageTemplateConstant     = "Update to %s %s\n\nThis imports %s from the upstream repository.\n\n%s\n"

	groupRequiredMessageConstant        = "group must be provided"
	groupOutsideRootMessageConstant     = "group must name a directory inside the working tree"
	rootRequiredMessageConstant         = "working tree root must be provided"
	repositoryFactoryMissingMessage     = "repository factory not configured"
	fileSystemMissingMessageConstant    = "filesystem not configured"
	groupValidationTemplateConstant     = "%w: %s"
	policyErrorTemplateConstant         = "unable to build protected file policy: %w"
	openRepositoryErrorTemplateConstant = "unable to open repository %s: %w"
	metadataErrorTemplateConstant       = "unable to read metadata for %s: %w"
	cloneErrorTemplateConstant          = "unable to clone %s at %s: %w"
	resolveErrorTemplateConstant        = "unable to resolve %s: %w"
	listErrorTemplateConstant           = "unable to list files of %s: %w"
	removeErrorTemplateConstant         = "unable to remove %s: %w"
	copyErrorTemplateConstant           = "unable to copy %s: %w"
	stageErrorTemplateConstant          = "unable to stage %s: %w"
	updateMetadataErrorTemplate         = "unable to update %s: %w"
	commitErrorTemplateConstant         = "unable to commit import of %s: %w"
	planRenderErrorTemplateConstant     = "unable to render import plan: %w"

	logMessageRemovingConstant  = "removing old path"
	logMessageCopyingConstant   = "copying upstream file"
	logMessageReusingConstant   = "reusing new snapshot as prior snapshot"
	logMessageCommittedConstant = "import committed"
	logFieldPathConstant        = "path"
	logFieldSourceConstant      = "source"
	logFieldDestinationConstant = "destination"
	logFieldScratchPathConstant = "scratch_path"
	logFieldGroupConstant       = "group"
	logFieldCommitConstant      = "commit"
	logFieldVersionConstant     = "version"
)

var (
	// ErrGroupRequired indicates the import was requested without a group.
	ErrGroupRequired = errors.New(groupRequiredMessageConstant)
	// ErrGroupOutsideRoot indicates the group escapes the working tree.
	ErrGroupOutsideRoot = errors.New(groupOutsideRootMessageConstant)
	// ErrRootRequired indicates no working tree root was configured.
	ErrRootRequired = errors.New(rootRequiredMessageConstant)
	// ErrRepositoryFactoryNotConfigured indicates NewService was called without a repository factory.
	ErrRepositoryFactoryNotConfigured = errors.New(repositoryFactoryMissingMessage)
	// ErrFileSystemNotConfigured indicates NewService was called without a filesystem.
	ErrFileSystemNotConfigured = errors.New(fileSystemMissingMessageConstant)
)

// ServiceDependencies enumerates collaborators required by the import service.
type ServiceDependencies struct {
	Logger            *zap.Logger
	RepositoryFactory RepositoryFactory
	FileSystem        FileSystem
	Clock             Clock
	Notifier          Notifier
	// PlanOutput receives the YAML plan of a dry run.
	PlanOutput io.Writer
}

// Service imports upstream snapshots into vendored groups of a working tree.
type Service struct {
	configuration     Configuration
	policy            ProtectedFilePolicy
	logger            *zap.Logger
	repositoryFactory RepositoryFactory
	fileSystem        FileSystem
	clock             Clock
	notifier          Notifier
	planOutput        io.Writer
}

// NewService validates dependencies and constructs a Service.
func NewService(configuration Configuration, dependencies ServiceDependencies) (*Service, error) {
	sanitizedConfiguration := configuration.Sanitize()
	if len(sanitizedConfiguration.Root) == 0 {
		return nil, ErrRootRequired
	}
	if dependencies.RepositoryFactory == nil {
		return nil, ErrRepositoryFactoryNotConfigured
	}
	if dependencies.FileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}

	policy, policyError := NewProtectedFilePolicy(sanitizedConfiguration.ProtectedPatterns)
	if policyError != nil {
		return nil, fmt.Errorf(policyErrorTemplateConstant, policyError)
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := dependencies.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	planOutput := dependencies.PlanOutput
	if planOutput == nil {
		planOutput = io.Discard
	}

	return &Service{
		configuration:     sanitizedConfiguration,
		policy:            policy,
		logger:            logger,
		repositoryFactory: dependencies.RepositoryFactory,
		fileSystem:        dependencies.FileSystem,
		clock:             clock,
		notifier:          dependencies.Notifier,
		planOutput:        planOutput,
	}, nil
}

// upstreamSnapshot is one sparse clone of the upstream repository.
type upstreamSnapshot struct {
	repository VersionedRepository
	commit     string
	files      []string
}

// Import synchronizes the vendored group with the requested upstream version and commits the result.
// Every failure aborts the run; nothing already applied is rolled back.
func (service *Service) Import(executionContext context.Context, options Options) (Result, error) {
	group, groupError := normalizeGroup(options.Group)
	if groupError != nil {
		return Result{}, groupError
	}
	requestedVersion := strings.TrimSpace(options.Version)
	if len(requestedVersion) == 0 {
		requestedVersion = defaultRevisionConstant
	}

	service.progress(importingNoticeTemplateConstant, group, requestedVersion)

	targetRepository, targetError := service.openRepository(service.configuration.Root)
	if targetError != nil {
		return Result{}, targetError
	}
	if cleanError := targetRepository.AssertClean(executionContext); cleanError != nil {
		return Result{}, cleanError
	}

	groupPath := filepath.Join(service.configuration.Root, group)
	record, recordError := metadata.Load(service.fileSystem, filepath.Join(groupPath, service.configuration.MetadataFileName))
	if recordError != nil {
		return Result{}, fmt.Errorf(metadataErrorTemplateConstant, group, recordError)
	}
	upstreamURL, urlError := record.GitURL()
	if urlError != nil {
		return Result{}, fmt.Errorf(metadataErrorTemplateConstant, group, urlError)
	}
	subpaths, pathsError := record.GitPaths()
	if pathsError != nil {
		return Result{}, fmt.Errorf(metadataErrorTemplateConstant, group, pathsError)
	}
	recordedVersion := ""
	if options.RemoveOldFiles {
		currentVersion, versionError := record.CurrentVersion()
		if versionError != nil {
			return Result{}, fmt.Errorf(metadataErrorTemplateConstant, group, versionError)
		}
		recordedVersion = currentVersion
	}

	result := Result{
		Group:            group,
		UpstreamURL:      upstreamURL,
		Subpaths:         subpaths,
		RequestedVersion: requestedVersion,
		RecordedVersion:  recordedVersion,
		RemovedFiles:     []string{},
		CopiedFiles:      []string{},
		SkippedFiles:     []string{},
		DryRun:           options.DryRun,
	}

	service.progress(cloningNoticeTemplateConstant, upstreamURL, requestedVersion)
	newScratchPath := service.scratchPath(group, requestedVersion)
	newSnapshot, newSnapshotError := service.cloneSnapshot(executionContext, newScratchPath, upstreamURL, requestedVersion, subpaths, options.ForceClean)
	if newSnapshotError != nil {
		return Result{}, newSnapshotError
	}
	result.Commit = newSnapshot.commit

	refName, refNameFound, refNameError := newSnapshot.repository.ResolveRefName(executionContext, requestedVersion)
	if refNameError != nil {
		return Result{}, fmt.Errorf(resolveErrorTemplateConstant, requestedVersion, refNameError)
	}
	result.NewVersion = newSnapshot.commit
	if refNameFound {
		result.RefName = refName
		result.NewVersion = refName
		service.progress(syncedNamedNoticeTemplateConstant, newSnapshot.commit, refName)
	} else {
		service.progress(syncedNoticeTemplateConstant, newSnapshot.commit)
	}

	removals := []string{}
	if options.RemoveOldFiles {
		service.progress(cloningPriorNoticeTemplate, upstreamURL, recordedVersion)
		priorSnapshot, priorError := service.clonePriorSnapshot(executionContext, newSnapshot, newScratchPath, group, upstreamURL, recordedVersion, subpaths, options.ForceClean)
		if priorError != nil {
			return Result{}, priorError
		}
		result.PriorCommit = priorSnapshot.commit
		service.progress(syncedNoticeTemplateConstant, priorSnapshot.commit)
		removals = ComputeRemovals(priorSnapshot.files, newSnapshot.files)
	}

	for _, removal := range removals {
		if service.skipProtected(removal, &result) {
			continue
		}
		result.RemovedFiles = append(result.RemovedFiles, removal)
	}
	for _, upstreamFile := range newSnapshot.files {
		if service.skipProtected(upstreamFile, &result) {
			continue
		}
		result.CopiedFiles = append(result.CopiedFiles, upstreamFile)
	}

	if options.DryRun {
		return result, service.renderPlan(result)
	}

	for _, removal := range result.RemovedFiles {
		removalPath := filepath.Join(groupPath, filepath.FromSlash(removal))
		service.logger.Debug(logMessageRemovingConstant, zap.String(logFieldPathConstant, removalPath))
		if removeError := service.fileSystem.Remove(removalPath); removeError != nil {
			return Result{}, fmt.Errorf(removeErrorTemplateConstant, removalPath, removeError)
		}
	}

	for _, upstreamFile := range result.CopiedFiles {
		sourcePath := filepath.Join(newSnapshot.repository.Path(), filepath.FromSlash(upstreamFile))
		destinationPath := filepath.Join(groupPath, filepath.FromSlash(upstreamFile))
		service.logger.Debug(logMessageCopyingConstant, zap.String(logFieldSourceConstant, sourcePath), zap.String(logFieldDestinationConstant, destinationPath))
		if copyError := service.fileSystem.CopyFile(sourcePath, destinationPath); copyError != nil {
			return Result{}, fmt.Errorf(copyErrorTemplateConstant, upstreamFile, copyError)
		}
		if stageError := targetRepository.Stage(executionContext, destinationPath); stageError != nil {
			return Result{}, fmt.Errorf(stageErrorTemplateConstant, destinationPath, stageError)
		}
	}

	if updateError := record.UpdateVersionAndDate(result.NewVersion, service.clock.Now()); updateError != nil {
		return Result{}, fmt.Errorf(updateMetadataErrorTemplate, record.Path(), updateError)
	}
	if stageError := targetRepository.Stage(executionContext, record.Path()); stageError != nil {
		return Result{}, fmt.Errorf(stageErrorTemplateConstant, record.Path(), stageError)
	}

	commitMessage := BuildCommitMessage(group, result.NewVersion, newSnapshot.commit, service.configuration.CommitTrailer)
	if commitError := targetRepository.Commit(executionContext, gitrepo.CommitOptions{Message: commitMessage, AllowEmpty: true, AutoAdd: true}); commitError != nil {
		return Result{}, fmt.Errorf(commitErrorTemplateConstant, group, commitError)
	}
	result.Committed = true

	service.logger.Info(logMessageCommittedConstant,
		zap.String(logFieldGroupConstant, group),
		zap.String(logFieldVersionConstant, result.NewVersion),
		zap.String(logFieldCommitConstant, newSnapshot.commit),
	)
	if service.notifier != nil {
		service.notifier.Success(importedNoticeTemplateConstant, group, result.NewVersion, len(result.CopiedFiles), len(result.RemovedFiles), len(result.SkippedFiles))
	}

	return result, nil
}

// BuildCommitMessage renders the commit message recording an import.
func BuildCommitMessage(group string, version string, commit string, trailer string) string {
	return fmt.Sprintf(commitMessageTemplateConstant, group, version, commit, trailer)
}

func (service *Service) cloneSnapshot(executionContext context.Context, scratchPath string, upstreamURL string, revision string, subpaths []string, forceClean bool) (upstreamSnapshot, error) {
	repository, openError := service.openRepository(scratchPath)
	if openError != nil {
		return upstreamSnapshot{}, openError
	}

	cloneError := repository.SparseShallowClone(executionContext, gitrepo.CloneOptions{
		URL:        upstreamURL,
		Revision:   revision,
		Subpaths:   subpaths,
		ForceClean: forceClean,
	})
	if cloneError != nil {
		return upstreamSnapshot{}, fmt.Errorf(cloneErrorTemplateConstant, upstreamURL, revision, cloneError)
	}

	commit, resolveError := repository.ResolveCommit(executionContext, revision)
	if resolveError != nil {
		return upstreamSnapshot{}, fmt.Errorf(resolveErrorTemplateConstant, revision, resolveError)
	}

	files, listError := repository.ListFiles(executionContext, commit, subpaths)
	if listError != nil {
		return upstreamSnapshot{}, fmt.Errorf(listErrorTemplateConstant, commit, listError)
	}

	return upstreamSnapshot{repository: repository, commit: commit, files: files}, nil
}

// clonePriorSnapshot reuses the new snapshot when both versions map to the same scratch directory,
// since a forced clean of that directory would destroy the new snapshot.
func (service *Service) clonePriorSnapshot(executionContext context.Context, newSnapshot upstreamSnapshot, newScratchPath string, group string, upstreamURL string, recordedVersion string, subpaths []string, forceClean bool) (upstreamSnapshot, error) {
	priorScratchPath := service.scratchPath(group, recordedVersion)
	if priorScratchPath == newScratchPath {
		service.logger.Debug(logMessageReusingConstant, zap.String(logFieldScratchPathConstant, newScratchPath))
		return newSnapshot, nil
	}
	return service.cloneSnapshot(executionContext, priorScratchPath, upstreamURL, recordedVersion, subpaths, forceClean)
}

func (service *Service) openRepository(repositoryPath string) (VersionedRepository, error) {
	repository, openError := service.repositoryFactory(repositoryPath)
	if openError != nil {
		return nil, fmt.Errorf(openRepositoryErrorTemplateConstant, repositoryPath, openError)
	}
	return repository, nil
}

func (service *Service) scratchPath(group string, version string) string {
	scratchRoot := service.configuration.ScratchDirectory
	if !filepath.IsAbs(scratchRoot) {
		scratchRoot = filepath.Join(service.configuration.Root, scratchRoot)
	}
	return filepath.Join(scratchRoot, group, filepath.FromSlash(version))
}

func (service *Service) skipProtected(relativePath string, result *Result) bool {
	if !service.policy.IsProtected(relativePath) {
		return false
	}
	service.notifySkipped(relativePath)
	result.SkippedFiles = append(result.SkippedFiles, relativePath)
	return true
}

func (service *Service) renderPlan(result Result) error {
	encoder := yaml.NewEncoder(service.planOutput)
	encoder.SetIndent(2)
	if encodeError := encoder.Encode(result); encodeError != nil {
		return fmt.Errorf(planRenderErrorTemplateConstant, encodeError)
	}
	if closeError := encoder.Close(); closeError != nil {
		return fmt.Errorf(planRenderErrorTemplateConstant, closeError)
	}
	return nil
}

func (service *Service) progress(format string, arguments ...any) {
	if service.notifier == nil {
		return
	}
	service.notifier.Progress(format, arguments...)
}

func (service *Service) notifySkipped(relativePath string) {
	if service.notifier == nil {
		return
	}
	service.notifier.Skipped(ignoringNoticeTemplateConstant, relativePath)
}

func normalizeGroup(rawGroup string) (string, error) {
	trimmedGroup := strings.Trim(strings.TrimSpace(rawGroup), pathSeparatorConstant)
	if len(trimmedGroup) == 0 {
		return "", ErrGroupRequired
	}
	cleanedGroup := filepath.Clean(filepath.FromSlash(trimmedGroup))
	if !filepath.IsLocal(cleanedGroup) {
		return "", fmt.Errorf(groupValidationTemplateConstant, ErrGroupOutsideRoot, rawGroup)
	}
	return cleanedGroup, nil
}
